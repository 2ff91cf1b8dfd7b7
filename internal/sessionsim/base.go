// Package sessionsim provides non-cryptographic stand-ins for the six
// cryptographic session state machines (and the servers-set-change admin
// session) that the cluster core treats as external collaborators. They
// exist to exercise SessionContainer, MessageRouter, ClusterClient and
// ListenerRegistrar end to end without a real threshold-crypto library:
// building actual generation/signing/decryption math is explicitly out of
// scope for this core.
package sessionsim

import (
	"sync"

	"github.com/ssnode/cluster/internal/cluster"
)

// base provides the ID/Origin/IsFinished bookkeeping every session kind
// shares, parametrized over its key type.
type base[K comparable] struct {
	mu       sync.Mutex
	id       K
	origin   *cluster.NodeId
	finished bool
}

func (b *base[K]) ID() K                   { return b.id }
func (b *base[K]) Origin() *cluster.NodeId { return b.origin }

func (b *base[K]) IsFinished() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finished
}

// FaultInjector lets tests force a session to fail at a chosen point
// instead of exercising the (non-cryptographic) happy path. Production
// wiring never sets one.
type FaultInjector func() error
