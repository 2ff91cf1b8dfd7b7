package cluster

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the cluster core. Callers should compare with
// errors.Is rather than equality, since some of these are also returned
// wrapped by the inner session state machines.
var (
	// ErrNodeDisconnected is returned by ClusterView.Broadcast/Send when the
	// target peer (or, for broadcast, any peer in the view's snapshot) has no live
	// transport connection, and by session creation when the local node's
	// own connection bookkeeping is unavailable.
	ErrNodeDisconnected = errors.New("cluster: node disconnected")

	// ErrDuplicateSessionId is returned when a session is already
	// registered under the requested id in its container.
	ErrDuplicateSessionId = errors.New("cluster: duplicate session id")

	// ErrHasActiveSessions is returned when an exclusive (administrative)
	// session is requested while another admin session is still live.
	ErrHasActiveSessions = errors.New("cluster: has active sessions")

	// ErrNotEnoughNodesForThreshold is returned by session initialization
	// when the connected peer set is too small to satisfy the requested
	// threshold.
	ErrNotEnoughNodesForThreshold = errors.New("cluster: not enough nodes for threshold")

	// ErrInvalidMessage is returned for structurally invalid requests: an
	// unrecognised servers-set-change session id, a zero-value requester
	// proof where one is required, or a malformed inbound payload.
	ErrInvalidMessage = errors.New("cluster: invalid message")

	// ErrInvalidNodesConfiguration is returned when a requested node set is
	// internally inconsistent (for example, empty, or missing the local
	// node where membership requires it).
	ErrInvalidNodesConfiguration = errors.New("cluster: invalid nodes configuration")

	// ErrAccessDenied is returned when ACL evaluation, performed by the
	// inner session against AclStorage, rejects the requester.
	ErrAccessDenied = errors.New("cluster: access denied")

	// ErrConsensusUnreachable is returned when the connected peers cannot
	// agree on a chosen key version during negotiation.
	ErrConsensusUnreachable = errors.New("cluster: consensus unreachable")

	// ErrSessionNotFound names the case of a session id that has no
	// corresponding entry in its container. Nothing in this package returns
	// it: the router drops messages for unknown sessions instead.
	ErrSessionNotFound = errors.New("cluster: session not found")
)

// InternalError wraps a failure that originates in a collaborator (storage,
// transport, signing) rather than in protocol logic.
type InternalError struct {
	Reason string
	Err    error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cluster: internal error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("cluster: internal error: %s", e.Reason)
}

func (e *InternalError) Unwrap() error { return e.Err }

// NewInternalError wraps err as an InternalError with the given reason. err
// may be nil.
func NewInternalError(reason string, err error) error {
	return &InternalError{Reason: reason, Err: err}
}

// IsNonFatal classifies an error as transient rather than protocol-fatal.
// Only disconnection and consensus-unreachable outcomes are non-fatal;
// every other error (including InternalError) is fatal. This is the single
// place that classification is decided, so session removal, logging
// severity and listener notification all agree on it.
func IsNonFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNodeDisconnected) || errors.Is(err, ErrConsensusUnreachable)
}
