package cluster_test

import (
	"errors"
	"testing"

	"github.com/ssnode/cluster/internal/cluster"
	"github.com/ssnode/cluster/internal/sessionsim"
	"github.com/ssnode/cluster/internal/storage"
	"github.com/ssnode/cluster/internal/transport"
)

// node bundles one simulated key-server node's cluster core together with
// the collaborators a test might want to inspect directly.
type node struct {
	id         cluster.NodeId
	keyStorage *storage.MemoryKeyStorage
	aclStorage cluster.AclStorage
	cluster    *cluster.Cluster
}

func nodeID(b byte) cluster.NodeId {
	var id cluster.NodeId
	id[0] = b
	return id
}

// newTestNode wires a node onto net using non-cryptographic sessionsim
// creators, mirroring what cmd/ssnoded assembles for a real deployment.
func newTestNode(net *transport.MemoryNetwork, id cluster.NodeId, acl cluster.AclStorage, faults sessionsim.Faults) *node {
	keyStorage := storage.NewMemoryKeyStorage()
	if acl == nil {
		acl = storage.PermissiveAclStorage{}
	}
	cm := net.Join(id)
	clus := cluster.NewCluster(cluster.Config{
		Self:        id,
		Connections: cm,
		KeyStorage:  keyStorage,
		AclStorage:  acl,
		Creators:    sessionsim.NewCreators(keyStorage, acl, nil, faults),
	})
	return &node{id: id, keyStorage: keyStorage, aclStorage: acl, cluster: clus}
}

// pump drains every queued message across all nodes until none remain,
// routing each through its destination's router. A bound on iterations
// guards against a test bug turning into an infinite loop rather than a
// clear failure.
func pump(t *testing.T, net *transport.MemoryNetwork, nodes []*node) {
	t.Helper()
	for round := 0; round < 1000; round++ {
		delivered := false
		for _, n := range nodes {
			for {
				msg, ok := net.Take(n.id)
				if !ok {
					break
				}
				n.cluster.Router().Process(msg)
				delivered = true
			}
		}
		if !delivered {
			return
		}
	}
	t.Fatal("pump: messages still in flight after 1000 rounds")
}

func TestGenerationSessionFinishesOnAllNodes(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a := newTestNode(net, nodeID(1), nil, sessionsim.Faults{})
	b := newTestNode(net, nodeID(2), nil, sessionsim.Faults{})
	c := newTestNode(net, nodeID(3), nil, sessionsim.Faults{})
	nodes := []*node{a, b, c}

	id := cluster.SessionId{1}
	session, err := a.cluster.Client().NewGenerationSession(id, nil, cluster.Address{9}, 1)
	if err != nil {
		t.Fatalf("NewGenerationSession: %v", err)
	}
	if !session.IsFinished() {
		t.Fatal("generation session on originator did not finish synchronously")
	}
	result, resErr, ok := session.Result()
	if !ok || resErr != nil {
		t.Fatalf("Result() = (ok=%v, err=%v), want (true, nil)", ok, resErr)
	}
	if result.JointPublicKey == ([65]byte{}) {
		t.Error("Result() returned a zero joint public key")
	}

	pump(t, net, nodes)

	for _, n := range nodes {
		if n.cluster.Sessions().HasActiveSessions() {
			t.Errorf("node %s still has an active session after generation finished", n.id)
		}
	}
}

func TestGenerationSessionFailsBelowThreshold(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a := newTestNode(net, nodeID(1), nil, sessionsim.Faults{})
	newTestNode(net, nodeID(2), nil, sessionsim.Faults{})

	// threshold 2 requires 3 connected nodes (threshold+1); only 2 exist.
	_, err := a.cluster.Client().NewGenerationSession(cluster.SessionId{1}, nil, cluster.Address{1}, 2)
	if !errors.Is(err, cluster.ErrNotEnoughNodesForThreshold) {
		t.Fatalf("NewGenerationSession = %v, want ErrNotEnoughNodesForThreshold", err)
	}
	if a.cluster.Sessions().HasActiveSessions() {
		t.Error("a failed session was left registered")
	}
}

func TestEncryptionSessionRequiresRequester(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a := newTestNode(net, nodeID(1), nil, sessionsim.Faults{})

	_, err := a.cluster.Client().NewEncryptionSession(cluster.SessionId{2}, cluster.Requester{}, [33]byte{1}, [33]byte{2})
	if !errors.Is(err, cluster.ErrInvalidMessage) {
		t.Fatalf("NewEncryptionSession(empty requester) = %v, want ErrInvalidMessage", err)
	}
}

func TestEncryptionSessionDeniedByAcl(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	acl := storage.NewDenylistAclStorage()
	a := newTestNode(net, nodeID(1), acl, sessionsim.Faults{})

	id := cluster.SessionId{3}
	requester := cluster.RequesterFromPublicKey(nodeID(9))
	acl.Deny(nodeID(9), id)

	_, err := a.cluster.Client().NewEncryptionSession(id, requester, [33]byte{1}, [33]byte{2})
	if !errors.Is(err, cluster.ErrAccessDenied) {
		t.Fatalf("NewEncryptionSession(denied requester) = %v, want ErrAccessDenied", err)
	}
}

func TestEncryptionSessionFinishesOnAllNodes(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a := newTestNode(net, nodeID(1), nil, sessionsim.Faults{})
	b := newTestNode(net, nodeID(2), nil, sessionsim.Faults{})
	nodes := []*node{a, b}

	id := cluster.SessionId{4}
	requester := cluster.RequesterFromPublicKey(nodeID(9))
	session, err := a.cluster.Client().NewEncryptionSession(id, requester, [33]byte{1}, [33]byte{2})
	if err != nil {
		t.Fatalf("NewEncryptionSession: %v", err)
	}
	if !session.IsFinished() {
		t.Fatal("encryption session on originator did not finish synchronously")
	}

	pump(t, net, nodes)

	if b.cluster.Sessions().HasActiveSessions() {
		t.Error("mirrored encryption session left registered on peer")
	}
}

func TestNodeDisconnectedAtSessionStartIsNonFatal(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a := newTestNode(net, nodeID(1), nil, sessionsim.Faults{})
	newTestNode(net, nodeID(2), nil, sessionsim.Faults{})

	net.DisconnectSelf(nodeID(1))

	_, err := a.cluster.Client().NewEncryptionSession(cluster.SessionId{5}, cluster.RequesterFromPublicKey(nodeID(9)), [33]byte{1}, [33]byte{2})
	if !errors.Is(err, cluster.ErrNodeDisconnected) {
		t.Fatalf("NewEncryptionSession after DisconnectSelf = %v, want ErrNodeDisconnected", err)
	}
	if !cluster.IsNonFatal(err) {
		t.Error("ErrNodeDisconnected should classify as non-fatal")
	}
}

func TestServersSetChangeSessionBroadcastsAndMirrors(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a := newTestNode(net, nodeID(1), nil, sessionsim.Faults{})
	b := newTestNode(net, nodeID(2), nil, sessionsim.Faults{})
	nodes := []*node{a, b}

	newSet := map[cluster.NodeId]struct{}{nodeID(1): {}, nodeID(2): {}, nodeID(3): {}}
	params := cluster.ServersSetChangeParams{
		NewNodesSet:     newSet,
		OldSetSignature: [65]byte{1},
		NewSetSignature: [65]byte{2},
	}

	session, err := a.cluster.Client().NewServersSetChangeSession(params)
	if err != nil {
		t.Fatalf("NewServersSetChangeSession: %v", err)
	}
	if !session.IsFinished() {
		t.Fatal("servers-set-change session on originator did not finish synchronously")
	}

	pump(t, net, nodes)

	for _, n := range nodes {
		if n.cluster.Sessions().HasActiveSessions() {
			t.Errorf("node %s still has an active admin session after set change finished", n.id)
		}
	}
}

func TestServersSetChangeRejectsZeroSignature(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a := newTestNode(net, nodeID(1), nil, sessionsim.Faults{})

	params := cluster.ServersSetChangeParams{
		NewNodesSet:     map[cluster.NodeId]struct{}{nodeID(1): {}},
		OldSetSignature: [65]byte{},
		NewSetSignature: [65]byte{2},
	}
	_, err := a.cluster.Client().NewServersSetChangeSession(params)
	if !errors.Is(err, cluster.ErrInvalidMessage) {
		t.Fatalf("NewServersSetChangeSession(zero signature) = %v, want ErrInvalidMessage", err)
	}
}

func TestServersSetChangeExclusiveWhileActive(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a := newTestNode(net, nodeID(1), nil, sessionsim.Faults{})
	a.cluster.Sessions().PreserveSessions()

	params := cluster.ServersSetChangeParams{
		NewNodesSet:     map[cluster.NodeId]struct{}{nodeID(1): {}},
		OldSetSignature: [65]byte{1},
		NewSetSignature: [65]byte{2},
	}
	if _, err := a.cluster.Client().NewServersSetChangeSession(params); err != nil {
		t.Fatalf("first NewServersSetChangeSession: %v", err)
	}

	_, err := a.cluster.Client().NewServersSetChangeSession(params)
	if !errors.Is(err, cluster.ErrHasActiveSessions) {
		t.Fatalf("second NewServersSetChangeSession = %v, want ErrHasActiveSessions", err)
	}
}

func TestSetChangeConnectorIsCalled(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	id := nodeID(1)
	keyStorage := storage.NewMemoryKeyStorage()
	acl := storage.PermissiveAclStorage{}
	connector := &recordingConnector{}
	cm := net.Join(id)
	clus := cluster.NewCluster(cluster.Config{
		Self:               id,
		Connections:        cm,
		KeyStorage:         keyStorage,
		AclStorage:         acl,
		Creators:           sessionsim.NewCreators(keyStorage, acl, nil, sessionsim.Faults{}),
		SetChangeConnector: connector,
	})

	params := cluster.ServersSetChangeParams{
		NewNodesSet:     map[cluster.NodeId]struct{}{id: {}},
		OldSetSignature: [65]byte{1},
		NewSetSignature: [65]byte{2},
	}
	if _, err := clus.Client().NewServersSetChangeSession(params); err != nil {
		t.Fatalf("NewServersSetChangeSession: %v", err)
	}
	if !connector.called {
		t.Error("ServersSetChangeCreatorConnector was never invoked")
	}
}

type recordingConnector struct {
	called bool
}

func (r *recordingConnector) SetKeyServersSetChangeSession(cluster.ServersSetChangeSession) {
	r.called = true
}

// TestDecryptionWithoutVersionNegotiatesOnASingleNode exercises the
// version-pinned-to-nil path of NewDecryptionSession: it must first run a
// key-version negotiation and only continue into decryption once that
// negotiation settles. With no peers configured, quorum falls back to this
// node's own share and the whole chain completes synchronously.
func TestDecryptionWithoutVersionNegotiatesOnASingleNode(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	id := nodeID(1)
	keyStorage := storage.NewMemoryKeyStorage()
	acl := storage.PermissiveAclStorage{}
	cm := net.Join(id)
	clus := cluster.NewCluster(cluster.Config{
		Self:        id,
		Connections: cm,
		KeyStorage:  keyStorage,
		AclStorage:  acl,
		Creators:    sessionsim.NewCreators(keyStorage, acl, nil, sessionsim.Faults{}),
	})

	sessionID := cluster.SessionId{6}
	if err := keyStorage.Put(sessionID, cluster.KeyShare{Threshold: 0, PublicKey: [65]byte{1}}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	requester := cluster.RequesterFromPublicKey(nodeID(9))
	session, err := clus.Client().NewDecryptionSession(sessionID, nil, requester, nil, false, false)
	if err != nil {
		t.Fatalf("NewDecryptionSession: %v", err)
	}
	if !session.IsFinished() {
		t.Fatal("decryption session did not finish after negotiation settled locally")
	}
	result, resErr, ok := session.Result()
	if !ok || resErr != nil {
		t.Fatalf("Result() = (ok=%v, err=%v), want (true, nil)", ok, resErr)
	}
	if len(result.DecryptedSecret) == 0 {
		t.Error("Result() returned an empty decrypted secret")
	}
}

func TestIsFullyConnectedReflectsTransport(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a := newTestNode(net, nodeID(1), nil, sessionsim.Faults{})
	newTestNode(net, nodeID(2), nil, sessionsim.Faults{})

	if !a.cluster.Client().IsFullyConnected() {
		t.Error("IsFullyConnected = false immediately after both nodes joined")
	}

	net.Disconnect(nodeID(1), nodeID(2))
	if a.cluster.Client().IsFullyConnected() {
		t.Error("IsFullyConnected = true after Disconnect")
	}
}
