package cluster

// Connection is a live channel to one peer. SendMessage is fire-and-forget:
// the transport layer is expected to enqueue and return without blocking on
// delivery.
type Connection interface {
	SendMessage(msg Message)
}

// ConnectionProvider exposes the transport layer's current view of peer
// reachability. ClusterView and the session routing path use it to build
// frozen snapshots; they never hold a live reference to the transport
// beyond that snapshot.
type ConnectionProvider interface {
	// ConnectedNodes returns the peers (excluding self) the transport
	// currently considers reachable. It returns ErrNodeDisconnected if the
	// local node's own connection bookkeeping has been torn down.
	ConnectedNodes() (map[NodeId]struct{}, error)
	// DisconnectedNodes returns the configured peers the transport
	// currently considers unreachable.
	DisconnectedNodes() map[NodeId]struct{}
	// Connection returns the live connection to node, if any.
	Connection(node NodeId) (Connection, bool)
}

// ConnectionManager owns the transport's connection lifecycle. Cluster asks
// it to start connecting on construction and reads its ConnectionProvider
// for every session it starts or routes a message for.
type ConnectionManager interface {
	Connect()
	Provider() ConnectionProvider
}

// KeyShare is the opaque per-node fragment of a generated key, as returned
// by and stored through KeyStorage. Its contents are meaningful only to the
// inner session state machines.
type KeyShare struct {
	Threshold   int
	CommonPoint [33]byte
	PublicKey   [65]byte
	Fragment    []byte
}

// KeyStorage persists each node's share of every generated key. Cluster
// never reads or writes shares itself; it only hands the handle to session
// constructors so the inner state machines can.
type KeyStorage interface {
	Get(id SessionId) (KeyShare, bool, error)
	Put(id SessionId, share KeyShare) error
	Remove(id SessionId) error
}

// AclStorage evaluates whether a requester identity may act on a given key.
// Evaluation itself is the inner session's responsibility; cluster only
// carries the handle.
type AclStorage interface {
	CheckPermission(requester NodeId, keyID SessionId) (bool, error)
}

// KeyServerKeyPair is this node's own signing identity.
type KeyServerKeyPair interface {
	NodeID() NodeId
	Address() Address
	Sign(digest [32]byte) ([65]byte, error)
}

// ServersSetChangeCreatorConnector is notified when a new servers-set-change
// session is created locally, so that whatever external migration machinery
// drives node addition/removal can attach to it.
type ServersSetChangeCreatorConnector interface {
	SetKeyServersSetChangeSession(session ServersSetChangeSession)
}

// RouterMetrics observes the message router's traffic, by session kind.
// Passing a nil RouterMetrics to NewMessageRouter disables observation.
type RouterMetrics interface {
	IncMessagesRouted(kind string)
	IncMessagesDropped(kind string)
}
