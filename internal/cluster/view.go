package cluster

// View is the per-session messaging capability handed to every session
// state machine at construction. It is frozen at the moment the session was
// created: the peer set it reports never changes for the life of the
// session, even as the transport layer's live connections come and go.
type View interface {
	Self() NodeId
	Broadcast(msg Message) error
	Send(to NodeId, msg Message) error
	IsConnected(node NodeId) bool
	Nodes() map[NodeId]struct{}
	ConfiguredNodesCount() int
	ConnectedNodesCount() int
}

// ClusterView is the default View implementation: a frozen peer snapshot
// backed by the transport layer's live connections for actually sending.
type ClusterView struct {
	self            NodeId
	nodes           map[NodeId]struct{}
	configuredCount int
	connections     ConnectionProvider
}

// NewClusterView builds a View over the given frozen node snapshot (which
// must include self). configuredCount is the total number of nodes the
// local topology knows about, connected or not, at snapshot time.
func NewClusterView(self NodeId, connections ConnectionProvider, nodes map[NodeId]struct{}, configuredCount int) *ClusterView {
	frozen := make(map[NodeId]struct{}, len(nodes))
	for n := range nodes {
		frozen[n] = struct{}{}
	}
	return &ClusterView{
		self:            self,
		nodes:           frozen,
		configuredCount: configuredCount,
		connections:     connections,
	}
}

func (v *ClusterView) Self() NodeId { return v.self }

// Broadcast sends msg to every snapshot peer other than self. It fails with
// ErrNodeDisconnected if any snapshot peer has since been dropped by the
// transport, leaving earlier sends already enqueued.
func (v *ClusterView) Broadcast(msg Message) error {
	for node := range v.nodes {
		if node == v.self {
			continue
		}
		conn, ok := v.connections.Connection(node)
		if !ok {
			return ErrNodeDisconnected
		}
		conn.SendMessage(msg)
	}
	return nil
}

// Send delivers msg to a single peer, failing with ErrNodeDisconnected if
// the transport no longer has a live connection to it.
func (v *ClusterView) Send(to NodeId, msg Message) error {
	conn, ok := v.connections.Connection(to)
	if !ok {
		return ErrNodeDisconnected
	}
	conn.SendMessage(msg)
	return nil
}

// IsConnected reports membership in the frozen snapshot, not current
// transport reachability.
func (v *ClusterView) IsConnected(node NodeId) bool {
	_, ok := v.nodes[node]
	return ok
}

// Nodes returns a copy of the frozen snapshot.
func (v *ClusterView) Nodes() map[NodeId]struct{} {
	out := make(map[NodeId]struct{}, len(v.nodes))
	for n := range v.nodes {
		out[n] = struct{}{}
	}
	return out
}

func (v *ClusterView) ConfiguredNodesCount() int { return v.configuredCount }
func (v *ClusterView) ConnectedNodesCount() int  { return len(v.nodes) }

// newClusterView snapshots the transport layer's current connections, adds
// self, and returns a View over that frozen set together with the raw node
// map (useful to session constructors that need the set directly, e.g. for
// threshold checks).
func newClusterView(self NodeId, connections ConnectionProvider) (*ClusterView, map[NodeId]struct{}, error) {
	connected, err := connections.ConnectedNodes()
	if err != nil {
		return nil, nil, err
	}
	nodes := make(map[NodeId]struct{}, len(connected)+1)
	for n := range connected {
		nodes[n] = struct{}{}
	}
	nodes[self] = struct{}{}

	disconnected := connections.DisconnectedNodes()
	configuredCount := len(nodes) + len(disconnected)

	return NewClusterView(self, connections, nodes, configuredCount), nodes, nil
}
