package cluster

import "log/slog"

// ClusterData is the bundle of collaborators and registries every session
// creator and the router need. It is assembled once, by NewCluster, and
// never mutated afterward; the fields most callers actually want are
// exposed through Cluster's own methods.
type ClusterData struct {
	Self               NodeId
	SelfKeyPair        KeyServerKeyPair
	AdminAddress       *Address
	KeyStorage         KeyStorage
	AclStorage         AclStorage
	Sessions           *SessionRegistry
	Connections        ConnectionManager
	Router             *MessageRouter
	SetChangeConnector ServersSetChangeCreatorConnector
}

// Cluster wires a SessionRegistry, MessageRouter and ClusterClient together
// over one node's transport connections. It is the coordination core of a
// single key-server node.
type Cluster struct {
	data *ClusterData
}

// Config bundles everything NewCluster needs to assemble a node's
// coordination core.
type Config struct {
	Self               NodeId
	SelfKeyPair        KeyServerKeyPair
	AdminAddress       *Address
	KeyStorage         KeyStorage
	AclStorage         AclStorage
	Connections        ConnectionManager
	SetChangeConnector ServersSetChangeCreatorConnector
	Creators           SessionCreators
	Metrics            RouterMetrics
	Logger             *slog.Logger
}

// NewCluster builds a Cluster's registries and router from cfg and starts
// the transport connecting. The returned Cluster is ready to serve a
// ClusterClient and route inbound messages immediately.
func NewCluster(cfg Config) *Cluster {
	sessions := NewSessionRegistry(cfg.Self, cfg.Creators)
	router := NewMessageRouter(cfg.Self, sessions, cfg.Connections.Provider(), cfg.SetChangeConnector, cfg.Metrics, cfg.Logger)

	data := &ClusterData{
		Self:               cfg.Self,
		SelfKeyPair:        cfg.SelfKeyPair,
		AdminAddress:       cfg.AdminAddress,
		KeyStorage:         cfg.KeyStorage,
		AclStorage:         cfg.AclStorage,
		Sessions:           sessions,
		Connections:        cfg.Connections,
		Router:             router,
		SetChangeConnector: cfg.SetChangeConnector,
	}

	cfg.Connections.Connect()

	return &Cluster{data: data}
}

// Client returns the external façade for starting sessions on this node's
// own behalf.
func (c *Cluster) Client() ClusterClient {
	return &clusterClientImpl{data: c.data}
}

// Router returns the inbound message dispatcher.
func (c *Cluster) Router() *MessageRouter {
	return c.data.Router
}

// Sessions returns the aggregate session registry, primarily for metrics
// and diagnostics.
func (c *Cluster) Sessions() *SessionRegistry {
	return c.data.Sessions
}
