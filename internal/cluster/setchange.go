package cluster

// ServersSetChangeSessionID is the single, fixed session id every
// servers-set-change session runs under. Because the admin container is
// exclusive, at most one is ever registered at a time; a well-known id
// keeps every node's inbound messages routable without the starter having
// to broadcast an arbitrary id first.
var ServersSetChangeSessionID = SessionId{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// ServersSetChangeParams starts a migration to a new servers set, gated on
// signatures from an administrator over both the old and the new set.
type ServersSetChangeParams struct {
	// SessionID is normally left nil; callers may only pin it to
	// ServersSetChangeSessionID explicitly (any other value is rejected).
	SessionID       *SessionId
	MigrationID     *[32]byte
	NewNodesSet     map[NodeId]struct{}
	OldSetSignature [65]byte
	NewSetSignature [65]byte
}

// ServersSetChangeCreationData is the creationData handed to the admin
// container's Creator.
type ServersSetChangeCreationData struct {
	MigrationID *[32]byte
	NewNodesSet map[NodeId]struct{}
}

func newServersSetChangeSession(data *ClusterData, params ServersSetChangeParams) (ServersSetChangeSession, error) {
	id := ServersSetChangeSessionID
	if params.SessionID != nil {
		if *params.SessionID != ServersSetChangeSessionID {
			return nil, ErrInvalidMessage
		}
		id = *params.SessionID
	}

	view, _, err := newClusterView(data.Self, data.Connections.Provider())
	if err != nil {
		return nil, err
	}

	creationData := ServersSetChangeCreationData{
		MigrationID: params.MigrationID,
		NewNodesSet: params.NewNodesSet,
	}
	session, err := data.Sessions.Admin.Insert(view, data.Self, id, nil, true, creationData)
	if err != nil {
		return nil, err
	}

	initErr := session.Initialize(params.NewNodesSet, params.OldSetSignature, params.NewSetSignature)
	if initErr == nil && data.SetChangeConnector != nil {
		data.SetChangeConnector.SetKeyServersSetChangeSession(session)
	}
	return finishInitialization(initErr, session, data.Sessions.Admin)
}
