package cluster

// ClusterClient is the façade external callers (an RPC surface, a CLI, an
// admin tool) use to start any of the seven session kinds. It is the only
// entry point that creates sessions on this node's own behalf, as opposed
// to in response to an inbound peer message.
type ClusterClient interface {
	NewGenerationSession(id SessionId, origin *NodeId, author Address, threshold int) (GenerationSession, error)
	NewEncryptionSession(id SessionId, requester Requester, commonPoint, encryptedPoint [33]byte) (EncryptionSession, error)
	NewDecryptionSession(id SessionId, origin *NodeId, requester Requester, version *[32]byte, isShadowDecryption, isBroadcastDecryption bool) (DecryptionSession, error)
	NewSchnorrSigningSession(id SessionId, requester Requester, version *[32]byte, messageHash [32]byte) (SchnorrSigningSession, error)
	NewEcdsaSigningSession(id SessionId, requester Requester, version *[32]byte, messageHash [32]byte) (EcdsaSigningSession, error)
	NewKeyVersionNegotiationSession(id SessionId) (KeyVersionNegotiationSession, error)
	NewServersSetChangeSession(params ServersSetChangeParams) (ServersSetChangeSession, error)

	SessionListenerRegistrar() ListenerRegistrar
	IsFullyConnected() bool
	Connect()
	HasActiveSessions() bool
}

type clusterClientImpl struct {
	data *ClusterData
}

func (c *clusterClientImpl) newView() (*ClusterView, map[NodeId]struct{}, error) {
	return newClusterView(c.data.Self, c.data.Connections.Provider())
}

// finishInitialization applies cluster-wide post-initialization handling: a
// failed initialization removes the session and reports the error; a
// successful one that already reached a terminal state (some sessions
// finish immediately, e.g. encryption) is removed too, respecting
// PreserveSessions.
func finishInitialization[K comparable, S ClusterSession[K]](err error, session S, container *SessionContainer[K, S]) (S, error) {
	if err != nil {
		container.Remove(session.ID())
		var zero S
		return zero, err
	}
	container.removeIfFinished(session.ID())
	return session, nil
}

func (c *clusterClientImpl) NewGenerationSession(id SessionId, origin *NodeId, author Address, threshold int) (GenerationSession, error) {
	view, nodes, err := c.newView()
	if err != nil {
		return nil, err
	}
	session, err := c.data.Sessions.Generation.Insert(view, c.data.Self, id, origin, false, nil)
	if err != nil {
		return nil, err
	}
	initErr := session.Initialize(origin, author, false, threshold, nodes)
	return finishInitialization(initErr, session, c.data.Sessions.Generation)
}

func (c *clusterClientImpl) NewEncryptionSession(id SessionId, requester Requester, commonPoint, encryptedPoint [33]byte) (EncryptionSession, error) {
	view, _, err := c.newView()
	if err != nil {
		return nil, err
	}
	session, err := c.data.Sessions.Encryption.Insert(view, c.data.Self, id, nil, false, nil)
	if err != nil {
		return nil, err
	}
	initErr := session.Initialize(requester, commonPoint, encryptedPoint)
	return finishInitialization(initErr, session, c.data.Sessions.Encryption)
}

// createNegotiationSession starts a fresh key-version-negotiation attempt
// under id, with a freshly generated sub-session key. It is used both for a
// directly requested negotiation and as the first step of any decrypt/sign
// request that did not pin a version up front.
func (c *clusterClientImpl) createNegotiationSession(id SessionId) (KeyVersionNegotiationSession, error) {
	view, nodes, err := c.newView()
	if err != nil {
		return nil, err
	}
	sub, err := NewSubSessionKey()
	if err != nil {
		return nil, err
	}
	compound := CompoundSessionId{ID: id, Sub: sub}

	session, err := c.data.Sessions.Negotiation.Insert(view, c.data.Self, compound, nil, false, nil)
	if err != nil {
		return nil, err
	}
	if initErr := session.Initialize(nodes); initErr != nil {
		c.data.Sessions.Negotiation.Remove(session.ID())
		return nil, initErr
	}
	return session, nil
}

func (c *clusterClientImpl) NewDecryptionSession(id SessionId, origin *NodeId, requester Requester, version *[32]byte, isShadowDecryption, isBroadcastDecryption bool) (DecryptionSession, error) {
	view, _, err := c.newView()
	if err != nil {
		return nil, err
	}
	sub, err := NewSubSessionKey()
	if err != nil {
		return nil, err
	}
	compound := CompoundSessionId{ID: id, Sub: sub}

	session, err := c.data.Sessions.Decryption.Insert(view, c.data.Self, compound, origin, false, requester)
	if err != nil {
		return nil, err
	}

	var initErr error
	if version != nil {
		initErr = session.Initialize(origin, *version, isShadowDecryption, isBroadcastDecryption)
	} else {
		negotiation, negErr := c.createNegotiationSession(id)
		if negErr != nil {
			initErr = negErr
		} else {
			negotiation.SetContinueAction(ContinueActionDecrypt{
				Session:   session,
				Origin:    origin,
				Shadow:    isShadowDecryption,
				Broadcast: isBroadcastDecryption,
			})
			negotiation.SetFailedContinueAction(FailedContinueActionDecrypt{
				Origin:    origin,
				Requester: requester,
			})
			continueSession(c.data.Sessions, negotiation)
		}
	}
	return finishInitialization(initErr, session, c.data.Sessions.Decryption)
}

func (c *clusterClientImpl) NewSchnorrSigningSession(id SessionId, requester Requester, version *[32]byte, messageHash [32]byte) (SchnorrSigningSession, error) {
	view, _, err := c.newView()
	if err != nil {
		return nil, err
	}
	sub, err := NewSubSessionKey()
	if err != nil {
		return nil, err
	}
	compound := CompoundSessionId{ID: id, Sub: sub}

	session, err := c.data.Sessions.SchnorrSign.Insert(view, c.data.Self, compound, nil, false, requester)
	if err != nil {
		return nil, err
	}

	var initErr error
	if version != nil {
		initErr = session.Initialize(*version, messageHash)
	} else {
		negotiation, negErr := c.createNegotiationSession(id)
		if negErr != nil {
			initErr = negErr
		} else {
			negotiation.SetContinueAction(ContinueActionSchnorrSign{Session: session, MessageHash: messageHash})
			continueSession(c.data.Sessions, negotiation)
		}
	}
	return finishInitialization(initErr, session, c.data.Sessions.SchnorrSign)
}

func (c *clusterClientImpl) NewEcdsaSigningSession(id SessionId, requester Requester, version *[32]byte, messageHash [32]byte) (EcdsaSigningSession, error) {
	view, _, err := c.newView()
	if err != nil {
		return nil, err
	}
	sub, err := NewSubSessionKey()
	if err != nil {
		return nil, err
	}
	compound := CompoundSessionId{ID: id, Sub: sub}

	session, err := c.data.Sessions.EcdsaSign.Insert(view, c.data.Self, compound, nil, false, requester)
	if err != nil {
		return nil, err
	}

	var initErr error
	if version != nil {
		initErr = session.Initialize(*version, messageHash)
	} else {
		negotiation, negErr := c.createNegotiationSession(id)
		if negErr != nil {
			initErr = negErr
		} else {
			negotiation.SetContinueAction(ContinueActionEcdsaSign{Session: session, MessageHash: messageHash})
			continueSession(c.data.Sessions, negotiation)
		}
	}
	return finishInitialization(initErr, session, c.data.Sessions.EcdsaSign)
}

func (c *clusterClientImpl) NewKeyVersionNegotiationSession(id SessionId) (KeyVersionNegotiationSession, error) {
	return c.createNegotiationSession(id)
}

func (c *clusterClientImpl) NewServersSetChangeSession(params ServersSetChangeParams) (ServersSetChangeSession, error) {
	return newServersSetChangeSession(c.data, params)
}

func (c *clusterClientImpl) SessionListenerRegistrar() ListenerRegistrar {
	return NewListenerRegistrar(c.data.Sessions)
}

// IsFullyConnected reports whether every configured peer is currently
// reachable.
func (c *clusterClientImpl) IsFullyConnected() bool {
	provider := c.data.Connections.Provider()
	return len(provider.DisconnectedNodes()) == 0
}

func (c *clusterClientImpl) Connect() {
	c.data.Connections.Connect()
}

func (c *clusterClientImpl) HasActiveSessions() bool {
	return c.data.Sessions.HasActiveSessions()
}
