package cluster

// DocumentKeyShadowArtifacts is the payload a shadow decryption hands back
// to the requester: enough for the requester to finish the decryption
// itself without the full secret ever existing on one node.
type DocumentKeyShadowArtifacts struct {
	CommonPoint              [33]byte
	Threshold                int
	EncryptedDocumentKey     []byte
	ParticipantsCoefficients map[NodeId][]byte
}

// ServerKeyGenerationResult reports the outcome of a completed generation
// session.
type ServerKeyGenerationResult struct {
	Origin   *NodeId
	KeyID    SessionId
	Artifact *JointPublicAndSecret
	Err      error
}

// DocumentKeyShadowRetrievalResult reports the outcome of a completed
// shadow-decryption request, whether it succeeded, failed after producing a
// result, or failed during key-version negotiation before one ever ran.
type DocumentKeyShadowRetrievalResult struct {
	Origin    *NodeId
	KeyID     SessionId
	Requester Requester
	Artifact  *DocumentKeyShadowArtifacts
	Err       error
}

// ServiceListener receives the domain-level notifications the cluster core
// derives from session removal. A node wires exactly one implementation
// in, typically something that turns these into outbound RPC responses or
// webhook deliveries.
type ServiceListener interface {
	ServerKeyGenerated(result ServerKeyGenerationResult)
	DocumentKeyShadowRetrieved(result DocumentKeyShadowRetrievalResult)
}

// ListenerRegistrar attaches a ServiceListener to every container whose
// removals carry a domain-level outcome.
type ListenerRegistrar interface {
	RegisterListener(listener ServiceListener)
}

type listenerRegistrar struct {
	sessions *SessionRegistry
}

// NewListenerRegistrar builds a registrar over sessions.
func NewListenerRegistrar(sessions *SessionRegistry) ListenerRegistrar {
	return &listenerRegistrar{sessions: sessions}
}

func (lr *listenerRegistrar) RegisterListener(listener ServiceListener) {
	lr.sessions.Generation.AddListener(generationListener{target: listener})
	lr.sessions.Decryption.AddListener(decryptionListener{target: listener})
	lr.sessions.Negotiation.AddListener(negotiationListener{target: listener})
}

type generationListener struct{ target ServiceListener }

func (g generationListener) OnSessionRemoved(session GenerationSession) {
	if !session.IsFinished() {
		panic("cluster: generation listener invoked on a session that has not finished")
	}
	result, err, ok := session.Result()
	if !ok {
		return
	}
	out := ServerKeyGenerationResult{
		Origin: session.Origin(),
		KeyID:  session.ID(),
		Err:    err,
	}
	if err == nil {
		out.Artifact = &result
	}
	g.target.ServerKeyGenerated(out)
}

type decryptionListener struct{ target ServiceListener }

func (d decryptionListener) OnSessionRemoved(session DecryptionSession) {
	if !session.IsFinished() {
		panic("cluster: decryption listener invoked on a session that has not finished")
	}
	if !session.IsShadowDecryptionRequested() {
		return
	}
	requester, hasRequester := session.Requester()
	if !hasRequester {
		return
	}
	result, err, ok := session.Result()
	if !ok {
		return
	}
	shadows, hasShadows := session.BroadcastShadows()
	if err == nil && !hasShadows {
		return
	}

	out := DocumentKeyShadowRetrievalResult{
		Origin:    session.Origin(),
		KeyID:     session.ID().ID,
		Requester: requester,
		Err:       err,
	}
	if err == nil {
		if result.CommonPoint == nil {
			panic("cluster: shadow decryption result missing its common point")
		}
		out.Artifact = &DocumentKeyShadowArtifacts{
			CommonPoint:              *result.CommonPoint,
			Threshold:                session.Threshold(),
			EncryptedDocumentKey:     result.DecryptedSecret,
			ParticipantsCoefficients: shadows,
		}
	}
	d.target.DocumentKeyShadowRetrieved(out)
}

type negotiationListener struct{ target ServiceListener }

func (n negotiationListener) OnSessionRemoved(session KeyVersionNegotiationSession) {
	if !session.IsFinished() {
		panic("cluster: negotiation listener invoked on a session that has not finished")
	}
	_, err, ok := session.Result()
	if !ok || err == nil || IsNonFatal(err) {
		return
	}
	action, present := session.TakeFailedContinueAction()
	if !present {
		return
	}
	decrypt, isDecrypt := action.(FailedContinueActionDecrypt)
	if !isDecrypt {
		return
	}
	n.target.DocumentKeyShadowRetrieved(DocumentKeyShadowRetrievalResult{
		Origin:    decrypt.Origin,
		KeyID:     session.ID().ID,
		Requester: decrypt.Requester,
		Err:       err,
	})
}
