package cluster

// ContinueAction is the follow-up a key-version-negotiation session runs
// once it settles on a chosen version. Exactly one of the three concrete
// types below is ever attached to a given negotiation session.
type ContinueAction interface{ isContinueAction() }

// ContinueActionDecrypt resumes a decryption session once its key version
// has been negotiated.
type ContinueActionDecrypt struct {
	Session   DecryptionSession
	Origin    *NodeId
	Shadow    bool
	Broadcast bool
}

func (ContinueActionDecrypt) isContinueAction() {}

// ContinueActionSchnorrSign resumes a Schnorr signing session once its key
// version has been negotiated.
type ContinueActionSchnorrSign struct {
	Session     SchnorrSigningSession
	MessageHash [32]byte
}

func (ContinueActionSchnorrSign) isContinueAction() {}

// ContinueActionEcdsaSign resumes an ECDSA signing session once its key
// version has been negotiated.
type ContinueActionEcdsaSign struct {
	Session     EcdsaSigningSession
	MessageHash [32]byte
}

func (ContinueActionEcdsaSign) isContinueAction() {}

// FailedContinueAction carries what a listener needs to report a fatal
// negotiation failure back to whichever caller was waiting on it.
type FailedContinueAction interface{ isFailedContinueAction() }

// FailedContinueActionDecrypt is attached when the pending follow-up was a
// decryption, so that a fatal negotiation failure can still be reported as
// a shadow-retrieval failure to the original requester.
type FailedContinueActionDecrypt struct {
	Origin    *NodeId
	Requester Requester
}

func (FailedContinueActionDecrypt) isFailedContinueAction() {}

// continueSession consumes session's attached ContinueAction, if any, and
// exactly once: the take-and-clear contract on
// KeyVersionNegotiationSession.TakeContinueAction guarantees that whichever
// of the two call sites (ClusterClient, right after attaching the action;
// MessageRouter, when the session reaches a terminal state) gets there
// first is the only one that runs it.
//
// It is a deliberate no-op if the negotiation has not finished yet, if no
// action was ever attached, or if negotiation failed: a failed negotiation
// drops the action without starting the follow-up, leaving
// FailedContinueAction (consumed separately, by the listener registrar) as
// the only way the failure is still reported.
func continueSession(sessions *SessionRegistry, session KeyVersionNegotiationSession) {
	if session == nil {
		return
	}
	version, negErr, ok := session.Result()
	if !ok {
		return
	}
	action, present := session.TakeContinueAction()
	if !present || negErr != nil {
		return
	}

	switch a := action.(type) {
	case ContinueActionDecrypt:
		err := a.Session.Initialize(a.Origin, version, a.Shadow, a.Broadcast)
		finishFollowUp(err, a.Session, sessions.Decryption)
	case ContinueActionSchnorrSign:
		err := a.Session.Initialize(version, a.MessageHash)
		finishFollowUp(err, a.Session, sessions.SchnorrSign)
	case ContinueActionEcdsaSign:
		err := a.Session.Initialize(version, a.MessageHash)
		finishFollowUp(err, a.Session, sessions.EcdsaSign)
	}
}

// finishFollowUp applies the same terminal-state handling to a
// continuation's follow-up session as session creation does: a failed
// initialization is removed unconditionally, a successful one only if it
// already reached a terminal state (some follow-ups, e.g. a single-share
// sign, finish immediately; most do not).
func finishFollowUp[K comparable, S ClusterSession[K]](err error, session S, container *SessionContainer[K, S]) {
	if err != nil {
		container.Remove(session.ID())
		return
	}
	container.removeIfFinished(session.ID())
}
