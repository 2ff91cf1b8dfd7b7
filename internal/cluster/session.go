package cluster

// ClusterSession is the capability every session kind shares, parametrized
// over its own key type K (plain SessionId for generation, encryption and
// servers-set-change; CompoundSessionId for decryption, signing and
// key-version negotiation, which may run several concurrent attempts under
// one SessionId).
type ClusterSession[K comparable] interface {
	ID() K
	// Origin is the peer that asked this node to start the session on its
	// behalf, or nil if this node is the originator.
	Origin() *NodeId
	IsFinished() bool
	// HandleMessage applies one inbound peer message to the session's
	// internal state machine.
	HandleMessage(from NodeId, payload any) error
}

// JointPublicAndSecret is the artifact a generation session produces: the
// joint public key (the node's own share is persisted separately, via
// KeyStorage, by the session itself).
type JointPublicAndSecret struct {
	JointPublicKey [65]byte
}

// GenerationSession drives a distributed key generation.
type GenerationSession interface {
	ClusterSession[SessionId]
	Initialize(origin *NodeId, author Address, preserveKey bool, threshold int, nodes map[NodeId]struct{}) error
	// Result reports the generated key once finished. ok is false until the
	// session has reached a terminal state.
	Result() (result JointPublicAndSecret, err error, ok bool)
}

// EncryptionSession stores a document's encryption point against an
// already-generated key.
type EncryptionSession interface {
	ClusterSession[SessionId]
	Initialize(requester Requester, commonPoint, encryptedPoint [33]byte) error
}

// DecryptionResult is the artifact a decryption session produces. CommonPoint
// is present only when the session was run in shadow-decryption mode.
type DecryptionResult struct {
	CommonPoint     *[33]byte
	DecryptedSecret []byte
}

// DecryptionSession recovers (or shadow-decrypts) a document key.
type DecryptionSession interface {
	ClusterSession[CompoundSessionId]
	Initialize(origin *NodeId, version [32]byte, isShadowDecryption, isBroadcastDecryption bool) error
	Result() (result DecryptionResult, err error, ok bool)
	IsShadowDecryptionRequested() bool
	Requester() (requester Requester, ok bool)
	BroadcastShadows() (shadows map[NodeId][]byte, ok bool)
	Threshold() int
}

// SchnorrSigningSession produces a Schnorr signature over a message hash
// using a previously generated key's distributed secret.
type SchnorrSigningSession interface {
	ClusterSession[CompoundSessionId]
	Initialize(version [32]byte, messageHash [32]byte) error
}

// EcdsaSigningSession produces an ECDSA signature over a message hash using
// a previously generated key's distributed secret.
type EcdsaSigningSession interface {
	ClusterSession[CompoundSessionId]
	Initialize(version [32]byte, messageHash [32]byte) error
}

// ChosenVersion is the key version a negotiation session settles on.
type ChosenVersion = [32]byte

// KeyVersionNegotiationSession determines which generation of a key's
// shares the connected peers hold in common, then optionally continues into
// a decryption or signing session via its attached ContinueAction.
type KeyVersionNegotiationSession interface {
	ClusterSession[CompoundSessionId]
	Initialize(nodes map[NodeId]struct{}) error
	Result() (version ChosenVersion, err error, ok bool)

	// SetContinueAction attaches the follow-up to run once negotiation
	// succeeds. TakeContinueAction consumes it exactly once; later callers
	// see present=false. Implementations must guard both under the
	// session's own lock.
	SetContinueAction(action ContinueAction)
	TakeContinueAction() (action ContinueAction, present bool)

	// SetFailedContinueAction/TakeFailedContinueAction carry the
	// information a listener needs to report a fatal negotiation failure
	// to the session that was waiting on it. Same take-and-clear contract
	// as the success path.
	SetFailedContinueAction(action FailedContinueAction)
	TakeFailedContinueAction() (action FailedContinueAction, present bool)
}

// ServersSetChangeSession drives the administrative migration to a new
// servers set, gated on two administrator signatures (over the old and new
// node sets respectively).
type ServersSetChangeSession interface {
	ClusterSession[SessionId]
	Initialize(newNodesSet map[NodeId]struct{}, oldSetSignature, newSetSignature [65]byte) error
}
