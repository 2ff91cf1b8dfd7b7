package cluster

// SessionCreators bundles the seven session constructors a SessionRegistry
// is built from. A concrete deployment supplies one per kind; tests
// typically supply non-cryptographic stand-ins.
type SessionCreators struct {
	Generation  Creator[SessionId, GenerationSession]
	Encryption  Creator[SessionId, EncryptionSession]
	Decryption  Creator[CompoundSessionId, DecryptionSession]
	SchnorrSign Creator[CompoundSessionId, SchnorrSigningSession]
	EcdsaSign   Creator[CompoundSessionId, EcdsaSigningSession]
	Negotiation Creator[CompoundSessionId, KeyVersionNegotiationSession]
	Admin       Creator[SessionId, ServersSetChangeSession]
}

// SessionRegistry aggregates the seven typed session containers plus the
// global policies (own node id) shared across them.
type SessionRegistry struct {
	Self NodeId

	Generation  *SessionContainer[SessionId, GenerationSession]
	Encryption  *SessionContainer[SessionId, EncryptionSession]
	Decryption  *SessionContainer[CompoundSessionId, DecryptionSession]
	SchnorrSign *SessionContainer[CompoundSessionId, SchnorrSigningSession]
	EcdsaSign   *SessionContainer[CompoundSessionId, EcdsaSigningSession]
	Negotiation *SessionContainer[CompoundSessionId, KeyVersionNegotiationSession]
	Admin       *SessionContainer[SessionId, ServersSetChangeSession]
}

// NewSessionRegistry builds a registry of empty containers wired to the
// given creators.
func NewSessionRegistry(self NodeId, creators SessionCreators) *SessionRegistry {
	return &SessionRegistry{
		Self:        self,
		Generation:  NewSessionContainer(creators.Generation),
		Encryption:  NewSessionContainer(creators.Encryption),
		Decryption:  NewSessionContainer(creators.Decryption),
		SchnorrSign: NewSessionContainer(creators.SchnorrSign),
		EcdsaSign:   NewSessionContainer(creators.EcdsaSign),
		Negotiation: NewSessionContainer(creators.Negotiation),
		Admin:       NewSessionContainer(creators.Admin),
	}
}

// HasActiveSessions reports whether any container currently holds a
// session, of any kind.
func (r *SessionRegistry) HasActiveSessions() bool {
	return !r.Generation.IsEmpty() ||
		!r.Encryption.IsEmpty() ||
		!r.Decryption.IsEmpty() ||
		!r.SchnorrSign.IsEmpty() ||
		!r.EcdsaSign.IsEmpty() ||
		!r.Negotiation.IsEmpty() ||
		!r.Admin.IsEmpty()
}

// PreserveSessions suppresses automatic removal of finished sessions across
// every container. Intended for tests that need to inspect terminal state.
func (r *SessionRegistry) PreserveSessions() {
	r.Generation.PreserveSessions()
	r.Encryption.PreserveSessions()
	r.Decryption.PreserveSessions()
	r.SchnorrSign.PreserveSessions()
	r.EcdsaSign.PreserveSessions()
	r.Negotiation.PreserveSessions()
	r.Admin.PreserveSessions()
}
