package sessionsim

import "github.com/ssnode/cluster/internal/cluster"

type decryptionPayload struct {
	Setup      bool
	Abort      bool
	Shadow     bool
	Broadcast  bool
	Version    [32]byte
	FailReason string
}

func (p decryptionPayload) IsInitiation() bool { return p.Setup }

type decryptionSession struct {
	base[cluster.CompoundSessionId]
	view       cluster.View
	self       cluster.NodeId
	keyStorage cluster.KeyStorage
	fault      FaultInjector

	requester    cluster.Requester
	hasRequester bool
	shadow       bool
	broadcast    bool
	threshold    int

	result DecryptionResult
	err    error
}

// DecryptionResult is an alias of cluster.DecryptionResult: both names
// denote the same type.
type DecryptionResult = cluster.DecryptionResult

// NewDecryptionCreator builds the cluster.Creator wired into the decryption
// container. creationData, supplied by ClusterClient.NewDecryptionSession,
// is the Requester that started the session; inbound sessions created by
// the router in response to a peer's message never carry one.
func NewDecryptionCreator(keyStorage cluster.KeyStorage, fault FaultInjector) cluster.Creator[cluster.CompoundSessionId, cluster.DecryptionSession] {
	return func(view cluster.View, self cluster.NodeId, id cluster.CompoundSessionId, origin *cluster.NodeId, creationData any) (cluster.DecryptionSession, error) {
		s := &decryptionSession{
			base:       base[cluster.CompoundSessionId]{id: id, origin: origin},
			view:       view,
			self:       self,
			keyStorage: keyStorage,
			fault:      fault,
		}
		if requester, ok := creationData.(cluster.Requester); ok {
			s.requester = requester
			s.hasRequester = true
		}
		return s, nil
	}
}

func (s *decryptionSession) finishLocally(err error) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.err = err
	if err == nil {
		secret := syntheticPoint(sessionIDBytes(s.id.ID), s.id.Sub[:])
		s.result = DecryptionResult{DecryptedSecret: secret[:]}
		if s.shadow {
			cp := syntheticPoint(sessionIDBytes(s.id.ID), []byte("common-point"))
			s.result.CommonPoint = &cp
		}
	}
	s.mu.Unlock()
}

// Initialize completes the decryption in one round: the actual distributed
// recovery math is out of scope, so a valid request succeeds as soon as it
// is broadcast, regardless of which specific connected nodes answer (this
// is what lets the overall signature/decryption complete even when one
// participant turns out to have no share for the negotiated version).
//
// Initialize does not currently receive the set of nodes participating in
// the broadcast decryption, so BroadcastShadows can only report this node's
// own shadow; a real threshold implementation would need every
// share-holder's shadow keyed by its NodeId.
func (s *decryptionSession) Initialize(origin *cluster.NodeId, version [32]byte, isShadowDecryption, isBroadcastDecryption bool) error {
	s.mu.Lock()
	s.shadow = isShadowDecryption
	s.broadcast = isBroadcastDecryption
	if share, ok, _ := s.keyStorage.Get(s.id.ID); ok {
		s.threshold = share.Threshold
	}
	s.mu.Unlock()

	if s.fault != nil {
		if err := s.fault(); err != nil {
			_ = s.view.Broadcast(cluster.Message{
				Kind: cluster.KindDecryption, ID: s.id.ID, Sub: s.id.Sub, HasSub: true,
				Payload: decryptionPayload{Abort: true, FailReason: err.Error()},
			})
			s.finishLocally(err)
			return err
		}
	}

	if err := s.view.Broadcast(cluster.Message{
		Kind: cluster.KindDecryption, ID: s.id.ID, Sub: s.id.Sub, HasSub: true,
		Payload: decryptionPayload{Setup: true, Shadow: isShadowDecryption, Broadcast: isBroadcastDecryption, Version: version},
	}); err != nil {
		return err
	}

	s.finishLocally(nil)
	return nil
}

func (s *decryptionSession) HandleMessage(from cluster.NodeId, payload any) error {
	p, ok := payload.(decryptionPayload)
	if !ok {
		return cluster.ErrInvalidMessage
	}
	if p.Abort {
		s.finishLocally(cluster.NewInternalError(p.FailReason, nil))
		return nil
	}
	s.mu.Lock()
	s.shadow = p.Shadow
	s.broadcast = p.Broadcast
	s.mu.Unlock()
	s.finishLocally(nil)
	return nil
}

func (s *decryptionSession) Result() (DecryptionResult, error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		return DecryptionResult{}, nil, false
	}
	return s.result, s.err, true
}

func (s *decryptionSession) IsShadowDecryptionRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shadow
}

func (s *decryptionSession) Requester() (cluster.Requester, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requester, s.hasRequester
}

func (s *decryptionSession) BroadcastShadows() (map[cluster.NodeId][]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished || s.err != nil || !s.broadcast {
		return nil, false
	}
	shadow := syntheticPoint(sessionIDBytes(s.id.ID), []byte("shadow"))
	return map[cluster.NodeId][]byte{s.self: shadow[:]}, true
}

func (s *decryptionSession) Threshold() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threshold
}
