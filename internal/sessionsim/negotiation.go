package sessionsim

import "github.com/ssnode/cluster/internal/cluster"

// negotiationPayload is exchanged between the node that starts a
// key-version negotiation (the requester) and every other connected node
// (the responders). Setup is the request; a reply sets Offer and reports
// whether the responder holds a share for this key, and under which
// version.
type negotiationPayload struct {
	Setup    bool
	Offer    bool
	HasShare bool
	Version  [32]byte
}

func (p negotiationPayload) IsInitiation() bool { return p.Setup }

type negotiationSession struct {
	base[cluster.CompoundSessionId]
	view       cluster.View
	self       cluster.NodeId
	keyStorage cluster.KeyStorage

	nodes     map[cluster.NodeId]struct{}
	threshold int
	responded map[cluster.NodeId]struct{}
	haveShare map[cluster.NodeId]struct{}
	version   [32]byte
	versionOk bool
	err       error

	continueAction    cluster.ContinueAction
	hasContinueAction bool
	failedAction      cluster.FailedContinueAction
	hasFailedAction   bool
}

// NewNegotiationCreator builds the cluster.Creator wired into the
// key-version-negotiation container.
func NewNegotiationCreator(keyStorage cluster.KeyStorage) cluster.Creator[cluster.CompoundSessionId, cluster.KeyVersionNegotiationSession] {
	return func(view cluster.View, self cluster.NodeId, id cluster.CompoundSessionId, origin *cluster.NodeId, _ any) (cluster.KeyVersionNegotiationSession, error) {
		return &negotiationSession{
			base:       base[cluster.CompoundSessionId]{id: id, origin: origin},
			view:       view,
			self:       self,
			keyStorage: keyStorage,
			responded:  make(map[cluster.NodeId]struct{}),
			haveShare:  make(map[cluster.NodeId]struct{}),
		}, nil
	}
}

func deriveVersion(id cluster.SessionId, share cluster.KeyShare) [32]byte {
	p := syntheticPoint(sessionIDBytes(id), share.PublicKey[:])
	var v [32]byte
	copy(v[:], p[:32])
	return v
}

// Initialize starts negotiation: it records whatever share this node
// itself already holds, broadcasts a request to every other node in nodes,
// and checks whether quorum has already been reached (the common case of a
// single-node key-server deployment, or one where every peer answers
// synchronously in a test harness before Initialize returns).
func (s *negotiationSession) Initialize(nodes map[cluster.NodeId]struct{}) error {
	s.mu.Lock()
	s.nodes = nodes
	s.responded[s.self] = struct{}{}
	if share, ok, _ := s.keyStorage.Get(s.id.ID); ok {
		s.threshold = share.Threshold
		s.haveShare[s.self] = struct{}{}
		s.version = deriveVersion(s.id.ID, share)
		s.versionOk = true
	}
	s.mu.Unlock()

	if err := s.view.Broadcast(cluster.Message{
		Kind: cluster.KindKeyVersionNegotiation, ID: s.id.ID, Sub: s.id.Sub, HasSub: true,
		Payload: negotiationPayload{Setup: true},
	}); err != nil {
		return err
	}

	s.checkQuorum()
	return nil
}

// checkQuorum finalizes the session, successfully, once threshold+1 nodes
// (every node in the session while the threshold is 0) have reported
// holding a share at the same version, the version of the first share
// seen; or with
// ErrConsensusUnreachable once every addressed node has responded without
// quorum ever being reached.
func (s *negotiationSession) checkQuorum() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	required := s.threshold + 1
	if required <= 1 {
		required = len(s.nodes)
		if required == 0 {
			required = 1
		}
	}
	haveQuorum := s.versionOk && len(s.haveShare) >= required
	everyoneResponded := len(s.responded) >= len(s.nodes)
	var finish bool
	var err error
	if haveQuorum {
		finish = true
	} else if everyoneResponded {
		finish = true
		err = cluster.ErrConsensusUnreachable
	}
	if finish {
		s.finished = true
		s.err = err
	}
	s.mu.Unlock()
}

func (s *negotiationSession) HandleMessage(from cluster.NodeId, payload any) error {
	p, ok := payload.(negotiationPayload)
	if !ok {
		return cluster.ErrInvalidMessage
	}

	if p.Setup {
		reply := negotiationPayload{Offer: true}
		if share, has, _ := s.keyStorage.Get(s.id.ID); has {
			reply.HasShare = true
			reply.Version = deriveVersion(s.id.ID, share)
		}
		err := s.view.Send(from, cluster.Message{
			Kind: cluster.KindKeyVersionNegotiation, ID: s.id.ID, Sub: s.id.Sub, HasSub: true,
			Payload: reply,
		})
		s.mu.Lock()
		s.finished = true
		s.mu.Unlock()
		return err
	}

	if p.Offer {
		s.mu.Lock()
		s.responded[from] = struct{}{}
		if p.HasShare {
			if !s.versionOk {
				s.version = p.Version
				s.versionOk = true
			}
			if p.Version == s.version {
				s.haveShare[from] = struct{}{}
			}
		}
		s.mu.Unlock()
		s.checkQuorum()
		return nil
	}

	return cluster.ErrInvalidMessage
}

func (s *negotiationSession) Result() (cluster.ChosenVersion, error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		return cluster.ChosenVersion{}, nil, false
	}
	return s.version, s.err, true
}

func (s *negotiationSession) SetContinueAction(action cluster.ContinueAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.continueAction = action
	s.hasContinueAction = true
}

func (s *negotiationSession) TakeContinueAction() (cluster.ContinueAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasContinueAction {
		return nil, false
	}
	action := s.continueAction
	s.continueAction = nil
	s.hasContinueAction = false
	return action, true
}

func (s *negotiationSession) SetFailedContinueAction(action cluster.FailedContinueAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedAction = action
	s.hasFailedAction = true
}

func (s *negotiationSession) TakeFailedContinueAction() (cluster.FailedContinueAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFailedAction {
		return nil, false
	}
	action := s.failedAction
	s.failedAction = nil
	s.hasFailedAction = false
	return action, true
}
