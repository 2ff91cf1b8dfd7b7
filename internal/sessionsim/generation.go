package sessionsim

import "github.com/ssnode/cluster/internal/cluster"

// generationPayload is exchanged between a generation session's master
// (the node that started it) and its mirrors on every other connected
// node. Setup carries the session parameters; Abort lets the master
// propagate a failure that happened on its own side to every mirror, so
// that the session reaches the same terminal state everywhere. Both double
// as the initiating message, since a failing master sends Abort without
// any Setup before it.
type generationPayload struct {
	Setup      bool
	Abort      bool
	Threshold  int
	Author     cluster.Address
	FailReason string
}

func (p generationPayload) IsInitiation() bool { return p.Setup || p.Abort }

type generationSession struct {
	base[cluster.SessionId]
	view        cluster.View
	self        cluster.NodeId
	keyStorage  cluster.KeyStorage
	fault       FaultInjector
	threshold   int
	author      cluster.Address
	preserveKey bool
	result      cluster.JointPublicAndSecret
	err         error
}

// NewGenerationCreator builds the cluster.Creator a production or test
// SessionRegistry wires into its generation container.
func NewGenerationCreator(keyStorage cluster.KeyStorage, fault FaultInjector) cluster.Creator[cluster.SessionId, cluster.GenerationSession] {
	return func(view cluster.View, self cluster.NodeId, id cluster.SessionId, origin *cluster.NodeId, _ any) (cluster.GenerationSession, error) {
		return &generationSession{
			base:       base[cluster.SessionId]{id: id, origin: origin},
			view:       view,
			self:       self,
			keyStorage: keyStorage,
			fault:      fault,
		}, nil
	}
}

func (s *generationSession) finishLocally(err error) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.err = err
	if err == nil {
		s.result = cluster.JointPublicAndSecret{
			JointPublicKey: syntheticPubKey(sessionIDBytes(s.id), []byte("generation")),
		}
	}
	preserve := s.preserveKey && err == nil
	res := s.result
	s.mu.Unlock()

	if preserve {
		_ = s.keyStorage.Put(s.id, cluster.KeyShare{
			Threshold: s.threshold,
			PublicKey: res.JointPublicKey,
		})
	}
}

// Initialize validates the request and, since the actual distributed key
// generation math is out of scope, completes immediately: it broadcasts the
// outcome to every other connected node so their mirrored sessions reach
// the same terminal state, then finishes locally.
func (s *generationSession) Initialize(origin *cluster.NodeId, author cluster.Address, preserveKey bool, threshold int, nodes map[cluster.NodeId]struct{}) error {
	if threshold+1 > len(nodes) {
		return cluster.ErrNotEnoughNodesForThreshold
	}

	s.mu.Lock()
	s.threshold = threshold
	s.author = author
	s.preserveKey = preserveKey
	s.mu.Unlock()

	if s.fault != nil {
		if err := s.fault(); err != nil {
			_ = s.view.Broadcast(cluster.Message{
				Kind:    cluster.KindGeneration,
				ID:      s.id,
				Payload: generationPayload{Abort: true, FailReason: err.Error()},
			})
			s.finishLocally(err)
			return err
		}
	}

	if err := s.view.Broadcast(cluster.Message{
		Kind:    cluster.KindGeneration,
		ID:      s.id,
		Payload: generationPayload{Setup: true, Threshold: threshold, Author: author},
	}); err != nil {
		return err
	}

	s.finishLocally(nil)
	return nil
}

func (s *generationSession) HandleMessage(from cluster.NodeId, payload any) error {
	p, ok := payload.(generationPayload)
	if !ok {
		return cluster.ErrInvalidMessage
	}
	if p.Abort {
		s.finishLocally(cluster.NewInternalError(p.FailReason, nil))
		return nil
	}

	s.mu.Lock()
	s.threshold = p.Threshold
	s.author = p.Author
	s.mu.Unlock()

	s.finishLocally(nil)
	return nil
}

func (s *generationSession) Result() (cluster.JointPublicAndSecret, error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		return cluster.JointPublicAndSecret{}, nil, false
	}
	return s.result, s.err, true
}
