package sessionsim

import "github.com/ssnode/cluster/internal/cluster"

type signingPayload struct {
	Setup       bool
	Abort       bool
	MessageHash [32]byte
	Version     [32]byte
	FailReason  string
}

func (p signingPayload) IsInitiation() bool { return p.Setup }

type signingSession struct {
	base[cluster.CompoundSessionId]
	view  cluster.View
	fault FaultInjector
	kind  cluster.SessionKind // KindSchnorrSign or KindEcdsaSign, for wire framing only
}

func (s *signingSession) finishLocally(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	_ = err // the signature artifact itself is out of scope; only completion is observable here
}

// initializeCommon runs the shared happy-path/fault/broadcast logic for
// both Schnorr and ECDSA signing: the actual signature math is out of
// scope, so a valid request completes as soon as it is broadcast.
func (s *signingSession) initializeCommon(version, messageHash [32]byte) error {
	if s.fault != nil {
		if err := s.fault(); err != nil {
			_ = s.view.Broadcast(cluster.Message{
				Kind: s.kind, ID: s.id.ID, Sub: s.id.Sub, HasSub: true,
				Payload: signingPayload{Abort: true, FailReason: err.Error()},
			})
			s.finishLocally(err)
			return err
		}
	}

	if err := s.view.Broadcast(cluster.Message{
		Kind: s.kind, ID: s.id.ID, Sub: s.id.Sub, HasSub: true,
		Payload: signingPayload{Setup: true, Version: version, MessageHash: messageHash},
	}); err != nil {
		return err
	}

	s.finishLocally(nil)
	return nil
}

func (s *signingSession) handleCommon(payload any) error {
	p, ok := payload.(signingPayload)
	if !ok {
		return cluster.ErrInvalidMessage
	}
	if p.Abort {
		s.finishLocally(cluster.NewInternalError(p.FailReason, nil))
		return nil
	}
	s.finishLocally(nil)
	return nil
}

// schnorrSigningSession and ecdsaSigningSession are thin, distinctly-typed
// wrappers over signingSession so each satisfies its own
// cluster.ClusterSession[CompoundSessionId] interface without the router
// ever confusing one kind's container for the other's.
type schnorrSigningSession struct{ signingSession }

func (s *schnorrSigningSession) Initialize(version, messageHash [32]byte) error {
	return s.initializeCommon(version, messageHash)
}
func (s *schnorrSigningSession) HandleMessage(from cluster.NodeId, payload any) error {
	return s.handleCommon(payload)
}

type ecdsaSigningSession struct{ signingSession }

func (s *ecdsaSigningSession) Initialize(version, messageHash [32]byte) error {
	return s.initializeCommon(version, messageHash)
}
func (s *ecdsaSigningSession) HandleMessage(from cluster.NodeId, payload any) error {
	return s.handleCommon(payload)
}

// NewSchnorrSignCreator builds the cluster.Creator wired into the
// Schnorr-signing container.
func NewSchnorrSignCreator(fault FaultInjector) cluster.Creator[cluster.CompoundSessionId, cluster.SchnorrSigningSession] {
	return func(view cluster.View, self cluster.NodeId, id cluster.CompoundSessionId, origin *cluster.NodeId, _ any) (cluster.SchnorrSigningSession, error) {
		return &schnorrSigningSession{signingSession{
			base:  base[cluster.CompoundSessionId]{id: id, origin: origin},
			view:  view,
			fault: fault,
			kind:  cluster.KindSchnorrSign,
		}}, nil
	}
}

// NewEcdsaSignCreator builds the cluster.Creator wired into the
// ECDSA-signing container.
func NewEcdsaSignCreator(fault FaultInjector) cluster.Creator[cluster.CompoundSessionId, cluster.EcdsaSigningSession] {
	return func(view cluster.View, self cluster.NodeId, id cluster.CompoundSessionId, origin *cluster.NodeId, _ any) (cluster.EcdsaSigningSession, error) {
		return &ecdsaSigningSession{signingSession{
			base:  base[cluster.CompoundSessionId]{id: id, origin: origin},
			view:  view,
			fault: fault,
			kind:  cluster.KindEcdsaSign,
		}}, nil
	}
}
