package sessionsim

import "github.com/ssnode/cluster/internal/cluster"

type setChangePayload struct {
	Setup           bool
	NewNodesSet     []cluster.NodeId
	OldSetSignature [65]byte
	NewSetSignature [65]byte
}

func (p setChangePayload) IsInitiation() bool { return p.Setup }

type setChangeSession struct {
	base[cluster.SessionId]
	view         cluster.View
	adminAddress *cluster.Address

	newNodesSet map[cluster.NodeId]struct{}
}

// NewServersSetChangeCreator builds the cluster.Creator wired into the
// admin container. Verifying that the two supplied signatures actually
// belong to an administrator is out of scope for this stand-in (ACL and
// signature verification are external collaborator concerns); it only
// checks that neither signature is the zero value.
func NewServersSetChangeCreator(adminAddress *cluster.Address) cluster.Creator[cluster.SessionId, cluster.ServersSetChangeSession] {
	return func(view cluster.View, self cluster.NodeId, id cluster.SessionId, origin *cluster.NodeId, _ any) (cluster.ServersSetChangeSession, error) {
		return &setChangeSession{
			base:         base[cluster.SessionId]{id: id, origin: origin},
			view:         view,
			adminAddress: adminAddress,
		}, nil
	}
}

func (s *setChangeSession) Initialize(newNodesSet map[cluster.NodeId]struct{}, oldSetSignature, newSetSignature [65]byte) error {
	if oldSetSignature == ([65]byte{}) || newSetSignature == ([65]byte{}) {
		return cluster.ErrInvalidMessage
	}
	if len(newNodesSet) == 0 {
		return cluster.ErrInvalidNodesConfiguration
	}
	s.mu.Lock()
	s.newNodesSet = newNodesSet
	s.mu.Unlock()

	nodes := cluster.SortedNodes(newNodesSet)
	if err := s.view.Broadcast(cluster.Message{
		Kind: cluster.KindServersSetChange, ID: s.id,
		Payload: setChangePayload{Setup: true, NewNodesSet: nodes, OldSetSignature: oldSetSignature, NewSetSignature: newSetSignature},
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
	return nil
}

func (s *setChangeSession) HandleMessage(from cluster.NodeId, payload any) error {
	p, ok := payload.(setChangePayload)
	if !ok {
		return cluster.ErrInvalidMessage
	}
	if p.OldSetSignature == ([65]byte{}) || p.NewSetSignature == ([65]byte{}) {
		return cluster.ErrInvalidMessage
	}
	s.mu.Lock()
	s.newNodesSet = make(map[cluster.NodeId]struct{}, len(p.NewNodesSet))
	for _, n := range p.NewNodesSet {
		s.newNodesSet[n] = struct{}{}
	}
	s.finished = true
	s.mu.Unlock()
	return nil
}
