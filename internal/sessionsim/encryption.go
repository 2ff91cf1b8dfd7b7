package sessionsim

import "github.com/ssnode/cluster/internal/cluster"

// requesterNodeId resolves the NodeId an AclStorage check should be run
// against. A public-key Requester asserts it directly; a signature-kind
// Requester would normally need recovery against the message digest, which
// is real cryptography and out of scope here, so it derives a deterministic
// stand-in NodeId from the signature bytes instead.
func requesterNodeId(r cluster.Requester) cluster.NodeId {
	if pub, ok := r.PublicKey(); ok {
		return pub
	}
	if sig, ok := r.Signature(); ok {
		pk := syntheticPubKey(sig[:])
		return cluster.NodeId(pk[:32])
	}
	return cluster.NodeId{}
}

type encryptionPayload struct {
	Setup           bool
	CommonPoint     [33]byte
	EncryptedPoint  [33]byte
}

func (p encryptionPayload) IsInitiation() bool { return p.Setup }

type encryptionSession struct {
	base[cluster.SessionId]
	view      cluster.View
	aclStore  cluster.AclStorage
	requester cluster.Requester
}

// NewEncryptionCreator builds the cluster.Creator wired into the encryption
// container.
func NewEncryptionCreator(acl cluster.AclStorage) cluster.Creator[cluster.SessionId, cluster.EncryptionSession] {
	return func(view cluster.View, self cluster.NodeId, id cluster.SessionId, origin *cluster.NodeId, _ any) (cluster.EncryptionSession, error) {
		return &encryptionSession{
			base: base[cluster.SessionId]{id: id, origin: origin},
			view: view, aclStore: acl,
		}, nil
	}
}

// Initialize stores the document's encryption point against the session id
// and broadcasts it to every other connected node, then finishes
// immediately: storing an encryption point is a single round, not a
// multi-step protocol.
func (s *encryptionSession) Initialize(requester cluster.Requester, commonPoint, encryptedPoint [33]byte) error {
	if requester.IsEmpty() {
		return cluster.ErrInvalidMessage
	}
	if s.aclStore != nil {
		allowed, err := s.aclStore.CheckPermission(requesterNodeId(requester), s.id)
		if err != nil {
			return err
		}
		if !allowed {
			return cluster.ErrAccessDenied
		}
	}
	s.requester = requester

	if err := s.view.Broadcast(cluster.Message{
		Kind: cluster.KindEncryption,
		ID:   s.id,
		Payload: encryptionPayload{Setup: true, CommonPoint: commonPoint, EncryptedPoint: encryptedPoint},
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
	return nil
}

func (s *encryptionSession) HandleMessage(from cluster.NodeId, payload any) error {
	if _, ok := payload.(encryptionPayload); !ok {
		return cluster.ErrInvalidMessage
	}
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
	return nil
}
