// Package storage provides in-memory KeyStorage and AclStorage
// implementations. Persisting key shares and ACL entries durably across
// restarts is explicitly out of scope for the cluster core; these stand-ins
// are what a deployment wires in until a real store is built.
package storage

import (
	"sync"

	"github.com/ssnode/cluster/internal/cluster"
)

// MemoryKeyStorage is a process-lifetime KeyStorage.
type MemoryKeyStorage struct {
	mu     sync.RWMutex
	shares map[cluster.SessionId]cluster.KeyShare
}

// NewMemoryKeyStorage builds an empty in-memory key store.
func NewMemoryKeyStorage() *MemoryKeyStorage {
	return &MemoryKeyStorage{shares: make(map[cluster.SessionId]cluster.KeyShare)}
}

func (s *MemoryKeyStorage) Get(id cluster.SessionId) (cluster.KeyShare, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	share, ok := s.shares[id]
	return share, ok, nil
}

func (s *MemoryKeyStorage) Put(id cluster.SessionId, share cluster.KeyShare) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shares[id] = share
	return nil
}

func (s *MemoryKeyStorage) Remove(id cluster.SessionId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.shares, id)
	return nil
}

// PermissiveAclStorage grants every requester access to every key. It
// exists so the cluster core and its tests can exercise the
// requester/ACL-carrying code paths without standing up a real access
// control list; evaluating real permissions is explicitly out of scope for
// this core.
type PermissiveAclStorage struct{}

func (PermissiveAclStorage) CheckPermission(cluster.NodeId, cluster.SessionId) (bool, error) {
	return true, nil
}

// DenylistAclStorage grants access to every requester/key pair except those
// blocked with Deny, useful for exercising the ErrAccessDenied path in tests.
type DenylistAclStorage struct {
	mu     sync.RWMutex
	denied map[cluster.NodeId]map[cluster.SessionId]struct{}
}

// NewDenylistAclStorage builds an AclStorage with no denials.
func NewDenylistAclStorage() *DenylistAclStorage {
	return &DenylistAclStorage{denied: make(map[cluster.NodeId]map[cluster.SessionId]struct{})}
}

// Deny blocks requester from key id.
func (d *DenylistAclStorage) Deny(requester cluster.NodeId, id cluster.SessionId) {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys, ok := d.denied[requester]
	if !ok {
		keys = make(map[cluster.SessionId]struct{})
		d.denied[requester] = keys
	}
	keys[id] = struct{}{}
}

func (d *DenylistAclStorage) CheckPermission(requester cluster.NodeId, id cluster.SessionId) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys, ok := d.denied[requester]
	if !ok {
		return true, nil
	}
	_, blocked := keys[id]
	return !blocked, nil
}
