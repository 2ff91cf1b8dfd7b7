// Package identity provides this node's own signing identity, and the
// ed25519-backed KeyServerKeyPair that the cluster core treats as an
// external collaborator.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ssnode/cluster/internal/cluster"
)

// ErrKeyPairMismatch indicates a loaded private key does not match its
// expected public key.
var ErrKeyPairMismatch = errors.New("identity: private key does not match node id")

// KeyPair is this node's ed25519 signing identity. It satisfies
// cluster.KeyServerKeyPair.
type KeyPair struct {
	nodeID  cluster.NodeId
	address cluster.Address
	private ed25519.PrivateKey
}

// Generate creates a fresh random identity.
func Generate() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate key: %w", err)
	}
	return fromKeys(pub, priv), nil
}

// FromSeed deterministically derives an identity from a 32-byte seed, for
// configuration-file-driven node identities.
func FromSeed(seed [ed25519.SeedSize]byte) *KeyPair {
	priv := ed25519.NewKeyFromSeed(seed[:])
	pub := priv.Public().(ed25519.PublicKey)
	return fromKeys(pub, priv)
}

func fromKeys(pub ed25519.PublicKey, priv ed25519.PrivateKey) *KeyPair {
	var nodeID cluster.NodeId
	copy(nodeID[:], pub)

	addrDigest := sha256.Sum256(pub)
	var address cluster.Address
	copy(address[:], addrDigest[:len(address)])

	return &KeyPair{nodeID: nodeID, address: address, private: priv}
}

func (k *KeyPair) NodeID() cluster.NodeId { return k.nodeID }
func (k *KeyPair) Address() cluster.Address { return k.address }

// CheckNodeID returns ErrKeyPairMismatch if this keypair's NodeId does not
// equal expected. Used at startup to catch a configuration file whose
// node_id_hex no longer matches its seed_hex, before the node ever dials a
// peer under the wrong identity.
func (k *KeyPair) CheckNodeID(expected cluster.NodeId) error {
	if k.nodeID != expected {
		return ErrKeyPairMismatch
	}
	return nil
}

// Sign produces a 65-byte proof over digest: the ed25519 signature followed
// by a zero recovery byte, kept for wire-format symmetry with the
// secp256k1-style 65-byte signatures signing is conventionally done with in
// this domain. Verification only ever checks the first 64 bytes.
func (k *KeyPair) Sign(digest [32]byte) ([65]byte, error) {
	sig := ed25519.Sign(k.private, digest[:])
	var out [65]byte
	copy(out[:64], sig)
	return out, nil
}

// Verify checks sig (as produced by Sign) against pub and digest.
func Verify(pub cluster.NodeId, digest [32]byte, sig [65]byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), digest[:], sig[:64])
}
