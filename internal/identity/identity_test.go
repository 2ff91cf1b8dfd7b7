package identity_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/ssnode/cluster/internal/identity"
)

func TestGenerateProducesVerifiableIdentity(t *testing.T) {
	t.Parallel()

	kp, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	digest := [32]byte{1, 2, 3}
	sig, err := kp.Sign(digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if sig[64] != 0 {
		t.Errorf("Sign recovery byte = %d, want 0", sig[64])
	}
	if !identity.Verify(kp.NodeID(), digest, sig) {
		t.Error("Verify rejected a signature produced by the same keypair")
	}
}

func TestVerifyRejectsWrongDigest(t *testing.T) {
	t.Parallel()

	kp, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	sig, err := kp.Sign([32]byte{1})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if identity.Verify(kp.NodeID(), [32]byte{2}, sig) {
		t.Error("Verify accepted a signature over a different digest")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	t.Parallel()

	kp, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	other, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	digest := [32]byte{9}
	sig, err := kp.Sign(digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if identity.Verify(other.NodeID(), digest, sig) {
		t.Error("Verify accepted a signature under the wrong node id")
	}
}

func TestFromSeedIsDeterministic(t *testing.T) {
	t.Parallel()

	var seed [ed25519.SeedSize]byte
	for i := range seed {
		seed[i] = byte(i)
	}

	a := identity.FromSeed(seed)
	b := identity.FromSeed(seed)

	if a.NodeID() != b.NodeID() {
		t.Errorf("FromSeed(seed) NodeID = %v, want %v", a.NodeID(), b.NodeID())
	}
	if a.Address() != b.Address() {
		t.Errorf("FromSeed(seed) Address = %v, want %v", a.Address(), b.Address())
	}
}

func TestFromSeedDiffersAcrossSeeds(t *testing.T) {
	t.Parallel()

	var seedA, seedB [ed25519.SeedSize]byte
	seedB[0] = 1

	a := identity.FromSeed(seedA)
	b := identity.FromSeed(seedB)

	if a.NodeID() == b.NodeID() {
		t.Error("FromSeed produced the same NodeID for two different seeds")
	}
}

func TestCheckNodeID(t *testing.T) {
	t.Parallel()

	kp, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if err := kp.CheckNodeID(kp.NodeID()); err != nil {
		t.Errorf("CheckNodeID(own id) = %v, want nil", err)
	}

	other := kp.NodeID()
	other[0] ^= 0xff
	if err := kp.CheckNodeID(other); err != identity.ErrKeyPairMismatch {
		t.Errorf("CheckNodeID(mismatched id) = %v, want ErrKeyPairMismatch", err)
	}
}
