package sessionsim

import (
	"encoding/gob"

	"github.com/ssnode/cluster/internal/cluster"
)

func init() {
	// Payloads travel in the interface-typed Payload field of cluster
	// messages, so gob encoding over TCPNetwork needs each concrete type.
	gob.Register(generationPayload{})
	gob.Register(encryptionPayload{})
	gob.Register(decryptionPayload{})
	gob.Register(signingPayload{})
	gob.Register(negotiationPayload{})
	gob.Register(setChangePayload{})
}

// Faults lets a test inject a failure into any one session kind's
// Initialize. A nil field means that kind always follows its happy path.
type Faults struct {
	Generation  FaultInjector
	Encryption  FaultInjector
	Decryption  FaultInjector
	SchnorrSign FaultInjector
	EcdsaSign   FaultInjector
}

// NewCreators bundles the full set of non-cryptographic session creators
// for one node, wired against its KeyStorage and AclStorage.
func NewCreators(keyStorage cluster.KeyStorage, acl cluster.AclStorage, adminAddress *cluster.Address, faults Faults) cluster.SessionCreators {
	return cluster.SessionCreators{
		Generation:  NewGenerationCreator(keyStorage, faults.Generation),
		Encryption:  NewEncryptionCreator(acl),
		Decryption:  NewDecryptionCreator(keyStorage, faults.Decryption),
		SchnorrSign: NewSchnorrSignCreator(faults.SchnorrSign),
		EcdsaSign:   NewEcdsaSignCreator(faults.EcdsaSign),
		Negotiation: NewNegotiationCreator(keyStorage),
		Admin:       NewServersSetChangeCreator(adminAddress),
	}
}
