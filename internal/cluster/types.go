package cluster

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
)

// NodeId identifies a key-server node by its public key.
type NodeId [32]byte

func (n NodeId) String() string {
	return hex.EncodeToString(n[:])
}

// Less gives NodeId a total order, used wherever the inner session state
// machines need deterministic iteration over a peer set.
func (n NodeId) Less(other NodeId) bool {
	for i := range n {
		if n[i] != other[i] {
			return n[i] < other[i]
		}
	}
	return false
}

// SortedNodes returns the members of nodes in ascending NodeId order.
func SortedNodes(nodes map[NodeId]struct{}) []NodeId {
	out := make([]NodeId, 0, len(nodes))
	for n := range nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Address identifies a node's signing identity for servers-set-change and
// requester proofs, independent of its transport-level NodeId.
type Address [20]byte

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// SessionId is the caller-chosen identifier of a top-level session.
type SessionId [32]byte

func (s SessionId) String() string {
	return hex.EncodeToString(s[:])
}

// SubSessionKey distinguishes concurrent decryption, signing and
// key-version-negotiation attempts that share the same SessionId. It is
// generated fresh by the node that starts the sub-session and is never
// reused once consumed.
type SubSessionKey [32]byte

func (k SubSessionKey) String() string {
	return hex.EncodeToString(k[:])
}

// NewSubSessionKey draws a fresh, unpredictable sub-session key. Unlike a
// discriminator allocator it is never checked for uniqueness against a
// registry: a collision is astronomically unlikely and, if it ever
// happened, would simply surface as DuplicateSessionId on insert.
func NewSubSessionKey() (SubSessionKey, error) {
	var k SubSessionKey
	if _, err := rand.Read(k[:]); err != nil {
		return SubSessionKey{}, fmt.Errorf("cluster: generate sub-session key: %w", err)
	}
	return k, nil
}

// CompoundSessionId keys the containers (decryption, signing, key-version
// negotiation) that may run several concurrent attempts under one
// SessionId.
type CompoundSessionId struct {
	ID  SessionId
	Sub SubSessionKey
}

func (c CompoundSessionId) String() string {
	return c.ID.String() + "/" + c.Sub.String()
}

// SessionKind names one of the six cryptographic session state machines,
// plus the administrative servers-set-change session.
type SessionKind uint8

const (
	KindGeneration SessionKind = iota + 1
	KindEncryption
	KindDecryption
	KindSchnorrSign
	KindEcdsaSign
	KindKeyVersionNegotiation
	KindServersSetChange
)

func (k SessionKind) String() string {
	switch k {
	case KindGeneration:
		return "generation"
	case KindEncryption:
		return "encryption"
	case KindDecryption:
		return "decryption"
	case KindSchnorrSign:
		return "schnorr-sign"
	case KindEcdsaSign:
		return "ecdsa-sign"
	case KindKeyVersionNegotiation:
		return "key-version-negotiation"
	case KindServersSetChange:
		return "servers-set-change"
	default:
		return fmt.Sprintf("session-kind(%d)", uint8(k))
	}
}

// RequesterKind distinguishes the two forms a Requester proof can take.
type RequesterKind uint8

const (
	RequesterKindNone RequesterKind = iota
	RequesterKindSignature
	RequesterKindPublicKey
)

// Requester carries the caller's claim of identity for an encryption,
// decryption or signing session. Validating the claim against the session's
// access key is the responsibility of the inner session state machine (and,
// transitively, of AclStorage); cluster only threads the value through.
type Requester struct {
	kind      RequesterKind
	signature [65]byte
	publicKey NodeId
}

// RequesterFromSignature builds a Requester backed by a recoverable
// signature over the session's access key.
func RequesterFromSignature(sig [65]byte) Requester {
	return Requester{kind: RequesterKindSignature, signature: sig}
}

// RequesterFromPublicKey builds a Requester that asserts its identity
// directly, without a recoverable signature.
func RequesterFromPublicKey(pub NodeId) Requester {
	return Requester{kind: RequesterKindPublicKey, publicKey: pub}
}

// IsEmpty reports whether no requester proof was supplied at all.
func (r Requester) IsEmpty() bool {
	return r.kind == RequesterKindNone
}

// Kind reports which form of proof this Requester carries.
func (r Requester) Kind() RequesterKind {
	return r.kind
}

// Signature returns the raw signature bytes for a signature-kind Requester.
func (r Requester) Signature() ([65]byte, bool) {
	if r.kind != RequesterKindSignature {
		return [65]byte{}, false
	}
	return r.signature, true
}

// PublicKey returns the asserted NodeId for a public-key-kind Requester.
func (r Requester) PublicKey() (NodeId, bool) {
	if r.kind != RequesterKindPublicKey {
		return NodeId{}, false
	}
	return r.publicKey, true
}

// SessionPayload is implemented by the wire payloads the inner session state
// machines exchange. IsInitiation distinguishes the first message of a
// session (which the router is allowed to create a session in response to)
// from every later message (which must land on an already-registered
// session or is dropped).
type SessionPayload interface {
	IsInitiation() bool
}

// Message is the envelope cluster asks a Connection to deliver to one peer.
type Message struct {
	Kind    SessionKind
	ID      SessionId
	Sub     SubSessionKey
	HasSub  bool
	Payload any
}

// InboundMessage is the envelope the router receives from the transport
// layer for one already-delivered peer message.
type InboundMessage struct {
	From    NodeId
	Kind    SessionKind
	ID      SessionId
	Sub     SubSessionKey
	HasSub  bool
	Payload any
}
