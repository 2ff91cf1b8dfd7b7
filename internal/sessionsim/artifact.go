package sessionsim

import (
	"crypto/sha256"

	"github.com/ssnode/cluster/internal/cluster"
)

// syntheticPoint derives a deterministic, non-cryptographic stand-in for a
// 33-byte elliptic-curve point from arbitrary seed material. It has no
// cryptographic meaning; it exists only so that two nodes computing "the
// same" artifact for the same session agree byte-for-byte, which is enough
// to exercise the coordination logic that only compares and forwards these
// values without ever validating them.
func syntheticPoint(seed ...[]byte) [33]byte {
	h := sha256.New()
	for _, s := range seed {
		h.Write(s)
	}
	sum := h.Sum(nil)
	var out [33]byte
	out[0] = 0x02
	copy(out[1:], sum)
	return out
}

// syntheticPubKey derives a 65-byte stand-in for an uncompressed public key.
func syntheticPubKey(seed ...[]byte) [65]byte {
	h := sha256.New()
	for _, s := range seed {
		h.Write(s)
	}
	sum := h.Sum(nil)
	var out [65]byte
	out[0] = 0x04
	copy(out[1:33], sum)
	copy(out[33:], sum)
	return out
}

func sessionIDBytes(id cluster.SessionId) []byte { b := id; return b[:] }
