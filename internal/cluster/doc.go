// Package cluster implements the coordination core of a key-server node: it
// tracks the peers that are currently reachable, starts and routes messages
// for the cryptographic sessions that run across them, and fans out
// terminal-session notifications to the rest of the node.
//
// The session state machines themselves (generation, encryption, decryption,
// Schnorr/ECDSA signing, key-version negotiation and servers-set-change) are
// external collaborators: cluster only drives their lifecycle through the
// narrow interfaces declared in this package.
package cluster
