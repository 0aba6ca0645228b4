// Package pubkey provides 32-byte account identities and program-derived
// addresses.
//
// Identities are ed25519 public keys rendered in base58. A program-derived
// address is the SHA-256 digest of a seed list, a one-byte bump, the owning
// program id and a fixed marker, accepted only when the digest is not a
// valid ed25519 point:
//   - no private key exists for such an address
//   - the owning program proves authority by presenting the seeds and bump
//   - FindProgramAddress searches bumps from 255 downward and returns the
//     first viable one, which makes the result canonical
package pubkey
