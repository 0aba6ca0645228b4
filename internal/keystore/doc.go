// Package keystore keeps password-protected ed25519 identities under
// keys/<name>.key in the data directory.
//
// Decrypting a key file is how the CLI authenticates its caller: only an
// opened Key yields a ledger.Authority that the vault program accepts as a
// signer.
package keystore
