// Package token is a minimal fungible-token program on the local ledger:
// mints, token accounts, associated token accounts, checked transfers and
// account closing.
package token
