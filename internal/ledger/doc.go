// Package ledger is the local host environment the vault program runs on.
//
// It keeps accounts (lamport balance, owning program, data) in a
// storage.Backend and exposes the primitives a program needs:
//   - Allocate: create a rent-exempt account funded by a payer
//   - Close: delete an account and refund every lamport to a recipient
//   - Transfer: move native value between accounts
//
// All primitives run on a Tx obtained from Ledger.Update. The Tx carries one
// clock reading, taken when it began, and either commits every effect or
// none of them.
package ledger
