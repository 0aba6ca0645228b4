// Package storage provides the transactional key/value layer under the
// ledger.
//
// Data is grouped into buckets:
//   - config: store version, creation time, ledger id
//   - accounts: ledger accounts keyed by their 32-byte address
//
// Every ledger transition runs inside one Update call, so all of its writes
// commit together or not at all. The default backend is BBolt, which provides
// ACID transactions, file locking and corruption detection. A SQLite backend
// lives in the sqlite subpackage.
package storage
