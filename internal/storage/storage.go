package storage

import (
	"context"
	"errors"
)

// Bucket names
var (
	ConfigBucket   = []byte("config")   // Store version, timestamps, ledger id
	AccountsBucket = []byte("accounts") // Ledger accounts keyed by address
)

var (
	ErrTxNotWritable      = errors.New("transaction not writable")
	ErrNotInitialized     = errors.New("store not initialized")
	ErrAlreadyInitialized = errors.New("store already initialized")
)

// Tx is a view over the store inside a single transaction. Values returned by
// Get and passed to ForEach are copies and stay valid after the transaction.
type Tx interface {
	Get(bucket, key []byte) ([]byte, error)
	Put(bucket, key, value []byte) error
	Delete(bucket, key []byte) error
	// ForEach visits keys in ascending byte order
	ForEach(bucket []byte, fn func(k, v []byte) error) error
	Writable() bool
}

// Backend is a transactional key/value store. Update commits only when fn
// returns nil.
type Backend interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Compactor is implemented by backends that can reclaim space left by
// deleted accounts
type Compactor interface {
	Compact() error
}
