package storage

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// LatestVersion is the current store layout version
const LatestVersion = 1

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigLedgerID = []byte("ledger_id")
)

// Metadata describes an initialized store
type Metadata struct {
	Version  uint32
	Created  time.Time
	LedgerID string
}

// Initialize writes the config bucket for a new store. It fails if the store
// is already initialized.
func Initialize(ctx context.Context, b Backend) (*Metadata, error) {
	meta := &Metadata{Version: LatestVersion, Created: time.Now().UTC()}

	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		return nil, fmt.Errorf("failed to generate ledger ID: %w", err)
	}
	meta.LedgerID = hex.EncodeToString(id)

	err := b.Update(ctx, func(tx Tx) error {
		existing, err := tx.Get(ConfigBucket, ConfigVersion)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyInitialized
		}

		version := make([]byte, 4)
		binary.BigEndian.PutUint32(version, meta.Version)
		if err := tx.Put(ConfigBucket, ConfigVersion, version); err != nil {
			return err
		}

		created, _ := meta.Created.MarshalBinary()
		if err := tx.Put(ConfigBucket, ConfigCreated, created); err != nil {
			return err
		}
		return tx.Put(ConfigBucket, ConfigLedgerID, []byte(meta.LedgerID))
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// IsInitialized checks if the store has been initialized
func IsInitialized(ctx context.Context, b Backend) (bool, error) {
	var initialized bool
	err := b.View(ctx, func(tx Tx) error {
		v, err := tx.Get(ConfigBucket, ConfigVersion)
		initialized = v != nil
		return err
	})
	return initialized, err
}

// ReadMetadata loads the config bucket
func ReadMetadata(ctx context.Context, b Backend) (*Metadata, error) {
	meta := &Metadata{}
	err := b.View(ctx, func(tx Tx) error {
		version, err := tx.Get(ConfigBucket, ConfigVersion)
		if err != nil {
			return err
		}
		if len(version) != 4 {
			return ErrNotInitialized
		}
		meta.Version = binary.BigEndian.Uint32(version)

		created, err := tx.Get(ConfigBucket, ConfigCreated)
		if err != nil {
			return err
		}
		if created != nil {
			if err := meta.Created.UnmarshalBinary(created); err != nil {
				return fmt.Errorf("invalid created time: %w", err)
			}
		}

		id, err := tx.Get(ConfigBucket, ConfigLedgerID)
		if err != nil {
			return err
		}
		meta.LedgerID = string(id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}
