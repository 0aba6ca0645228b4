package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/illarion/lockvault/internal/storage"
	"github.com/illarion/lockvault/internal/storage/storagetest"
)

func openBolt(t *testing.T) *storage.Storage {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	return db
}

func TestBoltCompliance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return openBolt(t)
	})
}

func TestPersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	db, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	meta, err := storage.Initialize(ctx, db)
	if err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	if err := db.Update(ctx, func(tx storage.Tx) error {
		return tx.Put(storage.AccountsBucket, []byte("acct"), []byte("data"))
	}); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}
	db.Close()

	// Reopen and verify
	db2, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db2.Close()

	got, err := storage.ReadMetadata(ctx, db2)
	if err != nil {
		t.Fatalf("Failed to read metadata: %v", err)
	}
	if got.LedgerID != meta.LedgerID {
		t.Errorf("Ledger ID mismatch: got %s, want %s", got.LedgerID, meta.LedgerID)
	}

	err = db2.View(ctx, func(tx storage.Tx) error {
		data, err := tx.Get(storage.AccountsBucket, []byte("acct"))
		if err != nil {
			return err
		}
		if string(data) != "data" {
			t.Error("Account data not persisted correctly")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestCompact(t *testing.T) {
	db := openBolt(t)
	defer db.Close()
	ctx := context.Background()

	if _, err := storage.Initialize(ctx, db); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	// Write and then drop a batch of accounts to leave free pages behind
	payload := make([]byte, 4096)
	err := db.Update(ctx, func(tx storage.Tx) error {
		for i := 0; i < 64; i++ {
			if err := tx.Put(storage.AccountsBucket, []byte{byte(i)}, payload); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to write accounts: %v", err)
	}
	err = db.Update(ctx, func(tx storage.Tx) error {
		for i := 1; i < 64; i++ {
			if err := tx.Delete(storage.AccountsBucket, []byte{byte(i)}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to delete accounts: %v", err)
	}

	if err := db.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	err = db.View(ctx, func(tx storage.Tx) error {
		v, err := tx.Get(storage.AccountsBucket, []byte{0})
		if err != nil {
			return err
		}
		if len(v) != len(payload) {
			t.Errorf("Surviving account lost after compact: %d bytes", len(v))
		}
		gone, _ := tx.Get(storage.AccountsBucket, []byte{1})
		if gone != nil {
			t.Error("Deleted account reappeared after compact")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View after compact failed: %v", err)
	}

	if _, err := storage.ReadMetadata(ctx, db); err != nil {
		t.Fatalf("Metadata lost after compact: %v", err)
	}
}
