// Package storagetest holds a compliance suite shared by storage backends.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/illarion/lockvault/internal/storage"
)

var testBucket = []byte("suite")

// Run exercises a storage.Backend implementation. makeBackend must return a
// clean, isolated backend; the suite closes it.
func Run(t *testing.T, makeBackend func(t *testing.T) storage.Backend) {
	t.Helper()

	t.Run("PutGetDelete", func(t *testing.T) {
		b := makeBackend(t)
		defer b.Close()
		ctx := context.Background()

		if err := b.Update(ctx, func(tx storage.Tx) error {
			return tx.Put(testBucket, []byte("k1"), []byte("v1"))
		}); err != nil {
			t.Fatalf("Put: %v", err)
		}

		var got []byte
		if err := b.View(ctx, func(tx storage.Tx) error {
			var err error
			got, err = tx.Get(testBucket, []byte("k1"))
			return err
		}); err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != "v1" {
			t.Fatalf("Get: got %q, want v1", got)
		}

		if err := b.Update(ctx, func(tx storage.Tx) error {
			return tx.Delete(testBucket, []byte("k1"))
		}); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		if err := b.View(ctx, func(tx storage.Tx) error {
			var err error
			got, err = tx.Get(testBucket, []byte("k1"))
			return err
		}); err != nil {
			t.Fatalf("Get after delete: %v", err)
		}
		if got != nil {
			t.Fatalf("Get after delete: got %q, want nil", got)
		}
	})

	t.Run("MissingBucket", func(t *testing.T) {
		b := makeBackend(t)
		defer b.Close()

		err := b.View(context.Background(), func(tx storage.Tx) error {
			v, err := tx.Get([]byte("nope"), []byte("k"))
			if err != nil || v != nil {
				t.Fatalf("Get on missing bucket: v=%v err=%v", v, err)
			}
			return tx.ForEach([]byte("nope"), func(k, v []byte) error {
				t.Fatalf("ForEach visited %q in missing bucket", k)
				return nil
			})
		})
		if err != nil {
			t.Fatalf("View: %v", err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		b := makeBackend(t)
		defer b.Close()
		ctx := context.Background()

		for _, v := range []string{"first", "second"} {
			value := v
			if err := b.Update(ctx, func(tx storage.Tx) error {
				return tx.Put(testBucket, []byte("k"), []byte(value))
			}); err != nil {
				t.Fatalf("Put %s: %v", value, err)
			}
		}

		_ = b.View(ctx, func(tx storage.Tx) error {
			got, err := tx.Get(testBucket, []byte("k"))
			if err != nil || string(got) != "second" {
				t.Fatalf("Get: got %q err=%v, want second", got, err)
			}
			return nil
		})
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		b := makeBackend(t)
		defer b.Close()
		ctx := context.Background()

		if err := b.Update(ctx, func(tx storage.Tx) error {
			return tx.Put(testBucket, []byte("keep"), []byte("1"))
		}); err != nil {
			t.Fatalf("Put: %v", err)
		}

		boom := errors.New("boom")
		err := b.Update(ctx, func(tx storage.Tx) error {
			if err := tx.Put(testBucket, []byte("new"), []byte("2")); err != nil {
				return err
			}
			if err := tx.Delete(testBucket, []byte("keep")); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Update: got %v, want boom", err)
		}

		_ = b.View(ctx, func(tx storage.Tx) error {
			if v, _ := tx.Get(testBucket, []byte("new")); v != nil {
				t.Fatalf("rolled back put is visible: %q", v)
			}
			if v, _ := tx.Get(testBucket, []byte("keep")); string(v) != "1" {
				t.Fatalf("rolled back delete is visible: %q", v)
			}
			return nil
		})
	})

	t.Run("ReadOnlyView", func(t *testing.T) {
		b := makeBackend(t)
		defer b.Close()

		err := b.View(context.Background(), func(tx storage.Tx) error {
			if tx.Writable() {
				t.Fatalf("View transaction reports writable")
			}
			return tx.Put(testBucket, []byte("k"), []byte("v"))
		})
		if !errors.Is(err, storage.ErrTxNotWritable) {
			t.Fatalf("Put in View: got %v, want ErrTxNotWritable", err)
		}
	})

	t.Run("ForEachOrdered", func(t *testing.T) {
		b := makeBackend(t)
		defer b.Close()
		ctx := context.Background()

		keys := [][]byte{{0x03}, {0x01}, {0x02, 0x00}, {0x02}}
		if err := b.Update(ctx, func(tx storage.Tx) error {
			for _, k := range keys {
				if err := tx.Put(testBucket, k, []byte{0xff}); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			t.Fatalf("Put: %v", err)
		}

		var seen [][]byte
		if err := b.View(ctx, func(tx storage.Tx) error {
			return tx.ForEach(testBucket, func(k, v []byte) error {
				seen = append(seen, k)
				return nil
			})
		}); err != nil {
			t.Fatalf("ForEach: %v", err)
		}

		want := [][]byte{{0x01}, {0x02}, {0x02, 0x00}, {0x03}}
		if len(seen) != len(want) {
			t.Fatalf("ForEach: got %d keys, want %d", len(seen), len(want))
		}
		for i := range want {
			if string(seen[i]) != string(want[i]) {
				t.Fatalf("ForEach order: key %d got %x, want %x", i, seen[i], want[i])
			}
		}
	})

	t.Run("Metadata", func(t *testing.T) {
		b := makeBackend(t)
		defer b.Close()
		ctx := context.Background()

		initialized, err := storage.IsInitialized(ctx, b)
		if err != nil || initialized {
			t.Fatalf("IsInitialized on empty store: %v %v", initialized, err)
		}
		if _, err := storage.ReadMetadata(ctx, b); !errors.Is(err, storage.ErrNotInitialized) {
			t.Fatalf("ReadMetadata on empty store: got %v", err)
		}

		meta, err := storage.Initialize(ctx, b)
		if err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		if _, err := storage.Initialize(ctx, b); !errors.Is(err, storage.ErrAlreadyInitialized) {
			t.Fatalf("second Initialize: expected ErrAlreadyInitialized, got %v", err)
		}

		got, err := storage.ReadMetadata(ctx, b)
		if err != nil {
			t.Fatalf("ReadMetadata: %v", err)
		}
		if got.Version != storage.LatestVersion || got.LedgerID != meta.LedgerID || len(got.LedgerID) != 32 {
			t.Fatalf("ReadMetadata: got %+v, want %+v", got, meta)
		}
		if !got.Created.Equal(meta.Created) {
			t.Fatalf("Created mismatch: got %v, want %v", got.Created, meta.Created)
		}
	})
}
