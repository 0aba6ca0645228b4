package ledger_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/illarion/lockvault/internal/ledger"
	"github.com/illarion/lockvault/internal/pubkey"
	"github.com/illarion/lockvault/internal/storage"
)

var testProgram = pubkey.MustParse("FyFNB5HtCiAbrfT5PVJTU4QfxQLBczrH3rE5SepQqBPb")

func newLedger(t *testing.T, opts ...ledger.Option) *ledger.Ledger {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return ledger.New(store, opts...)
}

func newWallet(t *testing.T) pubkey.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	k, err := pubkey.FromEd25519(pub)
	require.NoError(t, err)
	return k
}

func fund(t *testing.T, l *ledger.Ledger, to pubkey.PublicKey, lamports uint64) {
	t.Helper()
	require.NoError(t, l.Update(context.Background(), func(tx *ledger.Tx) error {
		return tx.Airdrop(to, lamports)
	}))
}

func balance(t *testing.T, l *ledger.Ledger, addr pubkey.PublicKey) uint64 {
	t.Helper()
	var bal uint64
	require.NoError(t, l.View(context.Background(), func(tx *ledger.Tx) error {
		var err error
		bal, err = tx.Balance(addr)
		return err
	}))
	return bal
}

func programAccount(t *testing.T, seed string) ledger.Authority {
	t.Helper()
	addr, bump, err := pubkey.FindProgramAddress([][]byte{[]byte(seed)}, testProgram)
	require.NoError(t, err)
	return ledger.ProgramSigner(testProgram, addr, []byte(seed), []byte{bump})
}

func TestRentMinimumBalance(t *testing.T) {
	tests := []struct {
		space int
		want  uint64
	}{
		{0, 890880},
		{82, 1461600},
		{165, 2039280},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ledger.DefaultRent().MinimumBalance(tt.space), "space %d", tt.space)
	}
}

func TestTransfer(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	alice, bob := newWallet(t), newWallet(t)
	fund(t, l, alice, 1000)

	require.NoError(t, l.Update(ctx, func(tx *ledger.Tx) error {
		return tx.Transfer(ledger.Signer(alice), bob, 400)
	}))
	require.Equal(t, uint64(600), balance(t, l, alice))
	require.Equal(t, uint64(400), balance(t, l, bob))

	err := l.Update(ctx, func(tx *ledger.Tx) error {
		return tx.Transfer(ledger.Signer(alice), bob, 601)
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	require.Equal(t, uint64(600), balance(t, l, alice))
}

func TestTransferRequiresSignature(t *testing.T) {
	l := newLedger(t)
	alice, bob := newWallet(t), newWallet(t)
	fund(t, l, alice, 1000)

	err := l.Update(context.Background(), func(tx *ledger.Tx) error {
		return tx.Transfer(ledger.Authority{Key: alice}, bob, 1)
	})
	require.ErrorIs(t, err, ledger.ErrMissingSignature)
}

func TestTransferDrainedWalletIsPurged(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	alice, bob := newWallet(t), newWallet(t)
	fund(t, l, alice, 10)

	require.NoError(t, l.Update(ctx, func(tx *ledger.Tx) error {
		if err := tx.Transfer(ledger.Signer(alice), bob, 10); err != nil {
			return err
		}
		exists, err := tx.Exists(alice)
		require.NoError(t, err)
		require.False(t, exists)
		return nil
	}))
}

func TestAllocateAndClose(t *testing.T) {
	rent := ledger.Rent{LamportsPerByteYear: 1, ExemptionYears: 1}
	l := newLedger(t, ledger.WithRent(rent))
	ctx := context.Background()
	payer, recipient := newWallet(t), newWallet(t)
	fund(t, l, payer, 10_000)
	acct := programAccount(t, "record")

	require.NoError(t, l.Update(ctx, func(tx *ledger.Tx) error {
		if err := tx.Allocate(acct, 16, testProgram, ledger.Signer(payer)); err != nil {
			return err
		}
		return tx.SetData(acct.Key, testProgram, []byte("0123456789abcdef"))
	}))
	deposit := rent.MinimumBalance(16)
	require.Equal(t, deposit, balance(t, l, acct.Key))
	require.Equal(t, 10_000-deposit, balance(t, l, payer))

	err := l.Update(ctx, func(tx *ledger.Tx) error {
		return tx.Allocate(acct, 16, testProgram, ledger.Signer(payer))
	})
	require.ErrorIs(t, err, ledger.ErrAccountInUse)

	var refund uint64
	require.NoError(t, l.Update(ctx, func(tx *ledger.Tx) error {
		var err error
		refund, err = tx.Close(acct.Key, testProgram, recipient)
		return err
	}))
	require.Equal(t, deposit, refund)
	require.Equal(t, deposit, balance(t, l, recipient))
	require.Zero(t, balance(t, l, acct.Key))
}

func TestAllocateAdoptsFundedWallet(t *testing.T) {
	rent := ledger.Rent{LamportsPerByteYear: 1, ExemptionYears: 1}
	deposit := rent.MinimumBalance(16)

	tests := []struct {
		name      string
		donated   uint64
		wantPaid  uint64
		wantTotal uint64
	}{
		{"below deposit", 5, deposit - 5, deposit},
		{"above deposit", deposit + 7, 0, deposit + 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t, ledger.WithRent(rent))
			payer := newWallet(t)
			fund(t, l, payer, 10_000)
			acct := programAccount(t, "record")
			fund(t, l, acct.Key, tt.donated)

			require.NoError(t, l.Update(context.Background(), func(tx *ledger.Tx) error {
				return tx.Allocate(acct, 16, testProgram, ledger.Signer(payer))
			}))
			require.Equal(t, tt.wantTotal, balance(t, l, acct.Key))
			require.Equal(t, 10_000-tt.wantPaid, balance(t, l, payer))

			require.NoError(t, l.View(context.Background(), func(tx *ledger.Tx) error {
				a, err := tx.Account(acct.Key)
				require.NoError(t, err)
				require.Equal(t, testProgram, a.Owner)
				require.Len(t, a.Data, 16)
				return nil
			}))
		})
	}
}

func TestAllocateRejectsForgedSeeds(t *testing.T) {
	l := newLedger(t)
	payer := newWallet(t)
	fund(t, l, payer, 10_000_000)
	acct := programAccount(t, "record")
	acct.Seeds = [][]byte{[]byte("other"), acct.Seeds[1]}

	err := l.Update(context.Background(), func(tx *ledger.Tx) error {
		return tx.Allocate(acct, 8, testProgram, ledger.Signer(payer))
	})
	require.ErrorIs(t, err, ledger.ErrMissingSignature)
}

func TestCloseChecksOwner(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	payer := newWallet(t)
	fund(t, l, payer, 10_000_000)
	acct := programAccount(t, "record")
	require.NoError(t, l.Update(ctx, func(tx *ledger.Tx) error {
		return tx.Allocate(acct, 8, testProgram, ledger.Signer(payer))
	}))

	err := l.Update(ctx, func(tx *ledger.Tx) error {
		_, err := tx.Close(acct.Key, ledger.SystemProgramID, payer)
		return err
	})
	require.ErrorIs(t, err, ledger.ErrIllegalOwner)

	err = l.Update(ctx, func(tx *ledger.Tx) error {
		return tx.SetData(acct.Key, testProgram, []byte("short"))
	})
	require.ErrorIs(t, err, ledger.ErrDataSizeMismatch)
}

func TestUpdateRollsBack(t *testing.T) {
	l := newLedger(t)
	alice, bob := newWallet(t), newWallet(t)
	fund(t, l, alice, 1000)
	boom := errors.New("boom")

	err := l.Update(context.Background(), func(tx *ledger.Tx) error {
		if err := tx.Transfer(ledger.Signer(alice), bob, 500); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, uint64(1000), balance(t, l, alice))
	require.Zero(t, balance(t, l, bob))
}

func TestNowIsCapturedOnce(t *testing.T) {
	ticks := int64(1_700_000_000)
	clock := ledger.ClockFunc(func() time.Time {
		ticks++
		return time.Unix(ticks, 0)
	})
	l := newLedger(t, ledger.WithClock(clock))

	require.NoError(t, l.Update(context.Background(), func(tx *ledger.Tx) error {
		first := tx.Now()
		require.Equal(t, first, tx.Now())
		require.Equal(t, int64(1_700_000_001), first)
		return nil
	}))
}

func TestProgramAccounts(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	payer := newWallet(t)
	fund(t, l, payer, 100_000_000)

	require.NoError(t, l.Update(ctx, func(tx *ledger.Tx) error {
		for _, seed := range []string{"a", "b", "c"} {
			if err := tx.Allocate(programAccount(t, seed), 4, testProgram, ledger.Signer(payer)); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, l.View(ctx, func(tx *ledger.Tx) error {
		accounts, err := tx.ProgramAccounts(testProgram)
		require.NoError(t, err)
		require.Len(t, accounts, 3)
		for _, a := range accounts {
			require.Equal(t, testProgram, a.Owner)
			require.Len(t, a.Data, 4)
		}
		return nil
	}))
}
