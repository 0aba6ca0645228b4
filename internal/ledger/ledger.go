package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/illarion/lockvault/internal/pubkey"
	"github.com/illarion/lockvault/internal/storage"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient lamports")
	ErrAccountInUse       = errors.New("account already in use")
	ErrAccountNotFound    = errors.New("account not found")
	ErrIllegalOwner       = errors.New("account not owned by program")
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrDataSizeMismatch   = errors.New("account data size mismatch")
)

// Ledger runs account transactions over a storage backend
type Ledger struct {
	store storage.Backend
	clock Clock
	rent  Rent
	log   zerolog.Logger
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock overrides the system clock
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithRent overrides the default rent parameters
func WithRent(r Rent) Option {
	return func(l *Ledger) { l.rent = r }
}

// WithLogger sets the logger used for account lifecycle events
func WithLogger(log zerolog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// New creates a ledger on top of an open backend
func New(store storage.Backend, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		clock: SystemClock{},
		rent:  DefaultRent(),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Rent returns the rent parameters in effect
func (l *Ledger) Rent() Rent {
	return l.rent
}

// Update runs fn in a read-write transaction. Any error discards every
// effect fn made.
func (l *Ledger) Update(ctx context.Context, fn func(*Tx) error) error {
	now := l.clock.Now().Unix()
	return l.store.Update(ctx, func(kv storage.Tx) error {
		return fn(&Tx{kv: kv, now: now, rent: l.rent, log: l.log})
	})
}

// View runs fn in a read-only transaction
func (l *Ledger) View(ctx context.Context, fn func(*Tx) error) error {
	now := l.clock.Now().Unix()
	return l.store.View(ctx, func(kv storage.Tx) error {
		return fn(&Tx{kv: kv, now: now, rent: l.rent, log: l.log})
	})
}

// Tx is a ledger transaction
type Tx struct {
	kv   storage.Tx
	now  int64
	rent Rent
	log  zerolog.Logger
}

// Now returns the unix time captured when the transaction began
func (tx *Tx) Now() int64 {
	return tx.now
}

// Rent returns the rent parameters in effect
func (tx *Tx) Rent() Rent {
	return tx.rent
}

// Account returns the account at addr, or nil if none exists
func (tx *Tx) Account(addr pubkey.PublicKey) (*Account, error) {
	v, err := tx.kv.Get(storage.AccountsBucket, addr[:])
	if err != nil {
		return nil, fmt.Errorf("failed to read account %s: %w", addr, err)
	}
	if v == nil {
		return nil, nil
	}
	return readAccount(addr, v)
}

// Exists reports whether an account is stored at addr
func (tx *Tx) Exists(addr pubkey.PublicKey) (bool, error) {
	a, err := tx.Account(addr)
	return a != nil, err
}

// Balance returns the lamports held at addr, zero if no account exists
func (tx *Tx) Balance(addr pubkey.PublicKey) (uint64, error) {
	a, err := tx.Account(addr)
	if err != nil || a == nil {
		return 0, err
	}
	return a.Lamports, nil
}

func (tx *Tx) put(a *Account) error {
	if err := tx.kv.Put(storage.AccountsBucket, a.Address[:], valueAccount(a)); err != nil {
		return fmt.Errorf("failed to write account %s: %w", a.Address, err)
	}
	return nil
}

func (tx *Tx) remove(addr pubkey.PublicKey) error {
	if err := tx.kv.Delete(storage.AccountsBucket, addr[:]); err != nil {
		return fmt.Errorf("failed to delete account %s: %w", addr, err)
	}
	return nil
}

// credit adds lamports to addr, creating a system account if none exists
func (tx *Tx) credit(addr pubkey.PublicKey, lamports uint64) error {
	a, err := tx.Account(addr)
	if err != nil {
		return err
	}
	if a == nil {
		a = &Account{Address: addr, Owner: SystemProgramID}
	}
	if a.Lamports > math.MaxUint64-lamports {
		return fmt.Errorf("%w: crediting %s", ErrArithmeticOverflow, addr)
	}
	a.Lamports += lamports
	return tx.put(a)
}

// debit removes lamports from a system account. A wallet left with zero
// lamports and no data is purged.
func (tx *Tx) debit(from Authority, lamports uint64) error {
	if err := from.Verify(); err != nil {
		return err
	}
	a, err := tx.Account(from.Key)
	if err != nil {
		return err
	}
	if a == nil {
		if lamports == 0 {
			return nil
		}
		return fmt.Errorf("%w: %s has 0, needs %d", ErrInsufficientFunds, from.Key, lamports)
	}
	if !a.IsSystem() {
		return fmt.Errorf("%w: transfer source %s", ErrIllegalOwner, from.Key)
	}
	if a.Lamports < lamports {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from.Key, a.Lamports, lamports)
	}
	a.Lamports -= lamports
	if a.Lamports == 0 && len(a.Data) == 0 {
		return tx.remove(a.Address)
	}
	return tx.put(a)
}

// Transfer moves lamports from a system account controlled by from to any
// account
func (tx *Tx) Transfer(from Authority, to pubkey.PublicKey, lamports uint64) error {
	if from.Key == to {
		if err := from.Verify(); err != nil {
			return err
		}
		bal, err := tx.Balance(to)
		if err != nil {
			return err
		}
		if bal < lamports {
			return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, to, bal, lamports)
		}
		return nil
	}
	if err := tx.debit(from, lamports); err != nil {
		return err
	}
	return tx.credit(to, lamports)
}

// Airdrop credits lamports out of thin air. Only the local faucet uses it.
func (tx *Tx) Airdrop(to pubkey.PublicKey, lamports uint64) error {
	if err := tx.credit(to, lamports); err != nil {
		return err
	}
	tx.log.Debug().Str("account", to.String()).Uint64("lamports", lamports).Msg("airdrop")
	return nil
}

// Allocate creates a rent-exempt account of space zeroed bytes at
// account.Key, owned by owner. A plain wallet already holding lamports at
// the address is taken over with its balance; payer covers only what the
// rent deposit still lacks.
func (tx *Tx) Allocate(account Authority, space int, owner pubkey.PublicKey, payer Authority) error {
	if err := account.Verify(); err != nil {
		return err
	}
	existing, err := tx.Account(account.Key)
	if err != nil {
		return err
	}
	var held uint64
	if existing != nil {
		if !existing.IsSystem() || len(existing.Data) > 0 {
			return fmt.Errorf("%w: %s", ErrAccountInUse, account.Key)
		}
		held = existing.Lamports
	}
	deposit := tx.rent.MinimumBalance(space)
	var shortfall uint64
	if held < deposit {
		shortfall = deposit - held
	}
	if payer.Key == account.Key {
		// A payer paying into its own address only needs the balance
		if err := payer.Verify(); err != nil {
			return err
		}
		if shortfall > 0 {
			return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, payer.Key, held, deposit)
		}
	} else if err := tx.debit(payer, shortfall); err != nil {
		return err
	}
	a := &Account{
		Address:  account.Key,
		Lamports: held + shortfall,
		Owner:    owner,
		Data:     make([]byte, space),
	}
	if err := tx.put(a); err != nil {
		return err
	}
	tx.log.Debug().
		Str("account", a.Address.String()).
		Str("owner", owner.String()).
		Int("space", space).
		Uint64("deposit", deposit).
		Uint64("adopted", held).
		Msg("account allocated")
	return nil
}

// SetData replaces the data of an account owned by program. The length must
// match the allocated space.
func (tx *Tx) SetData(addr, program pubkey.PublicKey, data []byte) error {
	a, err := tx.Account(addr)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if a.Owner != program {
		return fmt.Errorf("%w: %s", ErrIllegalOwner, addr)
	}
	if len(data) != len(a.Data) {
		return fmt.Errorf("%w: %s has %d bytes, got %d", ErrDataSizeMismatch, addr, len(a.Data), len(data))
	}
	a.Data = append(a.Data[:0], data...)
	return tx.put(a)
}

// Close deletes an account owned by program and moves all of its lamports to
// recipient. It returns the amount refunded.
func (tx *Tx) Close(addr, program, recipient pubkey.PublicKey) (uint64, error) {
	a, err := tx.Account(addr)
	if err != nil {
		return 0, err
	}
	if a == nil {
		return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if a.Owner != program {
		return 0, fmt.Errorf("%w: %s", ErrIllegalOwner, addr)
	}
	if err := tx.remove(addr); err != nil {
		return 0, err
	}
	if err := tx.credit(recipient, a.Lamports); err != nil {
		return 0, err
	}
	tx.log.Debug().
		Str("account", addr.String()).
		Str("recipient", recipient.String()).
		Uint64("refund", a.Lamports).
		Msg("account closed")
	return a.Lamports, nil
}

// ProgramAccounts scans every account owned by program, in address order
func (tx *Tx) ProgramAccounts(program pubkey.PublicKey) ([]*Account, error) {
	var accounts []*Account
	err := tx.kv.ForEach(storage.AccountsBucket, func(k, v []byte) error {
		addr, err := pubkey.FromBytes(k)
		if err != nil {
			return err
		}
		a, err := readAccount(addr, v)
		if err != nil {
			return err
		}
		if a.Owner == program {
			accounts = append(accounts, a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan accounts: %w", err)
	}
	return accounts, nil
}
