package timelock

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/illarion/lockvault/internal/ledger"
	"github.com/illarion/lockvault/internal/pubkey"
	"github.com/illarion/lockvault/internal/token"
)

// Program executes vault transitions on a ledger
type Program struct {
	ledger   *ledger.Ledger
	registry *Registry
	log      zerolog.Logger
}

// Option configures a Program
type Option func(*Program)

// WithLogger sets the logger transitions are reported to
func WithLogger(log zerolog.Logger) Option {
	return func(p *Program) { p.log = log }
}

// WithProgramID runs the program under a different address
func WithProgramID(id pubkey.PublicKey) Option {
	return func(p *Program) { p.registry = NewRegistry(id) }
}

// New creates a Program bound to l
func New(l *ledger.Ledger, opts ...Option) *Program {
	p := &Program{
		ledger:   l,
		registry: NewRegistry(ProgramID),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the program's vault registry
func (p *Program) Registry() *Registry {
	return p.registry
}

// CreateParams are the caller-chosen fields of a new vault
type CreateParams struct {
	ID         string
	Amount     uint64
	UnlockTime int64
}

// Receipt reports a completed transition. Amount is the locked value moved
// (lamports or tokens); Refund is the rent returned on release.
type Receipt struct {
	Signature string
	Address   pubkey.PublicKey
	Vault     *Vault
	Amount    uint64
	Refund    uint64
}

// Entry is a vault found by scanning
type Entry struct {
	Address  pubkey.PublicKey
	Vault    *Vault
	Lamports uint64
}

func (p *Program) rejected(op string, address pubkey.PublicKey, err error) {
	p.log.Warn().Stack().Err(err).Str("op", op).Str("vault", address.String()).Msg("transition rejected")
}

func (p *Program) applied(op string, r *Receipt) {
	p.log.Info().
		Str("op", op).
		Str("signature", r.Signature).
		Str("vault", r.Address.String()).
		Str("owner", r.Vault.Owner.String()).
		Str("id", r.Vault.ID).
		Uint64("amount", r.Amount).
		Uint64("refund", r.Refund).
		Msg("transition applied")
}

// CreateNative locks params.Amount lamports of owner until params.UnlockTime
func (p *Program) CreateNative(ctx context.Context, owner ledger.Authority, params CreateParams) (*Receipt, error) {
	return p.create(ctx, "create_native", owner, params, nil, 0)
}

// CreateToken locks params.Amount tokens of mint, taken from the owner's
// associated token account. decimals must match the mint.
func (p *Program) CreateToken(ctx context.Context, owner ledger.Authority, params CreateParams, mint pubkey.PublicKey, decimals uint8) (*Receipt, error) {
	return p.create(ctx, "create_token", owner, params, &mint, decimals)
}

func (p *Program) create(ctx context.Context, op string, owner ledger.Authority, params CreateParams, mint *pubkey.PublicKey, decimals uint8) (*Receipt, error) {
	address, bump, err := p.registry.DeriveAddress(owner.Key, params.ID)
	if err != nil {
		p.rejected(op, address, err)
		return nil, err
	}
	receipt := &Receipt{Signature: uuid.NewString(), Address: address, Amount: params.Amount}

	err = p.ledger.Update(ctx, func(tx *ledger.Tx) error {
		if err := owner.Verify(); err != nil {
			return err
		}
		v := &Vault{
			ID:         params.ID,
			Owner:      owner.Key,
			Mint:       mint,
			Amount:     params.Amount,
			UnlockTime: params.UnlockTime,
			CreatedAt:  tx.Now(),
			Bump:       bump,
		}
		if mint != nil {
			// The mint must exist before rent is spent on the record
			if _, err := token.FetchMint(tx, *mint); err != nil {
				return err
			}
		}
		if err := p.registry.allocate(tx, address, v, owner); err != nil {
			return err
		}
		receipt.Vault = v

		if mint == nil {
			return tx.Transfer(owner, address, params.Amount)
		}
		vaultTokens, err := token.EnsureAssociatedAccount(tx, owner, address, *mint)
		if err != nil {
			return err
		}
		source, err := token.AssociatedAddress(owner.Key, *mint)
		if err != nil {
			return err
		}
		return token.TransferChecked(tx, *mint, source, vaultTokens.Address, owner, params.Amount, decimals)
	})
	if err != nil {
		p.rejected(op, address, err)
		return nil, err
	}
	p.applied(op, receipt)
	return receipt, nil
}

// loadOwned loads the vault at address for caller and applies the release
// gates in order: existence and ownership, then unlock time
func (p *Program) loadOwned(tx *ledger.Tx, caller ledger.Authority, address pubkey.PublicKey) (*Vault, error) {
	if err := caller.Verify(); err != nil {
		return nil, err
	}
	v, err := p.registry.load(tx, address)
	if err != nil {
		return nil, err
	}
	if v.Owner != caller.Key {
		return nil, vaultError(ErrVaultDoesNotExist, "Vault does not exist", nil)
	}
	if !v.Unlocked(tx.Now()) {
		return nil, vaultError(ErrVaultNotUnlocked,
			fmt.Sprintf("Vault is not unlocked until %d (now %d)", v.UnlockTime, tx.Now()), nil)
	}
	return v, nil
}

// ReleaseNative closes an unlocked native vault; the locked lamports and the
// rent deposit go to caller
func (p *Program) ReleaseNative(ctx context.Context, caller ledger.Authority, address pubkey.PublicKey) (*Receipt, error) {
	const op = "release_native"
	receipt := &Receipt{Signature: uuid.NewString(), Address: address}

	err := p.ledger.Update(ctx, func(tx *ledger.Tx) error {
		v, err := p.loadOwned(tx, caller, address)
		if err != nil {
			return err
		}
		if v.IsToken() {
			return vaultError(ErrVaultIsSplToken, "Vault holds a SPL token", nil)
		}
		closed, err := p.registry.release(tx, address, caller.Key)
		if err != nil {
			return err
		}
		receipt.Vault = v
		receipt.Amount = v.Amount
		receipt.Refund = closed - v.Amount
		return nil
	})
	if err != nil {
		p.rejected(op, address, err)
		return nil, err
	}
	p.applied(op, receipt)
	return receipt, nil
}

// ReleaseToken empties an unlocked token vault into the caller's associated
// token account, creating it if needed, then closes the vault token account
// and the record. decimals must match the mint.
func (p *Program) ReleaseToken(ctx context.Context, caller ledger.Authority, address pubkey.PublicKey, decimals uint8) (*Receipt, error) {
	const op = "release_token"
	receipt := &Receipt{Signature: uuid.NewString(), Address: address}

	err := p.ledger.Update(ctx, func(tx *ledger.Tx) error {
		v, err := p.loadOwned(tx, caller, address)
		if err != nil {
			return err
		}
		if !v.IsToken() {
			return vaultError(ErrVaultIsNotSplToken, "Vault is not a SPL token", nil)
		}
		mint := *v.Mint
		vaultTokens, err := p.registry.TokenAddress(address, mint)
		if err != nil {
			return err
		}
		dest, err := token.EnsureAssociatedAccount(tx, caller, caller.Key, mint)
		if err != nil {
			return err
		}
		authority := p.registry.authority(address, v)
		if err := token.TransferChecked(tx, mint, vaultTokens, dest.Address, authority, v.Amount, decimals); err != nil {
			return err
		}
		// Tokens sent to the vault account by anyone else go to the owner
		// too, so the account can be closed.
		held, err := token.FetchAccount(tx, vaultTokens)
		if err != nil {
			return err
		}
		if held.Amount > 0 {
			if err := token.TransferChecked(tx, mint, vaultTokens, dest.Address, authority, held.Amount, decimals); err != nil {
				return err
			}
		}
		accountRefund, err := token.CloseAccount(tx, vaultTokens, caller.Key, authority)
		if err != nil {
			return err
		}
		recordRefund, err := p.registry.release(tx, address, caller.Key)
		if err != nil {
			return err
		}
		receipt.Vault = v
		receipt.Amount = v.Amount
		receipt.Refund = accountRefund + recordRefund
		return nil
	})
	if err != nil {
		p.rejected(op, address, err)
		return nil, err
	}
	p.applied(op, receipt)
	return receipt, nil
}

// Fetch returns the vault at address
func (p *Program) Fetch(ctx context.Context, address pubkey.PublicKey) (*Vault, error) {
	var v *Vault
	err := p.ledger.View(ctx, func(tx *ledger.Tx) error {
		var err error
		v, err = p.registry.load(tx, address)
		return err
	})
	return v, err
}

// FetchByID derives the address of (owner, id) and loads the vault there
func (p *Program) FetchByID(ctx context.Context, owner pubkey.PublicKey, id string) (pubkey.PublicKey, *Vault, error) {
	address, _, err := p.registry.DeriveAddress(owner, id)
	if err != nil {
		return pubkey.Zero, nil, err
	}
	v, err := p.Fetch(ctx, address)
	if err != nil {
		return address, nil, err
	}
	if v.Owner != owner {
		return address, nil, vaultError(ErrVaultDoesNotExist, "Vault does not exist", nil)
	}
	return address, v, nil
}

// List scans the ledger for vaults of owner, oldest first
func (p *Program) List(ctx context.Context, owner pubkey.PublicKey) ([]Entry, error) {
	var entries []Entry
	err := p.ledger.View(ctx, func(tx *ledger.Tx) error {
		all, err := p.registry.scan(tx)
		if err != nil {
			return err
		}
		for _, e := range all {
			if e.Vault.Owner == owner {
				entries = append(entries, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Vault.CreatedAt != entries[j].Vault.CreatedAt {
			return entries[i].Vault.CreatedAt < entries[j].Vault.CreatedAt
		}
		return entries[i].Vault.ID < entries[j].Vault.ID
	})
	return entries, nil
}

// NextID returns one more than the largest numeric id among owner's vaults,
// or "1" if there are none
func (p *Program) NextID(ctx context.Context, owner pubkey.PublicKey) (string, error) {
	entries, err := p.List(ctx, owner)
	if err != nil {
		return "", err
	}
	var highest uint64
	for _, e := range entries {
		n, err := strconv.ParseUint(e.Vault.ID, 10, 64)
		if err == nil && n > highest {
			highest = n
		}
	}
	return strconv.FormatUint(highest+1, 10), nil
}
