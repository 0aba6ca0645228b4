package token

import (
	"errors"
	"fmt"
	"math"

	"github.com/illarion/lockvault/internal/ledger"
	"github.com/illarion/lockvault/internal/pubkey"
)

var (
	ProgramID           = pubkey.MustParse("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedProgramID = pubkey.MustParse("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

var (
	ErrDecimalsMismatch  = errors.New("token decimals mismatch")
	ErrInsufficientFunds = errors.New("insufficient token funds")
	ErrOwnerMismatch     = errors.New("token account owner does not match")
	ErrMintMismatch      = errors.New("account not associated with this mint")
	ErrFixedSupply       = errors.New("mint has a fixed supply")
	ErrNonZeroBalance    = errors.New("cannot close a token account with a balance")
	ErrOverflow          = errors.New("token amount overflow")
)

// FetchMint loads the mint at addr
func FetchMint(tx *ledger.Tx, addr pubkey.PublicKey) (*Mint, error) {
	acct, err := tx.Account(addr)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: mint %s", ledger.ErrAccountNotFound, addr)
	}
	if acct.Owner != ProgramID {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMint, addr)
	}
	return decodeMint(addr, acct.Data)
}

// FetchAccount loads the token account at addr
func FetchAccount(tx *ledger.Tx, addr pubkey.PublicKey) (*Account, error) {
	acct, err := tx.Account(addr)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: token account %s", ledger.ErrAccountNotFound, addr)
	}
	if acct.Owner != ProgramID {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccount, addr)
	}
	return decodeAccount(addr, acct.Data)
}

func associatedSeeds(wallet, mint pubkey.PublicKey) [][]byte {
	return [][]byte{wallet[:], ProgramID[:], mint[:]}
}

// AssociatedAddress derives the canonical token account of wallet for mint
func AssociatedAddress(wallet, mint pubkey.PublicKey) (pubkey.PublicKey, error) {
	addr, _, err := pubkey.FindProgramAddress(associatedSeeds(wallet, mint), AssociatedProgramID)
	return addr, err
}

// InitializeMint creates a mint at the address mint signs for
func InitializeMint(tx *ledger.Tx, mint, payer ledger.Authority, authority *pubkey.PublicKey, decimals uint8) (*Mint, error) {
	if err := tx.Allocate(mint, MintSize, ProgramID, payer); err != nil {
		return nil, err
	}
	m := &Mint{
		Address:   mint.Key,
		Decimals:  decimals,
		Authority: authority,
	}
	if err := tx.SetData(mint.Key, ProgramID, m.encode()); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateAssociatedAccount creates the associated token account of wallet
// for mint, rent paid by payer. It fails with ledger.ErrAccountInUse if an
// initialized account is already there.
func CreateAssociatedAccount(tx *ledger.Tx, payer ledger.Authority, wallet, mint pubkey.PublicKey) (*Account, error) {
	if _, err := FetchMint(tx, mint); err != nil {
		return nil, err
	}
	seeds := associatedSeeds(wallet, mint)
	addr, bump, err := pubkey.FindProgramAddress(seeds, AssociatedProgramID)
	if err != nil {
		return nil, err
	}
	signer := ledger.ProgramSigner(AssociatedProgramID, addr, append(seeds, []byte{bump})...)
	if err := tx.Allocate(signer, AccountSize, ProgramID, payer); err != nil {
		return nil, err
	}
	a := &Account{Address: addr, Mint: mint, Owner: wallet}
	if err := tx.SetData(addr, ProgramID, a.encode()); err != nil {
		return nil, err
	}
	return a, nil
}

// EnsureAssociatedAccount returns the associated token account of wallet,
// creating it when missing or when only lamports were sent to its address
func EnsureAssociatedAccount(tx *ledger.Tx, payer ledger.Authority, wallet, mint pubkey.PublicKey) (*Account, error) {
	addr, err := AssociatedAddress(wallet, mint)
	if err != nil {
		return nil, err
	}
	existing, err := tx.Account(addr)
	if err != nil {
		return nil, err
	}
	if existing == nil || (existing.IsSystem() && len(existing.Data) == 0) {
		return CreateAssociatedAccount(tx, payer, wallet, mint)
	}
	a, err := FetchAccount(tx, addr)
	if err != nil {
		return nil, err
	}
	if a.Mint != mint {
		return nil, fmt.Errorf("%w: %s", ErrMintMismatch, addr)
	}
	if a.Owner != wallet {
		return nil, fmt.Errorf("%w: %s", ErrOwnerMismatch, addr)
	}
	return a, nil
}

// MintTo issues new tokens into dest
func MintTo(tx *ledger.Tx, mint, dest pubkey.PublicKey, authority ledger.Authority, amount uint64) error {
	m, err := FetchMint(tx, mint)
	if err != nil {
		return err
	}
	if m.Authority == nil {
		return fmt.Errorf("%w: %s", ErrFixedSupply, mint)
	}
	if err := authority.Verify(); err != nil {
		return err
	}
	if authority.Key != *m.Authority {
		return fmt.Errorf("%w: mint authority of %s", ErrOwnerMismatch, mint)
	}
	a, err := FetchAccount(tx, dest)
	if err != nil {
		return err
	}
	if a.Mint != mint {
		return fmt.Errorf("%w: %s", ErrMintMismatch, dest)
	}
	if m.Supply > math.MaxUint64-amount || a.Amount > math.MaxUint64-amount {
		return ErrOverflow
	}
	m.Supply += amount
	a.Amount += amount
	if err := tx.SetData(mint, ProgramID, m.encode()); err != nil {
		return err
	}
	return tx.SetData(dest, ProgramID, a.encode())
}

// TransferChecked moves amount tokens from src to dst. The caller declares
// the mint's decimals; a mismatch aborts the transfer.
func TransferChecked(tx *ledger.Tx, mint, src, dst pubkey.PublicKey, authority ledger.Authority, amount uint64, decimals uint8) error {
	from, err := FetchAccount(tx, src)
	if err != nil {
		return err
	}
	to, err := FetchAccount(tx, dst)
	if err != nil {
		return err
	}
	if from.Mint != mint {
		return fmt.Errorf("%w: %s", ErrMintMismatch, src)
	}
	if to.Mint != mint {
		return fmt.Errorf("%w: %s", ErrMintMismatch, dst)
	}
	m, err := FetchMint(tx, mint)
	if err != nil {
		return err
	}
	if m.Decimals != decimals {
		return fmt.Errorf("%w: mint %s has %d, got %d", ErrDecimalsMismatch, mint, m.Decimals, decimals)
	}
	if err := authority.Verify(); err != nil {
		return err
	}
	if authority.Key != from.Owner {
		return fmt.Errorf("%w: %s", ErrOwnerMismatch, src)
	}
	if from.Amount < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, src, from.Amount, amount)
	}
	if src == dst {
		return nil
	}
	if to.Amount > math.MaxUint64-amount {
		return ErrOverflow
	}
	from.Amount -= amount
	to.Amount += amount
	if err := tx.SetData(src, ProgramID, from.encode()); err != nil {
		return err
	}
	return tx.SetData(dst, ProgramID, to.encode())
}

// CloseAccount deletes an empty token account, refunding its rent deposit
// to dest
func CloseAccount(tx *ledger.Tx, account, dest pubkey.PublicKey, authority ledger.Authority) (uint64, error) {
	a, err := FetchAccount(tx, account)
	if err != nil {
		return 0, err
	}
	if err := authority.Verify(); err != nil {
		return 0, err
	}
	if authority.Key != a.Owner {
		return 0, fmt.Errorf("%w: %s", ErrOwnerMismatch, account)
	}
	if a.Amount != 0 {
		return 0, fmt.Errorf("%w: %s holds %d", ErrNonZeroBalance, account, a.Amount)
	}
	return tx.Close(account, ProgramID, dest)
}
