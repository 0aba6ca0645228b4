package timelock

import (
	"errors"
	"fmt"

	"github.com/illarion/lockvault/internal/ledger"
	"github.com/illarion/lockvault/internal/pubkey"
	"github.com/illarion/lockvault/internal/token"
)

// ProgramID is the address of the deployed timelock program
var ProgramID = pubkey.MustParse("FyFNB5HtCiAbrfT5PVJTU4QfxQLBczrH3rE5SepQqBPb")

// VaultSeed is the domain tag mixed into every vault address
var VaultSeed = []byte("vault")

// Registry maps (owner, id) pairs to vault addresses and keeps the records
// stored there
type Registry struct {
	programID pubkey.PublicKey
}

// NewRegistry returns a registry for vaults owned by programID
func NewRegistry(programID pubkey.PublicKey) *Registry {
	return &Registry{programID: programID}
}

// ProgramID returns the program that owns the registry's records
func (r *Registry) ProgramID() pubkey.PublicKey {
	return r.programID
}

func vaultSeeds(owner pubkey.PublicKey, id string) [][]byte {
	return [][]byte{VaultSeed, owner[:], []byte(id)}
}

func validateID(id string) error {
	if len(id) > MaxIDLength {
		return vaultError(ErrInvalidID,
			fmt.Sprintf("id is %d bytes, at most %d allowed", len(id), MaxIDLength),
			pubkey.ErrMaxSeedLength)
	}
	return nil
}

// DeriveAddress returns the address and bump of the vault (owner, id). It
// touches no storage.
func (r *Registry) DeriveAddress(owner pubkey.PublicKey, id string) (pubkey.PublicKey, uint8, error) {
	if err := validateID(id); err != nil {
		return pubkey.Zero, 0, err
	}
	return pubkey.FindProgramAddress(vaultSeeds(owner, id), r.programID)
}

// DeriveVaultAddress derives a vault address under the deployed program
func DeriveVaultAddress(owner pubkey.PublicKey, id string) (pubkey.PublicKey, uint8, error) {
	return NewRegistry(ProgramID).DeriveAddress(owner, id)
}

// authority proves control of the vault address from its stored bump
func (r *Registry) authority(address pubkey.PublicKey, v *Vault) ledger.Authority {
	seeds := append(vaultSeeds(v.Owner, v.ID), []byte{v.Bump})
	return ledger.ProgramSigner(r.programID, address, seeds...)
}

// TokenAddress returns the vault's associated token account for mint
func (r *Registry) TokenAddress(address, mint pubkey.PublicKey) (pubkey.PublicKey, error) {
	return token.AssociatedAddress(address, mint)
}

// allocate creates the record account at address, rent paid by payer, and
// writes v into it
func (r *Registry) allocate(tx *ledger.Tx, address pubkey.PublicKey, v *Vault, payer ledger.Authority) error {
	err := tx.Allocate(r.authority(address, v), VaultSize(v.ID, v.IsToken()), r.programID, payer)
	switch {
	case errors.Is(err, ledger.ErrAccountInUse):
		return vaultError(ErrVaultAlreadyExists, "Vault already exists", err)
	case err != nil:
		return err
	}
	return tx.SetData(address, r.programID, v.encode())
}

// load reads the record at address. Anything that is not a well-formed vault
// of this program, derivable from its own fields, reads as absent.
func (r *Registry) load(tx *ledger.Tx, address pubkey.PublicKey) (*Vault, error) {
	acct, err := tx.Account(address)
	if err != nil {
		return nil, vaultError(ErrDatabase, "failed to read vault", err)
	}
	if acct == nil || acct.Owner != r.programID {
		return nil, vaultError(ErrVaultDoesNotExist, "Vault does not exist", nil)
	}
	v, err := decodeVault(acct.Data)
	if err != nil {
		return nil, vaultError(ErrVaultDoesNotExist, "Vault does not exist", err)
	}
	if err := r.authority(address, v).Verify(); err != nil {
		return nil, vaultError(ErrVaultDoesNotExist, "Vault does not exist", err)
	}
	return v, nil
}

// release closes the record account, every lamport going to recipient
func (r *Registry) release(tx *ledger.Tx, address, recipient pubkey.PublicKey) (uint64, error) {
	return tx.Close(address, r.programID, recipient)
}

// scan decodes every vault record of the program. Accounts that do not
// decode are skipped.
func (r *Registry) scan(tx *ledger.Tx) ([]Entry, error) {
	accounts, err := tx.ProgramAccounts(r.programID)
	if err != nil {
		return nil, vaultError(ErrDatabase, "failed to scan vaults", err)
	}
	entries := make([]Entry, 0, len(accounts))
	for _, acct := range accounts {
		v, err := decodeVault(acct.Data)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Address: acct.Address, Vault: v, Lamports: acct.Lamports})
	}
	return entries, nil
}
