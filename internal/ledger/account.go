package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/illarion/lockvault/internal/pubkey"
)

// SystemProgramID owns plain wallet accounts
var SystemProgramID = pubkey.Zero

const (
	LamportsPerSOL = 1_000_000_000
	NativeDecimals = 9
)

// Account is a ledger entry. An account exists iff it is stored.
type Account struct {
	Address  pubkey.PublicKey
	Lamports uint64
	Owner    pubkey.PublicKey
	Data     []byte
}

// Accounts are stored keyed by address. The value is serialized as such:
//
//   [0:8]   Lamports (8 bytes, little endian)
//   [8:40]  Owner program (32 bytes)
//   [40:]   Data

const accountHeaderSize = 8 + pubkey.Size

func valueAccount(a *Account) []byte {
	v := make([]byte, accountHeaderSize+len(a.Data))
	binary.LittleEndian.PutUint64(v[0:8], a.Lamports)
	copy(v[8:40], a.Owner[:])
	copy(v[40:], a.Data)
	return v
}

func readAccount(addr pubkey.PublicKey, v []byte) (*Account, error) {
	if len(v) < accountHeaderSize {
		return nil, fmt.Errorf("account %s: short read (expected at least %d bytes, read %d)",
			addr, accountHeaderSize, len(v))
	}
	a := &Account{
		Address:  addr,
		Lamports: binary.LittleEndian.Uint64(v[0:8]),
		Data:     append([]byte(nil), v[40:]...),
	}
	copy(a.Owner[:], v[8:40])
	return a, nil
}

// IsSystem reports whether the account is a plain wallet
func (a *Account) IsSystem() bool {
	return a.Owner == SystemProgramID
}
