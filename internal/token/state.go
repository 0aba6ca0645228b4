package token

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/illarion/lockvault/internal/pubkey"
)

const (
	MintSize    = 8 + 1 + 1 + pubkey.Size       // supply, decimals, authority flag, authority
	AccountSize = pubkey.Size + pubkey.Size + 8 // mint, owner, amount
)

var (
	ErrInvalidMint    = errors.New("invalid mint account")
	ErrInvalidAccount = errors.New("invalid token account")
)

// Mint describes a token. A nil Authority means the supply is fixed.
type Mint struct {
	Address   pubkey.PublicKey
	Supply    uint64
	Decimals  uint8
	Authority *pubkey.PublicKey
}

// Account holds a balance of one mint on behalf of an owner
type Account struct {
	Address pubkey.PublicKey
	Mint    pubkey.PublicKey
	Owner   pubkey.PublicKey
	Amount  uint64
}

func (m *Mint) encode() []byte {
	b := make([]byte, MintSize)
	binary.LittleEndian.PutUint64(b[0:8], m.Supply)
	b[8] = m.Decimals
	if m.Authority != nil {
		b[9] = 1
		copy(b[10:], m.Authority[:])
	}
	return b
}

func decodeMint(addr pubkey.PublicKey, b []byte) (*Mint, error) {
	if len(b) != MintSize {
		return nil, fmt.Errorf("%w: %s has %d bytes", ErrInvalidMint, addr, len(b))
	}
	m := &Mint{
		Address:  addr,
		Supply:   binary.LittleEndian.Uint64(b[0:8]),
		Decimals: b[8],
	}
	switch b[9] {
	case 0:
	case 1:
		var auth pubkey.PublicKey
		copy(auth[:], b[10:])
		m.Authority = &auth
	default:
		return nil, fmt.Errorf("%w: %s has bad authority flag", ErrInvalidMint, addr)
	}
	return m, nil
}

func (a *Account) encode() []byte {
	b := make([]byte, AccountSize)
	copy(b[0:32], a.Mint[:])
	copy(b[32:64], a.Owner[:])
	binary.LittleEndian.PutUint64(b[64:72], a.Amount)
	return b
}

func decodeAccount(addr pubkey.PublicKey, b []byte) (*Account, error) {
	if len(b) != AccountSize {
		return nil, fmt.Errorf("%w: %s has %d bytes", ErrInvalidAccount, addr, len(b))
	}
	a := &Account{
		Address: addr,
		Amount:  binary.LittleEndian.Uint64(b[64:72]),
	}
	copy(a.Mint[:], b[0:32])
	copy(a.Owner[:], b[32:64])
	return a, nil
}
