package timelock

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/illarion/lockvault/internal/pubkey"
)

// MaxIDLength is the longest id usable as a derivation seed
const MaxIDLength = pubkey.MaxSeedLength

// vaultDiscriminator tags vault records. It is fixed, not derived, so records
// written by the deployed program decode here unchanged.
var vaultDiscriminator = [8]byte{211, 8, 232, 43, 2, 152, 117, 119}

// Vault is the record stored at a vault address
type Vault struct {
	ID         string
	Owner      pubkey.PublicKey
	Mint       *pubkey.PublicKey // nil for native vaults
	Amount     uint64
	UnlockTime int64
	CreatedAt  int64
	Bump       uint8
}

// IsToken reports whether the vault holds tokens rather than lamports
func (v *Vault) IsToken() bool {
	return v.Mint != nil
}

// Unlocked reports whether the vault may be released at now. The comparison
// is inclusive.
func (v *Vault) Unlocked(now int64) bool {
	return now >= v.UnlockTime
}

// VaultSize returns the exact record size for an id and asset kind
func VaultSize(id string, token bool) int {
	return recordSize(len(id), token)
}

func recordSize(idLen int, token bool) int {
	size := 8 + 4 + idLen + pubkey.Size + 1 + 8 + 8 + 8 + 1
	if token {
		size += pubkey.Size
	}
	return size
}

// Records are serialized as such (integers little endian):
//
//   [0:8]    Discriminator
//   [8:12]   Id length (4 bytes)
//   [12:n]   Id
//   [n:n+32] Owner
//   1 byte   Mint flag
//   32 bytes Mint, only when the flag is set
//   8 bytes  Amount
//   8 bytes  Unlock time
//   8 bytes  Created at
//   1 byte   Bump

func (v *Vault) encode() []byte {
	b := make([]byte, VaultSize(v.ID, v.IsToken()))
	copy(b[0:8], vaultDiscriminator[:])
	binary.LittleEndian.PutUint32(b[8:12], uint32(len(v.ID)))
	off := 12 + copy(b[12:], v.ID)
	off += copy(b[off:], v.Owner[:])
	if v.Mint != nil {
		b[off] = 1
		off++
		off += copy(b[off:], v.Mint[:])
	} else {
		off++
	}
	binary.LittleEndian.PutUint64(b[off:], v.Amount)
	binary.LittleEndian.PutUint64(b[off+8:], uint64(v.UnlockTime))
	binary.LittleEndian.PutUint64(b[off+16:], uint64(v.CreatedAt))
	b[off+24] = v.Bump
	return b
}

func decodeVault(b []byte) (*Vault, error) {
	if len(b) < 12 || !bytes.Equal(b[0:8], vaultDiscriminator[:]) {
		return nil, vaultError(ErrInvalidRecord, "bad discriminator", nil)
	}
	idLen := int(binary.LittleEndian.Uint32(b[8:12]))
	if idLen > MaxIDLength || len(b) < recordSize(idLen, false) {
		return nil, vaultError(ErrInvalidRecord,
			fmt.Sprintf("short record (%d bytes, id length %d)", len(b), idLen), nil)
	}
	v := &Vault{ID: string(b[12 : 12+idLen])}
	off := 12 + idLen
	off += copy(v.Owner[:], b[off:])
	switch b[off] {
	case 0:
		off++
	case 1:
		off++
		if len(b) != VaultSize(v.ID, true) {
			return nil, vaultError(ErrInvalidRecord,
				fmt.Sprintf("token record has %d bytes, want %d", len(b), VaultSize(v.ID, true)), nil)
		}
		var mint pubkey.PublicKey
		off += copy(mint[:], b[off:])
		v.Mint = &mint
	default:
		return nil, vaultError(ErrInvalidRecord, fmt.Sprintf("bad mint flag %d", b[off]), nil)
	}
	if len(b) != VaultSize(v.ID, v.IsToken()) {
		return nil, vaultError(ErrInvalidRecord,
			fmt.Sprintf("record has %d bytes, want %d", len(b), VaultSize(v.ID, v.IsToken())), nil)
	}
	v.Amount = binary.LittleEndian.Uint64(b[off:])
	v.UnlockTime = int64(binary.LittleEndian.Uint64(b[off+8:]))
	v.CreatedAt = int64(binary.LittleEndian.Uint64(b[off+16:]))
	v.Bump = b[off+24]
	return v, nil
}
