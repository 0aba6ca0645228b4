package timelock

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/illarion/lockvault/internal/pubkey"
)

func TestVaultSize(t *testing.T) {
	require.Equal(t, 8+4+3+32+1+8+8+8+1, VaultSize("abc", false))
	require.Equal(t, 8+4+3+32+1+32+8+8+8+1, VaultSize("abc", true))
	require.Equal(t, 70, VaultSize("", false))
}

func TestVaultEncoding(t *testing.T) {
	mint := pubkey.MustParse("So11111111111111111111111111111111111111112")
	owner := pubkey.MustParse("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")

	tests := []struct {
		name  string
		vault Vault
	}{
		{"native", Vault{ID: "abc", Owner: owner, Amount: 1_000_000, UnlockTime: 1_700_000_000, CreatedAt: 1_699_000_000, Bump: 254}},
		{"token", Vault{ID: "7", Owner: owner, Mint: &mint, Amount: 42, UnlockTime: -1, CreatedAt: 0, Bump: 1}},
		{"empty id", Vault{Owner: owner}},
		{"max id", Vault{ID: "0123456789abcdef0123456789abcdef", Owner: owner, Amount: ^uint64(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.vault.encode()
			require.Len(t, b, VaultSize(tt.vault.ID, tt.vault.IsToken()))
			require.Equal(t, vaultDiscriminator[:], b[:8])

			got, err := decodeVault(b)
			require.NoError(t, err)
			require.Equal(t, tt.vault, *got)
		})
	}
}

func TestVaultLayout(t *testing.T) {
	v := Vault{ID: "ab", Amount: 0x0102, UnlockTime: 0x0304, CreatedAt: 0x0506, Bump: 9}
	b := v.encode()
	require.Equal(t, []byte{2, 0, 0, 0, 'a', 'b'}, b[8:14])
	off := 14 + 32
	require.Equal(t, byte(0), b[off])
	require.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0}, b[off+1:off+9])
	require.Equal(t, []byte{0x04, 0x03}, b[off+9:off+11])
	require.Equal(t, []byte{0x06, 0x05}, b[off+17:off+19])
	require.Equal(t, byte(9), b[len(b)-1])
}

func TestDecodeVaultRejectsGarbage(t *testing.T) {
	good := (&Vault{ID: "x"}).encode()

	badTag := append([]byte(nil), good...)
	badTag[0] ^= 0xff

	badFlag := append([]byte(nil), good...)
	badFlag[12+1+32] = 7

	longID := append([]byte(nil), good...)
	longID[8] = 40

	for name, b := range map[string][]byte{
		"empty":         nil,
		"discriminator": badTag,
		"truncated":     good[:len(good)-1],
		"trailing":      append(append([]byte(nil), good...), 0),
		"mint flag":     badFlag,
		"id length":     longID,
	} {
		_, err := decodeVault(b)
		require.ErrorIs(t, err, ErrInvalidRecord, name)
	}
}

func TestErrorCodes(t *testing.T) {
	require.Equal(t, ErrorCode(6000), ErrVaultAlreadyExists)
	require.Equal(t, ErrorCode(6001), ErrVaultDoesNotExist)
	require.Equal(t, ErrorCode(6002), ErrVaultNotUnlocked)
	require.Equal(t, ErrorCode(6003), ErrVaultIsNotSplToken)
	require.Equal(t, "Vault is not unlocked", ErrVaultNotUnlocked.String())

	err := vaultError(ErrVaultNotUnlocked, "Vault is not unlocked", nil)
	require.ErrorIs(t, err, ErrVaultNotUnlocked)
	require.NotErrorIs(t, err, ErrVaultDoesNotExist)
	code, ok := Code(err)
	require.True(t, ok)
	require.Equal(t, ErrVaultNotUnlocked, code)
}
