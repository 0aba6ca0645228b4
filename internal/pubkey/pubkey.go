package pubkey

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	Size          = 32 // Identity size in bytes
	MaxSeedLength = 32 // Max length of a single derivation seed
	MaxSeeds      = 16 // Max number of seeds, bump included
)

const pdaMarker = "ProgramDerivedAddress"

var (
	ErrInvalidLength  = errors.New("invalid public key length")
	ErrMaxSeedLength  = errors.New("max seed length exceeded")
	ErrInvalidSeeds   = errors.New("provided seeds do not result in a valid address")
	ErrNoViableBump   = errors.New("unable to find a viable program address bump seed")
	ErrInvalidEncoded = errors.New("invalid base58 public key")
)

// PublicKey identifies an account
type PublicKey [Size]byte

// Zero is the all-zero key, used as the system program id
var Zero PublicKey

// FromBytes copies a 32-byte slice into a PublicKey
func FromBytes(b []byte) (PublicKey, error) {
	var k PublicKey
	if len(b) != Size {
		return k, fmt.Errorf("%w: got %d bytes", ErrInvalidLength, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// FromEd25519 converts an ed25519 public key
func FromEd25519(pub ed25519.PublicKey) (PublicKey, error) {
	return FromBytes(pub)
}

// Parse decodes a base58 encoded key
func Parse(s string) (PublicKey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %s", ErrInvalidEncoded, s)
	}
	return FromBytes(b)
}

// MustParse is like Parse but panics on error. Only for compile-time constants.
func MustParse(s string) PublicKey {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// String returns the base58 form
func (k PublicKey) String() string {
	return base58.Encode(k[:])
}

// Bytes returns a copy of the key bytes
func (k PublicKey) Bytes() []byte {
	return append([]byte(nil), k[:]...)
}

// IsZero reports whether k is the zero key
func (k PublicKey) IsZero() bool {
	return k == Zero
}

// Equals compares two keys
func (k PublicKey) Equals(other PublicKey) bool {
	return bytes.Equal(k[:], other[:])
}

// MarshalText implements encoding.TextMarshaler
func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsOnCurve reports whether b is a valid ed25519 point encoding
func IsOnCurve(b []byte) bool {
	if len(b) != Size {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// CreateProgramAddress derives the address for seeds (bump included) under
// programID. Fails with ErrInvalidSeeds if the digest lands on the curve.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, ErrMaxSeedLength
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, fmt.Errorf("%w: %d bytes", ErrMaxSeedLength, len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var addr PublicKey
	copy(addr[:], h.Sum(nil))
	if IsOnCurve(addr[:]) {
		return PublicKey{}, ErrInvalidSeeds
	}
	return addr, nil
}

// FindProgramAddress returns the canonical program address for seeds and the
// bump that produced it
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return PublicKey{}, 0, ErrMaxSeedLength
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrInvalidSeeds) {
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}
