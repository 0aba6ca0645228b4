package keystore

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/illarion/lockvault/internal/crypto"
	"github.com/illarion/lockvault/internal/keyring"
)

// ReadPassword reads a password from the terminal without echoing
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	return password, nil
}

// ReadPasswordConfirm reads a password twice and ensures they match
func ReadPasswordConfirm(prompt string) ([]byte, error) {
	password1, err := ReadPassword(prompt)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	password2, err := ReadPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, fmt.Errorf("passwords do not match")
	}

	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}

// PasswordSource resolves a key password from, in order, an explicit value
// (LOCKVAULT_PASSWORD), the OS keyring, and an interactive prompt
type PasswordSource struct {
	Env     string
	Keyring bool
	Log     zerolog.Logger

	// Interactive overrides terminal detection; nil means detect
	Interactive *bool
}

func (p PasswordSource) interactive() bool {
	if p.Interactive != nil {
		return *p.Interactive
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ForKey returns the password of the key at address
func (p PasswordSource) ForKey(address string) ([]byte, error) {
	if p.Env != "" {
		return []byte(p.Env), nil
	}
	if p.Keyring {
		pw, err := keyring.GetPassword(address)
		switch {
		case err == nil:
			p.Log.Debug().Str("key", address).Msg("password from keyring")
			return []byte(pw), nil
		case !errors.Is(err, keyring.ErrNotFound):
			p.Log.Warn().Err(err).Msg("keyring unavailable")
		}
	}
	if !p.interactive() {
		return nil, ErrPasswordRequired
	}
	return ReadPassword("Enter password: ")
}

// ForNewKey returns the password to seal a new key with, confirming it when
// prompted
func (p PasswordSource) ForNewKey() ([]byte, error) {
	if p.Env != "" {
		return []byte(p.Env), nil
	}
	if !p.interactive() {
		return nil, ErrPasswordRequired
	}
	return ReadPasswordConfirm("Enter new password: ")
}
