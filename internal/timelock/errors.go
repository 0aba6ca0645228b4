package timelock

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error
type ErrorCode int

// These constants are used to identify a specific Error. The first four keep
// the program's on-chain custom error numbers.
const (
	// ErrVaultAlreadyExists indicates that the address derived for
	// (owner, id) already holds an account.
	ErrVaultAlreadyExists ErrorCode = 6000 + iota

	// ErrVaultDoesNotExist indicates that no vault record lives at the
	// address, or that the caller is not its owner. The two cases carry
	// the same message.
	ErrVaultDoesNotExist

	// ErrVaultNotUnlocked indicates a release before the unlock time.
	ErrVaultNotUnlocked

	// ErrVaultIsNotSplToken indicates a token release of a native vault.
	ErrVaultIsNotSplToken

	// ErrVaultIsSplToken indicates a native release of a token vault.
	ErrVaultIsSplToken

	// ErrInvalidID indicates an id that cannot be used as a derivation seed.
	ErrInvalidID

	// ErrInvalidRecord indicates a vault record that failed to decode.
	ErrInvalidRecord

	// ErrDatabase indicates an error with the underlying store. The Err
	// field holds the error returned from the store.
	ErrDatabase
)

// Map of ErrorCode values back to their messages
var errorCodeStrings = map[ErrorCode]string{
	ErrVaultAlreadyExists: "Vault already exists",
	ErrVaultDoesNotExist:  "Vault does not exist",
	ErrVaultNotUnlocked:   "Vault is not unlocked",
	ErrVaultIsNotSplToken: "Vault is not a SPL token",
	ErrVaultIsSplToken:    "Vault holds a SPL token",
	ErrInvalidID:          "Invalid vault id",
	ErrInvalidRecord:      "Invalid vault record",
	ErrDatabase:           "Database error",
}

// String returns the ErrorCode as a human-readable message
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error lets a bare code serve as an errors.Is target
func (e ErrorCode) Error() string {
	return e.String()
}

// Error is returned by every vault operation that fails for a vault reason.
// Failures of the value transfer itself are returned as-is.
type Error struct {
	Code        ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error
}

// Error satisfies the error interface and prints human-readable errors
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

func (e Error) Unwrap() error {
	return e.Err
}

// Is matches an Error against its ErrorCode
func (e Error) Is(target error) bool {
	code, ok := target.(ErrorCode)
	return ok && code == e.Code
}

// vaultError creates an Error given a set of arguments
func vaultError(c ErrorCode, desc string, err error) Error {
	return Error{Code: c, Description: desc, Err: err}
}

// Code extracts the ErrorCode of err, if it carries one
func Code(err error) (ErrorCode, bool) {
	var e Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
