// Package keyring caches keystore passwords in the OS keyring, keyed by the
// key's address.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "lockvault"

var ErrNotFound = keyring.ErrNotFound

// SavePassword stores a password in the OS keyring
func SavePassword(address string, password string) error {
	return keyring.Set(serviceName, address, password)
}

// GetPassword retrieves a password from the OS keyring
func GetPassword(address string) (string, error) {
	return keyring.Get(serviceName, address)
}

// DeletePassword removes a password from the OS keyring. Deleting a missing
// entry is not an error.
func DeletePassword(address string) error {
	err := keyring.Delete(serviceName, address)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasPassword checks if a password is stored in the keyring
func HasPassword(address string) bool {
	_, err := keyring.Get(serviceName, address)
	return err == nil
}
