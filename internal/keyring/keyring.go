// Package keyring caches store passwords in the OS keyring, keyed by store ID.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "ledgerkey"

// ErrNotFound is returned when no password is cached for a store
var ErrNotFound = errors.New("no password in keyring")

// SavePassword stores a store password in the OS keyring
func SavePassword(storeID string, password []byte) error {
	if storeID == "" {
		return fmt.Errorf("store ID is required")
	}
	return keyring.Set(serviceName, storeID, string(password))
}

// GetPassword retrieves a store password from the OS keyring
func GetPassword(storeID string) ([]byte, error) {
	password, err := keyring.Get(serviceName, storeID)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(password), nil
}

// DeletePassword removes a store password from the OS keyring
func DeletePassword(storeID string) error {
	err := keyring.Delete(serviceName, storeID)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// HasPassword checks if a password is stored in the keyring
func HasPassword(storeID string) bool {
	_, err := keyring.Get(serviceName, storeID)
	return err == nil
}
