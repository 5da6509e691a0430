package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/ledgerkey/internal/core"
	"github.com/illarion/ledgerkey/internal/crypto"
	"github.com/illarion/ledgerkey/internal/keyring"
)

// KeyringSave saves the store password to the OS keyring
func KeyringSave(ctx context.Context) {
	ks := openStore()

	password, err := core.ReadPassword("Enter password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	if err := ks.VerifyPassword(ctx, password); err != nil {
		HandleError(err)
	}

	storeID, err := ks.GetOrCreateStoreID()
	if err != nil {
		HandleError(err)
	}

	if err := keyring.SavePassword(storeID, password); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save to keyring: %s\n", err)
		Finish(err)
		os.Exit(1)
	}

	fmt.Println("Password saved to keyring")
}

// KeyringDelete removes the store password from the OS keyring
func KeyringDelete() {
	ks := openStore()

	storeID, err := ks.GetStoreID()
	if err != nil {
		fmt.Println("No password stored in keyring")
		return
	}

	if err := keyring.DeletePassword(storeID); err != nil {
		fmt.Println("No password stored in keyring")
		return
	}

	fmt.Println("Password removed from keyring")
}

// KeyringStatus reports whether the store password is in the keyring
func KeyringStatus() {
	ks := openStore()

	storeID, err := ks.GetStoreID()
	if err != nil || !keyring.HasPassword(storeID) {
		fmt.Println("Password: not stored")
		return
	}
	fmt.Println("Password: stored in keyring")
}
