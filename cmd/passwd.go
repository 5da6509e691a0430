package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/ledgerkey/internal/core"
	"github.com/illarion/ledgerkey/internal/crypto"
	"github.com/illarion/ledgerkey/internal/keyring"
)

// Passwd rewraps every stored key under a new password
func Passwd(ctx context.Context) {
	ks := openStore()

	currentPassword, _ := unlockStore(ctx, ks, "Enter current password: ")
	defer crypto.ClearBytes(currentPassword)

	newPassword, err := core.ReadPasswordConfirm("Enter new password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(newPassword)
	checkNewPassword(newPassword)

	if err := ks.ChangePassword(ctx, currentPassword, newPassword); err != nil {
		HandleError(err)
	}

	// Update keyring if an entry exists for this store
	if storeID, err := ks.GetStoreID(); err == nil && keyring.HasPassword(storeID) {
		if err := keyring.SavePassword(storeID, newPassword); err == nil {
			fmt.Println("Keyring updated with new password")
		}
	}

	// Compact database after rewriting all envelopes
	if err := ks.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}

	fmt.Println("password changed successfully")
}
