package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/ledgerkey/internal/crypto"
)

// Init creates a new store
func Init(ctx context.Context) {
	ks := openStore()

	password, err := GetPasswordForInit()
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)
	checkNewPassword(password)

	if err := ks.Init(ctx, password); err != nil {
		HandleError(err)
	}

	fmt.Printf("Initialized %s\n", ks.Path())
	fmt.Println("The password is not stored anywhere - you must remember it.")
}
