package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/ledgerkey/internal/crypto"
)

// Remove deletes keys from the store
func Remove(ctx context.Context, names []string) {
	if len(names) == 0 {
		fmt.Fprintf(os.Stderr, "Error: rm requires at least one key name\n")
		fmt.Fprintf(os.Stderr, "Usage: ledgerkey rm <name> [name...]\n")
		os.Exit(1)
	}

	ks := openStore()
	password, _ := unlockStore(ctx, ks, "Enter password: ")
	defer crypto.ClearBytes(password)

	if err := ks.RemoveKeys(ctx, names, password); err != nil {
		HandleError(err)
	}
	for _, name := range names {
		fmt.Printf("removed: %s\n", name)
	}

	// Compact database to reclaim space
	if err := ks.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}
}
