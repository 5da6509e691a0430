package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/illarion/ledgerkey/internal/core"
	"github.com/illarion/ledgerkey/internal/git"
	"github.com/illarion/ledgerkey/internal/keyring"
)

// Status lists stored keys without asking for a password
func Status(ctx context.Context) {
	ks := openStore()

	status, err := ks.Status(ctx)
	if errors.Is(err, core.ErrNotInitialized) {
		fmt.Printf("No %s store found\n", ks.Path())
		fmt.Println("Run 'ledgerkey init' to create one")
		return
	}
	if err != nil {
		HandleError(err)
	}

	var size int64
	if info, err := os.Stat(status.Path); err == nil {
		size = info.Size()
	}
	fmt.Printf("Store: %s (%s, modified %s)\n", status.Path, formatSize(size), status.Modified.Format(time.RFC3339))
	fmt.Printf("Store ID: %s\n", status.StoreID)

	fmt.Println()
	if len(status.Keys) == 0 {
		fmt.Println("Keys: (none)")
	} else {
		fmt.Printf("Keys (%d):\n", len(status.Keys))
		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  NAME\tSIZE\tFINGERPRINT\tP2C\tMODIFIED")
		for _, k := range status.Keys {
			fmt.Fprintf(tw, "  %s\t%d\t%s\t%d\t%s\n", k.Name, k.Size, k.Fingerprint, k.Iterations, k.Modified.Format(time.RFC3339))
		}
		tw.Flush()
	}

	if keyring.HasPassword(status.StoreID) {
		fmt.Println("\nPassword: stored in keyring")
	} else {
		fmt.Println("\nPassword: not stored")
	}

	fmt.Print(git.FormatStatus(git.Check(".", status.Path, nil), status.Path))
}
