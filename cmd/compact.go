package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/ledgerkey/internal/core"
)

// Compact compacts the store file to reclaim unused space
func Compact(_ context.Context) {
	ks := openStore()

	info, err := os.Stat(ks.Path())
	if err != nil {
		HandleError(core.ErrNotInitialized)
	}
	sizeBefore := info.Size()

	if err := ks.Compact(); err != nil {
		HandleError(err)
	}

	info, err = os.Stat(ks.Path())
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(info.Size()))
}
