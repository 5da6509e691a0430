package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/illarion/ledgerkey/internal/crypto"
	"github.com/illarion/ledgerkey/internal/errs"
	"github.com/illarion/ledgerkey/internal/git"
	"github.com/tyler-smith/go-bip39"
)

// UnwrapOptions select how a recovered key is emitted
type UnwrapOptions struct {
	Out      string
	Mnemonic bool
	Force    bool
}

// Unwrap recovers the key stored as name and prints it as hex, prints its
// BIP-39 words, or writes the raw bytes to a file.
func Unwrap(ctx context.Context, name string, opts UnwrapOptions) {
	if opts.Out != "" && opts.Mnemonic {
		HandleError(fmt.Errorf("--out and --mnemonic are mutually exclusive"))
	}

	ks := openStore()
	password, source := unlockStore(ctx, ks, "Enter password: ")
	defer crypto.ClearBytes(password)

	key, err := ks.UnwrapKey(ctx, name, password)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(key)

	switch {
	case opts.Out != "":
		w := openWorkdir()
		defer w.Close()

		if err := w.WriteFile(opts.Out, key, 0o600, opts.Force); err != nil {
			HandleError(err)
		}
		rel, _ := w.Resolve(opts.Out)
		fmt.Printf("unwrapped: %s -> %s\n", name, rel)
		if warning := git.PlaintextWarning(w.Path(), rel); warning != "" {
			fmt.Fprintln(os.Stderr, warning)
		}
	case opts.Mnemonic:
		words, err := encodeMnemonic(key)
		if err != nil {
			HandleError(err)
		}
		fmt.Println(words)
	default:
		fmt.Println(hex.EncodeToString(key))
	}

	if source == SourcePrompt {
		if storeID, err := ks.GetOrCreateStoreID(); err == nil {
			OfferToSavePassword(storeID, password)
		}
	}
}

func encodeMnemonic(key []byte) (string, error) {
	words, err := bip39.NewMnemonic(key)
	if err != nil {
		return "", fmt.Errorf("%w: a %d-byte key has no BIP-39 form (16, 20, 24, 28 or 32 bytes)", errs.ErrInvalidArgument, len(key))
	}
	return words, nil
}
