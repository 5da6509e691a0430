package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/illarion/ledgerkey/internal/crypto"
	"github.com/illarion/ledgerkey/internal/errs"
	"github.com/illarion/ledgerkey/internal/security"
	"github.com/tyler-smith/go-bip39"
)

// WrapOptions select where the key to wrap comes from
type WrapOptions struct {
	Generate int
	In       string
	Mnemonic bool
	Force    bool
}

// Wrap stores a key under name. Without --generate or --in the key is read
// from stdin as hex, or as BIP-39 words with --mnemonic.
func Wrap(ctx context.Context, name string, opts WrapOptions) {
	sources := 0
	for _, set := range []bool{opts.Generate > 0, opts.In != "", opts.Mnemonic} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		HandleError(fmt.Errorf("--generate, --in and --mnemonic are mutually exclusive"))
	}

	ks := openStore()

	var key []byte
	if opts.Generate == 0 {
		w := openWorkdir()
		var err error
		key, err = readKeyMaterial(w, os.Stdin, opts)
		w.Close()
		if err != nil {
			HandleError(err)
		}
		defer crypto.ClearBytes(key)
	}

	password, source := unlockStore(ctx, ks, "Enter password: ")
	defer crypto.ClearBytes(password)

	if opts.Generate > 0 {
		generated, entry, err := ks.GenerateKey(ctx, name, opts.Generate, password)
		if err != nil {
			HandleError(err)
		}
		crypto.ClearBytes(generated)
		fmt.Printf("generated: %s (%d bytes, %s)\n", entry.Name, entry.Size, entry.Fingerprint)
	} else {
		entry, err := ks.AddKey(ctx, name, key, password, opts.Force)
		if err != nil {
			HandleError(err)
		}
		fmt.Printf("wrapped: %s (%d bytes, %s)\n", entry.Name, entry.Size, entry.Fingerprint)
	}

	if source == SourcePrompt {
		if storeID, err := ks.GetOrCreateStoreID(); err == nil {
			OfferToSavePassword(storeID, password)
		}
	}
}

// readKeyMaterial reads the raw key named by opts
func readKeyMaterial(w *security.Workdir, stdin io.Reader, opts WrapOptions) ([]byte, error) {
	if opts.In != "" {
		return w.ReadFile(opts.In)
	}

	data, err := io.ReadAll(io.LimitReader(stdin, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}
	defer crypto.ClearBytes(data)

	if opts.Mnemonic {
		return decodeMnemonic(string(data))
	}
	return decodeHexKey(string(data))
}

func decodeHexKey(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: no key on stdin", errs.ErrInvalidArgument)
	}
	key, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: key is not hex", errs.ErrInvalidArgument)
	}
	return key, nil
}

func decodeMnemonic(text string) ([]byte, error) {
	words := strings.Join(strings.Fields(text), " ")
	if !bip39.IsMnemonicValid(words) {
		return nil, fmt.Errorf("%w: invalid BIP-39 mnemonic", errs.ErrInvalidArgument)
	}
	key, err := bip39.EntropyFromMnemonic(words)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
	}
	return key, nil
}
