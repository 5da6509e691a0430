package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/ledgerkey/internal/core"
	"github.com/illarion/ledgerkey/internal/crypto"
)

// Export prints the envelope stored as name, or writes it to out
func Export(_ context.Context, name, out string, force bool) {
	ks := openStore()

	data, err := ks.ExportEnvelope(name)
	if err != nil {
		HandleError(err)
	}

	if out == "" {
		fmt.Println(string(data))
		return
	}

	w := openWorkdir()
	defer w.Close()
	if err := w.WriteFile(out, append(data, '\n'), 0o644, force); err != nil {
		HandleError(err)
	}
	rel, _ := w.Resolve(out)
	fmt.Printf("exported: %s -> %s\n", name, rel)
}

// Import validates the envelope in file and stores its key as name under
// the store password. With askPassword the envelope's own password is
// prompted for; otherwise it must be the store password.
func Import(ctx context.Context, name, file string, askPassword bool) {
	w := openWorkdir()
	data, err := w.ReadFile(file)
	w.Close()
	if err != nil {
		HandleError(err)
	}

	ks := openStore()
	storePassword, _ := unlockStore(ctx, ks, "Enter store password: ")
	defer crypto.ClearBytes(storePassword)

	var envelopePassword []byte
	if askPassword {
		envelopePassword, err = core.ReadPassword("Enter envelope password: ")
		if err != nil {
			HandleError(err)
		}
		defer crypto.ClearBytes(envelopePassword)
	}

	entry, err := ks.ImportEnvelope(ctx, name, data, envelopePassword, storePassword)
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("imported: %s (%d bytes, %s)\n", entry.Name, entry.Size, entry.Fingerprint)
}
