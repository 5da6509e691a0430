package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illarion/ledgerkey/internal/proofs"
)

// PowParams prints the Equihash parameters a proof-of-work request would
// use. Options come from a JSON file or from flags; flags win.
func PowParams(_ context.Context, optionsFile, mode, n, k string) {
	var opts proofs.ProofOfWorkOptions
	if optionsFile != "" {
		w := openWorkdir()
		data, err := w.ReadFile(optionsFile)
		w.Close()
		if err != nil {
			HandleError(err)
		}
		if err := json.Unmarshal(data, &opts); err != nil {
			HandleError(err)
		}
	}
	if opts.Mode == "" {
		opts.Mode = rt.cfg.Mode
	}
	if mode != "" {
		opts.Mode = mode
	}

	var err error
	if n != "" {
		if opts.EquihashParameterN, err = proofs.ParseInteger("equihashParameterN", n); err != nil {
			HandleError(err)
		}
	}
	if k != "" {
		if opts.EquihashParameterK, err = proofs.ParseInteger("equihashParameterK", k); err != nil {
			HandleError(err)
		}
	}

	params, err := opts.Parameters()
	if err != nil {
		HandleError(err)
	}

	if opts.Explicit() {
		fmt.Println("source: explicit parameters")
	} else {
		fmt.Printf("source: mode %s\n", opts.Mode)
	}
	fmt.Printf("algorithm: %s\n", proofs.ProofOfWorkAlgorithm)
	fmt.Printf("n: %d\n", params.N)
	fmt.Printf("k: %d\n", params.K)
}
