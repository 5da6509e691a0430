package cmd

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/illarion/ledgerkey/internal/crypto"
	"github.com/illarion/ledgerkey/internal/errs"
	"github.com/illarion/ledgerkey/internal/proofs"
	"github.com/illarion/ledgerkey/internal/security"
	"github.com/mr-tron/base58"
)

// SignOptions configure the sign command
type SignOptions struct {
	In               string
	Out              string
	Key              string
	Creator          string
	ProofPurpose     string
	Capability       string
	CapabilityAction string
	Diff             bool
	Force            bool
}

// Sign attaches an Ed25519Signature2018 proof to an operation document
// using an Ed25519 seed stored in the key store.
func Sign(ctx context.Context, opts SignOptions) {
	if opts.In == "" || opts.Key == "" {
		HandleError(fmt.Errorf("%w: --in and --key are required", errs.ErrInvalidArgument))
	}

	w := openWorkdir()
	defer w.Close()

	operation, err := readDocument(w, opts.In)
	if err != nil {
		HandleError(err)
	}

	privateKey := unwrapSigningKey(ctx, opts.Key)
	defer crypto.ClearBytes(privateKey)
	publicKey := privateKey.Public().(ed25519.PublicKey)

	creator := opts.Creator
	if creator == "" {
		creator = defaultCreator(publicKey)
	}

	loader, err := newDocumentLoader()
	if err != nil {
		HandleError(err)
	}
	attacher := proofs.NewAttacher(proofs.NewEd25519Signer(loader), nil)

	signed, err := attacher.AttachSignatureProof(ctx, operation, proofs.SignatureOptions{
		Capability:       opts.Capability,
		CapabilityAction: opts.CapabilityAction,
		Creator:          creator,
		PrivateKeyBase58: base58.Encode(privateKey.Seed()),
		ProofPurpose:     opts.ProofPurpose,
	})
	if err != nil {
		HandleError(err)
	}
	if err := proofs.Verify(signed, publicKey); err != nil {
		HandleError(fmt.Errorf("signed document does not verify: %w", err))
	}

	out, err := json.MarshalIndent(signed, "", "  ")
	if err != nil {
		HandleError(err)
	}

	diffOut := os.Stderr
	if opts.Out != "" {
		if err := w.WriteFile(opts.Out, append(out, '\n'), 0o644, opts.Force); err != nil {
			HandleError(err)
		}
		diffOut = os.Stdout
		fmt.Printf("signed: %s -> %s\n", opts.In, opts.Out)
	} else {
		fmt.Println(string(out))
	}

	if opts.Diff {
		diff, err := proofs.DiffDocuments(opts.In, operation, signed)
		if err != nil {
			HandleError(err)
		}
		fmt.Fprint(diffOut, diff)
	}
}

// Verify checks the Ed25519Signature2018 proofs of a document against the
// public key of a stored key or an explicit base58 public key.
func Verify(ctx context.Context, in, keyName, publicKeyBase58 string) {
	if in == "" || (keyName == "") == (publicKeyBase58 == "") {
		HandleError(fmt.Errorf("%w: --in and exactly one of --key or --public-key are required", errs.ErrInvalidArgument))
	}

	w := openWorkdir()
	defer w.Close()

	doc, err := readDocument(w, in)
	if err != nil {
		HandleError(err)
	}

	var publicKey ed25519.PublicKey
	if keyName != "" {
		privateKey := unwrapSigningKey(ctx, keyName)
		publicKey = privateKey.Public().(ed25519.PublicKey)
		crypto.ClearBytes(privateKey)
	} else {
		raw, err := base58.Decode(publicKeyBase58)
		if err != nil {
			HandleError(fmt.Errorf("%w: public key is not base58", errs.ErrInvalidArgument))
		}
		publicKey = ed25519.PublicKey(raw)
	}

	if err := proofs.Verify(doc, publicKey); err != nil {
		HandleError(err)
	}
	fmt.Printf("ok: %s carries a valid signature from %s\n", in, proofs.EncodePublicKey(publicKey))
}

// PublicKey prints the Ed25519 public key and default creator of a stored seed
func PublicKey(ctx context.Context, keyName string) {
	privateKey := unwrapSigningKey(ctx, keyName)
	defer crypto.ClearBytes(privateKey)
	publicKey := privateKey.Public().(ed25519.PublicKey)

	fmt.Printf("publicKeyBase58: %s\n", proofs.EncodePublicKey(publicKey))
	fmt.Printf("creator: %s\n", defaultCreator(publicKey))
}

func unwrapSigningKey(ctx context.Context, name string) ed25519.PrivateKey {
	ks := openStore()
	password, _ := unlockStore(ctx, ks, "Enter password: ")
	defer crypto.ClearBytes(password)

	raw, err := ks.UnwrapKey(ctx, name, password)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(raw)

	privateKey, err := signingKey(raw)
	if err != nil {
		HandleError(err)
	}
	return privateKey
}

// signingKey turns a stored key into an Ed25519 private key. Stored keys
// are 32-byte seeds or 64-byte private keys.
func signingKey(raw []byte) (ed25519.PrivateKey, error) {
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		privateKey := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
		copy(privateKey, raw)
		return privateKey, nil
	}
	return nil, fmt.Errorf("%w: a %d-byte key is not an Ed25519 seed", errs.ErrInvalidArgument, len(raw))
}

func defaultCreator(publicKey ed25519.PublicKey) string {
	fingerprint := proofs.EncodePublicKey(publicKey)
	return fmt.Sprintf("did:v1:nym:z%s#z%s", fingerprint, fingerprint)
}

func readDocument(w *security.Workdir, path string) (proofs.Document, error) {
	data, err := w.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc proofs.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s is not a JSON object: %v", errs.ErrMalformedInput, path, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s is not a JSON object", errs.ErrMalformedInput, path)
	}
	return doc, nil
}

func newDocumentLoader() (proofs.DocumentLoader, error) {
	var fallback proofs.DocumentLoader
	if rt.cfg.Loader.Remote {
		client := &http.Client{Timeout: rt.cfg.Loader.Timeout}
		fallback = proofs.NewHTTPLoader(client, rt.cfg.Loader.RequestsPerSecond, rt.cfg.Loader.Burst)
	}
	return proofs.NewStaticLoader(fallback, nil)
}
