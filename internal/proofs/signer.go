package proofs

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/illarion/ledgerkey/internal/errs"
	"github.com/mr-tron/base58"
)

// ErrInvalidSignature is returned by Verify when no proof checks out
var ErrInvalidSignature = errors.New("invalid signature")

// detached JWS header with an unencoded payload (RFC 7797)
var jwsHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"EdDSA","b64":false,"crit":["b64"]}`))

// Ed25519Signer produces Ed25519Signature2018 proofs. The signed bytes are
// digests of the JSON forms of the proof options and of the document
// without its proofs; no RDF canonicalization is performed.
type Ed25519Signer struct {
	loader DocumentLoader
	now    func() time.Time
}

// NewEd25519Signer creates a signer resolving contexts through loader
func NewEd25519Signer(loader DocumentLoader) *Ed25519Signer {
	return &Ed25519Signer{
		loader: loader,
		now:    time.Now,
	}
}

// Sign implements Signer
func (s *Ed25519Signer) Sign(ctx context.Context, doc Document, req SignRequest) (Document, error) {
	if req.Algorithm != SignatureAlgorithm {
		return nil, fmt.Errorf("%w: unsupported signature algorithm %q", errs.ErrInvalidArgument, req.Algorithm)
	}
	privateKey, err := DecodePrivateKey(req.PrivateKeyBase58)
	if err != nil {
		return nil, err
	}

	if err := s.resolveContexts(ctx, doc["@context"], req.Proof["@context"]); err != nil {
		return nil, err
	}

	proof := make(Document, len(req.Proof)+4)
	for k, v := range req.Proof {
		proof[k] = v
	}
	proof["type"] = req.Algorithm
	proof["created"] = s.now().UTC().Format(time.RFC3339)
	proof["creator"] = req.Creator

	input, err := signingInput(doc, proof)
	if err != nil {
		return nil, err
	}
	sig := ed25519.Sign(privateKey, input)
	proof["jws"] = jwsHeader + ".." + base64.RawURLEncoding.EncodeToString(sig)

	return withProof(doc, proof), nil
}

// Verify checks that doc carries at least one Ed25519Signature2018 proof
// made with the private key matching publicKey.
func Verify(doc Document, publicKey ed25519.PublicKey) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: public key must be %d bytes", errs.ErrInvalidArgument, ed25519.PublicKeySize)
	}
	for _, proof := range proofsOf(doc) {
		if proof["type"] != SignatureAlgorithm {
			continue
		}
		jws, _ := proof["jws"].(string)
		header, sigPart, ok := strings.Cut(jws, "..")
		if !ok || header != jwsHeader {
			continue
		}
		sig, err := base64.RawURLEncoding.DecodeString(sigPart)
		if err != nil {
			continue
		}

		options := make(Document, len(proof))
		for k, v := range proof {
			if k != "jws" {
				options[k] = v
			}
		}
		input, err := signingInput(doc, options)
		if err != nil {
			return err
		}
		if ed25519.Verify(publicKey, input, sig) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// DecodePrivateKey accepts a base58 Ed25519 private key (64 bytes) or seed (32 bytes)
func DecodePrivateKey(encoded string) (ed25519.PrivateKey, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: \"privateKeyBase58\" is not base58", errs.ErrInvalidArgument)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	}
	return nil, fmt.Errorf("%w: \"privateKeyBase58\" decodes to %d bytes", errs.ErrInvalidArgument, len(raw))
}

// EncodePublicKey returns the base58 form of an Ed25519 public key
func EncodePublicKey(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}

func (s *Ed25519Signer) resolveContexts(ctx context.Context, values ...any) error {
	for _, v := range values {
		for _, url := range contextURLs(v) {
			if s.loader == nil {
				return fmt.Errorf("%w: %s (no document loader)", ErrUnknownContext, url)
			}
			if _, err := s.loader.LoadDocument(ctx, url); err != nil {
				return fmt.Errorf("failed to resolve context %s: %w", url, err)
			}
		}
	}
	return nil
}

func signingInput(doc, proofOptions Document) ([]byte, error) {
	unsigned := make(Document, len(doc))
	for k, v := range doc {
		if k != "proof" {
			unsigned[k] = v
		}
	}

	docJSON, err := json.Marshal(unsigned)
	if err != nil {
		return nil, fmt.Errorf("%w: document is not serializable: %v", errs.ErrInvalidArgument, err)
	}
	proofJSON, err := json.Marshal(proofOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: proof is not serializable: %v", errs.ErrInvalidArgument, err)
	}

	proofHash := sha256.Sum256(proofJSON)
	docHash := sha256.Sum256(docJSON)

	input := make([]byte, 0, len(jwsHeader)+1+2*sha256.Size)
	input = append(input, jwsHeader...)
	input = append(input, '.')
	input = append(input, proofHash[:]...)
	input = append(input, docHash[:]...)
	return input, nil
}

func proofsOf(doc Document) []Document {
	switch p := doc["proof"].(type) {
	case Document:
		return []Document{p}
	case []any:
		out := make([]Document, 0, len(p))
		for _, item := range p {
			if d, ok := item.(Document); ok {
				out = append(out, d)
			}
		}
		return out
	}
	return nil
}

// withProof returns a shallow copy of doc with proof added after any
// existing proofs.
func withProof(doc, proof Document) Document {
	out := make(Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	switch existing := doc["proof"].(type) {
	case nil:
		out["proof"] = proof
	case []any:
		out["proof"] = append(append([]any(nil), existing...), proof)
	default:
		out["proof"] = []any{existing, proof}
	}
	return out
}
