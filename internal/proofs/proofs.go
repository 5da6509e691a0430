// Package proofs attaches signature and proof-of-work proofs to ledger
// operation documents.
//
// The cryptographic work is done by collaborators: a Signer produces the
// signature proof and a Prover runs the proof-of-work search. The Attacher
// validates options, selects parameters and builds the requests it hands to
// them. Context documents referenced while signing are resolved through an
// explicit DocumentLoader rather than any process-wide state.
package proofs

import (
	"context"
	"fmt"

	"github.com/illarion/ledgerkey/internal/errs"
)

const (
	SignatureAlgorithm   = "Ed25519Signature2018"
	ProofOfWorkAlgorithm = "EquihashProof2018"

	WebLedgerContextV1 = "https://w3id.org/webledger/v1"
	VeresOneContextV1  = "https://w3id.org/veres-one/v1"
)

// Document is a JSON object such as a ledger operation
type Document = map[string]any

// SignRequest is what a Signer receives for one signature proof
type SignRequest struct {
	Algorithm        string
	Creator          string
	PrivateKeyBase58 string
	Proof            Document
}

// Signer attaches a signature proof to a document
type Signer interface {
	Sign(ctx context.Context, doc Document, req SignRequest) (Document, error)
}

// EquihashParameters are the n and k parameters of an Equihash search
type EquihashParameters struct {
	N int `json:"n" yaml:"n"`
	K int `json:"k" yaml:"k"`
}

// ProofRequest is what a Prover receives for one proof-of-work proof
type ProofRequest struct {
	Algorithm  string
	Parameters EquihashParameters
}

// Prover attaches a proof-of-work proof to a document
type Prover interface {
	Prove(ctx context.Context, doc Document, req ProofRequest) (Document, error)
}

// Attacher prepares proof requests for its collaborators.
// Either collaborator may be nil if the corresponding proof is never attached.
type Attacher struct {
	signer Signer
	prover Prover
}

// NewAttacher creates an Attacher
func NewAttacher(signer Signer, prover Prover) *Attacher {
	return &Attacher{
		signer: signer,
		prover: prover,
	}
}

// AttachSignatureProof signs operation with an Ed25519Signature2018 proof
// carrying the proof purpose and capability from opts.
func (a *Attacher) AttachSignatureProof(ctx context.Context, operation Document, opts SignatureOptions) (Document, error) {
	if operation == nil {
		return nil, fmt.Errorf("%w: operation is required", errs.ErrInvalidArgument)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if a.signer == nil {
		return nil, fmt.Errorf("%w: no signer configured", errs.ErrInvalidArgument)
	}

	req := SignRequest{
		Algorithm:        SignatureAlgorithm,
		Creator:          opts.Creator,
		PrivateKeyBase58: opts.PrivateKeyBase58,
		Proof: Document{
			"@context":     WebLedgerContextV1,
			"proofPurpose": opts.ProofPurpose,
		},
	}
	if opts.Capability != "" {
		req.Proof["capability"] = opts.Capability
	}
	if opts.CapabilityAction != "" {
		req.Proof["capabilityAction"] = opts.CapabilityAction
	}

	signed, err := a.signer.Sign(ctx, operation, req)
	if err != nil {
		return nil, fmt.Errorf("failed to sign operation: %w", err)
	}
	return signed, nil
}

// AttachProofOfWorkProof attaches an EquihashProof2018 proof using the
// parameters selected by opts.
func (a *Attacher) AttachProofOfWorkProof(ctx context.Context, operation Document, opts ProofOfWorkOptions) (Document, error) {
	if operation == nil {
		return nil, fmt.Errorf("%w: operation is required", errs.ErrInvalidArgument)
	}
	params, err := opts.Parameters()
	if err != nil {
		return nil, err
	}
	if a.prover == nil {
		return nil, fmt.Errorf("%w: no prover configured", errs.ErrInvalidArgument)
	}

	proven, err := a.prover.Prove(ctx, operation, ProofRequest{
		Algorithm:  ProofOfWorkAlgorithm,
		Parameters: params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to attach proof of work: %w", err)
	}
	return proven, nil
}
