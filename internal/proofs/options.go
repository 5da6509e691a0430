package proofs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/illarion/ledgerkey/internal/envelope"
	"github.com/illarion/ledgerkey/internal/errs"
)

// SignatureOptions configure AttachSignatureProof
type SignatureOptions struct {
	Capability       string `json:"capability,omitempty" yaml:"capability"`
	CapabilityAction string `json:"capabilityAction,omitempty" yaml:"capabilityAction"`
	Creator          string `json:"creator" yaml:"creator"`
	PrivateKeyBase58 string `json:"privateKeyBase58" yaml:"privateKeyBase58"`
	ProofPurpose     string `json:"proofPurpose" yaml:"proofPurpose"`
}

// Validate checks the options required to produce a signature proof
func (o SignatureOptions) Validate() error {
	switch {
	case strings.TrimSpace(o.Creator) == "":
		return fmt.Errorf("%w: \"creator\" is required", errs.ErrInvalidArgument)
	case o.PrivateKeyBase58 == "":
		return fmt.Errorf("%w: \"privateKeyBase58\" is required", errs.ErrInvalidArgument)
	case strings.TrimSpace(o.ProofPurpose) == "":
		return fmt.Errorf("%w: \"proofPurpose\" is required", errs.ErrInvalidArgument)
	}
	return nil
}

// Ledger modes with fixed Equihash parameters
const (
	ModeDev  = "dev"
	ModeTest = "test"
	ModeLive = "live"
)

var modeParameters = map[string]EquihashParameters{
	ModeDev:  {N: 64, K: 3},
	ModeTest: {N: 64, K: 3},
	// TODO: take live parameters from ledger configuration once it publishes them
	ModeLive: {N: 144, K: 5},
}

// Modes returns the known ledger modes in sorted order
func Modes() []string {
	modes := make([]string, 0, len(modeParameters))
	for m := range modeParameters {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	return modes
}

// ProofOfWorkOptions configure AttachProofOfWorkProof.
// Explicit parameters take precedence over Mode when both are non-zero.
type ProofOfWorkOptions struct {
	Mode               string `json:"mode,omitempty"`
	EquihashParameterN *int   `json:"equihashParameterN,omitempty"`
	EquihashParameterK *int   `json:"equihashParameterK,omitempty"`
}

// Parameters resolves the Equihash parameters these options select
func (o ProofOfWorkOptions) Parameters() (EquihashParameters, error) {
	n, k := valueOf(o.EquihashParameterN), valueOf(o.EquihashParameterK)
	if n < 0 || k < 0 {
		return EquihashParameters{}, fmt.Errorf("%w: \"equihashParameterN\" and \"equihashParameterK\" must not be negative",
			errs.ErrInvalidArgument)
	}
	if o.Explicit() {
		return EquihashParameters{N: n, K: k}, nil
	}

	params, ok := modeParameters[o.Mode]
	if !ok {
		return EquihashParameters{}, fmt.Errorf("%w: %q, \"mode\" must be one of %s",
			errs.ErrUnsupportedMode, o.Mode, strings.Join(Modes(), ", "))
	}
	return params, nil
}

// Explicit reports whether both Equihash parameters are set and non-zero
func (o ProofOfWorkOptions) Explicit() bool {
	return valueOf(o.EquihashParameterN) != 0 && valueOf(o.EquihashParameterK) != 0
}

func valueOf(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// UnmarshalJSON rejects non-integer Equihash parameters
func (o *ProofOfWorkOptions) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: proof of work options must be an object", errs.ErrInvalidArgument)
	}

	var out ProofOfWorkOptions
	if m, ok := raw["mode"]; ok && !isNull(m) {
		if err := json.Unmarshal(m, &out.Mode); err != nil {
			return fmt.Errorf("%w: \"mode\" must be a string", errs.ErrInvalidArgument)
		}
	}
	for name, dst := range map[string]**int{
		"equihashParameterN": &out.EquihashParameterN,
		"equihashParameterK": &out.EquihashParameterK,
	} {
		v, ok := raw[name]
		if !ok || isNull(v) {
			continue
		}
		n, err := envelope.ParseInteger(v)
		if err != nil {
			return fmt.Errorf("%w: %q %v", errs.ErrInvalidArgument, name, err)
		}
		*dst = &n
	}

	*o = out
	return nil
}

// ParseInteger parses an integer parameter supplied as text, using the
// same rule as integers inside options JSON
func ParseInteger(name, value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	n, err := envelope.ParseInteger(json.RawMessage(value))
	if err != nil {
		return nil, fmt.Errorf("%w: %q %v", errs.ErrInvalidArgument, name, err)
	}
	return &n, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
