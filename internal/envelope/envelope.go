// Package envelope encodes and validates the encrypted-key envelope produced
// by password-based key wrapping:
//
//	{
//	  "unprotected": {"alg": "PBES2-HS512+A256KW", "p2c": 4096, "p2s": "<base64url salt>"},
//	  "encrypted_key": "<base64url wrapped key>"
//	}
//
// Binary fields use base64url without padding. Parse and Validate reject any
// envelope whose header does not carry exactly the expected algorithm.
package envelope

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/illarion/ledgerkey/internal/errs"
)

// Algorithm is the only key management algorithm accepted in a header.
const Algorithm = "PBES2-HS512+A256KW"

var (
	errNotInteger = errors.New("must be an integer")
	errOutOfRange = errors.New("is out of range")
)

// Header is the unprotected JWE header of an envelope
type Header struct {
	Alg string `json:"alg"`
	P2C int    `json:"p2c"`
	P2S string `json:"p2s"`
}

// Envelope holds everything needed to unwrap a key given its password
type Envelope struct {
	Unprotected  Header `json:"unprotected"`
	EncryptedKey string `json:"encrypted_key"`
}

// New builds an envelope from raw salt and wrapped key bytes
func New(iterations int, salt, wrappedKey []byte) *Envelope {
	return &Envelope{
		Unprotected: Header{
			Alg: Algorithm,
			P2C: iterations,
			P2S: Encode(salt),
		},
		EncryptedKey: Encode(wrappedKey),
	}
}

// Encode returns b as base64url text without padding
func Encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode parses base64url text. Trailing padding is tolerated, non-zero
// trailing bits are not.
func Decode(s string) ([]byte, error) {
	return base64.RawURLEncoding.Strict().DecodeString(strings.TrimRight(s, "="))
}

// Validate checks every field of the envelope before any cryptography runs
func (e *Envelope) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: envelope must be an object", errs.ErrMalformedInput)
	}
	h := e.Unprotected
	if h.Alg != Algorithm {
		return fmt.Errorf("%w: unsupported or missing \"alg\" %q", errs.ErrMalformedInput, h.Alg)
	}
	if h.P2C < 1 {
		return fmt.Errorf("%w: \"p2c\" must be a positive integer", errs.ErrMalformedInput)
	}
	if h.P2S == "" {
		return fmt.Errorf("%w: missing \"p2s\"", errs.ErrMalformedInput)
	}
	if _, err := Decode(h.P2S); err != nil {
		return fmt.Errorf("%w: \"p2s\" is not base64url: %v", errs.ErrMalformedInput, err)
	}
	if e.EncryptedKey == "" {
		return fmt.Errorf("%w: missing \"encrypted_key\"", errs.ErrMalformedInput)
	}
	if _, err := Decode(e.EncryptedKey); err != nil {
		return fmt.Errorf("%w: \"encrypted_key\" is not base64url: %v", errs.ErrMalformedInput, err)
	}
	return nil
}

// Salt returns the decoded p2s value
func (e *Envelope) Salt() ([]byte, error) {
	salt, err := Decode(e.Unprotected.P2S)
	if err != nil {
		return nil, fmt.Errorf("%w: \"p2s\" is not base64url: %v", errs.ErrMalformedInput, err)
	}
	return salt, nil
}

// WrappedKey returns the decoded encrypted_key value
func (e *Envelope) WrappedKey() ([]byte, error) {
	wrapped, err := Decode(e.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: \"encrypted_key\" is not base64url: %v", errs.ErrMalformedInput, err)
	}
	return wrapped, nil
}

// Marshal returns the JSON wire form of the envelope
func Marshal(e *Envelope) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// Parse decodes and validates an envelope from its JSON wire form.
// Unlike json.Unmarshal into Envelope it distinguishes missing fields from
// zero values and rejects fields of the wrong JSON type.
func Parse(data []byte) (*Envelope, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		return nil, fmt.Errorf("%w: envelope must be a JSON object", errs.ErrMalformedInput)
	}

	rawHeader, ok := top["unprotected"]
	if !ok {
		return nil, fmt.Errorf("%w: missing \"unprotected\" header", errs.ErrMalformedInput)
	}
	var header map[string]json.RawMessage
	if err := json.Unmarshal(rawHeader, &header); err != nil || header == nil {
		return nil, fmt.Errorf("%w: \"unprotected\" header must be an object", errs.ErrMalformedInput)
	}

	env := &Envelope{}
	var err error
	if env.Unprotected.Alg, err = stringField(header, "alg"); err != nil {
		return nil, err
	}
	if env.Unprotected.P2C, err = integerField(header, "p2c"); err != nil {
		return nil, err
	}
	if env.Unprotected.P2S, err = stringField(header, "p2s"); err != nil {
		return nil, err
	}
	if env.EncryptedKey, err = stringField(top, "encrypted_key"); err != nil {
		return nil, err
	}

	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}

func stringField(obj map[string]json.RawMessage, name string) (string, error) {
	raw, ok := obj[name]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", errs.ErrMalformedInput, name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", fmt.Errorf("%w: %q must be a string", errs.ErrMalformedInput, name)
	}
	return s, nil
}

func integerField(obj map[string]json.RawMessage, name string) (int, error) {
	raw, ok := obj[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", errs.ErrMalformedInput, name)
	}
	n, err := ParseInteger(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q %v", errs.ErrMalformedInput, name, err)
	}
	return n, nil
}

// ParseInteger decodes a JSON number with an integral value in the int32
// range. 4096, 4096.0 and 4.096e3 are all accepted.
func ParseInteger(raw json.RawMessage) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, errNotInteger
	}
	if dec.More() {
		return 0, errNotInteger
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, errNotInteger
	}

	if n, err := strconv.ParseInt(num.String(), 10, 64); err == nil {
		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0, errOutOfRange
		}
		return int(n), nil
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, errNotInteger
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, errOutOfRange
	}
	return int(f), nil
}
