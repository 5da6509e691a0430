// Package pbes2 wraps and unwraps symmetric keys under a password using
// PBES2-HS512+A256KW: PBKDF2-HMAC-SHA512 derives an AES-256 key-encryption
// key which protects the caller's key with AES Key Wrap.
//
// Wrap and unwrap are stateless and safe for concurrent use. Each call draws
// a fresh salt (wrap) or re-derives the key-encryption key from the
// envelope's own parameters (unwrap); nothing is cached between calls.
package pbes2

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/illarion/ledgerkey/internal/crypto"
	"github.com/illarion/ledgerkey/internal/envelope"
	"github.com/illarion/ledgerkey/internal/errs"
)

// Iterations is the PBKDF2 iteration count written into new envelopes
const Iterations = crypto.DefaultIters

type options struct {
	random        io.Reader
	maxIterations int
}

// Option customizes a wrap or unwrap call
type Option func(*options)

// WithRandom replaces crypto/rand as the salt source
func WithRandom(r io.Reader) Option {
	return func(o *options) {
		o.random = r
	}
}

// WithMaxIterations rejects envelopes whose p2c exceeds n. Zero means no limit.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		o.maxIterations = n
	}
}

func buildOptions(opts []Option) options {
	o := options{random: rand.Reader}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WrapWithPassword wraps key under password and returns the envelope
func WrapWithPassword(ctx context.Context, password, key []byte, opts ...Option) (*envelope.Envelope, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: key is required", errs.ErrInvalidArgument)
	}
	if len(key) < crypto.MinWrapInput || len(key)%8 != 0 {
		return nil, fmt.Errorf("%w: key must be a multiple of 8 bytes and at least %d bytes, got %d",
			errs.ErrInvalidArgument, crypto.MinWrapInput, len(key))
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: password is required", errs.ErrInvalidArgument)
	}
	o := buildOptions(opts)

	kdf, err := crypto.NewKDF(o.random)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kek := kdf.DeriveKey(password)
	defer crypto.ClearBytes(kek)

	wrapped, err := crypto.Wrap(kek, key)
	if err != nil {
		return nil, err
	}

	return envelope.New(kdf.Iterations, kdf.Salt, wrapped), nil
}

// UnwrapWithPassword validates env in full, then recovers the wrapped key.
// A wrong password or a tampered envelope yields errs.ErrIntegrity.
func UnwrapWithPassword(ctx context.Context, password []byte, env *envelope.Envelope, opts ...Option) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	iterations := env.Unprotected.P2C
	if o.maxIterations > 0 && iterations > o.maxIterations {
		return nil, fmt.Errorf("%w: \"p2c\" %d exceeds limit %d", errs.ErrMalformedInput, iterations, o.maxIterations)
	}

	salt, err := env.Salt()
	if err != nil {
		return nil, err
	}
	wrapped, err := env.WrappedKey()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kek := crypto.DeriveKey(password, salt, iterations)
	defer crypto.ClearBytes(kek)

	return crypto.Unwrap(kek, wrapped)
}

// UnwrapJSON parses an envelope from its wire form and unwraps it
func UnwrapJSON(ctx context.Context, password, data []byte, opts ...Option) ([]byte, error) {
	env, err := envelope.Parse(data)
	if err != nil {
		return nil, err
	}
	return UnwrapWithPassword(ctx, password, env, opts...)
}
