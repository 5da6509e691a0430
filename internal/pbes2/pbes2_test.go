package pbes2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/illarion/ledgerkey/internal/envelope"
	"github.com/illarion/ledgerkey/internal/errs"
)

func testKey(n int) []byte {
	key := make([]byte, n)
	for i := range key {
		key[i] = byte(i*7 + 3)
	}
	return key
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, size := range []int{16, 24, 32, 64} {
		for _, password := range []string{"p", "correct horse battery staple", "pässwörd"} {
			t.Run(fmt.Sprintf("%d/%s", size, password), func(t *testing.T) {
				key := testKey(size)
				env, err := WrapWithPassword(ctx, []byte(password), key)
				if err != nil {
					t.Fatalf("Wrap failed: %v", err)
				}
				got, err := UnwrapWithPassword(ctx, []byte(password), env)
				if err != nil {
					t.Fatalf("Unwrap failed: %v", err)
				}
				if !bytes.Equal(got, key) {
					t.Fatalf("key mismatch: got %x, want %x", got, key)
				}
			})
		}
	}
}

func TestWrapEnvelopeShape(t *testing.T) {
	env, err := WrapWithPassword(context.Background(), []byte("pw"), testKey(32))
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}

	data, err := envelope.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var wire struct {
		Unprotected struct {
			Alg string `json:"alg"`
			P2C int    `json:"p2c"`
			P2S string `json:"p2s"`
		} `json:"unprotected"`
		EncryptedKey string `json:"encrypted_key"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}

	if wire.Unprotected.Alg != "PBES2-HS512+A256KW" {
		t.Errorf("alg = %q", wire.Unprotected.Alg)
	}
	if wire.Unprotected.P2C != 4096 {
		t.Errorf("p2c = %d", wire.Unprotected.P2C)
	}
	salt, err := envelope.Decode(wire.Unprotected.P2S)
	if err != nil || len(salt) != 32 {
		t.Errorf("p2s should decode to 32 bytes, got %d (%v)", len(salt), err)
	}
	wrapped, err := envelope.Decode(wire.EncryptedKey)
	if err != nil || len(wrapped) != 40 {
		t.Errorf("encrypted_key should decode to 40 bytes, got %d (%v)", len(wrapped), err)
	}
}

func TestWrongPassword(t *testing.T) {
	ctx := context.Background()
	key := testKey(32)
	env, err := WrapWithPassword(ctx, []byte("right"), key)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}

	got, err := UnwrapWithPassword(ctx, []byte("wrong"), env)
	if !errors.Is(err, errs.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
	if got != nil {
		t.Fatal("no plaintext may be returned on failure")
	}
}

func TestTamperedEncryptedKey(t *testing.T) {
	ctx := context.Background()
	env, err := WrapWithPassword(ctx, []byte("pw"), testKey(32))
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	wrapped, err := env.WrappedKey()
	if err != nil {
		t.Fatalf("WrappedKey failed: %v", err)
	}

	for _, i := range []int{0, 7, 8, len(wrapped) / 2, len(wrapped) - 1} {
		tampered := append([]byte(nil), wrapped...)
		tampered[i] ^= 0x80
		bad := *env
		bad.EncryptedKey = envelope.Encode(tampered)

		if _, err := UnwrapWithPassword(ctx, []byte("pw"), &bad); !errors.Is(err, errs.ErrIntegrity) {
			t.Errorf("byte %d: expected ErrIntegrity, got %v", i, err)
		}
	}
}

func TestTamperedSaltAndIterations(t *testing.T) {
	ctx := context.Background()
	env, err := WrapWithPassword(ctx, []byte("pw"), testKey(16))
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}

	bad := *env
	bad.Unprotected.P2C = 4097
	if _, err := UnwrapWithPassword(ctx, []byte("pw"), &bad); !errors.Is(err, errs.ErrIntegrity) {
		t.Errorf("changed p2c: expected ErrIntegrity, got %v", err)
	}

	salt, _ := env.Salt()
	salt[0] ^= 1
	bad = *env
	bad.Unprotected.P2S = envelope.Encode(salt)
	if _, err := UnwrapWithPassword(ctx, []byte("pw"), &bad); !errors.Is(err, errs.ErrIntegrity) {
		t.Errorf("changed p2s: expected ErrIntegrity, got %v", err)
	}
}

func TestAlgorithmConfusion(t *testing.T) {
	ctx := context.Background()
	env, err := WrapWithPassword(ctx, []byte("pw"), testKey(32))
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}

	for _, alg := range []string{"", "PBES2-HS256+A128KW", "pbes2-hs512+a256kw", "none", "dir"} {
		bad := *env
		bad.Unprotected.Alg = alg
		if _, err := UnwrapWithPassword(ctx, []byte("pw"), &bad); !errors.Is(err, errs.ErrMalformedInput) {
			t.Errorf("alg %q: expected ErrMalformedInput, got %v", alg, err)
		}
	}

	if _, err := UnwrapWithPassword(ctx, []byte("pw"), nil); !errors.Is(err, errs.ErrMalformedInput) {
		t.Errorf("nil envelope: expected ErrMalformedInput, got %v", err)
	}
}

func TestUnwrapJSON(t *testing.T) {
	ctx := context.Background()
	key := testKey(24)
	env, err := WrapWithPassword(ctx, []byte("pw"), key)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	data, err := envelope.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	got, err := UnwrapJSON(ctx, []byte("pw"), data)
	if err != nil {
		t.Fatalf("UnwrapJSON failed: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Fatalf("key mismatch")
	}

	missing := strings.Replace(string(data), `"p2c":4096,`, "", 1)
	if _, err := UnwrapJSON(ctx, []byte("pw"), []byte(missing)); !errors.Is(err, errs.ErrMalformedInput) {
		t.Errorf("missing p2c: expected ErrMalformedInput, got %v", err)
	}
	nonInt := strings.Replace(string(data), `"p2c":4096`, `"p2c":"4096"`, 1)
	if _, err := UnwrapJSON(ctx, []byte("pw"), []byte(nonInt)); !errors.Is(err, errs.ErrMalformedInput) {
		t.Errorf("string p2c: expected ErrMalformedInput, got %v", err)
	}
}

func TestFreshSaltPerWrap(t *testing.T) {
	ctx := context.Background()
	key := testKey(32)
	a, err := WrapWithPassword(ctx, []byte("pw"), key)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	b, err := WrapWithPassword(ctx, []byte("pw"), key)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}

	if a.Unprotected.P2S == b.Unprotected.P2S {
		t.Error("salts should differ between wraps")
	}
	if a.EncryptedKey == b.EncryptedKey {
		t.Error("ciphertexts should differ between wraps")
	}
	for _, env := range []*envelope.Envelope{a, b} {
		got, err := UnwrapWithPassword(ctx, []byte("pw"), env)
		if err != nil || !bytes.Equal(got, key) {
			t.Errorf("unwrap failed: %v", err)
		}
	}
}

func TestDeterministicWithRandom(t *testing.T) {
	ctx := context.Background()
	seed := bytes.Repeat([]byte{0x11}, 32)
	a, err := WrapWithPassword(ctx, []byte("pw"), testKey(32), WithRandom(bytes.NewReader(seed)))
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	b, err := WrapWithPassword(ctx, []byte("pw"), testKey(32), WithRandom(bytes.NewReader(seed)))
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	if *a != *b {
		t.Error("same salt source should produce identical envelopes")
	}
	if a.Unprotected.P2S != envelope.Encode(seed) {
		t.Errorf("p2s %q was not read from the random source", a.Unprotected.P2S)
	}

	if _, err := WrapWithPassword(ctx, []byte("pw"), testKey(32), WithRandom(bytes.NewReader(nil))); err == nil {
		t.Error("exhausted random source should fail")
	}
}

func TestWrapInvalidArguments(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		password []byte
		key      []byte
	}{
		{"nil key", []byte("pw"), nil},
		{"empty key", []byte("pw"), []byte{}},
		{"short key", []byte("pw"), testKey(8)},
		{"unaligned key", []byte("pw"), testKey(20)},
		{"empty password", nil, testKey(16)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := WrapWithPassword(ctx, tt.password, tt.key); !errors.Is(err, errs.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestMaxIterations(t *testing.T) {
	ctx := context.Background()
	key := testKey(16)
	env, err := WrapWithPassword(ctx, []byte("pw"), key)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}

	if _, err := UnwrapWithPassword(ctx, []byte("pw"), env, WithMaxIterations(1000)); !errors.Is(err, errs.ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput over the limit, got %v", err)
	}
	got, err := UnwrapWithPassword(ctx, []byte("pw"), env, WithMaxIterations(Iterations))
	if err != nil || !bytes.Equal(got, key) {
		t.Errorf("limit equal to p2c should pass, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := WrapWithPassword(ctx, []byte("pw"), testKey(16)); !errors.Is(err, context.Canceled) {
		t.Errorf("wrap: expected context.Canceled, got %v", err)
	}

	env, err := WrapWithPassword(context.Background(), []byte("pw"), testKey(16))
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	if _, err := UnwrapWithPassword(ctx, []byte("pw"), env); !errors.Is(err, context.Canceled) {
		t.Errorf("unwrap: expected context.Canceled, got %v", err)
	}
}

func TestConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	var wg sync.WaitGroup
	errCh := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			password := []byte(fmt.Sprintf("pw-%d", i))
			key := testKey(16 + 8*(i%3))
			env, err := WrapWithPassword(ctx, password, key)
			if err != nil {
				errCh <- err
				return
			}
			got, err := UnwrapWithPassword(ctx, password, env)
			if err != nil {
				errCh <- err
				return
			}
			if !bytes.Equal(got, key) {
				errCh <- fmt.Errorf("worker %d: key mismatch", i)
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Error(err)
	}
}
