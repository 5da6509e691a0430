package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/illarion/ledgerkey/internal/errs"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

// Known-answer tests from RFC 3394 section 4.
func TestWrapKnownAnswers(t *testing.T) {
	kek := "000102030405060708090A0B0C0D0E0F101112131415161718191A1B1C1D1E1F"
	tests := []struct {
		name      string
		plaintext string
		wrapped   string
	}{
		{
			name:      "128 bits with 256-bit KEK",
			plaintext: "00112233445566778899AABBCCDDEEFF",
			wrapped:   "64E8C3F9CE0F5BA2 63E9777905818A2A 93C8191E7D6E8AE7",
		},
		{
			name:      "256 bits with 256-bit KEK",
			plaintext: "00112233445566778899AABBCCDDEEFF000102030405060708090A0B0C0D0E0F",
			wrapped:   "28C9F404C4B810F4 CBCCB35CFB87F826 3F5786E2D80ED326 CBC7F0E71A99F43B FB988B9B7A02DD21",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := mustHex(t, kek)
			plaintext := mustHex(t, tt.plaintext)
			want := mustHex(t, tt.wrapped)

			got, err := Wrap(key, plaintext)
			if err != nil {
				t.Fatalf("Wrap failed: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("Wrap mismatch:\n got %x\nwant %x", got, want)
			}

			unwrapped, err := Unwrap(key, want)
			if err != nil {
				t.Fatalf("Unwrap failed: %v", err)
			}
			if !bytes.Equal(unwrapped, plaintext) {
				t.Fatalf("Unwrap mismatch:\n got %x\nwant %x", unwrapped, plaintext)
			}
		})
	}
}

func TestWrapRejectsBadLengths(t *testing.T) {
	kek := make([]byte, KeySize)
	for _, n := range []int{0, 8, 15, 17, 23} {
		if _, err := Wrap(kek, make([]byte, n)); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Errorf("Wrap(%d bytes): expected ErrInvalidArgument, got %v", n, err)
		}
	}
}

func TestUnwrapTampered(t *testing.T) {
	kek := bytes.Repeat([]byte{0x42}, KeySize)
	plaintext := []byte("0123456789abcdef0123456789abcdef")

	wrapped, err := Wrap(kek, plaintext)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	if len(wrapped) != len(plaintext)+8 {
		t.Fatalf("wrapped length %d, want %d", len(wrapped), len(plaintext)+8)
	}

	for i := range wrapped {
		tampered := append([]byte(nil), wrapped...)
		tampered[i] ^= 0x01
		out, err := Unwrap(kek, tampered)
		if !errors.Is(err, errs.ErrIntegrity) {
			t.Fatalf("byte %d: expected ErrIntegrity, got %v", i, err)
		}
		if out != nil {
			t.Fatalf("byte %d: plaintext released on integrity failure", i)
		}
	}

	wrongKEK := bytes.Repeat([]byte{0x43}, KeySize)
	if _, err := Unwrap(wrongKEK, wrapped); !errors.Is(err, errs.ErrIntegrity) {
		t.Errorf("wrong KEK: expected ErrIntegrity, got %v", err)
	}

	if _, err := Unwrap(kek, wrapped[:len(wrapped)-3]); !errors.Is(err, errs.ErrIntegrity) {
		t.Errorf("truncated: expected ErrIntegrity, got %v", err)
	}
	if _, err := Unwrap(kek, wrapped[:16]); !errors.Is(err, errs.ErrIntegrity) {
		t.Errorf("too short: expected ErrIntegrity, got %v", err)
	}
}

func TestDeriveKey(t *testing.T) {
	// PBKDF2-HMAC-SHA512, P="password", S="salt", c=4096, dkLen=32
	want := mustHex(t, "d197b1b33db0143e018b12f3d1d1479e6cdebdcc97c5c0f87f6902e072f457b5")
	got := DeriveKey([]byte("password"), []byte("salt"), 4096)
	if !bytes.Equal(got, want) {
		t.Fatalf("DeriveKey mismatch:\n got %x\nwant %x", got, want)
	}

	other := DeriveKey([]byte("password"), []byte("salt"), 4095)
	if bytes.Equal(got, other) {
		t.Error("iteration count should change the derived key")
	}
}

func TestNewKDF(t *testing.T) {
	a, err := NewKDF(nil)
	if err != nil {
		t.Fatalf("NewKDF failed: %v", err)
	}
	b, err := NewKDF(nil)
	if err != nil {
		t.Fatalf("NewKDF failed: %v", err)
	}

	if len(a.Salt) != SaltSize {
		t.Errorf("salt length %d, want %d", len(a.Salt), SaltSize)
	}
	if a.Iterations != DefaultIters {
		t.Errorf("iterations %d, want %d", a.Iterations, DefaultIters)
	}
	if bytes.Equal(a.Salt, b.Salt) {
		t.Error("two KDFs should not share a salt")
	}

	password := []byte("hunter2")
	if k := a.DeriveKey(password); len(k) != KeySize {
		t.Errorf("derived key length %d, want %d", len(k), KeySize)
	}
	if bytes.Equal(a.DeriveKey(password), b.DeriveKey(password)) {
		t.Error("different salts should derive different keys")
	}
}

func TestNewKDFReader(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, SaltSize)
	k, err := NewKDF(bytes.NewReader(seed))
	if err != nil {
		t.Fatalf("NewKDF failed: %v", err)
	}
	if !bytes.Equal(k.Salt, seed) {
		t.Errorf("salt %x, want %x", k.Salt, seed)
	}

	if _, err := NewKDF(bytes.NewReader(seed[:SaltSize-1])); err == nil {
		t.Error("short random source should fail")
	}
}

func TestFingerprint(t *testing.T) {
	key := []byte("0123456789abcdef")
	fp := Fingerprint(key)
	if !strings.HasPrefix(fp, "lk1") {
		t.Errorf("fingerprint %q missing prefix", fp)
	}
	if fp != Fingerprint(key) {
		t.Error("fingerprint should be stable")
	}
	if fp == Fingerprint([]byte("0123456789abcdeF")) {
		t.Error("different keys should have different fingerprints")
	}
}

func TestClearBytes(t *testing.T) {
	b := []byte("secret")
	ClearBytes(b)
	for i, c := range b {
		if c != 0 {
			t.Fatalf("byte %d not cleared", i)
		}
	}
}
