// Package crypto provides the primitives behind ledgerkey's password-based
// key wrapping.
//
// Key derivation uses PBKDF2-HMAC-SHA512 with:
//   - 32-byte random salt (stored in the envelope header)
//   - 4096 iterations for new envelopes, read back from the envelope on unwrap
//   - 32-byte output used as an AES-256 key-encryption key
//
// Key wrapping uses AES Key Wrap (RFC 3394) with the default initial value
// A6A6A6A6A6A6A6A6. Unwrap fails closed: on an integrity mismatch no
// plaintext is returned.
//
// Memory safety:
//   - Use ClearBytes() to zero passwords and derived keys after use
package crypto
