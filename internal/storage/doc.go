// Package storage provides the BBolt database interface for ledgerkey.
//
// Database structure uses three buckets:
//   - config: store version, timestamps, store ID and the password check envelope
//   - index: key names, sizes, fingerprints and timestamps (for ls/status)
//   - envelopes: PBES2-HS512+A256KW envelopes in their JSON wire form
//
// Envelopes are safe to store unencrypted: without the password they reveal
// only the salt and iteration count. The index lets ls and status work
// without a password.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
