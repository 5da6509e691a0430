// Package core provides the ledgerkey store operations.
//
// A store is a single BBolt file holding named PBES2-HS512+A256KW envelopes,
// all wrapped under one store password. Core operations include:
//   - Init: Create a new store and its password check envelope
//   - AddKey/GenerateKey: Wrap a key under the store password and save it
//   - UnwrapKey: Recover a stored key
//   - ImportEnvelope/ExportEnvelope: Move envelopes in and out as JSON
//   - RemoveKeys: Delete keys from the store
//   - ChangePassword: Rewrap every key under a new password
package core
