// Package git checks how git treats ledgerkey files.
//
// Checks performed:
//   - Whether the .ledgerkey store is tracked by git (fine, it holds only envelopes)
//   - Whether a plaintext key output would be picked up by git (it should not)
package git
