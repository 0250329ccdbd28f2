// Package store provides file-based persistence for client and hub state.
//
// It contains concrete implementations of the domain storage interfaces,
// serialising data as JSON on disk. All methods are concurrency-safe via
// internal locking. Writes go through a temp file and rename so a crash never
// leaves a half-written file behind.
//
// The package includes stores for:
//   - Identity keys, sealed under a passphrase (IdentityFileStore)
//   - Contacts, keyed by local alias (ContactFileStore)
package store
