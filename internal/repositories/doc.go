// Package repositories implements SQLite persistence for per-user state.
//
// Key Implementations:
//   - [CredentialRepository] : one OAuth credential per user, replaced wholesale on login and refresh
//   - [OverrideRepository] : manual category assignments keyed by (user, playlist)
//
// Every failure is returned as a [*StorageError] naming the operation, entity and key. Missing rows wrap
// [ErrNotFound] so callers can use [errors.Is].
package repositories
