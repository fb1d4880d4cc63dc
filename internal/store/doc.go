// Package store persists the client's login credential.
//
// # Architecture
//
// CredentialStore is the persistence interface. It keeps one credential per
// server URL so a single data file can serve several servers:
//
//   - SQLiteStore: durable storage in a SQLite file (modernc.org/sqlite, no cgo)
//   - MockStore: in-memory implementation for tests, with error injection
//
// Slot binds a CredentialStore to one server. The session layer only ever
// sees a Slot, which matches its "one credential value" model: written on
// login, cleared on logout, read once at startup.
//
// # SQLite Configuration
//
// The store uses WAL mode for file databases. The parent directory is created
// with 0700 permissions because the table holds bearer tokens.
//
// Database file locations:
//
//   - Default: ~/.local/share/anonchat/anonchat.db
//   - Testing: t.TempDir() or :memory:
//
// # Error Handling
//
//   - ErrNotFound: no credential stored for the server
//   - ErrInvalidCredential: missing server or token on save
package store
