// ABOUTME: Credential record and the CredentialStore interface for local persistence
// ABOUTME: Slot binds a store to one server so callers persist a single credential value

package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when no credential is stored for a server.
var ErrNotFound = errors.New("not found")

// ErrInvalidCredential is returned when saving a credential without a server or token.
var ErrInvalidCredential = errors.New("invalid credential")

// Credential is the persisted login: the bearer token and the identity the
// server returned with it.
type Credential struct {
	Server      string
	Token       string
	Username    string
	DisplayName string
	Email       string
	IsAdmin     bool
	SavedAt     time.Time
}

func (c *Credential) validate() error {
	if strings.TrimSpace(c.Server) == "" {
		return errors.Join(ErrInvalidCredential, errors.New("server is required"))
	}
	if c.Token == "" {
		return errors.Join(ErrInvalidCredential, errors.New("token is required"))
	}
	return nil
}

// CredentialStore persists one credential per server.
type CredentialStore interface {
	SaveCredential(ctx context.Context, cred *Credential) error
	LoadCredential(ctx context.Context, server string) (*Credential, error)
	ClearCredential(ctx context.Context, server string) error
	Close() error
}

// Slot is a CredentialStore scoped to a single server.
type Slot struct {
	store  CredentialStore
	server string
}

// NewSlot returns the slot for server. Trailing slashes are ignored so
// "http://host/" and "http://host" share a credential.
func NewSlot(s CredentialStore, server string) *Slot {
	return &Slot{store: s, server: NormalizeServer(server)}
}

// Server returns the normalised server key.
func (s *Slot) Server() string {
	return s.server
}

// Load returns the stored credential or ErrNotFound.
func (s *Slot) Load(ctx context.Context) (*Credential, error) {
	return s.store.LoadCredential(ctx, s.server)
}

// Save stores cred under this slot's server, replacing any previous value.
func (s *Slot) Save(ctx context.Context, cred Credential) error {
	cred.Server = s.server
	return s.store.SaveCredential(ctx, &cred)
}

// Clear removes the stored credential. Clearing an empty slot is not an error.
func (s *Slot) Clear(ctx context.Context) error {
	return s.store.ClearCredential(ctx, s.server)
}

// NormalizeServer trims whitespace and trailing slashes from a server URL.
func NormalizeServer(server string) string {
	return strings.TrimRight(strings.TrimSpace(server), "/")
}
