// ABOUTME: Mock CredentialStore implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject failures

package store

import (
	"context"
	"sync"
	"time"
)

// MockStore is an in-memory CredentialStore implementation for testing.
type MockStore struct {
	mu          sync.RWMutex
	credentials map[string]Credential // keyed by server

	// Err, when set, is returned by every operation.
	Err error
}

var _ CredentialStore = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		credentials: make(map[string]Credential),
	}
}

// SaveCredential stores a copy of cred.
func (m *MockStore) SaveCredential(ctx context.Context, cred *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if err := cred.validate(); err != nil {
		return err
	}
	if cred.SavedAt.IsZero() {
		cred.SavedAt = time.Now()
	}
	m.credentials[cred.Server] = *cred
	return nil
}

// LoadCredential returns a copy of the stored credential or ErrNotFound.
func (m *MockStore) LoadCredential(ctx context.Context, server string) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	cred, ok := m.credentials[server]
	if !ok {
		return nil, ErrNotFound
	}
	return &cred, nil
}

// ClearCredential removes the credential for server.
func (m *MockStore) ClearCredential(ctx context.Context, server string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	delete(m.credentials, server)
	return nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// Len returns the number of stored credentials.
func (m *MockStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.credentials)
}
