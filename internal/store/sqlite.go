// ABOUTME: SQLite implementation of CredentialStore using modernc.org/sqlite
// ABOUTME: Keeps one credential row per server with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements CredentialStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Ensure SQLiteStore implements CredentialStore.
var _ CredentialStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		// Credentials are secrets; keep the directory private
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps :memory: databases alive across calls
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS credentials (
			server       TEXT PRIMARY KEY,
			token        TEXT NOT NULL,
			username     TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			email        TEXT NOT NULL DEFAULT '',
			is_admin     INTEGER NOT NULL DEFAULT 0,
			saved_at     TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveCredential stores cred, replacing any credential for the same server.
// A zero SavedAt is set to the current time.
func (s *SQLiteStore) SaveCredential(ctx context.Context, cred *Credential) error {
	if err := cred.validate(); err != nil {
		return err
	}
	if cred.SavedAt.IsZero() {
		cred.SavedAt = s.now()
	}

	query := `
		INSERT INTO credentials (server, token, username, display_name, email, is_admin, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(server) DO UPDATE SET
			token = excluded.token,
			username = excluded.username,
			display_name = excluded.display_name,
			email = excluded.email,
			is_admin = excluded.is_admin,
			saved_at = excluded.saved_at
	`
	_, err := s.db.ExecContext(ctx, query,
		cred.Server,
		cred.Token,
		cred.Username,
		cred.DisplayName,
		cred.Email,
		boolToInt(cred.IsAdmin),
		cred.SavedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}

	s.logger.Debug("saved credential", "server", cred.Server, "username", cred.Username)
	return nil
}

// LoadCredential returns the credential for server or ErrNotFound.
func (s *SQLiteStore) LoadCredential(ctx context.Context, server string) (*Credential, error) {
	query := `
		SELECT server, token, username, display_name, email, is_admin, saved_at
		FROM credentials
		WHERE server = ?
	`

	var cred Credential
	var isAdmin int
	var savedAtStr string

	err := s.db.QueryRowContext(ctx, query, server).Scan(
		&cred.Server,
		&cred.Token,
		&cred.Username,
		&cred.DisplayName,
		&cred.Email,
		&isAdmin,
		&savedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading credential: %w", err)
	}

	cred.IsAdmin = isAdmin != 0
	cred.SavedAt, err = time.Parse(time.RFC3339Nano, savedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing saved_at: %w", err)
	}
	return &cred, nil
}

// ClearCredential deletes the credential for server. Deleting a missing
// credential is not an error.
func (s *SQLiteStore) ClearCredential(ctx context.Context, server string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE server = ?`, server); err != nil {
		return fmt.Errorf("clearing credential: %w", err)
	}
	s.logger.Debug("cleared credential", "server", server)
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
