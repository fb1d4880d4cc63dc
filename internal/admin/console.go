// ABOUTME: Admin console guarding server administration behind the admin identity
// ABOUTME: Every operation checks the current session before touching the API

package admin

import (
	"context"
	"errors"
	"log/slog"

	"github.com/2389/anonchat/internal/api"
	"github.com/2389/anonchat/internal/session"
)

// Errors returned before any request is made.
var (
	ErrNotAdmin         = errors.New("admin privileges required")
	ErrInvalidStatus    = errors.New("invalid user status")
	ErrInvalidInterval  = errors.New("refresh interval must be positive")
	ErrUsernameRequired = errors.New("username required")
)

// API is the subset of the REST client the console uses.
type API interface {
	Users(ctx context.Context) (map[string]api.UserRecord, error)
	UpdateUserStatus(ctx context.Context, username, status string) (*api.UserRecord, error)
	DeleteUser(ctx context.Context, username string) error
	Settings(ctx context.Context) (*api.Settings, error)
	UpdateSettings(ctx context.Context, s api.Settings) (*api.Settings, error)
	ClearMessages(ctx context.Context) error
	Stats(ctx context.Context) (*api.Stats, error)
}

// Console runs admin operations on behalf of the signed-in admin.
type Console struct {
	api    API
	state  func() session.State
	logger *slog.Logger
}

// New creates a console. state is consulted on every call so a logout or
// account switch takes effect immediately.
func New(client API, state func() session.State, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		api:    client,
		state:  state,
		logger: logger.With("component", "admin"),
	}
}

// authorize returns the acting admin's username.
func (c *Console) authorize() (string, error) {
	s := c.state()
	if !s.IsAdmin() {
		return "", ErrNotAdmin
	}
	return s.Identity.Username, nil
}

// audit records an admin action in the log.
func (c *Console) audit(actor, action, target string, attrs ...any) {
	args := append([]any{"actor", actor, "action", action, "target", target}, attrs...)
	c.logger.Info("admin action", args...)
}
