// ABOUTME: Admin user management: list, ban, unban, and delete accounts
// ABOUTME: Users are returned sorted by username for stable display

package admin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/2389/anonchat/internal/api"
)

// User statuses understood by the server.
const (
	StatusActive = "active"
	StatusBanned = "banned"
)

// User is one account as shown in the admin console.
type User struct {
	Username string
	api.UserRecord
}

// Banned reports whether the account is banned.
func (u User) Banned() bool {
	return u.Status == StatusBanned
}

// Users lists every account, sorted by username.
func (c *Console) Users(ctx context.Context) ([]User, error) {
	if _, err := c.authorize(); err != nil {
		return nil, err
	}
	records, err := c.api.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]User, 0, len(records))
	for name, rec := range records {
		users = append(users, User{Username: name, UserRecord: rec})
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}

// Ban blocks an account from logging in and sending.
func (c *Console) Ban(ctx context.Context, username string) error {
	return c.SetStatus(ctx, username, StatusBanned)
}

// Unban restores a banned account.
func (c *Console) Unban(ctx context.Context, username string) error {
	return c.SetStatus(ctx, username, StatusActive)
}

// SetStatus sets an account's status to active or banned.
func (c *Console) SetStatus(ctx context.Context, username, status string) error {
	actor, err := c.authorize()
	if err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrUsernameRequired
	}
	if status != StatusActive && status != StatusBanned {
		return fmt.Errorf("%w: %q (use %q or %q)", ErrInvalidStatus, status, StatusActive, StatusBanned)
	}

	if _, err := c.api.UpdateUserStatus(ctx, username, status); err != nil {
		return fmt.Errorf("set status of %s: %w", username, err)
	}
	c.audit(actor, "set_status", username, "status", status)
	return nil
}

// Delete removes an account.
func (c *Console) Delete(ctx context.Context, username string) error {
	actor, err := c.authorize()
	if err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrUsernameRequired
	}

	if err := c.api.DeleteUser(ctx, username); err != nil {
		return fmt.Errorf("delete %s: %w", username, err)
	}
	c.audit(actor, "delete_user", username)
	return nil
}
