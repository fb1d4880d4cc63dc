// ABOUTME: Admin settings, message clearing, and server statistics
// ABOUTME: Refresh intervals are validated locally before being sent

package admin

import (
	"context"
	"fmt"

	"github.com/2389/anonchat/internal/api"
)

// MaxRefreshInterval caps the auto refresh interval, in seconds.
const MaxRefreshInterval = 3600

// Settings returns the server-wide settings.
func (c *Console) Settings(ctx context.Context) (*api.Settings, error) {
	if _, err := c.authorize(); err != nil {
		return nil, err
	}
	s, err := c.api.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

// SetRefreshInterval stores the clients' auto refresh interval in seconds.
func (c *Console) SetRefreshInterval(ctx context.Context, seconds int) (*api.Settings, error) {
	actor, err := c.authorize()
	if err != nil {
		return nil, err
	}
	if seconds <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidInterval, seconds)
	}
	if seconds > MaxRefreshInterval {
		return nil, fmt.Errorf("%w: %d exceeds maximum of %d", ErrInvalidInterval, seconds, MaxRefreshInterval)
	}

	s, err := c.api.UpdateSettings(ctx, api.Settings{AutoRefreshInterval: seconds})
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	c.audit(actor, "update_settings", "settings", "auto_refresh_interval", seconds)
	return s, nil
}

// ClearMessages deletes every message on the server. Connected clients
// learn about it through the messages_cleared push event.
func (c *Console) ClearMessages(ctx context.Context) error {
	actor, err := c.authorize()
	if err != nil {
		return err
	}
	if err := c.api.ClearMessages(ctx); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	c.audit(actor, "clear_messages", "messages")
	return nil
}

// Stats returns server counters.
func (c *Console) Stats(ctx context.Context) (*api.Stats, error) {
	if _, err := c.authorize(); err != nil {
		return nil, err
	}
	st, err := c.api.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return st, nil
}
