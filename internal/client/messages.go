// ABOUTME: Message operations routed onto the event loop
// ABOUTME: Send, retry, discard, read the view, and force a reconciliation pull

package client

import (
	"context"
	"fmt"

	"github.com/2389/anonchat/internal/timeline"
)

// withEngine runs fn on the loop against the current engine.
func (c *Client) withEngine(ctx context.Context, fn func(e *timeline.Engine) error) error {
	var opErr error
	err := c.loop.Do(ctx, func() {
		if c.engine == nil {
			opErr = ErrNotAuthenticated
			return
		}
		opErr = fn(c.engine)
	})
	if err != nil {
		return err
	}
	return opErr
}

// Send shows content immediately as pending and delivers it in the
// background. It returns the local id of the new entry.
func (c *Client) Send(ctx context.Context, content string) (string, error) {
	var localID string
	err := c.withEngine(ctx, func(e *timeline.Engine) error {
		id, err := e.SendLocal(content)
		localID = id
		return err
	})
	return localID, err
}

// Retry re-sends a failed message.
func (c *Client) Retry(ctx context.Context, localID string) error {
	return c.withEngine(ctx, func(e *timeline.Engine) error {
		return e.Retry(localID)
	})
}

// Discard drops a failed message from the view.
func (c *Client) Discard(ctx context.Context, localID string) error {
	return c.withEngine(ctx, func(e *timeline.Engine) error {
		return e.Discard(localID)
	})
}

// Messages returns the current view, oldest first. It is empty without a session.
func (c *Client) Messages(ctx context.Context) ([]timeline.Message, error) {
	var msgs []timeline.Message
	err := c.loop.Do(ctx, func() {
		if c.engine != nil {
			msgs = c.engine.Messages()
		}
	})
	return msgs, err
}

// Sync pulls the server snapshot now and merges it into the view.
func (c *Client) Sync(ctx context.Context) error {
	token := c.SessionState().Token
	if token == "" {
		return ErrNotAuthenticated
	}

	requestedAt := c.now()
	msgs, err := c.api.WithToken(token).Messages(ctx)
	if err != nil {
		c.expireIfRejected(err, token)
		return fmt.Errorf("pull messages: %w", err)
	}

	return c.withEngine(ctx, func(e *timeline.Engine) error {
		e.ApplySnapshot(timeline.Snapshot{Messages: msgs, RequestedAt: requestedAt})
		return nil
	})
}
