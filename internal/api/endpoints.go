// ABOUTME: Typed wrappers for the auth, messages, admin, and stats endpoints
// ABOUTME: Each method maps one REST route of the chat server

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/2389/anonchat/internal/timeline"
)

// Signup creates an account and logs it in.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AdminLogin authenticates the admin console identity.
func (c *Client) AdminLogin(ctx context.Context, username, password string) (*AuthResponse, error) {
	body := map[string]string{"username": username, "password": password}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/admin-login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GoogleLogin exchanges a Google ID token credential for a session.
func (c *Client) GoogleLogin(ctx context.Context, credential string) (*AuthResponse, error) {
	body := map[string]string{"credential": credential}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/google", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AuthConfig returns login provider configuration.
func (c *Client) AuthConfig(ctx context.Context) (*AuthConfig, error) {
	var resp AuthConfig
	if err := c.do(ctx, http.MethodGet, "/api/auth/config", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Messages returns the server's recent messages, oldest first.
// Messages with unparseable timestamps are skipped.
func (c *Client) Messages(ctx context.Context) ([]timeline.Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/messages", nil, &resp); err != nil {
		return nil, err
	}

	out := make([]timeline.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		tm, err := m.ToTimeline()
		if err != nil {
			c.logger.Warn("skipping message with bad timestamp", "message_id", m.MessageID, "error", err)
			continue
		}
		out = append(out, tm)
	}
	return out, nil
}

// SendMessage posts content and returns the stored message.
func (c *Client) SendMessage(ctx context.Context, content string) (timeline.Message, error) {
	var resp struct {
		Success bool    `json:"success"`
		Message Message `json:"message"`
	}
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, "/api/messages", body, &resp); err != nil {
		return timeline.Message{}, err
	}
	return resp.Message.ToTimeline()
}

// Send implements timeline.Sender.
func (c *Client) Send(ctx context.Context, content string) (timeline.Message, error) {
	return c.SendMessage(ctx, content)
}

// Stats returns server counters. It requires a valid token, which makes it a
// cheap credential check.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var resp Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Users lists all accounts keyed by username.
func (c *Client) Users(ctx context.Context) (map[string]UserRecord, error) {
	var resp struct {
		Users map[string]UserRecord `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Users == nil {
		resp.Users = map[string]UserRecord{}
	}
	return resp.Users, nil
}

// UpdateUserStatus sets an account's status ("active" or "banned").
func (c *Client) UpdateUserStatus(ctx context.Context, username, status string) (*UserRecord, error) {
	var resp struct {
		Success bool       `json:"success"`
		User    UserRecord `json:"user"`
	}
	path := fmt.Sprintf("/api/admin/users/%s", url.PathEscape(username))
	if err := c.do(ctx, http.MethodPut, path, map[string]string{"status": status}, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, username string) error {
	path := fmt.Sprintf("/api/admin/users/%s", url.PathEscape(username))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Settings returns the server-wide settings.
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	var resp Settings
	if err := c.do(ctx, http.MethodGet, "/api/admin/settings", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateSettings stores new settings.
func (c *Client) UpdateSettings(ctx context.Context, s Settings) (*Settings, error) {
	var resp struct {
		Success  bool     `json:"success"`
		Settings Settings `json:"settings"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/admin/settings", s, &resp); err != nil {
		return nil, err
	}
	return &resp.Settings, nil
}

// ClearMessages deletes every message; the server broadcasts messages_cleared.
func (c *Client) ClearMessages(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/admin/messages", nil, nil)
}
