// ABOUTME: Login flows and credential verification for the client
// ABOUTME: Server failures become session.AuthError carrying the server's detail message

package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/anonchat/internal/api"
	"github.com/2389/anonchat/internal/session"
)

const (
	defaultAuthMessage   = "Authentication failed. Please try again."
	defaultGoogleMessage = "Google authentication failed."
)

// verify asks the server whether token is still honoured. It runs off the loop.
func (c *Client) verify(ctx context.Context, token string) error {
	_, err := c.api.WithToken(token).Stats(ctx)
	if errors.Is(err, api.ErrUnauthorized) {
		return fmt.Errorf("%w: %w", session.ErrRejected, err)
	}
	return err
}

// Signup creates an account and signs in as it.
func (c *Client) Signup(ctx context.Context, req api.SignupRequest) (session.Identity, error) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return session.Identity{}, &session.AuthError{Op: "signup", Message: "Username, email and password are required."}
	}
	return c.authenticate(ctx, "signup", defaultAuthMessage, func(ctx context.Context) (*api.AuthResponse, error) {
		return c.anon.Signup(ctx, req)
	})
}

// Login signs in with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (session.Identity, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return session.Identity{}, &session.AuthError{Op: "login", Message: "Email and password are required."}
	}
	return c.authenticate(ctx, "login", defaultAuthMessage, func(ctx context.Context) (*api.AuthResponse, error) {
		return c.anon.Login(ctx, email, password)
	})
}

// AdminLogin signs in with the admin account.
func (c *Client) AdminLogin(ctx context.Context, username, password string) (session.Identity, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return session.Identity{}, &session.AuthError{Op: "admin-login", Message: "Username and password are required."}
	}
	return c.authenticate(ctx, "admin-login", defaultAuthMessage, func(ctx context.Context) (*api.AuthResponse, error) {
		return c.anon.AdminLogin(ctx, username, password)
	})
}

// GoogleLogin signs in with a Google ID token credential.
func (c *Client) GoogleLogin(ctx context.Context, credential string) (session.Identity, error) {
	if strings.TrimSpace(credential) == "" {
		return session.Identity{}, &session.AuthError{Op: "google-login", Message: defaultGoogleMessage}
	}
	return c.authenticate(ctx, "google-login", defaultGoogleMessage, func(ctx context.Context) (*api.AuthResponse, error) {
		return c.anon.GoogleLogin(ctx, credential)
	})
}

// Logout ends the session and forgets the persisted credential.
func (c *Client) Logout(ctx context.Context) error {
	return c.loop.Do(ctx, c.session.Logout)
}

func (c *Client) authenticate(ctx context.Context, op, fallback string, call func(context.Context) (*api.AuthResponse, error)) (session.Identity, error) {
	resp, err := call(ctx)
	if err != nil {
		msg := api.Detail(err)
		if msg == "" {
			msg = fallback
		}
		c.logger.Info("authentication failed", "op", op, "error", err)
		return session.Identity{}, &session.AuthError{Op: op, Message: msg, Err: err}
	}
	if resp.AccessToken == "" {
		return session.Identity{}, &session.AuthError{Op: op, Message: "Server returned no access token."}
	}

	id := session.Identity{
		Username:    resp.User.Username,
		DisplayName: resp.User.Name,
		Email:       resp.User.Email,
		IsAdmin:     resp.User.IsAdmin,
	}

	var loginErr error
	if err := c.loop.Do(ctx, func() { loginErr = c.session.Login(resp.AccessToken, id) }); err != nil {
		return session.Identity{}, err
	}
	if loginErr != nil {
		return session.Identity{}, &session.AuthError{Op: op, Message: "Server returned an incomplete identity.", Err: loginErr}
	}
	return id, nil
}

// AuthConfig returns the login providers the server offers.
func (c *Client) AuthConfig(ctx context.Context) (*api.AuthConfig, error) {
	return c.anon.AuthConfig(ctx)
}
