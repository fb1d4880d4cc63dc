// ABOUTME: Authentication error type surfaced on the login surface
// ABOUTME: Distinguishes a refused credential from a server that could not be reached

package session

import (
	"errors"

	"github.com/2389/anonchat/internal/auth"
)

// ErrRejected marks a credential the server refused.
var ErrRejected = errors.New("credential rejected")

// AuthError is a failed login or verification. Message is safe to show the user.
type AuthError struct {
	Op      string // "login", "signup", "admin-login", "google-login", "verify"
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Message
	}
	return e.Op + ": " + e.Message + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsRejection reports whether err means the credential itself is unusable,
// as opposed to a failure to reach the server.
func IsRejection(err error) bool {
	return errors.Is(err, ErrRejected) || auth.IsRejection(err)
}
