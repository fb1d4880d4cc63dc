// ABOUTME: Wire types for the chat server's JSON API and push frames
// ABOUTME: Converts server messages into timeline messages, including legacy clock-only timestamps

package api

import (
	"fmt"
	"time"

	"github.com/2389/anonchat/internal/timeline"
)

// User is the identity returned by every login endpoint.
type User struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

// AuthResponse is the body of a successful login.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// AuthConfig carries provider configuration for the login screen.
type AuthConfig struct {
	GoogleClientID string `json:"googleClientId"`
}

// Message is a chat message as the server stores it.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name,omitempty"`
}

// ToTimeline converts the wire message for the sync engine.
func (m Message) ToTimeline() (timeline.Message, error) {
	created, err := ParseTimestamp(m.Timestamp)
	if err != nil {
		return timeline.Message{}, fmt.Errorf("message %s: %w", m.MessageID, err)
	}
	return timeline.Message{
		ID:                m.MessageID,
		AuthorID:          m.UserID,
		AuthorDisplayName: m.UserName,
		Content:           m.Content,
		CreatedAt:         created,
		Origin:            timeline.Confirmed,
	}, nil
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserRecord is a user as listed by the admin API.
type UserRecord struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Status       string `json:"status"`
	AuthProvider string `json:"auth_provider,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	LastLogin    string `json:"last_login,omitempty"`
}

// Settings are the server-wide chat settings.
type Settings struct {
	AutoRefreshInterval int `json:"auto_refresh_interval"`
}

// Stats summarises server activity.
type Stats struct {
	TotalUsers        int `json:"total_users"`
	TotalMessages     int `json:"total_messages"`
	ActiveConnections int `json:"active_connections"`
}

var timeNow = time.Now

// clockSkew is how far ahead of the local clock a clock-only timestamp may
// be before it is read as yesterday's.
const clockSkew = 5 * time.Minute

// timestampLayouts lists accepted formats, most specific first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999", // isoformat without offset, local time
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a server timestamp. Older servers send only the
// wall clock ("15:04:05"); those are placed on today's date in local time,
// or on yesterday's when that would put them in the future.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}

	clock, err := time.ParseInLocation("15:04:05", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
	}
	now := timeNow()
	y, mo, d := now.Date()
	t := time.Date(y, mo, d, clock.Hour(), clock.Minute(), clock.Second(), 0, now.Location())
	if t.After(now.Add(clockSkew)) {
		t = time.Date(y, mo, d-1, clock.Hour(), clock.Minute(), clock.Second(), 0, now.Location())
	}
	return t, nil
}
