// Package admin provides the admin console for a chat server.
//
// # Overview
//
// The console wraps the server's admin REST endpoints. Each call first checks
// that the current session belongs to an authenticated admin and fails with
// ErrNotAdmin otherwise, without contacting the server.
//
// # Operations
//
// User management:
//
//   - Users - list accounts sorted by username
//   - Ban / Unban - set an account's status to banned or active
//   - Delete - remove an account
//
// Settings and maintenance:
//
//   - Settings - read server-wide settings
//   - SetRefreshInterval - set the clients' auto refresh interval (1..3600 s)
//   - ClearMessages - delete every message; clients get messages_cleared
//   - Stats - user, message, and connection counts
//
// # Audit
//
// Successful mutations are logged at info level with the acting admin,
// the action, and the target.
//
// # Usage
//
//	console := admin.New(apiClient, store.State, logger)
//	users, err := console.Users(ctx)
package admin
