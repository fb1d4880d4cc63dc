// Package api is the HTTP client for the chat server's REST API.
//
// # Endpoints
//
//   - Auth: Signup, Login, AdminLogin, GoogleLogin, AuthConfig
//   - Messages: Messages (pull snapshot), SendMessage
//   - Admin: Users, UpdateUserStatus, DeleteUser, Settings, UpdateSettings,
//     ClearMessages
//   - Stats
//
// # Errors
//
// Non-2xx responses become *Error carrying the status code and the server's
// detail message. Use errors.Is with ErrUnauthorized, ErrForbidden,
// ErrNotFound, ErrConflict, or ErrUnavailable to branch on the status class.
package api
