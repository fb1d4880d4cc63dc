// Package gate decides whether a navigation may proceed.
//
// Decide and Resolve are pure: the same session state and route always give
// the same Result. While the session is Verifying the answer is Wait, never
// Allow and never RedirectToLogin, so a restored login cannot race to the
// login screen.
package gate
