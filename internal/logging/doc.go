// Package logging builds the slog.Logger used across anonchat.
//
// Text output is a compact colorized line per record:
//
//	15:04:05 INF transport connected url=ws://localhost:8001/ws/chat
//
// JSON output uses slog's JSON handler unchanged. Colors follow
// fatih/color's NoColor detection, so piping to a file yields plain text.
package logging
