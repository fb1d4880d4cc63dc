// ABOUTME: Author labels and control-character stripping for displayed messages
// ABOUTME: Decides "You", "You (Admin)", the author's name, or "Anonymous" per viewer

package render

import (
	"strings"
	"unicode"

	"github.com/2389/anonchat/internal/session"
	"github.com/2389/anonchat/internal/timeline"
)

// Anonymous is shown in place of an author's name.
const Anonymous = "Anonymous"

// Viewer is who is looking at the timeline.
type Viewer struct {
	Username string
	IsAdmin  bool
}

// ViewerOf derives the viewer from a session state. Anyone not
// authenticated views as an anonymous non-admin.
func ViewerOf(s session.State) Viewer {
	if s.Status != session.Authenticated || s.Identity == nil {
		return Viewer{}
	}
	return Viewer{Username: s.Identity.Username, IsAdmin: s.Identity.IsAdmin}
}

// IsOwn reports whether m was written by the viewer. Local messages are
// always the viewer's own.
func IsOwn(v Viewer, m timeline.Message) bool {
	if m.IsLocal() {
		return true
	}
	return v.Username != "" && m.AuthorID == v.Username
}

// AuthorLabel returns the name shown next to m. Only admins see other
// authors' display names.
func AuthorLabel(v Viewer, m timeline.Message) string {
	own := IsOwn(v, m)
	if v.IsAdmin {
		if own {
			return "You (Admin)"
		}
		if name := Sanitize(m.AuthorDisplayName); name != "" {
			return name
		}
		return Anonymous
	}
	if own {
		return "You"
	}
	return Anonymous
}

// Sanitize reduces untrusted text to a single printable line. The text is
// kept as typed, markup included; control characters, and with them any
// terminal escape sequence, are removed. Newlines and tabs become spaces.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(cleaned)
}
