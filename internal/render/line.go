// ABOUTME: Terminal formatting for timeline entries and channel status
// ABOUTME: Marks pending entries with an ellipsis and failed entries with their local id

package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/anonchat/internal/timeline"
	"github.com/2389/anonchat/internal/transport"
)

const (
	pendingMark = "…"
	failedMark  = "!"
)

var (
	dim    = color.New(color.FgHiBlack)
	ownFg  = color.New(color.FgGreen, color.Bold)
	peerFg = color.New(color.FgCyan)
	failFg = color.New(color.FgRed)
	warnFg = color.New(color.FgYellow)
)

// Line formats one entry for the terminal:
//
//	15:04:05 You: hello …
//	! 6f1c… 15:04:05 You: hello (send failed: ...)
func Line(v Viewer, m timeline.Message) string {
	var b strings.Builder

	if m.Origin == timeline.Failed {
		b.WriteString(failFg.Sprintf("%s %s ", failedMark, m.LocalID))
	}

	b.WriteString(dim.Sprint(m.CreatedAt.Local().Format("15:04:05")))
	b.WriteString(" ")

	label := AuthorLabel(v, m)
	if IsOwn(v, m) {
		b.WriteString(ownFg.Sprint(label))
	} else {
		b.WriteString(peerFg.Sprint(label))
	}
	b.WriteString(": ")
	b.WriteString(Sanitize(m.Content))

	switch m.Origin {
	case timeline.Pending:
		b.WriteString(" ")
		b.WriteString(dim.Sprint(pendingMark))
	case timeline.Failed:
		if m.Err != nil {
			b.WriteString(failFg.Sprintf(" (send failed: %s)", Sanitize(m.Err.Error())))
		}
	}
	return b.String()
}

// Lines formats a whole view, oldest first.
func Lines(v Viewer, msgs []timeline.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Line(v, m))
	}
	return out
}

// Status formats the channel state. Past threshold without push or a
// successful pull it reads "connection lost".
func Status(cs transport.ChannelState, now time.Time, threshold time.Duration) string {
	if cs.Stale(now, threshold) {
		since := "never synced"
		if !cs.LastSyncedAt.IsZero() {
			since = "last sync " + now.Sub(cs.LastSyncedAt).Truncate(time.Second).String() + " ago"
		}
		return failFg.Sprintf("connection lost (%s, %s)", cs.Mode, since)
	}
	switch cs.Mode {
	case transport.Push:
		return ownFg.Sprint("live")
	case transport.Reconnecting:
		return warnFg.Sprintf("reconnecting (attempt %d)", cs.Attempts)
	default:
		return warnFg.Sprint(cs.Mode.String())
	}
}

// Summary is the one-line footer under the chat view.
func Summary(msgs []timeline.Message) string {
	var pending, failed int
	for _, m := range msgs {
		switch m.Origin {
		case timeline.Pending:
			pending++
		case timeline.Failed:
			failed++
		}
	}
	s := fmt.Sprintf("%d messages", len(msgs))
	if pending > 0 {
		s += fmt.Sprintf(", %d sending", pending)
	}
	if failed > 0 {
		s += fmt.Sprintf(", %d failed", failed)
	}
	return s
}
