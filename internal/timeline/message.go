// ABOUTME: Message, origin, and event types for the chat timeline
// ABOUTME: Defines the (createdAt, id) total order shared by every merge path

package timeline

import (
	"strings"
	"time"
)

// Origin tags where a timeline entry stands relative to the server.
type Origin int

const (
	// Confirmed messages were acknowledged by the server and carry its id.
	Confirmed Origin = iota
	// Pending messages were created locally and are awaiting the send result.
	Pending
	// Failed messages were rejected by the server; they stay until retried or discarded.
	Failed
)

func (o Origin) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case Pending:
		return "pending"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Message is one entry in the timeline.
type Message struct {
	ID                string // server id, empty until confirmed
	LocalID           string // set for messages sent from this client
	AuthorID          string
	AuthorDisplayName string
	Content           string
	CreatedAt         time.Time
	Origin            Origin
	Err               error // send error for Failed entries
}

// Key is the identifier used for ordering ties: the server id once known,
// the local id before that.
func (m Message) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return m.LocalID
}

// IsLocal reports whether the message was sent from this client.
func (m Message) IsLocal() bool {
	return m.LocalID != ""
}

// Before reports whether m sorts before other in (CreatedAt, Key) order.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.Key() < other.Key()
}

// valid reports whether a server-reported message can enter the timeline.
func (m Message) valid() bool {
	return m.ID != "" && strings.TrimSpace(m.Content) != ""
}

// EventKind identifies a pushed event.
type EventKind int

const (
	// EventNewMessage carries one newly created message.
	EventNewMessage EventKind = iota + 1
	// EventMessagesCleared means the server dropped every message.
	EventMessagesCleared
)

func (k EventKind) String() string {
	switch k {
	case EventNewMessage:
		return "new_message"
	case EventMessagesCleared:
		return "messages_cleared"
	default:
		return "unknown"
	}
}

// Event is a pushed change to the message stream.
type Event struct {
	Kind    EventKind
	Message Message // set for EventNewMessage
}

// Snapshot is the result of one pull.
// RequestedAt is when the pull was issued; confirmed messages that reached the
// timeline after it are kept even if the snapshot does not list them.
// A zero RequestedAt replaces the confirmed set strictly.
type Snapshot struct {
	Messages    []Message
	RequestedAt time.Time
}
