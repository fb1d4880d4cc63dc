// ABOUTME: Decoding of push frames received over the websocket
// ABOUTME: Maps new_message and messages_cleared onto timeline events; everything else is rejected

package transport

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2389/anonchat/internal/api"
	"github.com/2389/anonchat/internal/timeline"
)

// Frame errors
var (
	ErrMalformedEvent = errors.New("malformed push event")
	ErrUnknownEvent   = errors.New("unknown push event")
)

// Push frame types
const (
	FrameNewMessage      = "new_message"
	FrameMessagesCleared = "messages_cleared"
	FramePong            = "pong"
)

type frame struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message,omitempty"`
}

// ParseEvent decodes one push frame. Frames that are not JSON objects, or a
// new_message without a usable message, yield ErrMalformedEvent. Well-formed
// frames of any other type (including pong) yield ErrUnknownEvent.
func ParseEvent(data []byte) (timeline.Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return timeline.Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch f.Type {
	case FrameNewMessage:
		if len(f.Message) == 0 || string(f.Message) == "null" {
			return timeline.Event{}, fmt.Errorf("%w: new_message without message", ErrMalformedEvent)
		}
		var wire api.Message
		if err := json.Unmarshal(f.Message, &wire); err != nil {
			return timeline.Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if wire.MessageID == "" {
			return timeline.Event{}, fmt.Errorf("%w: message_id missing", ErrMalformedEvent)
		}
		msg, err := wire.ToTimeline()
		if err != nil {
			return timeline.Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		return timeline.Event{Kind: timeline.EventNewMessage, Message: msg}, nil

	case FrameMessagesCleared:
		return timeline.Event{Kind: timeline.EventMessagesCleared}, nil

	case "":
		return timeline.Event{}, fmt.Errorf("%w: missing type", ErrMalformedEvent)

	default:
		return timeline.Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Type)
	}
}
