// ABOUTME: Tests for frame parsing and the gorilla websocket dialer
// ABOUTME: Runs a real websocket endpoint on httptest that mimics the chat server

package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/anonchat/internal/eventloop"
	"github.com/2389/anonchat/internal/timeline"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		kind    timeline.EventKind
		wantErr error
	}{
		{
			name: "new message",
			data: `{"type":"new_message","message":{"role":"user","content":"hi","timestamp":"2026-03-14T09:00:00Z","message_id":"m1","user_id":"bob","user_name":"Bob"}}`,
			kind: timeline.EventNewMessage,
		},
		{
			name: "clock-only timestamp",
			data: `{"type":"new_message","message":{"content":"hi","timestamp":"09:00:00","message_id":"m1","user_id":"bob"}}`,
			kind: timeline.EventNewMessage,
		},
		{name: "cleared", data: `{"type":"messages_cleared"}`, kind: timeline.EventMessagesCleared},
		{name: "pong", data: `{"type":"pong"}`, wantErr: ErrUnknownEvent},
		{name: "other type", data: `{"type":"typing"}`, wantErr: ErrUnknownEvent},
		{name: "not json", data: `hello`, wantErr: ErrMalformedEvent},
		{name: "json array", data: `[1,2]`, wantErr: ErrMalformedEvent},
		{name: "missing type", data: `{}`, wantErr: ErrMalformedEvent},
		{name: "new message without body", data: `{"type":"new_message"}`, wantErr: ErrMalformedEvent},
		{name: "new message null body", data: `{"type":"new_message","message":null}`, wantErr: ErrMalformedEvent},
		{name: "new message without id", data: `{"type":"new_message","message":{"content":"hi","timestamp":"09:00:00"}}`, wantErr: ErrMalformedEvent},
		{name: "bad timestamp", data: `{"type":"new_message","message":{"content":"hi","timestamp":"soon","message_id":"m1"}}`, wantErr: ErrMalformedEvent},
		{name: "message wrong shape", data: `{"type":"new_message","message":"hi"}`, wantErr: ErrMalformedEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.data))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ev.Kind)
		})
	}
}

func TestParseEvent_MessageFields(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"new_message","message":{"content":"hi","timestamp":"2026-03-14T09:00:00Z","message_id":"m1","user_id":"bob","user_name":"Bob"}}`))
	require.NoError(t, err)

	assert.Equal(t, "m1", ev.Message.ID)
	assert.Equal(t, "bob", ev.Message.AuthorID)
	assert.Equal(t, "Bob", ev.Message.AuthorDisplayName)
	assert.Equal(t, "hi", ev.Message.Content)
	assert.Equal(t, timeline.Confirmed, ev.Message.Origin)
}

// chatServer mimics the server's /ws/chat endpoint: it answers every client
// text frame with a pong and broadcasts whatever the test sends on push.
type chatServer struct {
	srv     *httptest.Server
	push    chan string
	authHdr chan string
	kill    chan struct{}
}

func newChatServer(t *testing.T) *chatServer {
	t.Helper()
	cs := &chatServer{
		push:    make(chan string, 8),
		authHdr: make(chan string, 8),
		kill:    make(chan struct{}),
	}
	upgrader := websocket.Upgrader{}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/chat", func(w http.ResponseWriter, r *http.Request) {
		select {
		case cs.authHdr <- r.Header.Get("Authorization"):
		default:
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// gorilla allows one concurrent writer
		var writeMu sync.Mutex
		write := func(data string) error {
			writeMu.Lock()
			defer writeMu.Unlock()
			return conn.WriteMessage(websocket.TextMessage, []byte(data))
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
				_ = write(`{"type":"pong"}`)
			}
		}()

		for {
			select {
			case msg := <-cs.push:
				if err := write(msg); err != nil {
					return
				}
			case <-done:
				return
			case <-cs.kill:
				return
			}
		}
	})
	cs.srv = httptest.NewServer(mux)
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *chatServer) url() string {
	return "ws" + strings.TrimPrefix(cs.srv.URL, "http") + "/ws/chat"
}

func TestWebsocketDialer_ReadsAndWrites(t *testing.T) {
	cs := newChatServer(t)
	d := WebsocketDialer{HandshakeTimeout: 2 * time.Second}

	conn, err := d.Dial(context.Background(), cs.url(), "tok-1")
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "Bearer tok-1", <-cs.authHdr)

	require.NoError(t, conn.WriteMessage([]byte("ping")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(data))

	cs.push <- `{"type":"messages_cleared"}`
	data, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"messages_cleared"}`, string(data))
}

func TestWebsocketDialer_Failure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	d := WebsocketDialer{HandshakeTimeout: time.Second}
	_, err := d.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/chat", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestChannel_OverRealWebsocket(t *testing.T) {
	cs := newChatServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := eventloop.New(nil)
	go loop.Run(ctx)

	sink := &fakeSink{}
	ch := New(Config{
		URL:               cs.url(),
		PullInterval:      time.Hour,
		SafetyInterval:    time.Hour,
		KeepaliveInterval: 20 * time.Millisecond,
	}, loop, WebsocketDialer{HandshakeTimeout: 2 * time.Second}, &fakePuller{}, sink, nil)

	mode := func() Mode {
		var m Mode
		require.NoError(t, loop.Do(context.Background(), func() { m = ch.State().Mode }))
		return m
	}

	require.NoError(t, loop.Do(context.Background(), func() { ch.Start(authed) }))
	require.Eventually(t, func() bool { return mode() == Push }, 2*time.Second, 5*time.Millisecond)

	// Keepalive pongs flow without producing events
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, sink.eventCount())
	assert.Equal(t, Push, mode())

	cs.push <- `{"type":"new_message","message":{"content":"hello","timestamp":"2026-03-14T09:00:00Z","message_id":"m1","user_id":"bob"}}`
	require.Eventually(t, func() bool { return sink.eventCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Server goes away: the channel falls back to reconnecting
	close(cs.kill)
	require.Eventually(t, func() bool {
		m := mode()
		return m == Reconnecting || m == PullOnly
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, loop.Do(context.Background(), ch.Close))
}
