// ABOUTME: Message sync engine merging pulled snapshots, pushed events, and optimistic sends
// ABOUTME: Keeps one ordered, deduplicated view; all mutations run on the owning event loop

package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/anonchat/internal/dedupe"
	"github.com/2389/anonchat/internal/eventloop"
	"github.com/2389/anonchat/internal/notify"
)

// Timeline errors
var (
	ErrEmptyContent = errors.New("message content is empty")
	ErrNotFound     = errors.New("message not found")
	ErrNotFailed    = errors.New("message is not in failed state")
	ErrClosed       = errors.New("timeline closed")
	ErrInvalidAck   = errors.New("server acknowledged send with an invalid message")
)

const (
	defaultTombstoneTTL  = 2 * time.Minute
	defaultTombstoneSize = 1000
	localIDPrefix        = "local-"
)

// Sender delivers a message to the server and returns the stored message.
type Sender interface {
	Send(ctx context.Context, content string) (Message, error)
}

// Config holds engine settings. Zero values select defaults.
type Config struct {
	// AuthorID is stamped on locally created messages.
	AuthorID          string
	AuthorDisplayName string

	TombstoneTTL  time.Duration
	TombstoneSize int

	// OnSendFailure runs on the loop after a send is rejected.
	OnSendFailure func(localID string, err error)

	// Now overrides the clock.
	Now func() time.Time
}

type item struct {
	msg       Message
	arrivedAt time.Time
}

// Engine owns the canonical ordered message list. It is not safe for
// concurrent use: every method must run on the dispatcher's goroutine.
// Send results are posted back through the dispatcher.
type Engine struct {
	items      []item
	cfg        Config
	dispatcher eventloop.Dispatcher
	sender     Sender
	tombstones *dedupe.Cache
	changes    *notify.Subject[[]Message]
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// New creates an engine. Pass nil logger for default.
func New(cfg Config, dispatcher eventloop.Dispatcher, sender Sender, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TombstoneTTL <= 0 {
		cfg.TombstoneTTL = defaultTombstoneTTL
	}
	if cfg.TombstoneSize <= 0 {
		cfg.TombstoneSize = defaultTombstoneSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	logger = logger.With("component", "timeline")
	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		cfg:        cfg,
		dispatcher: dispatcher,
		sender:     sender,
		tombstones: dedupe.New(cfg.TombstoneTTL, cfg.TombstoneSize, dedupe.WithClock(cfg.Now)),
		changes:    notify.NewSubject[[]Message]("timeline", logger),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Subscribe registers fn to receive a fresh snapshot after every change.
// Listeners must treat the slice as read-only.
func (e *Engine) Subscribe(fn func([]Message)) (unsubscribe func()) {
	return e.changes.Subscribe(fn)
}

// Messages returns a copy of the current view in (CreatedAt, Key) order.
func (e *Engine) Messages() []Message {
	out := make([]Message, len(e.items))
	for i, it := range e.items {
		out[i] = it.msg
	}
	return out
}

// Len returns the number of entries in the view.
func (e *Engine) Len() int {
	return len(e.items)
}

// Lookup finds an entry by server id or local id.
func (e *Engine) Lookup(key string) (Message, bool) {
	for _, it := range e.items {
		if it.msg.ID == key || it.msg.LocalID == key {
			return it.msg, true
		}
	}
	return Message{}, false
}

// Closed reports whether the engine has been torn down.
func (e *Engine) Closed() bool {
	return e.closed
}

// ApplySnapshot replaces the confirmed subset with the server's list. Local
// pending and failed entries are kept, as are confirmed entries that arrived
// after snap.RequestedAt.
func (e *Engine) ApplySnapshot(snap Snapshot) {
	if e.closed {
		return
	}

	now := e.cfg.Now()
	previous := make(map[string]item, len(e.items))
	for _, it := range e.items {
		if it.msg.Origin == Confirmed {
			previous[it.msg.ID] = it
		}
	}

	next := make([]item, 0, len(snap.Messages)+len(e.items))
	listed := make(map[string]struct{}, len(snap.Messages))

	for _, m := range snap.Messages {
		if !m.valid() {
			e.logger.Warn("dropping invalid message from snapshot", "message_id", m.ID)
			continue
		}
		if _, dup := listed[m.ID]; dup {
			continue
		}
		if e.tombstones.Check(m.ID) {
			e.logger.Debug("ignoring cleared message from stale snapshot", "message_id", m.ID)
			continue
		}
		listed[m.ID] = struct{}{}

		arrived := now
		if prev, ok := previous[m.ID]; ok {
			arrived = prev.arrivedAt
			// Keep the local id so the author still recognises their own send
			if m.LocalID == "" {
				m.LocalID = prev.msg.LocalID
			}
		}
		m.Origin = Confirmed
		m.Err = nil
		next = append(next, item{msg: m, arrivedAt: arrived})
	}

	retained := 0
	for _, it := range e.items {
		switch {
		case it.msg.Origin != Confirmed:
			next = append(next, it)
		case !snap.RequestedAt.IsZero() && it.arrivedAt.After(snap.RequestedAt):
			if _, ok := listed[it.msg.ID]; !ok {
				next = append(next, it)
				retained++
			}
		}
	}

	sortItems(next)
	e.items = next

	e.logger.Debug("applied snapshot",
		"listed", len(listed),
		"retained", retained,
		"total", len(e.items))
	e.emit()
}

// ApplyEvent merges one pushed event. A new_message whose id is already
// confirmed is a no-op. messages_cleared drops every confirmed entry and
// leaves local entries untouched.
func (e *Engine) ApplyEvent(ev Event) {
	if e.closed {
		return
	}

	switch ev.Kind {
	case EventNewMessage:
		if e.insertConfirmed(ev.Message) {
			e.emit()
		}
	case EventMessagesCleared:
		e.clearConfirmed()
	default:
		e.logger.Debug("ignoring unknown event kind", "kind", int(ev.Kind))
	}
}

// SendLocal inserts a pending message immediately and sends it in the
// background. It returns the local id used to retry or discard the message.
func (e *Engine) SendLocal(content string) (string, error) {
	if e.closed {
		return "", ErrClosed
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}

	localID := localIDPrefix + uuid.New().String()
	msg := Message{
		LocalID:           localID,
		AuthorID:          e.cfg.AuthorID,
		AuthorDisplayName: e.cfg.AuthorDisplayName,
		Content:           content,
		CreatedAt:         e.cfg.Now(),
		Origin:            Pending,
	}
	e.insert(item{msg: msg, arrivedAt: msg.CreatedAt})
	e.emit()

	e.dispatch(localID, content)
	return localID, nil
}

// Retry re-sends a failed message. It does not happen automatically.
func (e *Engine) Retry(localID string) error {
	if e.closed {
		return ErrClosed
	}
	idx := e.indexLocal(localID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, localID)
	}
	if e.items[idx].msg.Origin != Failed {
		return fmt.Errorf("%w: %s is %s", ErrNotFailed, localID, e.items[idx].msg.Origin)
	}

	e.items[idx].msg.Origin = Pending
	e.items[idx].msg.Err = nil
	e.emit()

	e.dispatch(localID, e.items[idx].msg.Content)
	return nil
}

// Discard removes a failed message from the view.
func (e *Engine) Discard(localID string) error {
	if e.closed {
		return ErrClosed
	}
	idx := e.indexLocal(localID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, localID)
	}
	if e.items[idx].msg.Origin != Failed {
		return fmt.Errorf("%w: %s is %s", ErrNotFailed, localID, e.items[idx].msg.Origin)
	}

	e.removeAt(idx)
	e.emit()
	return nil
}

// Close tears the engine down. In-flight sends are cancelled and any result
// that still arrives is ignored. It is safe to call multiple times.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.cancel()
	e.tombstones.Close()
	e.items = nil
	e.changes.Clear()
	e.logger.Debug("timeline closed")
}

func (e *Engine) dispatch(localID, content string) {
	ctx := e.ctx
	go func() {
		msg, err := e.sender.Send(ctx, content)
		e.dispatcher.Post(func() {
			e.resolve(localID, msg, err)
		})
	}()
}

// resolve applies a send result. It runs on the loop.
func (e *Engine) resolve(localID string, msg Message, err error) {
	if e.closed {
		return
	}

	idx := e.indexLocal(localID)
	if idx < 0 || e.items[idx].msg.Origin != Pending {
		// Entry vanished; the server copy will still arrive through push or pull
		if err == nil && e.insertConfirmed(msg) {
			e.emit()
		}
		return
	}

	if err == nil && !msg.valid() {
		err = ErrInvalidAck
	}
	if err != nil {
		e.items[idx].msg.Origin = Failed
		e.items[idx].msg.Err = err
		e.logger.Warn("message send failed", "local_id", localID, "error", err)
		e.emit()
		if e.cfg.OnSendFailure != nil {
			e.cfg.OnSendFailure(localID, err)
		}
		return
	}

	if e.indexConfirmed(msg.ID) >= 0 {
		// Push or pull delivered the server copy first
		e.removeAt(idx)
		e.emit()
		return
	}

	pending := e.items[idx].msg
	e.removeAt(idx)

	msg.LocalID = pending.LocalID
	msg.Origin = Confirmed
	msg.Err = nil
	if msg.AuthorID == "" {
		msg.AuthorID = pending.AuthorID
	}
	if msg.AuthorDisplayName == "" {
		msg.AuthorDisplayName = pending.AuthorDisplayName
	}
	e.insert(item{msg: msg, arrivedAt: e.cfg.Now()})
	e.emit()
}

// insertConfirmed adds a server message unless it is invalid, tombstoned, or
// already present. It reports whether the view changed.
func (e *Engine) insertConfirmed(m Message) bool {
	if !m.valid() {
		e.logger.Warn("dropping invalid pushed message", "message_id", m.ID)
		return false
	}
	if e.indexConfirmed(m.ID) >= 0 {
		return false
	}
	if e.tombstones.Check(m.ID) {
		return false
	}

	m.Origin = Confirmed
	m.Err = nil
	e.insert(item{msg: m, arrivedAt: e.cfg.Now()})
	return true
}

func (e *Engine) clearConfirmed() {
	var cleared []string
	kept := e.items[:0]
	for _, it := range e.items {
		if it.msg.Origin == Confirmed {
			cleared = append(cleared, it.msg.ID)
			continue
		}
		kept = append(kept, it)
	}
	// Zero the tail so dropped messages can be collected
	for i := len(kept); i < len(e.items); i++ {
		e.items[i] = item{}
	}
	e.items = kept

	e.tombstones.MarkAll(cleared)
	e.logger.Info("messages cleared", "removed", len(cleared), "kept_local", len(kept))
	e.emit()
}

func (e *Engine) insert(it item) {
	i := sort.Search(len(e.items), func(i int) bool {
		return it.msg.Before(e.items[i].msg)
	})
	e.items = append(e.items, item{})
	copy(e.items[i+1:], e.items[i:])
	e.items[i] = it
}

func (e *Engine) removeAt(i int) {
	copy(e.items[i:], e.items[i+1:])
	e.items[len(e.items)-1] = item{}
	e.items = e.items[:len(e.items)-1]
}

func (e *Engine) indexLocal(localID string) int {
	for i, it := range e.items {
		if it.msg.LocalID == localID && it.msg.Origin != Confirmed {
			return i
		}
	}
	return -1
}

func (e *Engine) indexConfirmed(id string) int {
	for i, it := range e.items {
		if it.msg.Origin == Confirmed && it.msg.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) emit() {
	e.changes.Notify(e.Messages())
}

func sortItems(items []item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].msg.Before(items[j].msg)
	})
}
