// ABOUTME: Push/pull transport state machine feeding the message sync engine
// ABOUTME: Keeps a websocket up with capped exponential backoff and tunes the pull cycle to the mode

package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/2389/anonchat/internal/eventloop"
	"github.com/2389/anonchat/internal/notify"
	"github.com/2389/anonchat/internal/session"
	"github.com/2389/anonchat/internal/timeline"
)

var keepalivePayload = []byte("ping")

// Puller fetches the server's current snapshot.
type Puller interface {
	Messages(ctx context.Context) ([]timeline.Message, error)
}

// Sink receives everything the channel learns.
type Sink interface {
	ApplySnapshot(snap timeline.Snapshot)
	ApplyEvent(ev timeline.Event)
}

// Config holds channel settings. Zero values select defaults.
type Config struct {
	URL string

	// PullInterval is the pull period while push is down; SafetyInterval is
	// the period while push is up.
	PullInterval      time.Duration
	SafetyInterval    time.Duration
	HandshakeTimeout  time.Duration
	KeepaliveInterval time.Duration

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64
	// MaxAttempts is how many failed redials Reconnecting tolerates before
	// settling into PullOnly. Zero never gives up.
	MaxAttempts int

	// OnPullError runs on the loop after a failed pull.
	OnPullError func(err error)

	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.PullInterval <= 0 {
		c.PullInterval = 5 * time.Second
	}
	if c.SafetyInterval <= 0 {
		c.SafetyInterval = 30 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = 25 * time.Second
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	if c.Jitter < 0 || c.Jitter >= 1 {
		c.Jitter = 0
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Channel keeps the push connection and the pull cycle running while a
// session is authenticated. It is not safe for concurrent use: every method
// must run on the dispatcher's goroutine. Network results and timer ticks are
// posted back through the dispatcher tagged with the generation that started
// them, and Stop bumps the generation so anything late is dropped.
type Channel struct {
	cfg        Config
	dispatcher eventloop.Dispatcher
	dialer     Dialer
	puller     Puller
	sink       Sink
	changes    *notify.Subject[ChannelState]
	logger     *slog.Logger

	state   ChannelState
	token   string
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
	backoff *backoff.ExponentialBackOff
	redial  *time.Timer

	conn     Conn
	connSeq  uint64
	connDone chan struct{}

	pullTimer *time.Timer
	pullSeq   uint64
	pulling   bool
	repull    bool
}

// New creates a stopped channel. Pass nil logger for default.
func New(cfg Config, dispatcher eventloop.Dispatcher, dialer Dialer, puller Puller, sink Sink, logger *slog.Logger) *Channel {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "transport")

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.MaxInterval = cfg.MaxBackoff
	b.Multiplier = cfg.Multiplier
	b.RandomizationFactor = cfg.Jitter

	return &Channel{
		cfg:        cfg,
		dispatcher: dispatcher,
		dialer:     dialer,
		puller:     puller,
		sink:       sink,
		changes:    notify.NewSubject[ChannelState]("transport", logger),
		logger:     logger,
		backoff:    b,
	}
}

// State returns the current channel state.
func (c *Channel) State() ChannelState {
	return c.state
}

// Subscribe registers fn to be called on every state change.
func (c *Channel) Subscribe(fn func(ChannelState)) (unsubscribe func()) {
	return c.changes.Subscribe(fn)
}

// Start opens the push connection and the pull cycle for an authenticated
// session. It is a no-op for any other session, or if the channel is already
// running with the same token.
func (c *Channel) Start(s session.State) {
	if s.Status != session.Authenticated {
		c.logger.Debug("not starting transport without an authenticated session", "status", s.Status)
		return
	}
	if c.state.Mode != Stopped {
		if s.Token == c.token {
			return
		}
		c.Stop()
	}

	c.gen++
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.token = s.Token
	c.backoff.Reset()

	c.setState(ChannelState{Mode: Connecting, LastSyncedAt: c.state.LastSyncedAt, DownSince: c.cfg.Now()})
	c.logger.Debug("transport starting", "url", c.cfg.URL)

	// Nothing can be pushed yet, so pull right away at the tight interval
	c.restartPull()
	c.dial()
}

// Stop closes the push connection and cancels the pull cycle. In-flight dials
// and pulls are abandoned and their results ignored. It is idempotent.
func (c *Channel) Stop() {
	if c.state.Mode == Stopped {
		return
	}

	c.gen++
	c.cancel()
	if c.redial != nil {
		c.redial.Stop()
		c.redial = nil
	}
	if c.pullTimer != nil {
		c.pullTimer.Stop()
		c.pullTimer = nil
	}
	c.closeConn()
	c.pulling = false
	c.repull = false
	c.token = ""

	c.setState(ChannelState{Mode: Stopped, LastSyncedAt: c.state.LastSyncedAt})
	c.logger.Debug("transport stopped")
}

// Close stops the channel and drops all listeners.
func (c *Channel) Close() {
	c.Stop()
	c.changes.Clear()
}

func (c *Channel) dial() {
	gen, ctx, token := c.gen, c.ctx, c.token
	go func() {
		dctx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()

		conn, err := c.dialer.Dial(dctx, c.cfg.URL, token)
		if !c.dispatcher.Post(func() { c.onDial(gen, conn, err) }) && conn != nil {
			conn.Close()
		}
	}()
}

func (c *Channel) onDial(gen uint64, conn Conn, err error) {
	if gen != c.gen || c.state.Mode == Stopped {
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		next := c.state
		next.Attempts++
		switch c.state.Mode {
		case Connecting:
			next.Mode = PullOnly
		case Reconnecting:
			if c.cfg.MaxAttempts > 0 && next.Attempts >= c.cfg.MaxAttempts {
				next.Mode = PullOnly
			}
		}
		c.logger.Info("push connection failed",
			"mode", c.state.Mode,
			"attempt", next.Attempts,
			"error", err)
		c.setState(next)
		c.scheduleRedial()
		return
	}

	c.conn = conn
	c.connSeq++
	c.connDone = make(chan struct{})
	c.backoff.Reset()

	c.setState(ChannelState{Mode: Push, LastSyncedAt: c.state.LastSyncedAt})
	c.logger.Info("push connected", "url", c.cfg.URL)

	// Reconcile anything missed while push was down, then relax the pull
	c.restartPull()

	go c.readLoop(gen, c.connSeq, conn)
	go c.keepalive(conn, c.connDone)
}

func (c *Channel) scheduleRedial() {
	delay := c.backoff.NextBackOff()
	if delay > c.cfg.MaxBackoff {
		delay = c.cfg.MaxBackoff
	}
	if c.redial != nil {
		c.redial.Stop()
	}

	gen := c.gen
	c.logger.Debug("scheduling push reconnect", "delay", delay, "mode", c.state.Mode)
	c.redial = time.AfterFunc(delay, func() {
		c.dispatcher.Post(func() {
			if gen != c.gen {
				return
			}
			c.redial = nil
			if c.state.Mode == Reconnecting || c.state.Mode == PullOnly {
				c.logger.Info("reconnecting push", "mode", c.state.Mode, "attempt", c.state.Attempts+1)
				c.dial()
			}
		})
	})
}

func (c *Channel) readLoop(gen, seq uint64, conn Conn) {
	deadline := 2 * c.cfg.KeepaliveInterval
	for {
		_ = conn.SetReadDeadline(time.Now().Add(deadline))
		data, err := conn.ReadMessage()
		if err != nil {
			c.dispatcher.Post(func() { c.onConnLost(gen, seq, err) })
			return
		}
		if !c.dispatcher.Post(func() { c.onFrame(gen, seq, data) }) {
			return
		}
	}
}

func (c *Channel) keepalive(conn Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(keepalivePayload); err != nil {
				// The reader sees the failure and reports the loss
				conn.Close()
				return
			}
		}
	}
}

func (c *Channel) onFrame(gen, seq uint64, data []byte) {
	if gen != c.gen || seq != c.connSeq || c.conn == nil {
		return
	}

	ev, err := ParseEvent(data)
	switch {
	case errors.Is(err, ErrUnknownEvent):
		c.logger.Debug("ignoring push frame", "error", err)
		return
	case err != nil:
		c.logger.Warn("dropping malformed push frame", "error", err, "bytes", len(data))
		return
	}

	c.state.LastSyncedAt = c.cfg.Now()
	c.sink.ApplyEvent(ev)
}

func (c *Channel) onConnLost(gen, seq uint64, err error) {
	if gen != c.gen || seq != c.connSeq || c.conn == nil {
		return
	}

	c.closeConn()
	c.logger.Info("push connection lost", "error", err)
	c.setState(ChannelState{Mode: Reconnecting, LastSyncedAt: c.state.LastSyncedAt, DownSince: c.cfg.Now()})

	// Pull becomes the only source until push is back
	c.restartPull()
	c.scheduleRedial()
}

func (c *Channel) closeConn() {
	if c.conn == nil {
		return
	}
	close(c.connDone)
	c.conn.Close()
	c.conn = nil
	c.connDone = nil
}

// pullInterval is the pull period for the current mode.
func (c *Channel) pullInterval() time.Duration {
	if c.state.Mode == Push {
		return c.cfg.SafetyInterval
	}
	return c.cfg.PullInterval
}

// restartPull pulls immediately and reschedules at the current mode's interval.
func (c *Channel) restartPull() {
	c.pullSeq++
	if c.pullTimer != nil {
		c.pullTimer.Stop()
		c.pullTimer = nil
	}
	c.pullNow()
}

func (c *Channel) pullNow() {
	if c.pulling {
		c.repull = true
		return
	}
	c.pulling = true

	gen, ctx := c.gen, c.ctx
	requestedAt := c.cfg.Now()
	go func() {
		msgs, err := c.puller.Messages(ctx)
		c.dispatcher.Post(func() { c.onPull(gen, requestedAt, msgs, err) })
	}()
}

func (c *Channel) onPull(gen uint64, requestedAt time.Time, msgs []timeline.Message, err error) {
	if gen != c.gen {
		return
	}
	c.pulling = false

	if err != nil {
		c.logger.Warn("pull failed", "mode", c.state.Mode, "error", err)
		if c.cfg.OnPullError != nil {
			c.cfg.OnPullError(err)
			if gen != c.gen {
				// The callback stopped the channel
				return
			}
		}
	} else {
		c.sink.ApplySnapshot(timeline.Snapshot{Messages: msgs, RequestedAt: requestedAt})
		next := c.state
		next.LastSyncedAt = c.cfg.Now()
		c.setState(next)
	}

	if c.repull {
		c.repull = false
		c.pullNow()
		return
	}
	c.schedulePull(c.pullInterval())
}

func (c *Channel) schedulePull(d time.Duration) {
	if c.pullTimer != nil {
		c.pullTimer.Stop()
	}
	gen, seq := c.gen, c.pullSeq
	c.pullTimer = time.AfterFunc(d, func() {
		c.dispatcher.Post(func() {
			if gen != c.gen || seq != c.pullSeq {
				return
			}
			c.pullTimer = nil
			c.pullNow()
		})
	})
}

func (c *Channel) setState(next ChannelState) {
	if next == c.state {
		return
	}
	c.state = next
	c.changes.Notify(next)
}
