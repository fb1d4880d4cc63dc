// ABOUTME: Composition root wiring session, transport, and timeline onto one event loop
// ABOUTME: Exposes a goroutine-safe API for the CLI; all component state lives on the loop

package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/2389/anonchat/internal/admin"
	"github.com/2389/anonchat/internal/api"
	"github.com/2389/anonchat/internal/config"
	"github.com/2389/anonchat/internal/eventloop"
	"github.com/2389/anonchat/internal/gate"
	"github.com/2389/anonchat/internal/notify"
	"github.com/2389/anonchat/internal/session"
	"github.com/2389/anonchat/internal/store"
	"github.com/2389/anonchat/internal/timeline"
	"github.com/2389/anonchat/internal/transport"
)

// ErrNotAuthenticated is returned by message operations without a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Options holds the client's collaborators. Only Config and Store are required.
type Options struct {
	Config *config.Config
	Store  store.CredentialStore

	// Dialer opens the push connection. Defaults to a websocket dialer.
	Dialer     transport.Dialer
	HTTPClient *http.Client
	Logger     *slog.Logger
	Now        func() time.Time
}

// Client is one signed-in (or signing-in) chat user. Its methods are safe
// to call from any goroutine except a subscriber callback, which runs on the
// event loop.
type Client struct {
	cfg    *config.Config
	loop   *eventloop.Loop
	api    *api.Client
	anon   *api.Client
	logger *slog.Logger
	now    func() time.Time

	session *session.Store
	channel *transport.Channel
	console *admin.Console

	// current mirrors the session state for readers off the loop
	current atomic.Pointer[session.State]

	// owned by the loop
	engine      *timeline.Engine
	engineToken string
	engineUnsub func()

	views *notify.Subject[[]timeline.Message]
}

// New wires a client. Nothing touches the network until Run is called.
func New(opts Options) (*Client, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("credential store required")
	}
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		cfg:    cfg,
		loop:   eventloop.New(logger),
		logger: logger.With("component", "client"),
		now:    now,
		views:  notify.NewSubject[[]timeline.Message]("view", logger),
	}
	initial := session.State{Status: session.Verifying}
	c.current.Store(&initial)

	apiOpts := []api.Option{
		api.WithLogger(logger),
		api.WithTokenSource(func() string { return c.SessionState().Token }),
	}
	if opts.HTTPClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(opts.HTTPClient))
	}
	c.api = api.NewClient(cfg.Server.URL, apiOpts...)
	c.anon = c.api.WithToken("")

	slot := store.NewSlot(opts.Store, cfg.Server.URL)
	c.session = session.New(c.loop, slot, session.VerifierFunc(c.verify), logger,
		session.WithClock(now))
	c.session.Subscribe(c.onSession)

	dialer := opts.Dialer
	if dialer == nil {
		dialer = transport.WebsocketDialer{HandshakeTimeout: cfg.Sync.HandshakeTimeout}
	}
	c.channel = transport.New(transport.Config{
		URL:               cfg.Server.WSURL,
		PullInterval:      cfg.Sync.PullInterval,
		SafetyInterval:    cfg.Sync.SafetyInterval,
		HandshakeTimeout:  cfg.Sync.HandshakeTimeout,
		KeepaliveInterval: cfg.Sync.KeepaliveInterval,
		InitialBackoff:    cfg.Reconnect.InitialBackoff,
		MaxBackoff:        cfg.Reconnect.MaxBackoff,
		Multiplier:        cfg.Reconnect.Multiplier,
		Jitter:            0.2,
		MaxAttempts:       cfg.Reconnect.MaxAttempts,
		OnPullError:       c.onRemoteError,
		Now:               now,
	}, c.loop, dialer, c.api, engineSink{c}, logger)

	c.console = admin.New(c.api, c.SessionState, logger)

	return c, nil
}

// Run restores the persisted session and processes events until ctx is
// cancelled. The client cannot be reused afterwards.
func (c *Client) Run(ctx context.Context) error {
	if !c.loop.Post(func() { c.session.Initialize(ctx) }) {
		return eventloop.ErrClosed
	}
	err := c.loop.Run(ctx)

	// The loop is gone; nothing else touches these now
	c.channel.Close()
	c.closeEngine()
	c.session.Close()
	c.logger.Debug("client stopped")
	return err
}

// API returns the REST client, authenticated as the current session.
func (c *Client) API() *api.Client {
	return c.api
}

// Admin returns the admin console. Its operations fail with
// admin.ErrNotAdmin unless an admin is signed in.
func (c *Client) Admin() *admin.Console {
	return c.console
}

// SessionState returns the latest session state.
func (c *Client) SessionState() session.State {
	return *c.current.Load()
}

// AwaitSession blocks until the session has left Verifying and returns it.
func (c *Client) AwaitSession(ctx context.Context) (session.State, error) {
	ready := make(chan session.State, 1)
	var unsub func()
	err := c.loop.Do(ctx, func() {
		if st := c.session.State(); st.Status != session.Verifying {
			ready <- st
			return
		}
		unsub = c.session.Subscribe(func(st session.State) {
			if st.Status == session.Verifying {
				return
			}
			select {
			case ready <- st:
			default:
			}
		})
	})
	if err != nil {
		return session.State{}, err
	}
	if unsub != nil {
		defer c.loop.Post(unsub)
	}

	select {
	case st := <-ready:
		return st, nil
	case <-ctx.Done():
		return session.State{}, ctx.Err()
	}
}

// Navigate decides whether path may be shown for the current session.
func (c *Client) Navigate(path string) (gate.Result, error) {
	return gate.Resolve(c.SessionState(), path)
}

// ChannelState returns the transport's current state.
func (c *Client) ChannelState(ctx context.Context) (transport.ChannelState, error) {
	var st transport.ChannelState
	err := c.loop.Do(ctx, func() { st = c.channel.State() })
	return st, err
}

// Stale reports whether the view may be out of date per the configured
// staleness threshold.
func (c *Client) Stale(ctx context.Context) (bool, error) {
	st, err := c.ChannelState(ctx)
	if err != nil {
		return false, err
	}
	return st.Stale(c.now(), c.cfg.Sync.StalenessThreshold), nil
}

// OnSession registers fn for session transitions. fn runs on the event loop
// and must not call back into the client synchronously.
func (c *Client) OnSession(ctx context.Context, fn func(session.State)) (unsubscribe func(), err error) {
	err = c.loop.Do(ctx, func() { unsubscribe = c.session.Subscribe(fn) })
	return unsubscribe, err
}

// OnChannel registers fn for transport state changes. fn runs on the event loop.
func (c *Client) OnChannel(ctx context.Context, fn func(transport.ChannelState)) (unsubscribe func(), err error) {
	err = c.loop.Do(ctx, func() { unsubscribe = c.channel.Subscribe(fn) })
	return unsubscribe, err
}

// OnMessages registers fn for view changes, including the empty view on
// logout. fn runs on the event loop.
func (c *Client) OnMessages(fn func([]timeline.Message)) (unsubscribe func()) {
	return c.views.Subscribe(fn)
}

// onSession keeps the timeline and transport in step with the session.
// It runs on the loop.
func (c *Client) onSession(st session.State) {
	snapshot := st
	c.current.Store(&snapshot)

	if st.Status != session.Authenticated {
		c.channel.Stop()
		c.closeEngine()
		return
	}

	if c.engine != nil && c.engineToken == st.Token {
		return
	}
	c.closeEngine()

	c.engine = timeline.New(timeline.Config{
		AuthorID:          st.Identity.Username,
		AuthorDisplayName: st.Identity.DisplayName,
		TombstoneTTL:      c.cfg.Sync.TombstoneTTL,
		OnSendFailure:     c.onSendFailure,
		Now:               c.now,
	}, c.loop, c.api, c.logger)
	c.engineToken = st.Token
	c.engineUnsub = c.engine.Subscribe(c.views.Notify)

	c.channel.Start(st)
}

func (c *Client) closeEngine() {
	if c.engine == nil {
		return
	}
	c.engineUnsub()
	c.engine.Close()
	c.engine = nil
	c.engineToken = ""
	c.engineUnsub = nil
	c.views.Notify(nil)
}

func (c *Client) onSendFailure(localID string, err error) {
	c.logger.Warn("message send failed", "local_id", localID, "error", err)
	c.onRemoteError(err)
}

// onRemoteError runs on the loop after a failed pull or send.
func (c *Client) onRemoteError(err error) {
	c.expireIfRejected(err, c.session.State().Token)
}

// expireIfRejected ends the session when the server stopped honouring token.
// The logout is posted so the component reporting the error finishes first,
// and it is skipped if the session has moved on to another token.
func (c *Client) expireIfRejected(err error, token string) {
	if !errors.Is(err, api.ErrUnauthorized) {
		return
	}
	c.loop.Post(func() {
		st := c.session.State()
		if st.Status != session.Authenticated || st.Token != token {
			return
		}
		c.logger.Info("server rejected the session token, logging out")
		c.session.Logout()
	})
}

// engineSink forwards channel output to whichever engine is current.
type engineSink struct {
	c *Client
}

func (s engineSink) ApplySnapshot(snap timeline.Snapshot) {
	if s.c.engine != nil {
		s.c.engine.ApplySnapshot(snap)
	}
}

func (s engineSink) ApplyEvent(ev timeline.Event) {
	if s.c.engine != nil {
		s.c.engine.ApplyEvent(ev)
	}
}
