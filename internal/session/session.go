// ABOUTME: Session store holding the bearer credential and the verified identity
// ABOUTME: Restores a persisted login at startup and notifies listeners on every transition

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/anonchat/internal/auth"
	"github.com/2389/anonchat/internal/eventloop"
	"github.com/2389/anonchat/internal/notify"
	"github.com/2389/anonchat/internal/store"
)

// Status is the session's authentication state.
type Status int

const (
	Unauthenticated Status = iota
	Verifying
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Verifying:
		return "verifying"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrInvalidLogin is returned by Login when the credential or identity is incomplete.
var ErrInvalidLogin = errors.New("invalid login")

const defaultVerifyTimeout = 10 * time.Second

// Identity is who the server says the credential belongs to.
type Identity struct {
	Username    string
	DisplayName string
	Email       string
	IsAdmin     bool
}

// State is an immutable view of the session. Identity is non-nil if and
// only if Status is Authenticated.
type State struct {
	Status   Status
	Token    string
	Identity *Identity
}

// IsAdmin reports whether the session belongs to an admin identity.
func (s State) IsAdmin() bool {
	return s.Identity != nil && s.Identity.IsAdmin
}

// Persistence stores the single credential value. *store.Slot implements it.
type Persistence interface {
	Load(ctx context.Context) (*store.Credential, error)
	Save(ctx context.Context, cred store.Credential) error
	Clear(ctx context.Context) error
}

// Verifier checks a restored credential with the server. Errors wrapping
// ErrRejected mean the server refused the token; any other error means the
// server could not be asked.
type Verifier interface {
	Verify(ctx context.Context, token string) error
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) error

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, token string) error {
	return f(ctx, token)
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for the local expiry check.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithVerifyTimeout bounds the server verification call.
func WithVerifyTimeout(d time.Duration) Option {
	return func(s *Store) { s.verifyTimeout = d }
}

// Store owns the session state. It is not safe for concurrent use: every
// method must run on the dispatcher's goroutine. Verification results are
// posted back through the dispatcher.
type Store struct {
	state         State
	dispatcher    eventloop.Dispatcher
	persist       Persistence
	verifier      Verifier
	changes       *notify.Subject[State]
	logger        *slog.Logger
	now           func() time.Time
	verifyTimeout time.Duration

	initialized  bool
	generation   uint64
	cancelVerify context.CancelFunc
}

// New creates a store in the Verifying state. Call Initialize to resolve it.
// Pass nil logger for default.
func New(dispatcher eventloop.Dispatcher, persist Persistence, verifier Verifier, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session")

	s := &Store{
		state:         State{Status: Verifying},
		dispatcher:    dispatcher,
		persist:       persist,
		verifier:      verifier,
		changes:       notify.NewSubject[State]("session", logger),
		logger:        logger,
		now:           time.Now,
		verifyTimeout: defaultVerifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current session state.
func (s *Store) State() State {
	return s.state
}

// Subscribe registers fn to be called synchronously on every transition.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	return s.changes.Subscribe(fn)
}

// Initialize restores the persisted credential. Without one the session
// becomes Unauthenticated right away; otherwise it stays Verifying until the
// verifier answers. A token whose exp has passed is rejected locally. Only
// the first call has any effect.
func (s *Store) Initialize(ctx context.Context) {
	if s.initialized || s.state.Status != Verifying {
		return
	}
	s.initialized = true

	cred, err := s.persist.Load(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("failed to load persisted credential", "error", err)
		}
		s.setState(State{Status: Unauthenticated})
		return
	}

	if _, err := auth.CheckToken(cred.Token, s.now()); errors.Is(err, auth.ErrExpiredToken) {
		s.logger.Info("persisted credential expired", "username", cred.Username)
		s.clearPersisted(ctx)
		s.setState(State{Status: Unauthenticated})
		return
	}

	s.generation++
	gen := s.generation
	vctx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	s.cancelVerify = cancel

	s.logger.Debug("verifying persisted credential", "username", cred.Username)
	restored := *cred
	go func() {
		err := s.verifier.Verify(vctx, restored.Token)
		s.dispatcher.Post(func() {
			s.finishVerify(gen, restored, err)
		})
	}()
}

func (s *Store) finishVerify(gen uint64, cred store.Credential, err error) {
	if gen != s.generation {
		s.logger.Debug("discarding stale verification result")
		return
	}
	s.stopVerify()

	switch {
	case err == nil:
		s.setState(State{
			Status: Authenticated,
			Token:  cred.Token,
			Identity: &Identity{
				Username:    cred.Username,
				DisplayName: cred.DisplayName,
				Email:       cred.Email,
				IsAdmin:     cred.IsAdmin,
			},
		})
		s.logger.Info("session restored", "username", cred.Username, "admin", cred.IsAdmin)
	case IsRejection(err):
		s.logger.Info("persisted credential rejected", "username", cred.Username, "error", err)
		s.clearPersisted(context.Background())
		s.setState(State{Status: Unauthenticated})
	default:
		// Fail closed, but keep the credential so the next start can retry
		s.logger.Warn("could not verify persisted credential", "error", err)
		s.setState(State{Status: Unauthenticated})
	}
}

// Login records a successful login, persists it, and transitions to
// Authenticated. Any verification still in flight is abandoned.
func (s *Store) Login(token string, id Identity) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidLogin)
	}
	if id.Username == "" {
		return fmt.Errorf("%w: empty username", ErrInvalidLogin)
	}

	s.initialized = true
	s.generation++
	s.stopVerify()

	err := s.persist.Save(context.Background(), store.Credential{
		Token:       token,
		Username:    id.Username,
		DisplayName: id.DisplayName,
		Email:       id.Email,
		IsAdmin:     id.IsAdmin,
		SavedAt:     s.now(),
	})
	if err != nil {
		// The session still works for this run; it just won't survive a restart
		s.logger.Warn("failed to persist credential", "error", err)
	}

	identity := id
	s.setState(State{Status: Authenticated, Token: token, Identity: &identity})
	s.logger.Info("logged in", "username", id.Username, "admin", id.IsAdmin)
	return nil
}

// Logout clears the credential, the identity, and persisted storage.
func (s *Store) Logout() {
	s.initialized = true
	s.generation++
	s.stopVerify()
	s.clearPersisted(context.Background())

	if s.state.Status != Unauthenticated {
		s.logger.Info("logged out")
	}
	s.setState(State{Status: Unauthenticated})
}

// Close abandons any verification in flight and drops all listeners.
func (s *Store) Close() {
	s.generation++
	s.stopVerify()
	s.changes.Clear()
}

func (s *Store) stopVerify() {
	if s.cancelVerify != nil {
		s.cancelVerify()
		s.cancelVerify = nil
	}
}

func (s *Store) clearPersisted(ctx context.Context) {
	if err := s.persist.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear persisted credential", "error", err)
	}
}

// setState installs next and notifies listeners when anything observable changed.
func (s *Store) setState(next State) {
	if sameState(s.state, next) {
		return
	}
	s.state = next
	s.changes.Notify(next)
}

func sameState(a, b State) bool {
	if a.Status != b.Status || a.Token != b.Token {
		return false
	}
	if a.Identity == nil || b.Identity == nil {
		return a.Identity == b.Identity
	}
	return *a.Identity == *b.Identity
}
