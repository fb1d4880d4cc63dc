// ABOUTME: Access gate deciding whether a navigation may proceed for a session
// ABOUTME: Pure functions over session state and route; no I/O and no hidden state

package gate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/2389/anonchat/internal/session"
)

// Routes
const (
	RouteLogin = "/login"
	RouteChat  = "/chat"
	RouteAdmin = "/admin"
)

// Login form modes
const (
	ModeLogin  = "login"
	ModeSignup = "signup"
	ModeAdmin  = "admin"
)

// ErrUnknownRoute is returned by Resolve for paths that are not a surface.
var ErrUnknownRoute = errors.New("unknown route")

// Decision is the gate's verdict.
type Decision int

const (
	// Wait means the session is still being restored; show a waiting state.
	Wait Decision = iota
	Allow
	RedirectToLogin
	RedirectToChat
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect-to-login"
	case RedirectToChat:
		return "redirect-to-chat"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Result is a decision plus where to go for redirects.
type Result struct {
	Decision Decision
	Target   string
}

// Decide is the gate for a protected surface. A RedirectToLogin for an admin
// surface targets the admin login form.
func Decide(s session.State, route string, requiresAdmin bool) Result {
	switch s.Status {
	case session.Verifying:
		return Result{Decision: Wait}
	case session.Authenticated:
		if requiresAdmin && !s.IsAdmin() {
			return Result{Decision: RedirectToChat, Target: RouteChat}
		}
		return Result{Decision: Allow, Target: route}
	default:
		target := RouteLogin
		if requiresAdmin {
			target = RouteLogin + "?mode=" + ModeAdmin
		}
		return Result{Decision: RedirectToLogin, Target: target}
	}
}

// Resolve normalises path and applies the route table: the login surface is
// public, chat needs a session, and admin needs an admin session. Nothing is
// decided while the session is verifying.
func Resolve(s session.State, path string) (Result, error) {
	route := Normalize(path)
	switch route {
	case RouteLogin:
		if s.Status == session.Verifying {
			return Result{Decision: Wait}, nil
		}
		return Result{Decision: Allow, Target: route}, nil
	case RouteChat:
		return Decide(s, route, false), nil
	case RouteAdmin:
		return Decide(s, route, true), nil
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownRoute, path)
	}
}

// Normalize maps a requested path onto a route. The root and /index.html
// are the chat surface; query strings and trailing slashes are ignored.
func Normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	switch path {
	case "", "/index.html":
		return RouteChat
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// LoginMode reads the preselected login form from a login target such as
// "/login?mode=admin". Anything unrecognised selects the plain login form.
func LoginMode(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ModeLogin
	}
	switch mode := u.Query().Get("mode"); mode {
	case ModeSignup, ModeAdmin:
		return mode
	default:
		return ModeLogin
	}
}

// Landing is where a freshly authenticated session goes.
func Landing(s session.State) string {
	if s.IsAdmin() {
		return RouteAdmin
	}
	return RouteChat
}
