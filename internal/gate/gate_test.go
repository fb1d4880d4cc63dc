// ABOUTME: Tests for the access gate decision functions
// ABOUTME: Table-driven over session status, admin flag, and requested route

package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/anonchat/internal/session"
)

var (
	verifying = session.State{Status: session.Verifying}
	anonymous = session.State{Status: session.Unauthenticated}
	member    = session.State{
		Status:   session.Authenticated,
		Token:    "t",
		Identity: &session.Identity{Username: "alice"},
	}
	admin = session.State{
		Status:   session.Authenticated,
		Token:    "t",
		Identity: &session.Identity{Username: "Admin", IsAdmin: true},
	}
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name          string
		state         session.State
		route         string
		requiresAdmin bool
		want          Result
	}{
		{"verifying chat waits", verifying, RouteChat, false, Result{Decision: Wait}},
		{"verifying admin waits", verifying, RouteAdmin, true, Result{Decision: Wait}},
		{"anonymous chat", anonymous, RouteChat, false, Result{RedirectToLogin, "/login"}},
		{"anonymous admin carries intent", anonymous, RouteAdmin, true, Result{RedirectToLogin, "/login?mode=admin"}},
		{"member chat", member, RouteChat, false, Result{Allow, RouteChat}},
		{"member admin", member, RouteAdmin, true, Result{RedirectToChat, RouteChat}},
		{"admin chat", admin, RouteChat, false, Result{Allow, RouteChat}},
		{"admin admin", admin, RouteAdmin, true, Result{Allow, RouteAdmin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.state, tt.route, tt.requiresAdmin)
			assert.Equal(t, tt.want, got)
			// Same inputs, same answer
			assert.Equal(t, got, Decide(tt.state, tt.route, tt.requiresAdmin))
		})
	}
}

func TestDecide_VerifyingNeverAllowsOrRedirectsToLogin(t *testing.T) {
	for _, route := range []string{RouteChat, RouteAdmin, "/anything"} {
		for _, requiresAdmin := range []bool{false, true} {
			got := Decide(verifying, route, requiresAdmin)
			assert.NotEqual(t, Allow, got.Decision)
			assert.NotEqual(t, RedirectToLogin, got.Decision)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		state session.State
		path  string
		want  Decision
	}{
		{"root is chat", member, "/", Allow},
		{"index is chat", anonymous, "/index.html", RedirectToLogin},
		{"login is public", anonymous, "/login", Allow},
		{"login waits while verifying", verifying, "/login?mode=admin", Wait},
		{"admin needs admin", member, "/admin/", RedirectToChat},
		{"admin ok", admin, "/admin", Allow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.state, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Decision)
		})
	}

	_, err := Resolve(member, "/settings")
	assert.ErrorIs(t, err, ErrUnknownRoute)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, RouteChat, Normalize(""))
	assert.Equal(t, RouteChat, Normalize("/"))
	assert.Equal(t, RouteChat, Normalize("/index.html"))
	assert.Equal(t, RouteChat, Normalize("/chat/"))
	assert.Equal(t, RouteLogin, Normalize("/login?mode=signup"))
	assert.Equal(t, RouteAdmin, Normalize("admin"))
	assert.Equal(t, RouteAdmin, Normalize("/admin#users"))
}

func TestLoginMode(t *testing.T) {
	assert.Equal(t, ModeAdmin, LoginMode("/login?mode=admin"))
	assert.Equal(t, ModeSignup, LoginMode("/login?mode=signup"))
	assert.Equal(t, ModeLogin, LoginMode("/login"))
	assert.Equal(t, ModeLogin, LoginMode("/login?mode=root"))
	assert.Equal(t, ModeLogin, LoginMode("%zz"))

	// The login redirect for an admin surface preselects the admin form
	target := Decide(anonymous, RouteAdmin, true).Target
	assert.Equal(t, ModeAdmin, LoginMode(target))
}

func TestLanding(t *testing.T) {
	assert.Equal(t, RouteAdmin, Landing(admin))
	assert.Equal(t, RouteChat, Landing(member))
	assert.Equal(t, RouteChat, Landing(anonymous))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "redirect-to-login", RedirectToLogin.String())
	assert.Equal(t, "decision(9)", Decision(9).String())
}
