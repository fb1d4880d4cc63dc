// ABOUTME: Login, signup, logout, and whoami commands
// ABOUTME: Passwords are read without echo when stdin is a terminal

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/2389/anonchat/internal/api"
	"github.com/2389/anonchat/internal/gate"
	"github.com/2389/anonchat/internal/session"
)

var stdinReader = bufio.NewReader(os.Stdin)

// prompt asks for a line of input, reusing value when it is already set.
func prompt(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	line, err := stdinReader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo on a terminal, or one line
// from stdin otherwise.
func promptPassword(label string) (string, error) {
	if env := os.Getenv("ANONCHAT_PASSWORD"); env != "" {
		return env, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(label, "")
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

// reportLogin prints the signed-in identity and where the user lands.
func reportLogin(id session.Identity, st session.State) {
	green := color.New(color.FgGreen)
	green.Print("✓ ")
	name := id.DisplayName
	if name == "" {
		name = id.Username
	}
	fmt.Printf("Logged in as %s", name)
	if id.IsAdmin {
		color.New(color.FgYellow).Print(" [admin]")
	}
	fmt.Println()
	fmt.Printf("  Next: %s\n", landingHint(gate.Landing(st)))
}

func landingHint(route string) string {
	if route == gate.RouteAdmin {
		return "anonchat admin users"
	}
	return "anonchat chat"
}

// loginErr formats an authentication failure for the terminal.
func loginErr(err error) error {
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		return errors.New(authErr.Message)
	}
	return err
}

func newLoginCmd(flags *globalFlags) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				addr, err := prompt("Email", email)
				if err != nil {
					return err
				}
				pw, err := promptPassword("Password")
				if err != nil {
					return err
				}
				id, err := a.client.Login(ctx, addr, pw)
				if err != nil {
					return loginErr(err)
				}
				reportLogin(id, a.client.SessionState())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newSignupCmd(flags *globalFlags) *cobra.Command {
	var req api.SignupRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				var err error
				if req.Name, err = prompt("Name", req.Name); err != nil {
					return err
				}
				if req.Email, err = prompt("Email", req.Email); err != nil {
					return err
				}
				if req.Username, err = prompt("Username", req.Username); err != nil {
					return err
				}
				if req.Password, err = promptPassword("Password"); err != nil {
					return err
				}
				id, err := a.client.Signup(ctx, req)
				if err != nil {
					return loginErr(err)
				}
				reportLogin(id, a.client.SessionState())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Username, "username", "", "username")
	return cmd
}

func newAdminLoginCmd(flags *globalFlags) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "admin-login",
		Short: "Log in as the server administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				user, err := prompt("Username", username)
				if err != nil {
					return err
				}
				pw, err := promptPassword("Password")
				if err != nil {
					return err
				}
				id, err := a.client.AdminLogin(ctx, user, pw)
				if err != nil {
					return loginErr(err)
				}
				reportLogin(id, a.client.SessionState())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin username")
	return cmd
}

func newGoogleLoginCmd(flags *globalFlags) *cobra.Command {
	var credential string
	cmd := &cobra.Command{
		Use:   "google-login",
		Short: "Log in with a Google ID token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				if credential == "" {
					cfg, err := a.client.AuthConfig(ctx)
					if err == nil && cfg.GoogleClientID != "" {
						fmt.Fprintf(os.Stderr, "Server Google client ID: %s\n", cfg.GoogleClientID)
					}
					return errors.New("--credential is required (a Google ID token for this client ID)")
				}
				id, err := a.client.GoogleLogin(ctx, credential)
				if err != nil {
					return loginErr(err)
				}
				reportLogin(id, a.client.SessionState())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&credential, "credential", "", "Google ID token")
	return cmd
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				if _, err := a.client.AwaitSession(ctx); err != nil {
					return err
				}
				if err := a.client.Logout(ctx); err != nil {
					return err
				}
				fmt.Println("Logged out.")
				return nil
			})
		},
	}
}

func newWhoamiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				st, err := a.client.AwaitSession(ctx)
				if err != nil {
					return err
				}

				cyan := color.New(color.FgCyan)
				fmt.Println()
				cyan.Println("  Identity")
				cyan.Println("  --------")
				fmt.Printf("  Server:         %s\n", a.cfg.Server.URL)
				if st.Status != session.Authenticated {
					fmt.Printf("  Status:         %s\n", st.Status)
					fmt.Println()
					return nil
				}
				fmt.Printf("  Username:       %s\n", st.Identity.Username)
				fmt.Printf("  Display Name:   %s\n", st.Identity.DisplayName)
				fmt.Printf("  Email:          %s\n", st.Identity.Email)
				if st.Identity.IsAdmin {
					color.New(color.FgGreen).Println("  Role:           admin")
				} else {
					fmt.Println("  Role:           member")
				}
				fmt.Println()
				return nil
			})
		},
	}
}
