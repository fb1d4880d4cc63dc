// ABOUTME: Admin subcommands for moderating users and tuning server settings
// ABOUTME: Every subcommand needs an admin session; the console re-checks on each call

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/2389/anonchat/internal/admin"
	"github.com/2389/anonchat/internal/api"
)

func newAdminCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Moderate users and manage server settings",
	}

	// run wraps fn with a started app and an authenticated session.
	run := func(fn func(ctx context.Context, console *admin.Console, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				if _, err := a.requireSession(ctx); err != nil {
					return err
				}
				return fn(ctx, a.client.Admin(), args)
			})
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "users",
			Short: "List registered users",
			Args:  cobra.NoArgs,
			RunE:  run(adminUsers),
		},
		&cobra.Command{
			Use:   "ban <username>",
			Short: "Ban a user",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, c *admin.Console, args []string) error {
				if err := c.Ban(ctx, args[0]); err != nil {
					return err
				}
				printOK("Banned %s", args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "unban <username>",
			Short: "Reactivate a banned user",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, c *admin.Console, args []string) error {
				if err := c.Unban(ctx, args[0]); err != nil {
					return err
				}
				printOK("Reactivated %s", args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete <username>",
			Short: "Delete a user",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, c *admin.Console, args []string) error {
				if err := c.Delete(ctx, args[0]); err != nil {
					return err
				}
				printOK("Deleted %s", args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "settings",
			Short: "Show server settings",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, c *admin.Console, _ []string) error {
				s, err := c.Settings(ctx)
				if err != nil {
					return err
				}
				printHeader("Settings")
				fmt.Printf("  Auto refresh: %ds\n", s.AutoRefreshInterval)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "set-refresh <seconds>",
			Short: "Set the clients' auto refresh interval",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, c *admin.Console, args []string) error {
				seconds, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid interval %q: %w", args[0], admin.ErrInvalidInterval)
				}
				s, err := c.SetRefreshInterval(ctx, seconds)
				if err != nil {
					return err
				}
				printOK("Auto refresh set to %ds", s.AutoRefreshInterval)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every message",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, c *admin.Console, _ []string) error {
				if err := c.ClearMessages(ctx); err != nil {
					return err
				}
				printOK("All messages cleared")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show server statistics and settings",
			Args:  cobra.NoArgs,
			RunE:  run(adminStats),
		},
	)
	return cmd
}

func adminUsers(ctx context.Context, c *admin.Console, _ []string) error {
	users, err := c.Users(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No users registered.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tNAME\tEMAIL\tSTATUS")
	for _, u := range users {
		status := u.Status
		if u.Banned() {
			status = color.RedString(status)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Username, u.Name, u.Email, status)
	}
	return w.Flush()
}

// adminStats fetches statistics and settings concurrently.
func adminStats(ctx context.Context, c *admin.Console, _ []string) error {
	var (
		stats    *api.Stats
		settings *api.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = c.Stats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = c.Settings(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	printHeader("Stats")
	fmt.Printf("  Users:        %d\n", stats.TotalUsers)
	fmt.Printf("  Messages:     %d\n", stats.TotalMessages)
	fmt.Printf("  Connections:  %d\n", stats.ActiveConnections)
	fmt.Printf("  Auto refresh: %ds\n", settings.AutoRefreshInterval)
	return nil
}

func printHeader(title string) {
	color.New(color.FgCyan, color.Bold).Println(title)
}

func printOK(format string, args ...any) {
	fmt.Println(color.GreenString("✓ ") + fmt.Sprintf(format, args...))
}
