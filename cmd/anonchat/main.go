// ABOUTME: Entry point for the anonchat command line client
// ABOUTME: Defines the cobra command tree and global flags

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags.
var version = "dev"

const banner = `
                                _           _
  __ _ _ __   ___  _ __     ___| |__   __ _| |_
 / _' | '_ \ / _ \| '_ \   / __| '_ \ / _' | __|
| (_| | | | | (_) | | | | | (__| | | | (_| | |_
 \__,_|_| |_|\___/|_| |_|  \___|_| |_|\__,_|\__|
`

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	server     string
	dataPath   string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "anonchat",
		Short:         "Anonymous chat client",
		Long:          color.CyanString(banner) + "\nTerminal client for the anonymous chat server.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/anonchat/config.yaml)")
	pf.StringVar(&flags.server, "server", "", "chat server URL (overrides config)")
	pf.StringVar(&flags.dataPath, "data", "", "credential database path (overrides config)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newSignupCmd(flags),
		newLoginCmd(flags),
		newAdminLoginCmd(flags),
		newGoogleLoginCmd(flags),
		newLogoutCmd(flags),
		newWhoamiCmd(flags),
		newChatCmd(flags),
		newExportCmd(flags),
		newAdminCmd(flags),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}
