// ABOUTME: Export command writing the current timeline as a standalone HTML transcript
// ABOUTME: Pulls a fresh snapshot first so the transcript matches the server

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389/anonchat/internal/render"
)

const transcriptTitle = "Anonymous Chat"

func newExportCmd(flags *globalFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the chat as an HTML transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				return runExport(ctx, a, out)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file (- for stdout)")
	return cmd
}

func runExport(ctx context.Context, a *app, out string) error {
	st, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	if err := a.client.Sync(ctx); err != nil {
		return err
	}
	msgs, err := a.client.Messages(ctx)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	if err := render.Transcript(w, transcriptTitle, render.ViewerOf(st), msgs, time.Now()); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	if out != "-" {
		fmt.Fprintf(os.Stderr, "Wrote %d messages to %s\n", len(msgs), out)
	}
	return nil
}
