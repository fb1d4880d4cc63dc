// ABOUTME: Interactive chat REPL rendering the live timeline
// ABOUTME: Reads input, redraws on view changes, and warns when the connection goes stale

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/2389/anonchat/internal/gate"
	"github.com/2389/anonchat/internal/render"
	"github.com/2389/anonchat/internal/session"
	"github.com/2389/anonchat/internal/timeline"
	"github.com/2389/anonchat/internal/transport"
)

var errQuit = errors.New("quit")

// chatBackend is what the REPL needs from the client.
type chatBackend interface {
	Send(ctx context.Context, content string) (string, error)
	Retry(ctx context.Context, localID string) error
	Discard(ctx context.Context, localID string) error
	Messages(ctx context.Context) ([]timeline.Message, error)
	ChannelState(ctx context.Context) (transport.ChannelState, error)
	Sync(ctx context.Context) error
}

// repl renders the timeline and executes input lines.
type repl struct {
	backend   chatBackend
	viewer    render.Viewer
	out       io.Writer
	errOut    io.Writer
	fullDraw  bool
	threshold time.Duration
	now       func() time.Time

	shown      map[string]bool // keys already printed in append mode
	staleShown bool
}

func newREPL(backend chatBackend, viewer render.Viewer, out io.Writer, fullDraw bool, threshold time.Duration) *repl {
	return &repl{
		backend:   backend,
		viewer:    viewer,
		out:       out,
		errOut:    out,
		fullDraw:  fullDraw,
		threshold: threshold,
		now:       time.Now,
		shown:     make(map[string]bool),
	}
}

const chatHelp = `Commands:
  /retry <id>    re-send a failed message
  /discard <id>  drop a failed message
  /sync          pull the latest messages now
  /status        show connection state
  /quit          leave the chat
Anything else is sent as a message.`

// handle executes one input line. It returns errQuit for /quit.
func (r *repl) handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		_, err := r.backend.Send(ctx, line)
		return err
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		fmt.Fprintln(r.out, chatHelp)
		return nil
	case "/retry", "/discard":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s <id>", cmd)
		}
		if cmd == "/retry" {
			delete(r.shown, args[0])
			return r.backend.Retry(ctx, args[0])
		}
		if err := r.backend.Discard(ctx, args[0]); err != nil {
			return err
		}
		delete(r.shown, args[0])
		return r.draw(ctx)
	case "/sync":
		return r.backend.Sync(ctx)
	case "/status":
		cs, err := r.backend.ChannelState(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "%s (mode %s, last sync %s)\n",
			render.Status(cs, r.now(), r.threshold), cs.Mode, formatSync(cs.LastSyncedAt))
		return nil
	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

func formatSync(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("15:04:05")
}

// draw brings the screen up to date with the current view.
func (r *repl) draw(ctx context.Context) error {
	msgs, err := r.backend.Messages(ctx)
	if err != nil {
		return err
	}

	if r.fullDraw {
		fmt.Fprint(r.out, "\033[H\033[2J")
		color.New(color.FgCyan).Fprintln(r.out, "Anonymous Chat  (/help for commands)")
		fmt.Fprintln(r.out)
		if len(msgs) == 0 {
			fmt.Fprintln(r.out, "Be the first to start the conversation!")
		}
		for _, line := range render.Lines(r.viewer, msgs) {
			fmt.Fprintln(r.out, line)
		}
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, color.HiBlackString(render.Summary(msgs)))
		return r.drawStatus(ctx, true)
	}

	// Append mode: print each confirmed message once, and each failure once
	for _, m := range msgs {
		var key string
		switch m.Origin {
		case timeline.Confirmed:
			key = m.ID
		case timeline.Failed:
			key = m.LocalID
		default:
			continue
		}
		if r.shown[key] {
			continue
		}
		r.shown[key] = true
		fmt.Fprintln(r.out, render.Line(r.viewer, m))
	}
	return r.drawStatus(ctx, false)
}

// drawStatus prints the stale warning. In append mode it is printed once
// per outage.
func (r *repl) drawStatus(ctx context.Context, always bool) error {
	cs, err := r.backend.ChannelState(ctx)
	if err != nil {
		return err
	}
	stale := cs.Stale(r.now(), r.threshold)
	switch {
	case stale && (always || !r.staleShown):
		fmt.Fprintln(r.out, render.Status(cs, r.now(), r.threshold))
	case !stale && r.staleShown && !always:
		fmt.Fprintln(r.out, render.Status(cs, r.now(), r.threshold))
	}
	r.staleShown = stale
	return nil
}

// run draws the view and executes input until /quit, end of input, the
// session ending, or ctx being cancelled. redraw and ended are signalled by
// the client's subscribers.
func (r *repl) run(ctx context.Context, in io.Reader, redraw, ended <-chan struct{}) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A read blocked on a terminal cannot be interrupted, so the reader is
	// left behind when run returns and exits on its next line.
	lines := make(chan string)
	readErr := make(chan error, 1)
	go readLines(ctx, in, lines, readErr)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	if err := r.draw(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ended:
			fmt.Fprintln(r.out, color.YellowString("Session ended. Log in again to continue."))
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-readErr
			}
			err := r.handle(ctx, line)
			switch {
			case errors.Is(err, errQuit):
				return nil
			case err != nil:
				fmt.Fprintln(r.errOut, color.RedString("! %v", err))
			}
		case <-redraw:
			if err := r.draw(ctx); err != nil {
				return err
			}
		case <-ticker.C:
			if err := r.drawStatus(ctx, false); err != nil {
				return err
			}
		}
	}
}

// readLines forwards lines from in until EOF or ctx is done. The read error,
// nil at EOF, is sent on errc before lines is closed.
func readLines(ctx context.Context, in io.Reader, lines chan<- string, errc chan<- error) {
	defer close(lines)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), 64*1024)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			errc <- nil
			return
		}
	}
	errc <- scanner.Err()
}

func newChatCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive := term.IsTerminal(int(os.Stdout.Fd()))
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				return runChat(ctx, a, os.Stdin, os.Stdout, os.Stderr, interactive)
			})
		},
	}
}

func runChat(ctx context.Context, a *app, in io.Reader, out, errOut io.Writer, fullDraw bool) error {
	st, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	if res, err := a.client.Navigate(gate.RouteChat); err != nil || res.Decision != gate.Allow {
		return errNotLoggedIn
	}

	redraw := make(chan struct{}, 1)
	poke := func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	}
	ended := make(chan struct{}, 1)

	unsubView := a.client.OnMessages(func([]timeline.Message) { poke() })
	defer unsubView()
	unsubChan, err := a.client.OnChannel(ctx, func(transport.ChannelState) { poke() })
	if err != nil {
		return err
	}
	defer unsubChan()
	unsubSess, err := a.client.OnSession(ctx, func(s session.State) {
		if s.Status != session.Authenticated {
			select {
			case ended <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		return err
	}
	defer unsubSess()

	r := newREPL(a.client, render.ViewerOf(st), out, fullDraw, a.cfg.Sync.StalenessThreshold)
	r.errOut = errOut
	return r.run(ctx, in, redraw, ended)
}
