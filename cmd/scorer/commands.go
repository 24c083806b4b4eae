package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/realtime"
	"github.com/DoyleJ11/cricket-live/internal/session"
	"github.com/DoyleJ11/cricket-live/internal/snapshot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rawJSON       bool
	confirmBowler bool
)

func init() {
	snapshotCmd.Flags().BoolVar(&rawJSON, "json", false, "Print the snapshot as received")
	rolesCmd.Flags().BoolVar(&confirmBowler, "confirm", false, "Replace the current bowler")

	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(rolesCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scoreCmd)
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print the current scorecard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if rawJSON {
			snap, err := newFetcher().FetchSnapshot(ctx, cfg.MatchID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		sess, err := newSession(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { sess.Inbox() <- session.Shutdown{} }()

		v, err := firstSeeded(ctx, sess)
		if err != nil {
			return err
		}
		return scorecard(cmd.OutOrStdout(), v)
	},
}

var rolesCmd = &cobra.Command{
	Use:   "roles STRIKER NON_STRIKER BOWLER",
	Short: "Set the batters and bowler in one step",
	Long: `Sets the batters and bowler for the innings in progress. The change goes
through the same selection rules as the interactive "bat" and "bowl"
commands, so replacing a bowler who is already on needs --confirm.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		want := cricket.Roles{
			Striker:    cricket.PlayerID(args[0]),
			NonStriker: cricket.PlayerID(args[1]),
			Bowler:     cricket.PlayerID(args[2]),
		}

		sess, err := newSession(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { sess.Inbox() <- session.Shutdown{} }()

		if _, err := firstSeeded(ctx, sess); err != nil {
			return err
		}
		if err := setRoles(ctx, sess, want, confirmBowler); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "roles set")
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a match live",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLive(cmd, false)
	},
}

const scoreUsage = `Reads one command per line from stdin:

  xi TEAM ID...        toggle players in or out of TEAM's playing XI
  start TEAM           take the match live with TEAM batting
  bat ID | bowl ID     toggle a batter or the bowler
  confirm | cancel     settle a pending bowler change
  commit               send the drafted batters and bowler
  0..7, wd, nb, b, lb  record a delivery (see "help")
  w HOW [f=ID] [ID] [RUNS]  record a wicket, f= names the catcher or fielder
  end                  close the innings
  complete [RESULT]    finish the match
  card                 print the scorecard
  quit`

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a match from the keyboard",
	Long:  scoreUsage,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLive(cmd, true)
	},
}

func newFetcher() *snapshot.Client {
	return snapshot.New(snapshot.Options{
		BaseURL:    cfg.BaseURL,
		Token:      cfg.Token,
		MaxRetries: uint64(cfg.SnapshotRetries),
		Logger:     log,
		Metrics:    stats,
	})
}

func newSession(ctx context.Context, pub session.Publisher) (*session.Session, error) {
	opts := session.Options{
		MatchID:   cfg.MatchID,
		Fetcher:   newFetcher(),
		Publisher: pub,
		Logger:    log,
		Metrics:   stats,
	}
	if cfg.CacheDir != "" {
		cache, err := snapshot.NewFileCache(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		opts.Cache = cache
	}
	return session.New(ctx, opts), nil
}

func firstSeeded(ctx context.Context, sess *session.Session) (session.View, error) {
	views := make(chan session.View, 16)
	sess.Inbox() <- session.Subscribe{ClientID: "snapshot", Outbox: views}
	for {
		select {
		case v, ok := <-views:
			if !ok {
				return session.View{}, errors.New("session closed")
			}
			if v.Seeded && !v.Resyncing {
				return v, nil
			}
			if v.LastError != "" && !v.Resyncing {
				return session.View{}, errors.New(v.LastError)
			}
		case <-ctx.Done():
			return session.View{}, ctx.Err()
		}
	}
}

// runLive wires a session to both realtime channels and renders every view
// change until interrupted. With scorer set, stdin drives the session.
func runLive(cmd *cobra.Command, scorer bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rt *realtime.Client
	var pub session.Publisher
	if scorer {
		pub = session.PublisherFunc(func(ctx context.Context, c engine.Command) error {
			return rt.Publish(ctx, c)
		})
	}
	sess, err := newSession(ctx, pub)
	if err != nil {
		return err
	}

	rt = realtime.New(realtime.Options{
		URL:               cfg.WSURL,
		MatchID:           cfg.MatchID,
		Token:             cfg.Token,
		Scorer:            scorer,
		ReconnectDelay:    cfg.ReconnectDelay,
		MaxReconnectDelay: cfg.MaxReconnectDelay,
		HeartBeat:         cfg.HeartBeat,
		Logger:            log,
		Metrics:           stats,
	}, sess)

	runErr := make(chan error, 1)
	go func() { runErr <- rt.Run(ctx) }()
	defer func() {
		if err := rt.Disconnect(); err != nil {
			log.Warn("disconnect", zap.Error(err))
		}
		select {
		case sess.Inbox() <- session.Shutdown{}:
		case <-sess.Done():
		}
		<-sess.Done()
	}()

	views := make(chan session.View, 64)
	sess.Inbox() <- session.Subscribe{ClientID: "cli", Outbox: views}

	var lines <-chan string
	if scorer {
		lines = readLines(cmd.InOrStdin())
	}

	out := cmd.OutOrStdout()
	last := ""
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-runErr:
			return err

		case v, ok := <-views:
			if !ok {
				return nil
			}
			if line := headline(v); line != last {
				fmt.Fprintln(out, line)
				last = line
			}

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := handleLine(ctx, sess, out, strings.Fields(line))
			if err != nil {
				fmt.Fprintf(out, "! %s\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

func ask(ctx context.Context, sess *session.Session, build func(chan error) session.Msg) error {
	reply := make(chan error, 1)
	select {
	case sess.Inbox() <- build(reply):
	case <-sess.Done():
		return errors.New("session closed")
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func handleLine(ctx context.Context, sess *session.Session, out io.Writer, f []string) (quit bool, err error) {
	if len(f) == 0 {
		return false, nil
	}
	args := f[1:]
	switch strings.ToLower(f[0]) {
	case "quit", "exit":
		return true, nil

	case "help":
		fmt.Fprintln(out, scoreUsage)
		return false, nil

	case "card":
		reply := make(chan session.View, 1)
		sess.Inbox() <- session.GetView{Reply: reply}
		return false, scorecard(out, <-reply)

	case "xi":
		if len(args) < 2 {
			return false, errors.New("usage: xi TEAM ID...")
		}
		team := cricket.TeamID(args[0])
		for _, id := range args[1:] {
			pid := cricket.PlayerID(id)
			if err := ask(ctx, sess, func(r chan error) session.Msg { return session.ToggleXI{Team: team, Player: pid, Reply: r} }); err != nil {
				return false, fmt.Errorf("%s: %w", id, err)
			}
		}
		return false, nil

	case "start":
		if len(args) != 1 {
			return false, errors.New("usage: start TEAM")
		}
		return false, ask(ctx, sess, func(r chan error) session.Msg {
			return session.StartMatch{BattingFirst: cricket.TeamID(args[0]), Reply: r}
		})

	case "bat", "bowl":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s ID", f[0])
		}
		pid := cricket.PlayerID(args[0])
		return false, ask(ctx, sess, func(r chan error) session.Msg {
			if strings.EqualFold(f[0], "bat") {
				return session.ToggleBatter{Player: pid, Reply: r}
			}
			return session.ToggleBowler{Player: pid, Reply: r}
		})

	case "confirm":
		return false, ask(ctx, sess, func(r chan error) session.Msg { return session.ConfirmBowler{Reply: r} })

	case "cancel":
		return false, ask(ctx, sess, func(r chan error) session.Msg { return session.CancelBowler{Reply: r} })

	case "commit":
		return false, ask(ctx, sess, func(r chan error) session.Msg { return session.CommitRoles{Reply: r} })

	case "end":
		return false, ask(ctx, sess, func(r chan error) session.Msg { return session.EndInnings{Reply: r} })

	case "complete":
		result := strings.Join(args, " ")
		return false, ask(ctx, sess, func(r chan error) session.Msg { return session.CompleteMatch{Result: result, Reply: r} })
	}

	b, err := parseBall(f)
	if err != nil {
		return false, err
	}
	return false, ask(ctx, sess, func(r chan error) session.Msg { return session.RecordBall{Ball: b, Reply: r} })
}
