// Package realtime keeps a client's two STOMP channels to the relay open:
// "live" carries deltas for one match, "submit" carries the scorer's
// commands. Each channel reconnects on its own.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/logging"
	"github.com/DoyleJ11/cricket-live/internal/metrics"
	itypes "github.com/DoyleJ11/cricket-live/internal/types"
	"github.com/DoyleJ11/cricket-live/pkg/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-stomp/stomp/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrNotConnected = errors.New("submit channel not connected")
var ErrAlreadyRunning = errors.New("realtime client already running")

var errConnectionLost = errors.New("connection lost")

const (
	ChannelLive   = "live"
	ChannelSubmit = "submit"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Handler receives everything the channels produce. Calls come from the
// channel goroutines; implementations hand off to their own loop.
type Handler interface {
	HandleDelta(d itypes.Delta)
	HandleState(channel string, st State)
}

// DialFunc opens the byte stream a STOMP session runs over.
type DialFunc func(ctx context.Context) (io.ReadWriteCloser, error)

type Options struct {
	URL               string // ws://host/ws
	MatchID           string
	Token             string
	Scorer            bool // open the submit channel too
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration // > ReconnectDelay switches to exponential backoff
	HeartBeat         time.Duration
	HeartBeatError    time.Duration // slack for late heart-beats; 0 keeps the library default
	Logger            *zap.Logger
	Metrics           metrics.Metrics
	Dial              DialFunc // nil dials URL over WebSocket
}

type Client struct {
	opts    Options
	handler Handler
	log     *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	started sync.Once
	stopped chan struct{}
	stop    sync.Once
	running bool

	mu       sync.Mutex
	submit   *stomp.Conn
	states   map[string]State
	teardown error
}

func New(opts Options, h Handler) *Client {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	if opts.Dial == nil {
		opts.Dial = func(ctx context.Context) (io.ReadWriteCloser, error) {
			return dialWebSocket(ctx, opts.URL, opts.Token)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		opts:    opts,
		handler: h,
		log:     logging.OrNop(opts.Logger).With(zap.String("match_id", opts.MatchID)),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		states:  map[string]State{ChannelLive: Disconnected, ChannelSubmit: Disconnected},
	}
}

// Run keeps the channels connected until ctx ends or Disconnect is called.
func (c *Client) Run(ctx context.Context) error {
	first := false
	c.started.Do(func() { first = true })
	if !first {
		return ErrAlreadyRunning
	}
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	defer close(c.stopped)

	stop := context.AfterFunc(ctx, c.cancel)
	defer stop()

	g, gctx := errgroup.WithContext(c.ctx)
	g.Go(func() error { return c.maintain(gctx, ChannelLive, c.runLive) })
	if c.opts.Scorer {
		g.Go(func() error { return c.maintain(gctx, ChannelSubmit, c.runSubmit) })
	}
	return g.Wait()
}

// Disconnect tears both channels down and stops reconnecting. It is safe to
// call more than once and before Run.
func (c *Client) Disconnect() error {
	c.stop.Do(func() {
		c.cancel()
		c.mu.Lock()
		running := c.running
		c.mu.Unlock()
		if running {
			<-c.stopped
		}
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.teardown
}

func (c *Client) State(channel string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[channel]
}

// Publish sends a scoring command on the submit channel and waits for the
// relay's receipt. It never queues: without a connection it fails at once.
func (c *Client) Publish(ctx context.Context, cmd engine.Command) error {
	c.mu.Lock()
	conn := c.submit
	c.mu.Unlock()
	if conn == nil {
		c.countPublishFailure()
		return ErrNotConnected
	}

	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.Type, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- conn.Send(types.ScoreDestination(c.opts.MatchID), "application/json", body, stomp.SendOpt.Receipt)
	}()
	select {
	case err := <-errCh:
		if err != nil {
			c.countPublishFailure()
			return fmt.Errorf("publish %s: %w", cmd.Type, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) countPublishFailure() {
	if c.opts.Metrics != nil {
		c.opts.Metrics.IncPublishFailures()
	}
}

func (c *Client) setState(channel string, st State) {
	c.mu.Lock()
	changed := c.states[channel] != st
	c.states[channel] = st
	c.mu.Unlock()
	if changed {
		c.log.Debug("channel state", zap.String("channel", channel), zap.Stringer("state", st))
		c.handler.HandleState(channel, st)
	}
}

func (c *Client) newBackOff() backoff.BackOff {
	if c.opts.MaxReconnectDelay > c.opts.ReconnectDelay {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.opts.ReconnectDelay
		b.MaxInterval = c.opts.MaxReconnectDelay
		b.MaxElapsedTime = 0
		b.Reset()
		return b
	}
	return backoff.NewConstantBackOff(c.opts.ReconnectDelay)
}

type session func(ctx context.Context, connected func()) error

// maintain runs one channel: connect, serve until the connection drops,
// wait out the backoff, repeat.
func (c *Client) maintain(ctx context.Context, channel string, run session) error {
	b := c.newBackOff()
	for {
		c.setState(channel, Connecting)
		err := run(ctx, func() {
			b.Reset()
			c.setState(channel, Connected)
		})
		if ctx.Err() != nil {
			c.setState(channel, Disconnected)
			return nil
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			c.setState(channel, Disconnected)
			return err
		}
		c.setState(channel, Reconnecting)
		if c.opts.Metrics != nil {
			c.opts.Metrics.IncReconnects(channel)
		}
		c.log.Warn("channel down, reconnecting",
			zap.String("channel", channel), zap.Duration("in", wait), zap.Error(err))

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			c.setState(channel, Disconnected)
			return nil
		}
	}
}

func (c *Client) open(ctx context.Context) (*stomp.Conn, *watchedConn, error) {
	rwc, err := c.opts.Dial(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	w := watch(rwc)

	opts := []func(*stomp.Conn) error{
		stomp.ConnOpt.HeartBeat(c.opts.HeartBeat, c.opts.HeartBeat),
		stomp.ConnOpt.Logger(newStompLogger(c.log)),
	}
	if c.opts.HeartBeatError > 0 {
		opts = append(opts, stomp.ConnOpt.HeartBeatError(c.opts.HeartBeatError))
	}
	if u, err := url.Parse(c.opts.URL); err == nil && u.Host != "" {
		opts = append(opts, stomp.ConnOpt.Host(u.Hostname()))
	}
	if c.opts.Token != "" {
		opts = append(opts, stomp.ConnOpt.Header("Authorization", "Bearer "+c.opts.Token))
	}

	// stomp.Connect has no context; closing the stream unblocks it.
	stopWatch := context.AfterFunc(ctx, func() { _ = w.Close() })
	conn, err := stomp.Connect(w, opts...)
	stopWatch()
	if err != nil {
		_ = w.Close()
		return nil, nil, fmt.Errorf("stomp connect: %w", err)
	}
	return conn, w, nil
}

// close ends a STOMP session: politely when we chose to leave, abruptly
// when the stream is already gone.
func (c *Client) close(conn *stomp.Conn, w *watchedConn, polite bool) {
	if polite && !w.isLost() {
		done := make(chan error, 1)
		go func() { done <- conn.Disconnect() }()
		select {
		case err := <-done:
			c.recordTeardown(err)
		case <-time.After(time.Second):
			conn.MustDisconnect()
		}
	} else {
		conn.MustDisconnect()
	}
	// stomp has closed the stream already; this releases the dialer's side.
	_ = w.Close()
}

func (c *Client) recordTeardown(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	multierr.AppendInto(&c.teardown, err)
}

func (c *Client) runLive(ctx context.Context, connected func()) error {
	conn, w, err := c.open(ctx)
	if err != nil {
		return err
	}
	sub, err := conn.Subscribe(types.MatchTopic(c.opts.MatchID), stomp.AckAuto,
		stomp.SubscribeOpt.Id(types.SubscriptionID(c.opts.MatchID)))
	if err != nil {
		c.close(conn, w, false)
		return fmt.Errorf("subscribe: %w", err)
	}
	connected()

	for {
		select {
		case <-ctx.Done():
			c.close(conn, w, true)
			return nil

		case <-w.lost:
			c.close(conn, w, false)
			return errConnectionLost

		case msg, ok := <-sub.C:
			if !ok {
				c.close(conn, w, false)
				return errConnectionLost
			}
			if msg.Err != nil {
				c.close(conn, w, false)
				return msg.Err
			}
			var d itypes.Delta
			if err := json.Unmarshal(msg.Body, &d); err != nil {
				c.log.Warn("undecodable delta", zap.Error(err))
				continue
			}
			c.handler.HandleDelta(d)
		}
	}
}

func (c *Client) runSubmit(ctx context.Context, connected func()) error {
	conn, w, err := c.open(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.submit = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.submit = nil
		c.mu.Unlock()
	}()
	connected()

	select {
	case <-ctx.Done():
		c.close(conn, w, true)
		return nil
	case <-w.lost:
		c.close(conn, w, false)
		return errConnectionLost
	}
}
