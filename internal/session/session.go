// Package session runs one client's view of one match. A single goroutine
// owns the match store and the roster selection; channel traffic, REST
// results and user commands all reach it as inbox messages.
package session

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/logging"
	"github.com/DoyleJ11/cricket-live/internal/matchstate"
	"github.com/DoyleJ11/cricket-live/internal/metrics"
	"github.com/DoyleJ11/cricket-live/internal/realtime"
	"github.com/DoyleJ11/cricket-live/internal/roster"
	itypes "github.com/DoyleJ11/cricket-live/internal/types"
	"go.uber.org/zap"
)

var ErrReadOnly = errors.New("session cannot score")
var ErrNotInSetup = errors.New("match is not in team selection")

// maxBuffered bounds deltas held while a snapshot is in flight. Past it the
// snapshot alone has to catch us up.
const maxBuffered = 1024

// Fetcher is the REST side of the backend.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, matchID string) (itypes.Snapshot, error)
	UpdateRoles(ctx context.Context, matchID string, roles cricket.Roles) (int64, error)
}

// Publisher sends scoring commands to the relay.
type Publisher interface {
	Publish(ctx context.Context, cmd engine.Command) error
}

// PublisherFunc adapts a plain function to Publisher.
type PublisherFunc func(ctx context.Context, cmd engine.Command) error

func (f PublisherFunc) Publish(ctx context.Context, cmd engine.Command) error { return f(ctx, cmd) }

// Cache keeps a last-known-good snapshot across restarts.
type Cache interface {
	Save(snap itypes.Snapshot) error
	Load(matchID string) (itypes.Snapshot, error)
}

type Options struct {
	MatchID     string
	Fetcher     Fetcher
	Publisher   Publisher // nil for viewers
	Cache       Cache     // optional
	ResyncRetry time.Duration
	Logger      *zap.Logger
	Metrics     metrics.Metrics
}

type Session struct {
	inbox chan Msg
	opts  Options
	log   *zap.Logger

	store     *matchstate.Store
	setup     *roster.Setup
	sel       *roster.Selection
	selBase   cricket.Roles
	subs      map[string]chan View
	live      realtime.State
	submit    realtime.State
	resyncing bool
	buffered  []itypes.Delta
	lastErr   string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context, opts Options) *Session {
	if opts.ResyncRetry <= 0 {
		opts.ResyncRetry = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:  make(chan Msg, 64),
		opts:   opts,
		log:    logging.OrNop(opts.Logger).With(zap.String("match_id", opts.MatchID)),
		store:  matchstate.New(opts.MatchID),
		subs:   make(map[string]chan View),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg      { return s.inbox }
func (s *Session) Done() <-chan struct{} { return s.done }

// HandleDelta and HandleState make a Session the realtime handler.
func (s *Session) HandleDelta(d itypes.Delta) { s.post(deltaMsg{d: d}) }

func (s *Session) HandleState(channel string, st realtime.State) {
	s.post(channelMsg{channel: channel, state: st})
}

func (s *Session) post(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

func (s *Session) loop() {
	defer close(s.done)
	s.loadCached()
	s.startResync()

	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case deltaMsg:
				s.onDelta(msg.d)
				s.broadcast()

			case channelMsg:
				s.onChannel(msg.channel, msg.state)
				s.broadcast()

			case snapshotResult:
				s.onSnapshot(msg.snap, msg.err)
				s.broadcast()

			case Resync:
				s.startResync()

			case Subscribe:
				s.subs[msg.ClientID] = msg.Outbox
				select {
				case msg.Outbox <- s.view():
				default:
				}

			case Unsubscribe:
				if ch, ok := s.subs[msg.ClientID]; ok {
					close(ch)
					delete(s.subs, msg.ClientID)
				}

			case GetView:
				msg.Reply <- s.view()

			case ToggleXI:
				msg.Reply <- s.local(func() error {
					if s.setup == nil {
						return ErrNotInSetup
					}
					return s.setup.ToggleXI(msg.Team, msg.Player)
				})

			case ToggleBatter:
				msg.Reply <- s.local(func() error {
					sel, err := s.selection()
					if err != nil {
						return err
					}
					return sel.ToggleBatter(msg.Player)
				})

			case ToggleBowler:
				msg.Reply <- s.local(func() error {
					sel, err := s.selection()
					if err != nil {
						return err
					}
					return sel.ToggleBowler(msg.Player)
				})

			case ConfirmBowler:
				msg.Reply <- s.local(func() error {
					sel, err := s.selection()
					if err != nil {
						return err
					}
					return sel.ConfirmBowler()
				})

			case CancelBowler:
				msg.Reply <- s.local(func() error {
					sel, err := s.selection()
					if err != nil {
						return err
					}
					sel.CancelBowler()
					return nil
				})

			case CommitRoles:
				s.commitRoles(msg.Reply)

			case StartMatch:
				if s.setup == nil {
					msg.Reply <- ErrNotInSetup
					break
				}
				cmd, err := s.setup.StartCommand(msg.BattingFirst)
				if err != nil {
					msg.Reply <- err
					break
				}
				s.score(cmd, msg.Reply)

			case RecordBall:
				ball := msg.Ball
				s.score(engine.Command{Type: engine.CmdRecordBall, Ball: &ball}, msg.Reply)

			case EndInnings:
				s.score(engine.Command{Type: engine.CmdEndInnings}, msg.Reply)

			case CompleteMatch:
				s.score(engine.Command{Type: engine.CmdCompleteMatch, Result: msg.Result}, msg.Reply)

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) shutdown() {
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.cancel()
}

// local runs a roster edit and pushes the result to subscribers.
func (s *Session) local(f func() error) error {
	err := f()
	s.broadcast()
	return err
}

func (s *Session) loadCached() {
	if s.opts.Cache == nil {
		return
	}
	snap, err := s.opts.Cache.Load(s.opts.MatchID)
	if err != nil {
		return
	}
	if err := s.store.ApplySnapshot(snap); err != nil {
		s.log.Warn("ignoring cached snapshot", zap.Error(err))
		return
	}
	s.log.Debug("seeded from cache", zap.Int64("seq", snap.Seq))
	s.refreshRoster(true)
}

func (s *Session) startResync() {
	if s.resyncing || s.opts.Fetcher == nil {
		return
	}
	s.resyncing = true
	if s.opts.Metrics != nil {
		s.opts.Metrics.IncResyncs()
	}
	go func() {
		snap, err := s.opts.Fetcher.FetchSnapshot(s.ctx, s.opts.MatchID)
		s.post(snapshotResult{snap: snap, err: err})
	}()
}

func (s *Session) onSnapshot(snap itypes.Snapshot, err error) {
	s.resyncing = false
	if err == nil {
		err = s.store.ApplySnapshot(snap)
	}
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.lastErr = err.Error()
		s.log.Warn("snapshot failed, keeping last known state", zap.Error(err))
		time.AfterFunc(s.opts.ResyncRetry, func() { s.post(Resync{}) })
		return
	}
	s.lastErr = ""
	s.log.Debug("snapshot applied", zap.Int64("seq", snap.Seq))
	if s.opts.Cache != nil {
		if err := s.opts.Cache.Save(s.store.Snapshot()); err != nil {
			s.log.Warn("cache snapshot", zap.Error(err))
		}
	}
	s.refreshRoster(true)

	pending := s.buffered
	s.buffered = nil
	slices.SortStableFunc(pending, func(a, b itypes.Delta) int { return int(a.Seq - b.Seq) })
	for _, d := range pending {
		s.onDelta(d)
	}
}

func (s *Session) onDelta(d itypes.Delta) {
	if s.resyncing || !s.store.Seeded() {
		if len(s.buffered) >= maxBuffered {
			s.buffered = s.buffered[1:]
		}
		s.buffered = append(s.buffered, d)
		return
	}

	outcome, err := s.store.ApplyDelta(d)
	switch {
	case errors.Is(err, matchstate.ErrSequenceGap):
		if s.opts.Metrics != nil {
			s.opts.Metrics.IncSequenceGaps()
		}
		s.log.Info("sequence gap, resyncing", zap.Int64("have", s.store.Seq()), zap.Int64("got", d.Seq))
		s.buffered = append(s.buffered, d)
		s.startResync()
	case errors.Is(err, matchstate.ErrWrongMatch):
		s.log.Warn("delta for another match", zap.String("delta_match", d.MatchID))
	case err != nil:
		s.log.Error("delta rejected, resyncing", zap.Int64("seq", d.Seq), zap.Error(err))
		s.startResync()
	case outcome == matchstate.Dropped:
		if s.opts.Metrics != nil {
			s.opts.Metrics.IncDeltasDropped()
		}
	default:
		if s.opts.Metrics != nil {
			s.opts.Metrics.IncDeltasApplied()
		}
		s.refreshRoster(rebuildsSelection(d.Event))
	}
}

func (s *Session) onChannel(channel string, st realtime.State) {
	switch channel {
	case realtime.ChannelLive:
		s.live = st
		if st == realtime.Connected {
			s.startResync()
		}
	case realtime.ChannelSubmit:
		s.submit = st
	}
}

func rebuildsSelection(e engine.Event) bool {
	switch e.Type {
	case engine.EvtMatchStarted, engine.EvtInningsStarted, engine.EvtInningsCompleted, engine.EvtMatchCompleted:
		return true
	case engine.EvtBallRecorded:
		return e.Ball != nil && e.Ball.Wicket
	}
	return false
}

// refreshRoster keeps the phase-one setup and phase-two selection in line
// with the store. Local edits survive unless the committed roles moved
// underneath them or force is set.
func (s *Session) refreshRoster(force bool) {
	st := s.store.State()
	if st.Match.Status == cricket.StatusUpcoming || st.Match.Status == cricket.StatusUnscheduled {
		if s.setup == nil {
			setup, err := roster.NewSetupFor(st.Match)
			if err != nil {
				s.log.Warn("cannot select XI", zap.Error(err))
			}
			s.setup = setup
		}
	} else {
		s.setup = nil
	}

	if !force && s.sel != nil && s.selBase == st.Roles {
		return
	}
	sel, err := roster.SelectionFor(st)
	if err != nil {
		s.sel = nil
		return
	}
	s.sel = sel
	s.selBase = st.Roles
}

func (s *Session) selection() (*roster.Selection, error) {
	if !s.store.Seeded() {
		return nil, matchstate.ErrNotSeeded
	}
	if s.sel == nil {
		return nil, engine.ErrMatchNotLive
	}
	return s.sel, nil
}

// validate runs cmd against the local state so obvious rejections never
// leave the client.
func (s *Session) validate(cmd engine.Command) error {
	if !s.store.Seeded() {
		return matchstate.ErrNotSeeded
	}
	_, _, err := engine.Apply(s.store.State(), cmd)
	return err
}

func (s *Session) score(cmd engine.Command, reply chan<- error) {
	if s.opts.Publisher == nil {
		reply <- ErrReadOnly
		return
	}
	if err := s.validate(cmd); err != nil {
		reply <- err
		return
	}
	pub := s.opts.Publisher
	ctx := s.ctx
	go func() { reply <- pub.Publish(ctx, cmd) }()
}

func (s *Session) commitRoles(reply chan<- error) {
	sel, err := s.selection()
	if err != nil {
		reply <- err
		return
	}
	roles := sel.Roles()
	if err := s.validate(engine.Command{Type: engine.CmdSetRoles, Roles: &roles}); err != nil {
		reply <- err
		return
	}
	if s.opts.Fetcher == nil {
		reply <- ErrReadOnly
		return
	}
	f, ctx, id := s.opts.Fetcher, s.ctx, s.opts.MatchID
	go func() {
		_, err := f.UpdateRoles(ctx, id, roles)
		reply <- err
	}()
}

func (s *Session) broadcast() {
	if len(s.subs) == 0 {
		return
	}
	v := s.view()
	for id, ch := range s.subs {
		select {
		case ch <- v:
		default:
			close(ch)
			delete(s.subs, id)
		}
	}
}
