// Package room runs one goroutine per live match on the relay. It is the
// only writer of that match's state and the only source of its sequence
// numbers.
package room

import (
	"context"
	"time"

	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/logging"
	"github.com/DoyleJ11/cricket-live/internal/metrics"
	"github.com/DoyleJ11/cricket-live/internal/storage"
	"github.com/DoyleJ11/cricket-live/internal/types"
	"go.uber.org/zap"
)

type Msg interface{ isRoomMsg() }

// FromClient carries a scoring command. Reply, if set, must be buffered.
type FromClient struct {
	ClientID string
	Cmd      engine.Command
	Reply    chan Result
}

func (FromClient) isRoomMsg() {}

type Result struct {
	Seq int64 // last sequence number after the command
	Err error
}

// Join registers a subscriber. Deltas are written to Outbox until the
// subscriber leaves, falls behind, or the room shuts down; in the last two
// cases the room closes Outbox.
type Join struct {
	ClientID string
	Outbox   chan types.Delta
}

func (Join) isRoomMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoomMsg() {}

type GetSnapshot struct {
	Reply chan types.Snapshot
}

func (GetSnapshot) isRoomMsg() {}

// GetView is for tests: it reflects internal state without data races.
type GetView struct {
	Reply chan View
}

func (GetView) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type View struct {
	Seq        int64
	NumClients int
	State      engine.State
}

type Options struct {
	Repo        storage.Repository // nil skips persistence
	Logger      *zap.Logger
	Metrics     metrics.Metrics
	SaveTimeout time.Duration
}

type Room struct {
	id      string
	inbox   chan Msg
	state   engine.State
	seq     int64
	clients map[string]chan types.Delta
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, snap types.Snapshot, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = 2 * time.Second
	}

	r := &Room{
		id:      snap.MatchID,
		inbox:   make(chan Msg, 64),
		state:   snap.State,
		seq:     snap.Seq,
		clients: make(map[string]chan types.Delta),
		opts:    opts,
		log:     logging.OrNop(opts.Logger).With(zap.String("match_id", snap.MatchID)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go r.loop()
	return r
}

func (r *Room) ID() string { return r.id }

// Inbox is how the ws and http layers talk to the room.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room has stopped.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.ClientID] = msg.Outbox

			case Leave:
				delete(r.clients, msg.ClientID)

			case FromClient:
				err := r.handle(msg)
				if msg.Reply != nil {
					msg.Reply <- Result{Seq: r.seq, Err: err}
				}

			case GetSnapshot:
				msg.Reply <- r.snapshot()

			case GetView:
				msg.Reply <- View{Seq: r.seq, NumClients: len(r.clients), State: r.state.Clone()}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handle(msg FromClient) error {
	events, next, err := engine.Apply(r.state, msg.Cmd)
	if err != nil {
		r.log.Info("command rejected",
			zap.String("client_id", msg.ClientID),
			zap.String("command", string(msg.Cmd.Type)),
			zap.Error(err))
		if r.opts.Metrics != nil {
			r.opts.Metrics.IncCommandsRejected()
		}
		return err
	}

	r.state = next
	deltas := make([]types.Delta, len(events))
	for i, e := range events {
		r.seq++
		deltas[i] = types.Delta{MatchID: r.id, Seq: r.seq, Event: e}
	}
	if r.opts.Metrics != nil {
		r.opts.Metrics.IncCommandsApplied()
	}
	r.persist()
	for _, d := range deltas {
		r.broadcast(d)
	}
	return nil
}

// persist runs before broadcast: a snapshot read after any delta covers it.
func (r *Room) persist() {
	if r.opts.Repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.ctx, r.opts.SaveTimeout)
	defer cancel()
	if err := r.opts.Repo.SaveSnapshot(ctx, r.snapshot()); err != nil {
		r.log.Error("save snapshot", zap.Int64("seq", r.seq), zap.Error(err))
	}
}

func (r *Room) snapshot() types.Snapshot {
	return types.Snapshot{MatchID: r.id, Seq: r.seq, State: r.state.Clone()}
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch) // no more deltas
		delete(r.clients, id)
	}
	r.cancel()
}

func (r *Room) broadcast(d types.Delta) {
	for id, ch := range r.clients {
		select {
		case ch <- d:
			// ok
		default:
			// Subscriber is slow/full: drop it; it will resync from a snapshot.
			close(ch)
			delete(r.clients, id)
			r.log.Warn("dropped slow subscriber", zap.String("client_id", id))
			if r.opts.Metrics != nil {
				r.opts.Metrics.IncSlowClientsDropped()
			}
		}
	}
}
