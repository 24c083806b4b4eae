package hub

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/cricket-live/internal/room"
	"github.com/DoyleJ11/cricket-live/internal/storage"
	"github.com/DoyleJ11/cricket-live/internal/types"
)

var ErrRoomNotFound = errors.New("match not found")
var ErrRoomExists = errors.New("match already exists")

type HubMsg interface{ isHubMsg() }

// EnsureRoom returns the running room for Snapshot.MatchID, starting one
// from Snapshot if there is none.
type EnsureRoom struct {
	Snapshot types.Snapshot
	Reply    chan *room.Room
}

type GetRoom struct {
	MatchID string
	Reply   chan *room.Room
}

type RemoveRoom struct {
	MatchID string
}

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	opts   room.Options
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, opts room.Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				id := msg.Snapshot.MatchID
				if r := h.rooms[id]; r != nil {
					msg.Reply <- r
					break
				}
				r := room.New(h.ctx, msg.Snapshot, h.opts)
				h.rooms[id] = r
				msg.Reply <- r

			case GetRoom:
				msg.Reply <- h.rooms[msg.MatchID] // May be nil

			case RemoveRoom:
				if r := h.rooms[msg.MatchID]; r != nil {
					r.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.MatchID)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, r := range h.rooms {
		select {
		case r.Inbox() <- room.Shutdown{}:
		default:
			// inbox full; the cancelled context stops it anyway
		}
	}
	clear(h.rooms)
	h.cancel()
}

func (h *Hub) ask(ctx context.Context, msg HubMsg, reply chan *room.Room) (*room.Room, error) {
	select {
	case h.inbox <- msg:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, context.Canceled
	}
	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Lookup finds a running room, reviving it from the repository after a
// relay restart.
func (h *Hub) Lookup(ctx context.Context, matchID string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	r, err := h.ask(ctx, GetRoom{MatchID: matchID, Reply: reply}, reply)
	if err != nil || r != nil {
		return r, err
	}
	if h.opts.Repo == nil {
		return nil, ErrRoomNotFound
	}

	snap, err := h.opts.Repo.LoadSnapshot(ctx, matchID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", matchID, err)
	}
	return h.ask(ctx, EnsureRoom{Snapshot: snap, Reply: reply}, reply)
}

// Create starts a room for a new match and stores its first snapshot.
func (h *Hub) Create(ctx context.Context, snap types.Snapshot) (*room.Room, error) {
	existing, err := h.Lookup(ctx, snap.MatchID)
	switch {
	case err == nil && existing != nil:
		return nil, ErrRoomExists
	case err != nil && !errors.Is(err, ErrRoomNotFound):
		return nil, err
	}

	if h.opts.Repo != nil {
		if err := h.opts.Repo.SaveSnapshot(ctx, snap); err != nil {
			return nil, fmt.Errorf("save %s: %w", snap.MatchID, err)
		}
	}
	reply := make(chan *room.Room, 1)
	return h.ask(ctx, EnsureRoom{Snapshot: snap, Reply: reply}, reply)
}
