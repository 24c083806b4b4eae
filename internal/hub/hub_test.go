package hub

import (
	"context"
	"errors"
	"testing"

	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/room"
	"github.com/DoyleJ11/cricket-live/internal/storage"
	"github.com/DoyleJ11/cricket-live/internal/testutil"
	"github.com/DoyleJ11/cricket-live/internal/types"
)

func snapshot(seq int64) types.Snapshot {
	return types.Snapshot{MatchID: testutil.MatchID, Seq: seq, State: engine.NewState(testutil.Match())}
}

func TestHub_Ensure_Get_SamePointer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, room.Options{})
	reply := make(chan *room.Room, 1)

	h.Inbox() <- EnsureRoom{Snapshot: snapshot(0), Reply: reply}
	r1 := <-reply

	h.Inbox() <- GetRoom{MatchID: testutil.MatchID, Reply: reply}
	r2 := <-reply

	if r1 == nil || r2 == nil || r1 != r2 {
		t.Fatalf("expected same room pointer")
	}
}

func TestHub_CreateTwiceConflicts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, room.Options{Repo: storage.NewMemory()})

	if _, err := h.Create(ctx, snapshot(0)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.Create(ctx, snapshot(0)); !errors.Is(err, ErrRoomExists) {
		t.Fatalf("want ErrRoomExists, got %v", err)
	}
}

func TestHub_LookupRevivesFromRepository(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := storage.NewMemory()
	if err := repo.SaveSnapshot(ctx, snapshot(7)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	h := NewHub(ctx, room.Options{Repo: repo})

	r, err := h.Lookup(ctx, testutil.MatchID)
	if err != nil || r == nil {
		t.Fatalf("lookup: room=%v err=%v", r, err)
	}
	reply := make(chan types.Snapshot, 1)
	r.Inbox() <- room.GetSnapshot{Reply: reply}
	if got := <-reply; got.Seq != 7 {
		t.Fatalf("revived room should continue at seq 7, got %d", got.Seq)
	}

	if _, err := h.Lookup(ctx, "nope"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("want ErrRoomNotFound, got %v", err)
	}
}

func TestHub_RemoveRoomStopsIt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, room.Options{})

	r, err := h.Create(ctx, snapshot(0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	h.Inbox() <- RemoveRoom{MatchID: testutil.MatchID}
	<-r.Done()

	if _, err := h.Lookup(ctx, testutil.MatchID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("want ErrRoomNotFound after removal, got %v", err)
	}
}
