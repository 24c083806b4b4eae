package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/metrics"
	"github.com/DoyleJ11/cricket-live/internal/storage"
	"github.com/DoyleJ11/cricket-live/internal/testutil"
	"github.com/DoyleJ11/cricket-live/internal/types"
)

// helper: receive one delta with a timeout so tests never hang
func recvDelta(t *testing.T, ch <-chan types.Delta, within time.Duration) types.Delta {
	t.Helper()
	select {
	case d, ok := <-ch:
		if !ok {
			t.Fatalf("subscriber outbox closed unexpectedly")
		}
		return d
	case <-time.After(within):
		t.Fatalf("timed out waiting for delta")
		return types.Delta{} // unreachable
	}
}

func recvNoDelta(t *testing.T, ch <-chan types.Delta, within time.Duration) {
	t.Helper()
	select {
	case d, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no delta within %v, but got: %+v", within, d)
	case <-time.After(within):
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func send(t *testing.T, r *Room, cmd engine.Command) Result {
	t.Helper()
	reply := make(chan Result, 1)
	r.Inbox() <- FromClient{ClientID: "scorer", Cmd: cmd, Reply: reply}
	select {
	case res := <-reply:
		return res
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for command result")
		return Result{}
	}
}

func newRoom(t *testing.T, opts Options) *Room {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	snap := types.Snapshot{MatchID: testutil.MatchID, State: engine.NewState(testutil.Match())}
	return New(ctx, snap, opts)
}

var start = engine.Command{Type: engine.CmdStartMatch, BattingFirst: testutil.Lions, PlayingXI: testutil.XI()}

func TestRoom_CommandBroadcastsNumberedDeltas(t *testing.T) {
	m := metrics.NewMock()
	r := newRoom(t, Options{Metrics: m})

	out := make(chan types.Delta, 8)
	r.Inbox() <- Join{ClientID: "viewer", Outbox: out}

	if res := send(t, r, start); res.Err != nil || res.Seq != 1 {
		t.Fatalf("start: want seq=1, got %+v", res)
	}
	d := recvDelta(t, out, 100*time.Millisecond)
	if d.Seq != 1 || d.Event.Type != engine.EvtMatchStarted || d.MatchID != testutil.MatchID {
		t.Fatalf("unexpected first delta: %+v", d)
	}

	roles := cricket.Roles{Striker: "l1", NonStriker: "l2", Bowler: "t11"}
	if res := send(t, r, engine.Command{Type: engine.CmdSetRoles, Roles: &roles}); res.Seq != 2 {
		t.Fatalf("roles: want seq=2, got %+v", res)
	}
	if d := recvDelta(t, out, 100*time.Millisecond); d.Seq != 2 {
		t.Fatalf("want seq=2, got %d", d.Seq)
	}
	if m.CommandsApplied() != 2 {
		t.Fatalf("want 2 applied commands, got %d", m.CommandsApplied())
	}
}

func TestRoom_OverBoundaryEmitsFollowUpDeltas(t *testing.T) {
	r := newRoom(t, Options{})
	out := make(chan types.Delta, 32)
	r.Inbox() <- Join{ClientID: "viewer", Outbox: out}

	send(t, r, start)
	roles := cricket.Roles{Striker: "l1", NonStriker: "l2", Bowler: "t11"}
	send(t, r, engine.Command{Type: engine.CmdSetRoles, Roles: &roles})
	dot := testutil.Dot
	var res Result
	for i := 0; i < 6; i++ {
		res = send(t, r, engine.Command{Type: engine.CmdRecordBall, Ball: &dot})
	}
	// 2 setup deltas, 6 balls, 1 over boundary
	if res.Seq != 9 {
		t.Fatalf("want seq=9, got %d", res.Seq)
	}

	var last types.Delta
	for i := 0; i < 9; i++ {
		last = recvDelta(t, out, 100*time.Millisecond)
		if last.Seq != int64(i+1) {
			t.Fatalf("deltas out of order: position %d has seq %d", i, last.Seq)
		}
	}
	if last.Event.Type != engine.EvtOverCompleted {
		t.Fatalf("want OverCompleted last, got %s", last.Event.Type)
	}
}

func TestRoom_RejectedCommandKeepsSeq(t *testing.T) {
	m := metrics.NewMock()
	r := newRoom(t, Options{Metrics: m})
	out := make(chan types.Delta, 4)
	r.Inbox() <- Join{ClientID: "viewer", Outbox: out}

	dot := testutil.Dot
	res := send(t, r, engine.Command{Type: engine.CmdRecordBall, Ball: &dot})
	if !errors.Is(res.Err, engine.ErrMatchNotLive) || res.Seq != 0 {
		t.Fatalf("want ErrMatchNotLive at seq 0, got %+v", res)
	}
	recvNoDelta(t, out, 50*time.Millisecond)
	if m.CommandsRejected() != 1 {
		t.Fatalf("want 1 rejected command, got %d", m.CommandsRejected())
	}
}

func TestRoom_DropSlowClient(t *testing.T) {
	m := metrics.NewMock()
	r := newRoom(t, Options{Metrics: m})

	out := make(chan types.Delta) // unbuffered and never read
	r.Inbox() <- Join{ClientID: "slow", Outbox: out}
	send(t, r, start)

	reply := make(chan View, 1)
	r.Inbox() <- GetView{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)
	if view.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}
	if _, ok := <-out; ok {
		t.Fatalf("expected outbox to be closed")
	}
	if m.SlowClientsDropped() != 1 {
		t.Fatalf("want 1 dropped client, got %d", m.SlowClientsDropped())
	}
}

func TestRoom_PersistsSnapshots(t *testing.T) {
	repo := storage.NewMemory()
	r := newRoom(t, Options{Repo: repo})
	send(t, r, start)

	snap, err := repo.LoadSnapshot(context.Background(), testutil.MatchID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Seq != 1 || snap.State.Match.Status != cricket.StatusLive {
		t.Fatalf("unexpected stored snapshot: seq=%d status=%s", snap.Seq, snap.State.Match.Status)
	}

	reply := make(chan types.Snapshot, 1)
	r.Inbox() <- GetSnapshot{Reply: reply}
	if got := <-reply; got.Seq != 1 {
		t.Fatalf("GetSnapshot: want seq=1, got %d", got.Seq)
	}
}

func TestRoom_ShutdownClosesOutboxes(t *testing.T) {
	r := newRoom(t, Options{})
	out := make(chan types.Delta, 1)
	r.Inbox() <- Join{ClientID: "viewer", Outbox: out}
	r.Inbox() <- Shutdown{}

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected closed outbox, got a delta")
		}
	case <-time.After(time.Second):
		t.Fatalf("outbox not closed on shutdown")
	}
	<-r.Done()
}
