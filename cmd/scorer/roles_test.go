package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/roster"
	"github.com/DoyleJ11/cricket-live/internal/session"
	"github.com/DoyleJ11/cricket-live/internal/testutil"
	itypes "github.com/DoyleJ11/cricket-live/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// liveMatch serves a snapshot with l1 and l2 batting and t11 bowling, and
// records every roles update it is sent.
type liveMatch struct {
	snap itypes.Snapshot

	mu      sync.Mutex
	updates []cricket.Roles
}

func newLiveMatch(t *testing.T) *liveMatch {
	t.Helper()
	st := engine.NewState(testutil.Match())
	var seq int64
	for _, cmd := range []engine.Command{
		{Type: engine.CmdStartMatch, BattingFirst: testutil.Lions, PlayingXI: testutil.XI()},
		{Type: engine.CmdSetRoles, Roles: &cricket.Roles{Striker: "l1", NonStriker: "l2", Bowler: "t11"}},
	} {
		events, next, err := engine.Apply(st, cmd)
		require.NoError(t, err)
		seq += int64(len(events))
		st = next
	}
	return &liveMatch{snap: itypes.Snapshot{MatchID: testutil.MatchID, Seq: seq, State: st}}
}

func (m *liveMatch) FetchSnapshot(ctx context.Context, matchID string) (itypes.Snapshot, error) {
	return m.snap, nil
}

func (m *liveMatch) UpdateRoles(ctx context.Context, matchID string, roles cricket.Roles) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, roles)
	return m.snap.Seq + 1, nil
}

func (m *liveMatch) Updates() []cricket.Roles {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]cricket.Roles(nil), m.updates...)
}

func liveSession(t *testing.T, m *liveMatch) *session.Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sess := session.New(ctx, session.Options{MatchID: testutil.MatchID, Fetcher: m, ResyncRetry: time.Hour})

	ctx, done := context.WithTimeout(ctx, 2*time.Second)
	defer done()
	_, err := firstSeeded(ctx, sess)
	require.NoError(t, err)
	return sess
}

func draft(t *testing.T, sess *session.Session) session.View {
	t.Helper()
	reply := make(chan session.View, 1)
	sess.Inbox() <- session.GetView{Reply: reply}
	return <-reply
}

func TestSetRoles_BowlerChangeNeedsConfirm(t *testing.T) {
	m := newLiveMatch(t)
	sess := liveSession(t, m)

	err := setRoles(context.Background(), sess, cricket.Roles{Striker: "l1", NonStriker: "l2", Bowler: "t10"}, false)
	require.ErrorIs(t, err, roster.ErrConfirmationRequired)
	assert.Empty(t, m.Updates())

	v := draft(t, sess)
	assert.Equal(t, cricket.PlayerID("t11"), v.Draft.Bowler)
	assert.Empty(t, v.PendingBowler)
}

func TestSetRoles_ConfirmedBowlerChange(t *testing.T) {
	m := newLiveMatch(t)
	sess := liveSession(t, m)

	want := cricket.Roles{Striker: "l1", NonStriker: "l2", Bowler: "t10"}
	require.NoError(t, setRoles(context.Background(), sess, want, true))
	assert.Equal(t, []cricket.Roles{want}, m.Updates())
}

func TestSetRoles_SwapsBatters(t *testing.T) {
	m := newLiveMatch(t)
	sess := liveSession(t, m)

	want := cricket.Roles{Striker: "l2", NonStriker: "l1", Bowler: "t11"}
	require.NoError(t, setRoles(context.Background(), sess, want, false))
	assert.Equal(t, []cricket.Roles{want}, m.Updates())
}

func TestSetRoles_RejectedByRosterRules(t *testing.T) {
	m := newLiveMatch(t)
	sess := liveSession(t, m)
	ctx := context.Background()

	// l3 is on the batting side and cannot bowl
	err := setRoles(ctx, sess, cricket.Roles{Striker: "l1", NonStriker: "l2", Bowler: "l3"}, true)
	assert.ErrorIs(t, err, roster.ErrNotEligible)

	// l12 is outside the playing XI
	err = setRoles(ctx, sess, cricket.Roles{Striker: "l12", NonStriker: "l2", Bowler: "t11"}, false)
	assert.ErrorIs(t, err, roster.ErrNotEligible)

	err = setRoles(ctx, sess, cricket.Roles{Striker: "l1", NonStriker: "l1", Bowler: "t11"}, false)
	assert.ErrorIs(t, err, cricket.ErrRoleConflict)

	assert.Empty(t, m.Updates())
}
