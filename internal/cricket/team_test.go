package cricket

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func lions(t *testing.T) (Team, PendingPlayer) {
	t.Helper()
	team := Team{ID: "lions", Name: "Lions", Captain: "p1"}
	require.NoError(t, team.AddPlayer(RegisteredPlayer{ID: "p1", Name: "Asha", Role: "Batsman"}))
	require.NoError(t, team.AddPlayer(RegisteredPlayer{ID: "p2", Name: "Ben", Role: "Bowler"}))
	pending := NewPendingPlayer("Cara", "All-rounder", "555-0101")
	require.NoError(t, team.AddPlayer(pending))
	return team, pending
}

func TestTeam_AddAndRemove(t *testing.T) {
	team, pending := lions(t)

	assert.ErrorIs(t, team.AddPlayer(RegisteredPlayer{ID: "p1", Name: "Again"}), ErrDuplicatePlayer)
	assert.ErrorIs(t, team.AddPlayer(pending), ErrDuplicatePlayer)
	// a pending player never collides with a registered one
	require.NoError(t, team.AddPlayer(PendingPlayer{LocalID: "p1", Name: "Local"}))

	require.NoError(t, team.RemovePlayer("p1"))
	assert.Equal(t, PlayerID(""), team.Captain)
	assert.ErrorIs(t, team.RemovePlayer("p1"), ErrUnknownPlayer)

	_, ok := team.Registered("p2")
	assert.True(t, ok)
	_, ok = team.Registered("p1")
	assert.False(t, ok)
}

func TestTeam_ResolvePending(t *testing.T) {
	team, pending := lions(t)
	assert.NotEmpty(t, pending.LocalID)
	assert.Len(t, team.Pending(), 1)

	assert.ErrorIs(t, team.ResolvePending(pending.LocalID, "p2"), ErrDuplicatePlayer)
	assert.ErrorIs(t, team.ResolvePending("nobody", "p9"), ErrUnknownPlayer)

	require.NoError(t, team.ResolvePending(pending.LocalID, "p3"))
	assert.Empty(t, team.Pending())
	p, ok := team.Registered("p3")
	require.True(t, ok)
	assert.Equal(t, "Cara", p.Name)
	assert.Equal(t, "555-0101", p.Phone)
	// roster order is kept
	assert.Equal(t, "Cara", team.Roster[2].DisplayName())
}

func TestTeam_WireForms(t *testing.T) {
	team, pending := lions(t)

	b, err := json.Marshal(team)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"teamName":"Lions"`)
	assert.Contains(t, string(b), `"isManual":true`)

	var fromJSON Team
	require.NoError(t, json.Unmarshal(b, &fromJSON))
	assert.Equal(t, team, fromJSON)

	mb, err := msgpack.Marshal(team)
	require.NoError(t, err)
	var fromMsgpack Team
	require.NoError(t, msgpack.Unmarshal(mb, &fromMsgpack))
	assert.Equal(t, team, fromMsgpack)
	assert.Equal(t, []PendingPlayer{pending}, fromMsgpack.Pending())
}

func TestBall(t *testing.T) {
	tests := []struct {
		name     string
		ball     Ball
		legal    bool
		conceded int
	}{
		{"dot", Ball{}, true, 0},
		{"four", Ball{Runs: 4}, true, 4},
		{"wide", Ball{Wide: true}, false, 1},
		{"no-ball four", Ball{NoBall: true, Runs: 4}, false, 5},
		{"byes", Ball{Bye: true, Runs: 2}, true, 0},
		{"leg bye off a no-ball", Ball{NoBall: true, LegBye: true, Runs: 1}, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.legal, tt.ball.Legal())
			assert.Equal(t, tt.conceded, tt.ball.Conceded())
		})
	}
}

func TestRoles_Validate(t *testing.T) {
	assert.NoError(t, Roles{Striker: "a", NonStriker: "b", Bowler: "c"}.Validate())
	assert.NoError(t, Roles{Striker: "a"}.Validate())
	assert.ErrorIs(t, Roles{Striker: "a", NonStriker: "a"}.Validate(), ErrRoleConflict)
	assert.ErrorIs(t, Roles{NonStriker: "b", Bowler: "b"}.Validate(), ErrRoleConflict)
	assert.True(t, Roles{Bowler: "c"}.Has("c"))
	assert.False(t, Roles{}.Has(""))
}

func TestMatch_TeamAndOpponent(t *testing.T) {
	m := Match{TeamA: Team{ID: "a"}, TeamB: Team{ID: "b"}}
	_, ok := m.Team("b")
	assert.True(t, ok)
	_, ok = m.Team("c")
	assert.False(t, ok)
	assert.Equal(t, TeamID("b"), m.Opponent("a"))
	assert.Equal(t, TeamID("a"), m.Opponent("b"))
}

func TestTeam_EditsLeaveCopiesAlone(t *testing.T) {
	team, pending := lions(t)
	team.Roster = append(make([]Player, 0, 8), team.Roster...) // spare capacity
	before := slices.Clone(team.Roster)

	removed := team
	require.NoError(t, removed.RemovePlayer("p1"))
	assert.Equal(t, before, team.Roster)

	resolved := team
	require.NoError(t, resolved.ResolvePending(pending.LocalID, "p3"))
	assert.Equal(t, before, team.Roster)
	assert.Len(t, team.Pending(), 1)

	a, b := team, team
	require.NoError(t, a.AddPlayer(RegisteredPlayer{ID: "p4", Name: "Dev"}))
	require.NoError(t, b.AddPlayer(RegisteredPlayer{ID: "p5", Name: "Eli"}))
	_, ok := a.Registered("p5")
	assert.False(t, ok)
	_, ok = a.Registered("p4")
	assert.True(t, ok)
	assert.Equal(t, before, team.Roster)
}
