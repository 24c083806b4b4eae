package roster

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSetup(t *testing.T) *Setup {
	t.Helper()
	s, err := NewSetupFor(testutil.Match())
	require.NoError(t, err)
	return s
}

func pick(t *testing.T, s *Setup, team cricket.TeamID, prefix string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, s.ToggleXI(team, cricket.PlayerID(fmt.Sprintf("%s%d", prefix, i))))
	}
}

func TestNewSetup_DuplicateTeam(t *testing.T) {
	lions := testutil.Team(testutil.Lions, "Lions", "l", 11)
	_, err := NewSetup(lions, lions)
	assert.ErrorIs(t, err, ErrDuplicateTeam)
}

func TestToggleXI(t *testing.T) {
	t.Run("toggle adds then removes", func(t *testing.T) {
		s := newSetup(t)
		require.NoError(t, s.ToggleXI(testutil.Lions, "l1"))
		assert.Equal(t, []cricket.PlayerID{"l1"}, s.Selected(testutil.Lions))
		require.NoError(t, s.ToggleXI(testutil.Lions, "l1"))
		assert.Empty(t, s.Selected(testutil.Lions))
	})

	t.Run("twelfth pick is refused", func(t *testing.T) {
		s := newSetup(t)
		pick(t, s, testutil.Lions, "l", 11)
		err := s.ToggleXI(testutil.Lions, "l12")
		assert.ErrorIs(t, err, ErrLimitReached)
		assert.Len(t, s.Selected(testutil.Lions), 11)
		assert.NotContains(t, s.Selected(testutil.Lions), cricket.PlayerID("l12"))
	})

	t.Run("player from the other side", func(t *testing.T) {
		s := newSetup(t)
		assert.ErrorIs(t, s.ToggleXI(testutil.Lions, "t1"), ErrUnknownPlayer)
	})

	t.Run("pending players can't be picked until resolved", func(t *testing.T) {
		m := testutil.Match()
		pending := cricket.NewPendingPlayer("Walk-in", "Bowler", "")
		require.NoError(t, m.TeamA.AddPlayer(pending))

		s, err := NewSetupFor(m)
		require.NoError(t, err)
		assert.ErrorIs(t, s.ToggleXI(testutil.Lions, cricket.PlayerID(pending.LocalID)), ErrUnknownPlayer)

		require.NoError(t, m.TeamA.ResolvePending(pending.LocalID, "l99"))
		s, err = NewSetupFor(m)
		require.NoError(t, err)
		assert.NoError(t, s.ToggleXI(testutil.Lions, "l99"))
	})

	t.Run("unknown team", func(t *testing.T) {
		s := newSetup(t)
		assert.ErrorIs(t, s.ToggleXI("eagles", "l1"), ErrUnknownTeam)
	})
}

func TestPlayingXI_BlockedUntilBothComplete(t *testing.T) {
	s := newSetup(t)
	pick(t, s, testutil.Lions, "l", 11)
	pick(t, s, testutil.Tigers, "t", 10)

	assert.False(t, s.Ready())
	_, err := s.PlayingXI()
	assert.ErrorIs(t, err, ErrIncompleteXI)
	_, err = s.StartCommand(testutil.Lions)
	assert.ErrorIs(t, err, ErrIncompleteXI)

	require.NoError(t, s.ToggleXI(testutil.Tigers, "t11"))
	assert.True(t, s.Ready())

	cmd, err := s.StartCommand(testutil.Tigers)
	require.NoError(t, err)
	assert.Equal(t, engine.CmdStartMatch, cmd.Type)
	assert.Equal(t, testutil.XI(), cmd.PlayingXI)

	// the engine accepts what the setup produced
	_, st, err := engine.Apply(engine.NewState(testutil.Match()), cmd)
	require.NoError(t, err)
	assert.Equal(t, cricket.StatusLive, st.Match.Status)
}

func TestXIInvariant_RandomToggles(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := newSetup(t)
	teams := []struct {
		id     cricket.TeamID
		prefix string
	}{{testutil.Lions, "l"}, {testutil.Tigers, "t"}}

	for i := 0; i < 2000; i++ {
		team := teams[rng.Intn(2)]
		id := cricket.PlayerID(fmt.Sprintf("%s%d", team.prefix, rng.Intn(13)+1))
		_ = s.ToggleXI(team.id, id)

		for _, tm := range teams {
			sel := s.Selected(tm.id)
			require.LessOrEqual(t, len(sel), engine.XISize)
			seen := map[cricket.PlayerID]bool{}
			for _, p := range sel {
				require.False(t, seen[p], "duplicate %s in XI", p)
				seen[p] = true
			}
		}
		_, err := s.PlayingXI()
		require.Equal(t, s.Ready(), err == nil)
	}
}
