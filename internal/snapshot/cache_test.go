package snapshot

import (
	"testing"

	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/testutil"
	itypes "github.com/DoyleJ11/cricket-live/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCache(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	_, err = c.Load(testutil.MatchID)
	assert.ErrorIs(t, err, ErrNotCached)

	events, st, err := engine.Apply(engine.NewState(testutil.Match()), engine.Command{
		Type: engine.CmdStartMatch, BattingFirst: testutil.Lions, PlayingXI: testutil.XI(),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, c.Save(itypes.Snapshot{MatchID: testutil.MatchID, Seq: 1, State: st}))
	got, err := c.Load(testutil.MatchID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Seq)
	assert.Equal(t, st.PlayingXI, got.State.PlayingXI)
	assert.Len(t, got.State.Match.TeamA.Roster, 13)

	// overwrite keeps only the latest
	require.NoError(t, c.Save(itypes.Snapshot{MatchID: testutil.MatchID, Seq: 4, State: st}))
	got, err = c.Load(testutil.MatchID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Seq)
}

func TestFileCache_IDsStayInsideDir(t *testing.T) {
	assert.Equal(t, "___etc_passwd", safeName("../etc/passwd"))

	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, c.Save(itypes.Snapshot{MatchID: "a/b", State: engine.NewState(testutil.Match())}))

	// "a_b" maps to the same file but is a different match
	_, err = c.Load("a_b")
	assert.ErrorIs(t, err, ErrNotCached)
	_, err = c.Load("a/b")
	assert.NoError(t, err)
}
