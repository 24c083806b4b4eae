package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/hub"
	"github.com/DoyleJ11/cricket-live/internal/room"
	"github.com/DoyleJ11/cricket-live/internal/storage"
	"github.com/DoyleJ11/cricket-live/internal/testutil"
	"github.com/DoyleJ11/cricket-live/internal/types"
	ptypes "github.com/DoyleJ11/cricket-live/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, room.Options{Repo: storage.NewMemory()})
	srv := httptest.NewServer(SetupRoutes(h, Options{}))
	t.Cleanup(srv.Close)
	return srv, h
}

func post(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func createMatch(t *testing.T, srv *httptest.Server, m cricket.Match) string {
	t.Helper()
	resp := post(t, srv.URL+ptypes.MatchesPath, m)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out struct {
		MatchID string `json:"matchId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.MatchID
}

func TestCreateMatch(t *testing.T) {
	srv, _ := newServer(t)

	assert.Equal(t, testutil.MatchID, createMatch(t, srv, testutil.Match()))

	resp := post(t, srv.URL+ptypes.MatchesPath, testutil.Match())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	m := testutil.Match()
	m.ID = ""
	code := createMatch(t, srv, m)
	assert.Len(t, code, 6)

	m.TeamB = m.TeamA
	resp = post(t, srv.URL+ptypes.MatchesPath, m)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetMatchState(t *testing.T) {
	srv, _ := newServer(t)
	id := createMatch(t, srv, testutil.Match())

	resp, err := http.Get(srv.URL + ptypes.SnapshotPath(id))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap types.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, id, snap.MatchID)
	assert.Equal(t, int64(0), snap.Seq)
	assert.Equal(t, cricket.StatusUpcoming, snap.State.Match.Status)
	assert.Len(t, snap.State.Match.TeamA.Roster, 13)

	missing, err := http.Get(srv.URL + ptypes.SnapshotPath("nope"))
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestUpdatePlayers(t *testing.T) {
	srv, h := newServer(t)
	id := createMatch(t, srv, testutil.Match())
	roles := cricket.Roles{Striker: "l1", NonStriker: "l2", Bowler: "t11"}

	// not started yet
	resp := post(t, srv.URL+ptypes.RolesPath(id), roles)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	rm, err := h.Lookup(context.Background(), id)
	require.NoError(t, err)
	reply := make(chan room.Result, 1)
	rm.Inbox() <- room.FromClient{Cmd: engine.Command{Type: engine.CmdStartMatch, BattingFirst: testutil.Lions, PlayingXI: testutil.XI()}, Reply: reply}
	require.NoError(t, (<-reply).Err)

	resp = post(t, srv.URL+ptypes.RolesPath(id), roles)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Seq int64 `json:"seq"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, int64(2), out.Seq)

	// a bowler from the batting side is not eligible
	resp = post(t, srv.URL+ptypes.RolesPath(id), cricket.Roles{Striker: "l1", NonStriker: "l2", Bowler: "l3"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
