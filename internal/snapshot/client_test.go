package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/metrics"
	"github.com/DoyleJ11/cricket-live/internal/testutil"
	itypes "github.com/DoyleJ11/cricket-live/internal/types"
	"github.com/DoyleJ11/cricket-live/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotBody(t *testing.T, seq int64) []byte {
	t.Helper()
	b, err := json.Marshal(itypes.Snapshot{MatchID: testutil.MatchID, Seq: seq, State: engine.NewState(testutil.Match())})
	require.NoError(t, err)
	return b
}

func newClient(url string, m metrics.Metrics) *Client {
	return New(Options{BaseURL: url + "/", MaxRetries: 3, InitialInterval: time.Millisecond, Metrics: m})
}

func TestFetchSnapshot(t *testing.T) {
	body := snapshotBody(t, 7)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, types.SnapshotPath(testutil.MatchID), r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	m := metrics.NewMock()
	c := New(Options{BaseURL: srv.URL, Token: "secret", Metrics: m})
	snap, err := c.FetchSnapshot(context.Background(), testutil.MatchID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.Seq)
	assert.Equal(t, "Lions", snap.State.Match.TeamA.Name)
	assert.Len(t, snap.State.Match.TeamB.Roster, 13)
	assert.Equal(t, 1, m.SnapshotFetches())
}

func TestFetchSnapshot_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	body := snapshotBody(t, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	snap, err := newClient(srv.URL, nil).FetchSnapshot(context.Background(), testutil.MatchID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Seq)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchSnapshot_NotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(itypes.ErrorMessage{Error: "room not found"})
	}))
	defer srv.Close()

	m := metrics.NewMock()
	_, err := newClient(srv.URL, m).FetchSnapshot(context.Background(), "nope")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "room not found", se.Message)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, m.SnapshotFailures())
}

func TestFetchSnapshot_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, nil).FetchSnapshot(context.Background(), testutil.MatchID)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(4), calls.Load())
}

func TestUpdateRoles(t *testing.T) {
	roles := cricket.Roles{Striker: "l1", NonStriker: "l2", Bowler: "t11"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, types.RolesPath(testutil.MatchID), r.URL.Path)
		var got itypes.RolesUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, roles, cricket.Roles(got))
		_, _ = w.Write([]byte(`{"seq":5}`))
	}))
	defer srv.Close()

	seq, err := newClient(srv.URL, nil).UpdateRoles(context.Background(), testutil.MatchID, roles)
	require.NoError(t, err)
	assert.Equal(t, int64(5), seq)
}

func TestUpdateRoles_NotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, nil).UpdateRoles(context.Background(), testutil.MatchID, cricket.Roles{})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, int32(1), calls.Load())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &StatusError{StatusCode: 500}, true},
		{"throttled", &StatusError{StatusCode: 429}, true},
		{"bad request", &StatusError{StatusCode: 400}, false},
		{"conflict", &StatusError{StatusCode: 409}, false},
		{"transport", errors.New("connection refused"), true},
		{"cancelled", context.Canceled, false},
		{"decode", &decodeError{err: errors.New("eof")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
