package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/hub"
	"github.com/DoyleJ11/cricket-live/internal/room"
	"github.com/DoyleJ11/cricket-live/internal/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorMessage{Error: msg})
}

// CreateMatch registers a match with the relay. The body is a match
// document; an empty _id gets a generated code.
func CreateMatch(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m cricket.Match
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if m.TeamA.ID == "" || m.TeamB.ID == "" || m.TeamA.ID == m.TeamB.ID {
			writeError(w, http.StatusBadRequest, "two distinct teams required")
			return
		}

		generated := m.ID == ""
		for attempt := 0; ; attempt++ {
			if generated {
				code, err := GenerateCode()
				if err != nil {
					writeError(w, http.StatusInternalServerError, "failed to generate code")
					return
				}
				m.ID = code
			}

			snap := types.Snapshot{MatchID: m.ID, State: engine.NewState(m)}
			_, err := h.Create(r.Context(), snap)
			if err == nil {
				break
			}
			if errors.Is(err, hub.ErrRoomExists) {
				if generated && attempt < 5 {
					log.Debug("collision on match code, regenerating", zap.String("code", m.ID))
					continue
				}
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			log.Error("create match", zap.String("match_id", m.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create match")
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			MatchID string `json:"matchId"`
		}{MatchID: m.ID})
	}
}

// lookup resolves the {matchID} URL parameter, writing the error response
// itself when it fails.
func lookup(w http.ResponseWriter, r *http.Request, h *hub.Hub) (*room.Room, bool) {
	rm, err := h.Lookup(r.Context(), chi.URLParam(r, "matchID"))
	switch {
	case errors.Is(err, hub.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	case err != nil:
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return nil, false
	}
	return rm, true
}

func GetMatchState(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, ok := lookup(w, r, h)
		if !ok {
			return
		}
		reply := make(chan types.Snapshot, 1)
		if !deliver(r.Context(), rm, room.GetSnapshot{Reply: reply}) {
			writeError(w, http.StatusServiceUnavailable, "match closed")
			return
		}
		select {
		case snap := <-reply:
			writeJSON(w, http.StatusOK, snap)
		case <-r.Context().Done():
		}
	}
}

// UpdatePlayers sets striker, non-striker and bowler in one step.
func UpdatePlayers(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var roles types.RolesUpdate
		if err := json.NewDecoder(r.Body).Decode(&roles); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		rm, ok := lookup(w, r, h)
		if !ok {
			return
		}

		reply := make(chan room.Result, 1)
		cmd := engine.Command{Type: engine.CmdSetRoles, Roles: &roles}
		if !deliver(r.Context(), rm, room.FromClient{ClientID: "rest:" + r.RemoteAddr, Cmd: cmd, Reply: reply}) {
			writeError(w, http.StatusServiceUnavailable, "match closed")
			return
		}

		var res room.Result
		select {
		case res = <-reply:
		case <-r.Context().Done():
			return
		}
		if res.Err != nil {
			writeError(w, statusFor(res.Err), res.Err.Error())
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Seq int64 `json:"seq"`
		}{Seq: res.Seq})
	}
}

func deliver(ctx context.Context, rm *room.Room, msg room.Msg) bool {
	select {
	case rm.Inbox() <- msg:
		return true
	case <-rm.Done():
		return false
	case <-ctx.Done():
		return false
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrMatchNotLive), errors.Is(err, engine.ErrInningsClosed):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNotEligible), errors.Is(err, cricket.ErrRoleConflict),
		errors.Is(err, engine.ErrInvalidCommand):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
