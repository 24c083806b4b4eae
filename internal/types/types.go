package types

import (
	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/engine"
)

// Snapshot is the authoritative read served by GET matches/matchstate/{id}.
// Seq is the sequence number of the last delta folded into State.
type Snapshot struct {
	MatchID string       `json:"matchId"`
	Seq     int64        `json:"seq"`
	State   engine.State `json:"state"`
}

// Delta is one sequence-numbered event on /topic/match/{id}.
type Delta struct {
	MatchID string       `json:"matchId"`
	Seq     int64        `json:"seq"`
	Event   engine.Event `json:"event"`
}

// RolesUpdate is the body of POST matches/{id}/players/update.
type RolesUpdate = cricket.Roles

type ErrorMessage struct {
	Error string `json:"error"`
}
