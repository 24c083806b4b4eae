package cricket

import "time"

type MatchStatus string

const (
	StatusUnscheduled MatchStatus = "unscheduled"
	StatusUpcoming    MatchStatus = "upcoming"
	StatusLive        MatchStatus = "live"
	StatusCompleted   MatchStatus = "completed"
)

type Match struct {
	ID          string      `json:"_id"`
	TeamA       Team        `json:"team1"`
	TeamB       Team        `json:"team2"`
	TotalOvers  int         `json:"overs"`
	Venue       string      `json:"venue,omitempty"`
	ScheduledAt time.Time   `json:"matchDate,omitempty"`
	Status      MatchStatus `json:"status"`
	Result      string      `json:"result,omitempty"`
}

// Team returns whichever side has the given id.
func (m Match) Team(id TeamID) (Team, bool) {
	switch id {
	case m.TeamA.ID:
		return m.TeamA, true
	case m.TeamB.ID:
		return m.TeamB, true
	}
	return Team{}, false
}

// Opponent returns the id of the other side.
func (m Match) Opponent(id TeamID) TeamID {
	if id == m.TeamA.ID {
		return m.TeamB.ID
	}
	return m.TeamA.ID
}
