package engine

import (
	"fmt"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
)

func NewState(m cricket.Match) State {
	if m.Status == "" {
		m.Status = cricket.StatusUpcoming
	}
	return State{
		Match:     m,
		PlayingXI: map[cricket.TeamID][]cricket.PlayerID{},
		Innings:   []cricket.Innings{},
	}
}

// Clone deep-copies everything the reducer mutates. Team rosters are
// shared; the engine never writes to them.
func (s State) Clone() State {
	out := s
	out.PlayingXI = cloneXI(s.PlayingXI)
	if s.Innings != nil {
		out.Innings = make([]cricket.Innings, len(s.Innings))
		for i, in := range s.Innings {
			out.Innings[i] = in.Clone()
		}
	}
	return out
}

// Current returns a copy of the innings in progress (or the last one played).
func (s State) Current() (cricket.Innings, bool) {
	if len(s.Innings) == 0 {
		return cricket.Innings{}, false
	}
	return s.Innings[len(s.Innings)-1].Clone(), true
}

func cloneXI(xi map[cricket.TeamID][]cricket.PlayerID) map[cricket.TeamID][]cricket.PlayerID {
	if xi == nil {
		return nil
	}
	out := make(map[cricket.TeamID][]cricket.PlayerID, len(xi))
	for team, ids := range xi {
		out[team] = append([]cricket.PlayerID(nil), ids...)
	}
	return out
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func allOutWickets(s State, batting cricket.TeamID) int {
	if xi := s.PlayingXI[batting]; len(xi) > 1 {
		return len(xi) - 1
	}
	return XISize - 1
}

// ResultText describes the outcome once both innings are closed.
func ResultText(s State) string {
	if len(s.Innings) < 2 {
		return ""
	}
	first, second := s.Innings[0], s.Innings[1]
	name := func(id cricket.TeamID) string {
		if t, ok := s.Match.Team(id); ok && t.Name != "" {
			return t.Name
		}
		return string(id)
	}
	switch {
	case second.Score > first.Score:
		return fmt.Sprintf("%s won by %d wickets", name(second.BattingTeam), allOutWickets(s, second.BattingTeam)-second.Wickets)
	case first.Score > second.Score:
		return fmt.Sprintf("%s won by %d runs", name(first.BattingTeam), first.Score-second.Score)
	default:
		return "Match tied"
	}
}

// fielderRef fills in the name of a fielder given only by id.
func fielderRef(m cricket.Match, team cricket.TeamID, r *cricket.PlayerRef) *cricket.PlayerRef {
	if r == nil || r.ID == "" || r.Name != "" {
		return r
	}
	ref := *r
	if t, ok := m.Team(team); ok {
		if p, ok := t.Registered(r.ID); ok {
			ref.Name = p.Name
		}
	}
	return &ref
}
