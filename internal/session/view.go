package session

import (
	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/matchstate"
	"github.com/DoyleJ11/cricket-live/internal/realtime"
)

// View is everything a screen needs, already formatted.
type View struct {
	MatchID string                  `json:"matchId"`
	Seq     int64                   `json:"seq"`
	Seeded  bool                    `json:"seeded"`
	Status  cricket.MatchStatus     `json:"status,omitempty"`
	Result  string                  `json:"result,omitempty"`
	TeamA   matchstate.Summary      `json:"teamA"`
	TeamB   matchstate.Summary      `json:"teamB"`
	Over    matchstate.OverSummary  `json:"over"`
	Batting []matchstate.BattingRow `json:"batting,omitempty"`
	Bowling []matchstate.BowlingRow `json:"bowling,omitempty"`

	Roles         cricket.Roles                          `json:"roles"`
	Draft         cricket.Roles                          `json:"draft"`
	PendingBowler cricket.PlayerID                       `json:"pendingBowler,omitempty"`
	SelectedXI    map[cricket.TeamID][]cricket.PlayerID `json:"selectedXI,omitempty"`
	XIReady       bool                                   `json:"xiReady"`

	Live      realtime.State `json:"live"`
	Submit    realtime.State `json:"submit"`
	Resyncing bool           `json:"resyncing"`
	LastError string         `json:"lastError,omitempty"`
}

func (s *Session) view() View {
	v := View{
		MatchID:   s.opts.MatchID,
		Seq:       s.store.Seq(),
		Seeded:    s.store.Seeded(),
		Live:      s.live,
		Submit:    s.submit,
		Resyncing: s.resyncing,
		LastError: s.lastErr,
	}
	if !v.Seeded {
		return v
	}

	st := s.store.State()
	v.Status = st.Match.Status
	v.Result = st.Match.Result
	v.TeamA = s.store.ScoreSummary(st.Match.TeamA.ID)
	v.TeamB = s.store.ScoreSummary(st.Match.TeamB.ID)
	v.Over = s.store.CurrentOverSummary()
	v.Batting = s.store.BattingCard()
	v.Bowling = s.store.BowlingCard()
	v.Roles = st.Roles

	if s.sel != nil {
		v.Draft = s.sel.Roles()
		v.PendingBowler = s.sel.Pending()
	}
	if s.setup != nil {
		v.SelectedXI = map[cricket.TeamID][]cricket.PlayerID{
			st.Match.TeamA.ID: s.setup.Selected(st.Match.TeamA.ID),
			st.Match.TeamB.ID: s.setup.Selected(st.Match.TeamB.ID),
		}
		v.XIReady = s.setup.Ready()
	}
	return v
}
