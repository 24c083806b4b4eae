package matchstate

import (
	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/stats"
)

// Projections are recomputed from the raw counters on every call.

type Summary struct {
	Team    cricket.TeamID `json:"team"`
	Name    string         `json:"name"`
	Score   int            `json:"score"`
	Wickets int            `json:"wickets"`
	Overs   string         `json:"overs"`
	RunRate string         `json:"runRate"`
	Batting bool           `json:"batting"`
	Target  int            `json:"target,omitempty"`
}

type OverSummary struct {
	Over       int    `json:"over"`
	LegalBalls int    `json:"legalBalls"`
	Ticker     string `json:"ticker"`
	Bowler     string `json:"bowler,omitempty"`
}

type BattingRow struct {
	Player     cricket.PlayerID `json:"playerId"`
	Name       string           `json:"name"`
	Runs       int              `json:"runs"`
	Balls      int              `json:"balls"`
	Fours      int              `json:"fours"`
	Sixes      int              `json:"sixes"`
	StrikeRate string           `json:"strikeRate"`
	Dismissal  string           `json:"dismissal"`
	OnStrike   bool             `json:"onStrike,omitempty"`
}

type BowlingRow struct {
	Player  cricket.PlayerID `json:"playerId"`
	Name    string           `json:"name"`
	Overs   string           `json:"overs"`
	Maidens int              `json:"maidens"`
	Runs    int              `json:"runs"`
	Wickets int              `json:"wickets"`
	Economy string           `json:"economy"`
}

// ScoreSummary is the headline line for one side: its most recent innings,
// or zeros if it hasn't batted yet.
func (s *Store) ScoreSummary(team cricket.TeamID) Summary {
	sum := Summary{Team: team, Overs: stats.BallsToOvers(0), RunRate: stats.RunRate(0, 0)}
	if t, ok := s.state.Match.Team(team); ok {
		sum.Name = t.Name
	}

	innings := s.state.Innings
	for i := len(innings) - 1; i >= 0; i-- {
		in := innings[i]
		if in.BattingTeam != team {
			continue
		}
		balls := in.BallsBowled()
		sum.Score = in.Score
		sum.Wickets = in.Wickets
		sum.Overs = stats.BallsToOvers(balls)
		sum.RunRate = stats.RunRate(in.Score, balls)
		sum.Batting = !in.Closed && i == len(innings)-1
		if in.Number == 2 && len(innings) > 0 {
			sum.Target = innings[0].Score + 1
		}
		break
	}
	return sum
}

// CurrentOverSummary is the "this over" ticker.
func (s *Store) CurrentOverSummary() OverSummary {
	in, ok := s.state.Current()
	if !ok {
		return OverSummary{}
	}
	out := OverSummary{
		Over:       in.CompletedOvers,
		LegalBalls: stats.LegalDeliveryCount(in.CurrentOver),
		Ticker:     stats.OverEventString(in.CurrentOver),
	}
	if b := in.Bowler(s.state.Roles.Bowler); b != nil {
		out.Bowler = b.Name
	}
	return out
}

// BattingCard lists the current innings' batters in order of appearance.
func (s *Store) BattingCard() []BattingRow {
	in, ok := s.state.Current()
	if !ok {
		return nil
	}
	rows := make([]BattingRow, 0, len(in.Batting))
	for _, b := range in.Batting {
		rows = append(rows, BattingRow{
			Player:     b.Player,
			Name:       b.Name,
			Runs:       b.Runs,
			Balls:      b.BallsFaced,
			Fours:      b.Fours,
			Sixes:      b.Sixes,
			StrikeRate: stats.StrikeRate(b.Runs, b.BallsFaced),
			Dismissal:  stats.DismissalText(b.Dismissal),
			OnStrike:   b.Player == s.state.Roles.Striker,
		})
	}
	return rows
}

// BowlingCard lists the current innings' bowlers in order of appearance.
func (s *Store) BowlingCard() []BowlingRow {
	in, ok := s.state.Current()
	if !ok {
		return nil
	}
	rows := make([]BowlingRow, 0, len(in.Bowling))
	for _, b := range in.Bowling {
		rows = append(rows, BowlingRow{
			Player:  b.Player,
			Name:    b.Name,
			Overs:   stats.BallsToOvers(b.BallsBowled),
			Maidens: b.Maidens,
			Runs:    b.RunsConceded,
			Wickets: b.Wickets,
			Economy: stats.Economy(b.RunsConceded, b.BallsBowled),
		})
	}
	return rows
}
