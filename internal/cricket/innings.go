package cricket

import "errors"

// BallsPerOver is the number of legal deliveries in an over.
const BallsPerOver = 6

// Dismissal types the scorecard knows how to abbreviate. Anything else is
// carried through verbatim.
const (
	DismissalBowled    = "bowled"
	DismissalCaught    = "caught"
	DismissalLBW       = "lbw"
	DismissalStumped   = "stumped"
	DismissalRunOut    = "run out"
	DismissalHitWicket = "hit wicket"
)

var ErrRoleConflict = errors.New("player holds more than one role")

type Ball struct {
	Runs      int        `json:"runs"`
	Wicket    bool       `json:"wicket,omitempty"`
	NoBall    bool       `json:"noBall,omitempty"`
	Wide      bool       `json:"wide,omitempty"`
	Bye       bool       `json:"bye,omitempty"`
	LegBye    bool       `json:"legBye,omitempty"`
	Dismissal *Dismissal `json:"wicketDetails,omitempty"`
}

// Legal reports whether the delivery counts toward the six-ball over.
func (b Ball) Legal() bool { return !b.NoBall && !b.Wide }

// Extras is the penalty run for a wide or no-ball.
func (b Ball) Extras() int {
	if b.Wide || b.NoBall {
		return 1
	}
	return 0
}

// OffTheBat reports whether Runs are credited to the striker.
func (b Ball) OffTheBat() bool { return !b.Wide && !b.Bye && !b.LegBye }

// Conceded is what the delivery costs the bowler. Byes and leg byes are
// fielding extras and not charged.
func (b Ball) Conceded() int {
	if b.Bye || b.LegBye {
		return b.Extras()
	}
	return b.Runs + b.Extras()
}

type Dismissal struct {
	Type      string     `json:"dismissalType"`
	OutBatter PlayerID   `json:"batsmanId,omitempty"`
	Bowler    *PlayerRef `json:"bowlerId,omitempty"`
	Catcher   *PlayerRef `json:"catcherId,omitempty"`
	Fielder   *PlayerRef `json:"fielderId,omitempty"`
}

// CreditsBowler reports whether the wicket goes into the bowler's figures.
func (d Dismissal) CreditsBowler() bool {
	return d.Type != DismissalRunOut && d.Type != ""
}

type Roles struct {
	Striker    PlayerID `json:"striker"`
	NonStriker PlayerID `json:"nonStriker"`
	Bowler     PlayerID `json:"bowler"`
}

// Validate checks that no player holds two roles at once.
func (r Roles) Validate() error {
	if r.Striker != "" && (r.Striker == r.NonStriker || r.Striker == r.Bowler) {
		return ErrRoleConflict
	}
	if r.NonStriker != "" && r.NonStriker == r.Bowler {
		return ErrRoleConflict
	}
	return nil
}

func (r Roles) Has(id PlayerID) bool {
	return id != "" && (r.Striker == id || r.NonStriker == id || r.Bowler == id)
}

type BattingEntry struct {
	Player     PlayerID   `json:"playerId"`
	Name       string     `json:"name"`
	Runs       int        `json:"runs"`
	BallsFaced int        `json:"ballsFaced"`
	Fours      int        `json:"fours"`
	Sixes      int        `json:"sixes"`
	Dismissal  *Dismissal `json:"wicketDetails"`
}

type BowlingEntry struct {
	Player       PlayerID `json:"playerId"`
	Name         string   `json:"name"`
	BallsBowled  int      `json:"ballsBowled"`
	RunsConceded int      `json:"runsConceded"`
	Maidens      int      `json:"maidens"`
	Wickets      int      `json:"wicketsTaken"`
}

type Innings struct {
	Number         int            `json:"number"`
	BattingTeam    TeamID         `json:"battingTeam"`
	BowlingTeam    TeamID         `json:"bowlingTeam"`
	Score          int            `json:"score"`
	Wickets        int            `json:"wickets"`
	Extras         int            `json:"extras"`
	CompletedOvers int            `json:"completedOvers"`
	CurrentOver    []Ball         `json:"currentOverBalls"`
	Batting        []BattingEntry `json:"battingOrder"`
	Bowling        []BowlingEntry `json:"bowlingOrder"`
	Closed         bool           `json:"closed,omitempty"`
}

// BallsBowled is the legal delivery count for the whole innings.
func (in Innings) BallsBowled() int {
	n := in.CompletedOvers * BallsPerOver
	for _, b := range in.CurrentOver {
		if b.Legal() {
			n++
		}
	}
	return n
}

func (in *Innings) Batter(id PlayerID) *BattingEntry {
	for i := range in.Batting {
		if in.Batting[i].Player == id {
			return &in.Batting[i]
		}
	}
	return nil
}

func (in *Innings) Bowler(id PlayerID) *BowlingEntry {
	for i := range in.Bowling {
		if in.Bowling[i].Player == id {
			return &in.Bowling[i]
		}
	}
	return nil
}

// Clone returns a deep copy.
func (in Innings) Clone() Innings {
	out := in
	out.CurrentOver = append([]Ball(nil), in.CurrentOver...)
	out.Batting = append([]BattingEntry(nil), in.Batting...)
	out.Bowling = append([]BowlingEntry(nil), in.Bowling...)
	for i := range out.CurrentOver {
		if d := out.CurrentOver[i].Dismissal; d != nil {
			cp := *d
			out.CurrentOver[i].Dismissal = &cp
		}
	}
	for i := range out.Batting {
		if d := out.Batting[i].Dismissal; d != nil {
			cp := *d
			out.Batting[i].Dismissal = &cp
		}
	}
	return out
}
