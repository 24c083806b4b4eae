package engine

import (
	"errors"
	"slices"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/stats"
)

var ErrMatchNotLive = errors.New("match is not live")
var ErrMatchAlreadyStarted = errors.New("match already started")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrUnsupportedEvent = errors.New("unsupported event")
var ErrInvalidCommand = errors.New("invalid command")
var ErrInvalidBall = errors.New("invalid delivery")
var ErrInvalidXI = errors.New("invalid playing XI")
var ErrRolesIncomplete = errors.New("striker and bowler must be set")
var ErrNotEligible = errors.New("player not eligible for role")
var ErrOverComplete = errors.New("over already has six legal deliveries")
var ErrOverIncomplete = errors.New("over does not have six legal deliveries")
var ErrInningsClosed = errors.New("innings closed")
var ErrInningsOpen = errors.New("innings still in progress")

// XISize is the number of players each side fields.
const XISize = 11

type State struct {
	Match     cricket.Match                          `json:"match"`
	PlayingXI map[cricket.TeamID][]cricket.PlayerID `json:"playingXI,omitempty"`
	Innings   []cricket.Innings                      `json:"innings"`
	Roles     cricket.Roles                          `json:"roles"`
}

type CommandType string

const (
	CmdStartMatch    CommandType = "StartMatch"
	CmdRecordBall    CommandType = "RecordBall"
	CmdSetRoles      CommandType = "SetRoles"
	CmdEndInnings    CommandType = "EndInnings"
	CmdCompleteMatch CommandType = "CompleteMatch"
)

/*
	CmdStartMatch    -> EvtMatchStarted
	CmdSetRoles      -> EvtRolesChanged
	CmdRecordBall    -> EvtBallRecorded [-> EvtOverCompleted] [-> EvtInningsCompleted -> EvtInningsStarted | EvtMatchCompleted]
	CmdEndInnings    -> EvtInningsCompleted -> EvtInningsStarted | EvtMatchCompleted
	CmdCompleteMatch -> EvtMatchCompleted

	Everything after the first event comes from settle(), so the relay and
	every client fold exactly the same list.
*/

type Command struct {
	Type         CommandType                            `json:"type"`
	BattingFirst cricket.TeamID                         `json:"battingFirst,omitempty"`
	PlayingXI    map[cricket.TeamID][]cricket.PlayerID `json:"playingXI,omitempty"`
	Ball         *cricket.Ball                          `json:"ball,omitempty"`
	Roles        *cricket.Roles                         `json:"roles,omitempty"`
	Result       string                                 `json:"result,omitempty"`
}

type EventType string

const (
	EvtMatchStarted     EventType = "MatchStarted"
	EvtBallRecorded     EventType = "BallRecorded"
	EvtRolesChanged     EventType = "RolesChanged"
	EvtOverCompleted    EventType = "OverCompleted"
	EvtInningsCompleted EventType = "InningsCompleted"
	EvtInningsStarted   EventType = "InningsStarted"
	EvtMatchCompleted   EventType = "MatchCompleted"
)

type Event struct {
	Type        EventType                              `json:"type"`
	BattingTeam cricket.TeamID                         `json:"battingTeam,omitempty"`
	BowlingTeam cricket.TeamID                         `json:"bowlingTeam,omitempty"`
	PlayingXI   map[cricket.TeamID][]cricket.PlayerID `json:"playingXI,omitempty"`
	Ball        *cricket.Ball                          `json:"ball,omitempty"`
	Roles       *cricket.Roles                         `json:"roles,omitempty"`
	Result      string                                 `json:"result,omitempty"`
}

// Apply validates cmd against s and returns the events it produces along
// with the state after folding them. On error s is returned untouched.
func Apply(s State, cmd Command) ([]Event, State, error) {
	var first Event

	switch cmd.Type {
	case CmdStartMatch:
		if _, ok := s.Match.Team(cmd.BattingFirst); !ok {
			return nil, s, ErrInvalidCommand
		}
		first = Event{
			Type:        EvtMatchStarted,
			BattingTeam: cmd.BattingFirst,
			BowlingTeam: s.Match.Opponent(cmd.BattingFirst),
			PlayingXI:   cmd.PlayingXI,
		}

	case CmdRecordBall:
		if cmd.Ball == nil {
			return nil, s, ErrInvalidCommand
		}
		first = Event{Type: EvtBallRecorded, Ball: cmd.Ball}

	case CmdSetRoles:
		if cmd.Roles == nil {
			return nil, s, ErrInvalidCommand
		}
		first = Event{Type: EvtRolesChanged, Roles: cmd.Roles}

	case CmdEndInnings:
		first = Event{Type: EvtInningsCompleted}

	case CmdCompleteMatch:
		first = Event{Type: EvtMatchCompleted, Result: cmd.Result}

	default:
		return nil, s, ErrUnsupportedCommand
	}

	next, err := ApplyEvent(s, first)
	if err != nil {
		return nil, s, err
	}

	follow, next, err := settle(next)
	if err != nil {
		return nil, s, err
	}
	return append([]Event{first}, follow...), next, nil
}

// ApplyEvent folds a single event into a copy of s. It is all-or-nothing:
// on error the original state comes back unchanged.
func ApplyEvent(s State, e Event) (State, error) {
	next := s.Clone()
	if err := next.apply(e); err != nil {
		return s, err
	}
	return next, nil
}

// Reduce folds events in order starting from initial.
func Reduce(initial State, events []Event) (State, error) {
	s := initial
	for _, e := range events {
		var err error
		if s, err = ApplyEvent(s, e); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (s *State) apply(e Event) error {
	switch e.Type {
	case EvtMatchStarted:
		return s.startMatch(e)
	case EvtRolesChanged:
		if e.Roles == nil {
			return ErrInvalidCommand
		}
		return s.setRoles(*e.Roles)
	case EvtBallRecorded:
		if e.Ball == nil {
			return ErrInvalidBall
		}
		return s.recordBall(*e.Ball)
	case EvtOverCompleted:
		return s.completeOver()
	case EvtInningsCompleted:
		return s.closeInnings()
	case EvtInningsStarted:
		return s.startInnings(e)
	case EvtMatchCompleted:
		return s.completeMatch(e.Result)
	default:
		return ErrUnsupportedEvent
	}
}

func (s *State) startMatch(e Event) error {
	if s.Match.Status == cricket.StatusLive || s.Match.Status == cricket.StatusCompleted {
		return ErrMatchAlreadyStarted
	}
	if e.BattingTeam == e.BowlingTeam {
		return ErrInvalidCommand
	}
	for _, id := range []cricket.TeamID{e.BattingTeam, e.BowlingTeam} {
		team, ok := s.Match.Team(id)
		if !ok || !validXI(team, e.PlayingXI[id]) {
			return ErrInvalidXI
		}
	}

	s.Match.Status = cricket.StatusLive
	s.PlayingXI = cloneXI(e.PlayingXI)
	s.Innings = []cricket.Innings{{Number: 1, BattingTeam: e.BattingTeam, BowlingTeam: e.BowlingTeam}}
	s.Roles = cricket.Roles{}
	return nil
}

func (s *State) setRoles(r cricket.Roles) error {
	cur, err := s.openInnings()
	if err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}
	for _, id := range []cricket.PlayerID{r.Striker, r.NonStriker} {
		if id == "" {
			continue
		}
		if !s.inXI(cur.BattingTeam, id) {
			return ErrNotEligible
		}
		if b := cur.Batter(id); b != nil && b.Dismissal != nil {
			return ErrNotEligible
		}
	}
	if r.Bowler != "" && !s.inXI(cur.BowlingTeam, r.Bowler) {
		return ErrNotEligible
	}

	for _, id := range []cricket.PlayerID{r.Striker, r.NonStriker} {
		if id != "" && cur.Batter(id) == nil {
			cur.Batting = append(cur.Batting, cricket.BattingEntry{Player: id, Name: s.playerName(cur.BattingTeam, id)})
		}
	}
	if r.Bowler != "" && cur.Bowler(r.Bowler) == nil {
		cur.Bowling = append(cur.Bowling, cricket.BowlingEntry{Player: r.Bowler, Name: s.playerName(cur.BowlingTeam, r.Bowler)})
	}
	s.Roles = r
	return nil
}

func (s *State) recordBall(b cricket.Ball) error {
	cur, err := s.openInnings()
	if err != nil {
		return err
	}
	if s.Roles.Striker == "" || s.Roles.Bowler == "" {
		return ErrRolesIncomplete
	}
	if err := validBall(b); err != nil {
		return err
	}
	if b.Legal() && stats.LegalDeliveryCount(cur.CurrentOver) >= cricket.BallsPerOver {
		return ErrOverComplete
	}

	var out cricket.PlayerID
	if b.Wicket {
		out = b.Dismissal.OutBatter
		if out == "" {
			out = s.Roles.Striker
		}
		if out != s.Roles.Striker && out != s.Roles.NonStriker {
			return ErrNotEligible
		}
	}

	striker := cur.Batter(s.Roles.Striker)
	bowler := cur.Bowler(s.Roles.Bowler)
	if striker == nil || bowler == nil {
		return ErrRolesIncomplete
	}

	cur.Score += b.Runs + b.Extras()
	cur.Extras += b.Extras()
	if b.OffTheBat() {
		striker.Runs += b.Runs
		switch b.Runs {
		case 4:
			striker.Fours++
		case 6:
			striker.Sixes++
		}
	} else {
		cur.Extras += b.Runs
	}
	if !b.Wide {
		striker.BallsFaced++
	}
	if b.Legal() {
		bowler.BallsBowled++
	}
	bowler.RunsConceded += b.Conceded()

	if b.Wicket {
		d := *b.Dismissal
		d.OutBatter = out
		if d.Bowler == nil {
			d.Bowler = &cricket.PlayerRef{ID: bowler.Player, Name: bowler.Name}
		}
		d.Catcher = fielderRef(s.Match, cur.BowlingTeam, d.Catcher)
		d.Fielder = fielderRef(s.Match, cur.BowlingTeam, d.Fielder)
		b.Dismissal = &d
		cur.Batter(out).Dismissal = &d
		cur.Wickets++
		if d.CreditsBowler() {
			bowler.Wickets++
		}
		if s.Roles.Striker == out {
			s.Roles.Striker = ""
		} else {
			s.Roles.NonStriker = ""
		}
	}

	cur.CurrentOver = append(cur.CurrentOver, b)
	return nil
}

func (s *State) completeOver() error {
	cur, err := s.openInnings()
	if err != nil {
		return err
	}
	if stats.LegalDeliveryCount(cur.CurrentOver) != cricket.BallsPerOver {
		return ErrOverIncomplete
	}

	if bowler := cur.Bowler(s.Roles.Bowler); bowler != nil {
		conceded := 0
		for _, b := range cur.CurrentOver {
			conceded += b.Conceded()
		}
		if conceded == 0 {
			bowler.Maidens++
		}
	}

	cur.CompletedOvers++
	cur.CurrentOver = nil
	// Batters change ends, the bowler doesn't continue.
	s.Roles.Striker, s.Roles.NonStriker = s.Roles.NonStriker, s.Roles.Striker
	s.Roles.Bowler = ""
	return nil
}

func (s *State) closeInnings() error {
	cur, err := s.openInnings()
	if err != nil {
		return err
	}
	cur.Closed = true
	s.Roles = cricket.Roles{}
	return nil
}

func (s *State) startInnings(e Event) error {
	if s.Match.Status != cricket.StatusLive {
		return ErrMatchNotLive
	}
	prev := s.current()
	if prev == nil {
		return ErrMatchNotLive
	}
	if !prev.Closed {
		return ErrInningsOpen
	}
	batting, bowling := e.BattingTeam, e.BowlingTeam
	if batting == "" {
		batting, bowling = prev.BowlingTeam, prev.BattingTeam
	}
	s.Innings = append(s.Innings, cricket.Innings{Number: prev.Number + 1, BattingTeam: batting, BowlingTeam: bowling})
	s.Roles = cricket.Roles{}
	return nil
}

func (s *State) completeMatch(result string) error {
	if s.Match.Status != cricket.StatusLive {
		return ErrMatchNotLive
	}
	if cur := s.current(); cur != nil {
		cur.Closed = true
	}
	s.Match.Status = cricket.StatusCompleted
	s.Match.Result = result
	s.Roles = cricket.Roles{}
	return nil
}

// settle emits whatever follows automatically from s: over boundaries,
// the end of an innings, the start of the chase, the result.
func settle(s State) ([]Event, State, error) {
	var events []Event
	for {
		e, ok := nextAutomatic(s)
		if !ok {
			return events, s, nil
		}
		next, err := ApplyEvent(s, e)
		if err != nil {
			return nil, s, err
		}
		events = append(events, e)
		s = next
	}
}

func nextAutomatic(s State) (Event, bool) {
	if s.Match.Status != cricket.StatusLive {
		return Event{}, false
	}
	cur := s.current()
	if cur == nil {
		return Event{}, false
	}
	if cur.Closed {
		if cur.Number == 1 {
			return Event{Type: EvtInningsStarted, BattingTeam: cur.BowlingTeam, BowlingTeam: cur.BattingTeam}, true
		}
		return Event{Type: EvtMatchCompleted, Result: ResultText(s)}, true
	}
	if stats.LegalDeliveryCount(cur.CurrentOver) == cricket.BallsPerOver {
		return Event{Type: EvtOverCompleted}, true
	}
	if inningsOver(s, *cur) {
		return Event{Type: EvtInningsCompleted}, true
	}
	return Event{}, false
}

func inningsOver(s State, cur cricket.Innings) bool {
	if s.Match.TotalOvers > 0 && cur.CompletedOvers >= s.Match.TotalOvers {
		return true
	}
	if cur.Wickets >= allOutWickets(s, cur.BattingTeam) {
		return true
	}
	if cur.Number == 2 && cur.Score > s.Innings[0].Score {
		return true
	}
	return false
}

func (s *State) current() *cricket.Innings {
	if len(s.Innings) == 0 {
		return nil
	}
	return &s.Innings[len(s.Innings)-1]
}

func (s *State) openInnings() (*cricket.Innings, error) {
	if s.Match.Status != cricket.StatusLive {
		return nil, ErrMatchNotLive
	}
	cur := s.current()
	if cur == nil {
		return nil, ErrMatchNotLive
	}
	if cur.Closed {
		return nil, ErrInningsClosed
	}
	return cur, nil
}

func (s State) inXI(team cricket.TeamID, id cricket.PlayerID) bool {
	xi, ok := s.PlayingXI[team]
	if !ok {
		// No XI recorded (e.g. a snapshot from an older backend): fall back to the roster.
		t, found := s.Match.Team(team)
		if !found {
			return false
		}
		_, ok := t.Registered(id)
		return ok
	}
	return slices.Contains(xi, id)
}

func (s State) playerName(team cricket.TeamID, id cricket.PlayerID) string {
	if t, ok := s.Match.Team(team); ok {
		if p, ok := t.Registered(id); ok {
			return p.Name
		}
	}
	return string(id)
}

func validBall(b cricket.Ball) error {
	if b.Runs < 0 || b.Runs > 7 {
		return ErrInvalidBall
	}
	if b.Wide && b.NoBall {
		return ErrInvalidBall
	}
	if b.Bye && b.LegBye {
		return ErrInvalidBall
	}
	if b.Wicket != (b.Dismissal != nil) {
		return ErrInvalidBall
	}
	return nil
}

func validXI(team cricket.Team, xi []cricket.PlayerID) bool {
	if len(xi) != XISize {
		return false
	}
	seen := make(map[cricket.PlayerID]bool, len(xi))
	for _, id := range xi {
		if seen[id] {
			return false
		}
		if _, ok := team.Registered(id); !ok {
			return false
		}
		seen[id] = true
	}
	return true
}
