package roster

import (
	"errors"
	"slices"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/engine"
)

var ErrSelectionLimit = errors.New("selection limit")
var ErrInvalidSelection = errors.New("invalid selection")
var ErrConfirmationRequired = errors.New("replacing the bowler needs confirmation")
var ErrNothingToConfirm = errors.New("no bowler change pending")
var ErrNotEligible = errors.New("player not eligible")

// Selection is phase two: striker, non-striker and bowler for the innings
// in progress.
type Selection struct {
	batters   []cricket.PlayerID
	bowlers   []cricket.PlayerID
	dismissed map[cricket.PlayerID]bool
	roles     cricket.Roles
	pending   cricket.PlayerID
}

func NewSelection(battingXI, bowlingXI []cricket.PlayerID, current cricket.Roles) *Selection {
	return &Selection{
		batters:   slices.Clone(battingXI),
		bowlers:   slices.Clone(bowlingXI),
		dismissed: map[cricket.PlayerID]bool{},
		roles:     current,
	}
}

// SelectionFor builds a Selection for the innings in progress in s.
// Batters already out are not selectable.
func SelectionFor(s engine.State) (*Selection, error) {
	in, ok := s.Current()
	if !ok || in.Closed {
		return nil, engine.ErrMatchNotLive
	}
	sel := NewSelection(s.PlayingXI[in.BattingTeam], s.PlayingXI[in.BowlingTeam], s.Roles)
	for _, b := range in.Batting {
		if b.Dismissal != nil {
			sel.dismissed[b.Player] = true
		}
	}
	return sel, nil
}

// ToggleBatter cycles a batter through the two batting slots.
func (s *Selection) ToggleBatter(id cricket.PlayerID) error {
	switch {
	case s.roles.Striker == id:
		s.roles.Striker = ""
		return nil
	case s.roles.NonStriker == id:
		s.roles.NonStriker = ""
		return nil
	}

	if !slices.Contains(s.batters, id) || s.dismissed[id] {
		return ErrNotEligible
	}
	if s.roles.Bowler == id {
		return ErrInvalidSelection
	}

	switch {
	case s.roles.Striker == "":
		s.roles.Striker = id
	case s.roles.NonStriker == "":
		s.roles.NonStriker = id
	default:
		return ErrSelectionLimit
	}
	return nil
}

// ToggleBowler assigns or clears the bowler. Swapping one bowler for
// another is two steps: this returns ErrConfirmationRequired and the swap
// happens on ConfirmBowler.
func (s *Selection) ToggleBowler(id cricket.PlayerID) error {
	if s.roles.Bowler == id && id != "" {
		s.roles.Bowler = ""
		s.pending = ""
		return nil
	}
	if id == s.roles.Striker || id == s.roles.NonStriker {
		return ErrInvalidSelection
	}
	if !slices.Contains(s.bowlers, id) {
		return ErrNotEligible
	}
	if s.roles.Bowler == "" {
		s.roles.Bowler = id
		return nil
	}
	s.pending = id
	return ErrConfirmationRequired
}

// ConfirmBowler commits the replacement requested by ToggleBowler.
func (s *Selection) ConfirmBowler() error {
	if s.pending == "" {
		return ErrNothingToConfirm
	}
	s.roles.Bowler = s.pending
	s.pending = ""
	return nil
}

// CancelBowler drops a pending replacement and keeps the current bowler.
func (s *Selection) CancelBowler() {
	s.pending = ""
}

// Pending is the bowler awaiting confirmation, if any.
func (s *Selection) Pending() cricket.PlayerID { return s.pending }

func (s *Selection) Roles() cricket.Roles { return s.roles }

// Complete reports whether a ball can be bowled with these roles.
func (s *Selection) Complete() bool {
	return s.roles.Striker != "" && s.roles.NonStriker != "" && s.roles.Bowler != ""
}
