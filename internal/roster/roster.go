// Package roster enforces who may take the field before and during a match:
// the playing XI for each side, then striker, non-striker and bowler.
//
// Every rejected toggle leaves the selection exactly as it was, so callers
// can surface the returned reason and let the user try again.
package roster

import (
	"errors"
	"slices"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/engine"
)

var ErrDuplicateTeam = errors.New("duplicate team")
var ErrLimitReached = errors.New("limit reached")
var ErrUnknownTeam = errors.New("team not in this match")
var ErrUnknownPlayer = errors.New("player not in team roster")
var ErrIncompleteXI = errors.New("both sides need exactly 11 players")

// Setup is phase one: choosing each side's playing XI.
type Setup struct {
	teams    [2]cricket.Team
	selected [2][]cricket.PlayerID
}

func NewSetup(a, b cricket.Team) (*Setup, error) {
	if a.ID == b.ID {
		return nil, ErrDuplicateTeam
	}
	return &Setup{teams: [2]cricket.Team{a, b}}, nil
}

// NewSetupFor starts XI selection for a scheduled match.
func NewSetupFor(m cricket.Match) (*Setup, error) {
	return NewSetup(m.TeamA, m.TeamB)
}

// ToggleXI selects id for team, or deselects it if already picked.
// A twelfth pick is refused with ErrLimitReached.
func (s *Setup) ToggleXI(team cricket.TeamID, id cricket.PlayerID) error {
	side, err := s.side(team)
	if err != nil {
		return err
	}
	if _, ok := s.teams[side].Registered(id); !ok {
		return ErrUnknownPlayer
	}

	sel := s.selected[side]
	if i := slices.Index(sel, id); i >= 0 {
		s.selected[side] = slices.Delete(sel, i, i+1)
		return nil
	}
	if len(sel) >= engine.XISize {
		return ErrLimitReached
	}
	s.selected[side] = append(sel, id)
	return nil
}

// Selected returns team's current picks in selection order.
func (s *Setup) Selected(team cricket.TeamID) []cricket.PlayerID {
	side, err := s.side(team)
	if err != nil {
		return nil
	}
	return slices.Clone(s.selected[side])
}

// Ready reports whether both sides have a full XI.
func (s *Setup) Ready() bool {
	return len(s.selected[0]) == engine.XISize && len(s.selected[1]) == engine.XISize
}

// PlayingXI hands over both selections once they are complete.
func (s *Setup) PlayingXI() (map[cricket.TeamID][]cricket.PlayerID, error) {
	if !s.Ready() {
		return nil, ErrIncompleteXI
	}
	return map[cricket.TeamID][]cricket.PlayerID{
		s.teams[0].ID: slices.Clone(s.selected[0]),
		s.teams[1].ID: slices.Clone(s.selected[1]),
	}, nil
}

// StartCommand builds the command that takes the match live with this XI.
func (s *Setup) StartCommand(battingFirst cricket.TeamID) (engine.Command, error) {
	if _, err := s.side(battingFirst); err != nil {
		return engine.Command{}, err
	}
	xi, err := s.PlayingXI()
	if err != nil {
		return engine.Command{}, err
	}
	return engine.Command{Type: engine.CmdStartMatch, BattingFirst: battingFirst, PlayingXI: xi}, nil
}

func (s *Setup) side(team cricket.TeamID) (int, error) {
	for i, t := range s.teams {
		if t.ID == team {
			return i, nil
		}
	}
	return 0, ErrUnknownTeam
}
