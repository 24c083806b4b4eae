// Package matchstate holds one client's view of a live match.
//
// A Store has a single owner and no locks; see package session for the
// loop that serialises everything touching it.
package matchstate

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/types"
)

var ErrSequenceGap = errors.New("sequence gap")
var ErrNotSeeded = errors.New("no snapshot applied yet")
var ErrWrongMatch = errors.New("payload belongs to another match")

type Outcome int

const (
	Applied Outcome = iota
	Dropped
)

func (o Outcome) String() string {
	if o == Dropped {
		return "dropped"
	}
	return "applied"
}

type Store struct {
	matchID string
	state   engine.State
	seq     int64
	seeded  bool
}

func New(matchID string) *Store {
	return &Store{matchID: matchID}
}

// ApplySnapshot replaces everything with an authoritative read.
func (s *Store) ApplySnapshot(snap types.Snapshot) error {
	if snap.MatchID != "" && snap.MatchID != s.matchID {
		return ErrWrongMatch
	}
	s.state = snap.State.Clone()
	s.seq = snap.Seq
	s.seeded = true
	return nil
}

// ApplyDelta folds one event. Anything at or below the last applied
// sequence number is a redelivery and is dropped. A hole in the sequence
// returns ErrSequenceGap and leaves the store alone; the caller is expected
// to pull a fresh snapshot.
func (s *Store) ApplyDelta(d types.Delta) (Outcome, error) {
	if d.MatchID != "" && d.MatchID != s.matchID {
		return Dropped, ErrWrongMatch
	}
	if !s.seeded {
		return Dropped, ErrNotSeeded
	}
	if d.Seq <= s.seq {
		return Dropped, nil
	}
	if d.Seq != s.seq+1 {
		return Dropped, fmt.Errorf("%w: have %d, got %d", ErrSequenceGap, s.seq, d.Seq)
	}

	next, err := engine.ApplyEvent(s.state, d.Event)
	if err != nil {
		return Dropped, fmt.Errorf("apply seq %d (%s): %w", d.Seq, d.Event.Type, err)
	}
	s.state = next
	s.seq = d.Seq
	return Applied, nil
}

func (s *Store) MatchID() string { return s.matchID }
func (s *Store) Seq() int64      { return s.seq }
func (s *Store) Seeded() bool    { return s.seeded }

// State returns a copy the caller may keep.
func (s *Store) State() engine.State { return s.state.Clone() }

func (s *Store) Status() cricket.MatchStatus { return s.state.Match.Status }

func (s *Store) Roles() cricket.Roles { return s.state.Roles }

// Snapshot re-exports the current contents in wire form.
func (s *Store) Snapshot() types.Snapshot {
	return types.Snapshot{MatchID: s.matchID, Seq: s.seq, State: s.State()}
}
