// Package testutil holds match fixtures shared across package tests.
package testutil

import (
	"fmt"
	"time"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
)

const (
	MatchID = "m-100"
	Lions   = cricket.TeamID("lions")
	Tigers  = cricket.TeamID("tigers")
)

// Team builds a side with n registered players named "<prefix>1".."<prefix>n".
func Team(id cricket.TeamID, name, prefix string, n int) cricket.Team {
	t := cricket.Team{ID: id, Name: name}
	for i := 1; i <= n; i++ {
		pid := cricket.PlayerID(fmt.Sprintf("%s%d", prefix, i))
		_ = t.AddPlayer(cricket.RegisteredPlayer{ID: pid, Name: fmt.Sprintf("%s %d", name, i), Role: "All-rounder"})
	}
	t.Captain = cricket.PlayerID(prefix + "1")
	return t
}

// Match is a two-over fixture between Lions (l1..l13) and Tigers (t1..t13).
func Match() cricket.Match {
	return cricket.Match{
		ID:          MatchID,
		TeamA:       Team(Lions, "Lions", "l", 13),
		TeamB:       Team(Tigers, "Tigers", "t", 13),
		TotalOvers:  2,
		Venue:       "Oval",
		ScheduledAt: time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC),
		Status:      cricket.StatusUpcoming,
	}
}

// XI picks the first eleven of each side.
func XI() map[cricket.TeamID][]cricket.PlayerID {
	return map[cricket.TeamID][]cricket.PlayerID{
		Lions:  ids("l", 11),
		Tigers: ids("t", 11),
	}
}

func ids(prefix string, n int) []cricket.PlayerID {
	out := make([]cricket.PlayerID, n)
	for i := range out {
		out[i] = cricket.PlayerID(fmt.Sprintf("%s%d", prefix, i+1))
	}
	return out
}

// Dot, Single and friends are shorthand deliveries.
var (
	Dot    = cricket.Ball{}
	Single = cricket.Ball{Runs: 1}
	Four   = cricket.Ball{Runs: 4}
	Six    = cricket.Ball{Runs: 6}
	Wide   = cricket.Ball{Wide: true}
)

func Bowled() cricket.Ball {
	return cricket.Ball{Wicket: true, Dismissal: &cricket.Dismissal{Type: cricket.DismissalBowled}}
}
