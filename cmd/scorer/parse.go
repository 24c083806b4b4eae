package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
)

var errBadBall = errors.New(`expected "0".."7", "wd [n]", "nb [n]", "b n", "lb n" or "w <how> [f=fielder] [batter] [runs]"`)

var dismissals = map[string]string{
	"bowled":    cricket.DismissalBowled,
	"caught":    cricket.DismissalCaught,
	"lbw":       cricket.DismissalLBW,
	"stumped":   cricket.DismissalStumped,
	"runout":    cricket.DismissalRunOut,
	"hitwicket": cricket.DismissalHitWicket,
}

// parseBall turns one line of scorer shorthand into a delivery.
//
//	4            four off the bat
//	wd 1         wide, one run taken
//	nb 4         no-ball hit for four
//	lb 1         one leg bye
//	w caught f=t3  striker caught by t3
//	w runout l2 1  non-striker run out after one run
func parseBall(fields []string) (cricket.Ball, error) {
	if len(fields) == 0 {
		return cricket.Ball{}, errBadBall
	}
	var b cricket.Ball
	rest := fields[1:]

	switch strings.ToLower(fields[0]) {
	case "wd":
		b.Wide = true
	case "nb":
		b.NoBall = true
	case "b":
		b.Bye = true
		if len(rest) == 0 {
			return cricket.Ball{}, errBadBall
		}
	case "lb":
		b.LegBye = true
		if len(rest) == 0 {
			return cricket.Ball{}, errBadBall
		}
	case "w":
		if len(rest) == 0 {
			return cricket.Ball{}, errBadBall
		}
		how, ok := dismissals[strings.ToLower(rest[0])]
		if !ok {
			return cricket.Ball{}, fmt.Errorf("unknown dismissal %q", rest[0])
		}
		b.Wicket = true
		b.Dismissal = &cricket.Dismissal{Type: how}
		rest = withoutFielder(rest[1:], b.Dismissal)
		if len(rest) > 0 {
			if _, err := strconv.Atoi(rest[0]); err != nil {
				b.Dismissal.OutBatter = cricket.PlayerID(rest[0])
				rest = rest[1:]
			}
		}
	default:
		runs, err := strconv.Atoi(fields[0])
		if err != nil || len(rest) > 0 {
			return cricket.Ball{}, errBadBall
		}
		b.Runs = runs
		return b, nil
	}

	if len(rest) > 1 {
		return cricket.Ball{}, errBadBall
	}
	if len(rest) == 1 {
		runs, err := strconv.Atoi(rest[0])
		if err != nil {
			return cricket.Ball{}, errBadBall
		}
		b.Runs = runs
	}
	return b, nil
}

// withoutFielder takes an "f=ID" token out of fields and records it as the
// catcher or the fielder, depending on the dismissal.
func withoutFielder(fields []string, d *cricket.Dismissal) []string {
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		id, ok := strings.CutPrefix(f, "f=")
		if !ok || id == "" {
			kept = append(kept, f)
			continue
		}
		ref := &cricket.PlayerRef{ID: cricket.PlayerID(id)}
		if d.Type == cricket.DismissalCaught {
			d.Catcher = ref
		} else {
			d.Fielder = ref
		}
	}
	return kept
}
