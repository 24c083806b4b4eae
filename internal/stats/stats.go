// Package stats turns raw delivery counters into the numbers shown on a
// scorecard. Every function is total: bad input degrades to a zero value.
package stats

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
)

const zeroRate = "0.00"

// BallsToOvers renders a legal ball count as "O.B".
func BallsToOvers(balls int) string {
	if balls < 0 {
		balls = 0
	}
	return fmt.Sprintf("%d.%d", balls/cricket.BallsPerOver, balls%cricket.BallsPerOver)
}

// Economy is runs conceded per six-ball over, one decimal place.
func Economy(runsConceded, ballsBowled int) string {
	if ballsBowled <= 0 {
		return zeroRate
	}
	overs := float64(ballsBowled) / cricket.BallsPerOver
	return strconv.FormatFloat(float64(runsConceded)/overs, 'f', 1, 64)
}

// StrikeRate is runs per hundred balls faced, rounded to a whole number.
func StrikeRate(runs, ballsFaced int) string {
	if ballsFaced <= 0 {
		return zeroRate
	}
	sr := math.Round(float64(runs) * 100 / float64(ballsFaced))
	return strconv.FormatFloat(sr, 'f', 0, 64)
}

// RunRate is team runs per over, two decimal places.
func RunRate(runs, balls int) string {
	if balls <= 0 {
		return zeroRate
	}
	overs := float64(balls) / cricket.BallsPerOver
	return strconv.FormatFloat(float64(runs)/overs, 'f', 2, 64)
}

// DismissalText is the short scorecard notation for how a batter got out.
func DismissalText(d *cricket.Dismissal) string {
	if d == nil || d.Type == "" {
		return "not out"
	}
	bowler := refName(d.Bowler)
	switch strings.ToLower(d.Type) {
	case cricket.DismissalBowled:
		return notation("b", bowler)
	case cricket.DismissalCaught:
		return notation("c", refName(d.Catcher), "b", bowler)
	case cricket.DismissalLBW:
		return notation("LBW b", bowler)
	case cricket.DismissalStumped:
		return notation("st b", bowler)
	case cricket.DismissalRunOut:
		return notation("Run Out", refName(d.Fielder))
	case cricket.DismissalHitWicket:
		return "hit wicket"
	default:
		return d.Type
	}
}

// notation joins the parts that are known; a missing name leaves no gap.
func notation(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func refName(r *cricket.PlayerRef) string {
	if r == nil {
		return ""
	}
	if r.Name == "" {
		return string(r.ID)
	}
	return r.Name
}

// LegalDeliveryCount counts balls that are neither wides nor no-balls.
func LegalDeliveryCount(balls []cricket.Ball) int {
	n := 0
	for _, b := range balls {
		if b.Legal() {
			n++
		}
	}
	return n
}

// BallNotation is the compact ticker form of one delivery, e.g. "1Wd" or "0W".
func BallNotation(b cricket.Ball) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(b.Runs))
	if b.Wicket {
		sb.WriteString("W")
	}
	if b.NoBall {
		sb.WriteString("NB")
	}
	if b.Wide {
		sb.WriteString("Wd")
	}
	if b.Bye {
		sb.WriteString("B")
	}
	if b.LegBye {
		sb.WriteString("LB")
	}
	return sb.String()
}

// OverEventString is the "this over" ticker in delivery order.
func OverEventString(balls []cricket.Ball) string {
	parts := make([]string, len(balls))
	for i, b := range balls {
		parts[i] = BallNotation(b)
	}
	return strings.Join(parts, " ")
}
