package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/DoyleJ11/cricket-live/internal/matchstate"
	"github.com/DoyleJ11/cricket-live/internal/realtime"
	"github.com/DoyleJ11/cricket-live/internal/session"
)

// headline is the one-line ticker printed on every change.
func headline(v session.View) string {
	if !v.Seeded {
		return fmt.Sprintf("[%s] waiting for match state", v.Live)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s", v.Live)
	if v.Submit != realtime.Disconnected {
		fmt.Fprintf(&b, " submit:%s", v.Submit)
	}
	b.WriteString("] ")

	bat, other := v.TeamA, v.TeamB
	if v.TeamB.Batting {
		bat, other = v.TeamB, v.TeamA
	}
	fmt.Fprintf(&b, "%s %s", v.Status, score(bat))
	if other.Overs != "0.0" || other.Score > 0 {
		fmt.Fprintf(&b, " vs %s", score(other))
	}
	if bat.Target > 0 {
		fmt.Fprintf(&b, " target %d", bat.Target)
	}
	if v.Over.Ticker != "" {
		fmt.Fprintf(&b, " | over %d: %s", v.Over.Over+1, v.Over.Ticker)
	}
	if v.Result != "" {
		fmt.Fprintf(&b, " | %s", v.Result)
	}
	if v.LastError != "" {
		fmt.Fprintf(&b, " (stale: %s)", v.LastError)
	}
	return b.String()
}

func score(s matchstate.Summary) string {
	return fmt.Sprintf("%s %d/%d (%s, RR %s)", s.Name, s.Score, s.Wickets, s.Overs, s.RunRate)
}

// scorecard prints the full batting and bowling cards.
func scorecard(w io.Writer, v session.View) error {
	fmt.Fprintln(w, headline(v))
	if !v.Seeded {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nBATTER\tR\tB\t4s\t6s\tSR\t")
	for _, r := range v.Batting {
		name := r.Name
		if r.OnStrike {
			name += "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t%s\n", name, r.Runs, r.Balls, r.Fours, r.Sixes, r.StrikeRate, r.Dismissal)
	}
	fmt.Fprintln(tw, "\nBOWLER\tO\tM\tR\tW\tECON\t")
	for _, r := range v.Bowling {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t\n", r.Name, r.Overs, r.Maidens, r.Runs, r.Wickets, r.Economy)
	}
	return tw.Flush()
}
