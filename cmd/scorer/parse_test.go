package main

import (
	"strings"
	"testing"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBall(t *testing.T) {
	tests := []struct {
		in   string
		want cricket.Ball
	}{
		{"0", cricket.Ball{}},
		{"4", cricket.Ball{Runs: 4}},
		{"wd", cricket.Ball{Wide: true}},
		{"wd 2", cricket.Ball{Wide: true, Runs: 2}},
		{"NB 4", cricket.Ball{NoBall: true, Runs: 4}},
		{"b 1", cricket.Ball{Bye: true, Runs: 1}},
		{"lb 2", cricket.Ball{LegBye: true, Runs: 2}},
		{"w bowled", cricket.Ball{Wicket: true, Dismissal: &cricket.Dismissal{Type: cricket.DismissalBowled}}},
		{"w runout l2 1", cricket.Ball{Wicket: true, Runs: 1, Dismissal: &cricket.Dismissal{Type: cricket.DismissalRunOut, OutBatter: "l2"}}},
		{"w caught f=t3", cricket.Ball{Wicket: true, Dismissal: &cricket.Dismissal{Type: cricket.DismissalCaught, Catcher: &cricket.PlayerRef{ID: "t3"}}}},
		{"w runout f=t7 l2 1", cricket.Ball{Wicket: true, Runs: 1, Dismissal: &cricket.Dismissal{Type: cricket.DismissalRunOut, OutBatter: "l2", Fielder: &cricket.PlayerRef{ID: "t7"}}}},
		{"w runout 2", cricket.Ball{Wicket: true, Runs: 2, Dismissal: &cricket.Dismissal{Type: cricket.DismissalRunOut}}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseBall(strings.Fields(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBall_Rejects(t *testing.T) {
	for _, in := range []string{"", "x", "4 4", "b", "lb", "w", "w dropped", "wd x", "nb 1 2"} {
		t.Run(in, func(t *testing.T) {
			_, err := parseBall(strings.Fields(in))
			assert.Error(t, err)
		})
	}
}
