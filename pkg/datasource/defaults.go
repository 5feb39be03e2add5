package datasource

import (
	"strings"

	"github.com/richard-senior/footy/pkg/matchdata"
)

const formWindow = 5

// Points per result in a parsed form string; anything unrecognised counts as a draw
var formPoints = map[rune]int{'W': 3, 'D': 1, 'L': 0}

// ParseForm converts a form string such as "W,D,L,W,W" into points for the last five
// results, oldest first, left padded with draws when shorter than five.
func ParseForm(form string) []int {
	form = strings.ReplaceAll(form, ",", "")
	runes := []rune(form)
	if len(runes) > formWindow {
		runes = runes[len(runes)-formWindow:]
	}

	out := make([]int, 0, formWindow)
	for i := len(runes); i < formWindow; i++ {
		out = append(out, 1)
	}
	for _, r := range runes {
		p, ok := formPoints[r]
		if !ok {
			p = 1
		}
		out = append(out, p)
	}
	return out
}

// DefaultTeamStats is returned when a team's standings could not be fetched
func DefaultTeamStats() *matchdata.RawTeamStats {
	return &matchdata.RawTeamStats{FormLast5: []int{1, 1, 1, 1, 1}}
}

// DefaultHeadToHead is returned when no meetings could be fetched
func DefaultHeadToHead() *matchdata.RawHeadToHead {
	avg := matchdata.DefaultH2HAvgGoals
	return &matchdata.RawHeadToHead{AvgGoalsPerMatch: &avg, RecentResults: []matchdata.H2HResult{}}
}

// DefaultAvailability assumes a full squad
func DefaultAvailability(team string) *matchdata.RawAvailability {
	strength := matchdata.DefaultSquadStrength
	return &matchdata.RawAvailability{
		Team:          team,
		Injuries:      []string{},
		Suspensions:   []string{},
		SquadStrength: &strength,
	}
}

// DefaultRecentForm is n one-all draws
func DefaultRecentForm(n int) []matchdata.RawFormMatch {
	out := make([]matchdata.RawFormMatch, n)
	for i := range out {
		out[i] = matchdata.RawFormMatch{Result: "D", GoalsScored: 1, GoalsConceded: 1}
	}
	return out
}
