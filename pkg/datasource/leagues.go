package datasource

import (
	"sort"
	"strings"
)

// DefaultLeague is used when a request does not name one
const DefaultLeague = "Premier League"

// defaultLeagueID is the Premier League competition
const defaultLeagueID = 2021

// football-data.org competition ids
var leagueIDs = map[string]int{
	"Premier League":   2021,
	"La Liga":          2014,
	"Serie A":          2019,
	"Bundesliga":       2002,
	"Ligue 1":          2015,
	"Champions League": 2001,
	"Europa League":    2018,
	"Eredivisie":       2003,
	"Primeira Liga":    2017,
	"Championship":     2016,
}

// Common names mapped onto the names football-data.org uses
var teamAliases = map[string]string{
	"Manchester United":   "Manchester United FC",
	"Man United":          "Manchester United FC",
	"Man Utd":             "Manchester United FC",
	"Arsenal":             "Arsenal FC",
	"Chelsea":             "Chelsea FC",
	"Liverpool":           "Liverpool FC",
	"Manchester City":     "Manchester City FC",
	"Man City":            "Manchester City FC",
	"Tottenham":           "Tottenham Hotspur FC",
	"Spurs":               "Tottenham Hotspur FC",
	"Barcelona":           "FC Barcelona",
	"Real Madrid":         "Real Madrid CF",
	"Bayern Munich":       "FC Bayern München",
	"Bayern":              "FC Bayern München",
	"PSG":                 "Paris Saint-Germain FC",
	"Paris Saint-Germain": "Paris Saint-Germain FC",
	"Juventus":            "Juventus FC",
	"AC Milan":            "AC Milan",
	"Inter Milan":         "Inter Milan",
	"Inter":               "Inter Milan",
	"Atletico Madrid":     "Atlético Madrid",
	"Atletico":            "Atlético Madrid",
}

// LeagueID returns the competition id for a league name, or the Premier League id when unknown
func LeagueID(league string) int {
	if id, ok := leagueIDs[league]; ok {
		return id
	}
	return defaultLeagueID
}

// Leagues returns the supported league names in alphabetical order
func Leagues() []string {
	out := make([]string, 0, len(leagueIDs))
	for name := range leagueIDs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NormalizeTeamName maps a common team name onto its API name
func NormalizeTeamName(team string) string {
	if n, ok := teamAliases[team]; ok {
		return n
	}
	return team
}

// matchesTeam reports whether an API team name refers to the requested team.
// Either name may contain the other, case insensitively, or the API name may
// contain the normalized alias.
func matchesTeam(requested, apiName string) bool {
	if apiName == "" || requested == "" {
		return false
	}
	r := strings.ToLower(requested)
	a := strings.ToLower(apiName)
	n := strings.ToLower(NormalizeTeamName(requested))
	return strings.Contains(a, r) || strings.Contains(r, a) || strings.Contains(a, n)
}
