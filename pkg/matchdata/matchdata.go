// Package matchdata holds the raw match records supplied by a data source.
//
// Top level fields of RawMatchData are required and their absence is reported as a
// MissingDataError. Fields inside a present record are optional and fall back to
// documented defaults through accessor methods.
package matchdata

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Fallbacks applied to optional sub-fields
const (
	DefaultLeague        = "Unknown"
	DefaultH2HAvgGoals   = 2.5
	DefaultSquadStrength = 1.0
)

// MissingDataError reports a required top level field that was absent
type MissingDataError struct {
	Field string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing required match data: %s", e.Field)
}

// IsMissingData reports whether err wraps a MissingDataError
func IsMissingData(err error) bool {
	var m *MissingDataError
	return errors.As(err, &m)
}

// RawTeamStats is a team's season record as delivered by the data source
type RawTeamStats struct {
	TeamName      string `json:"team_name,omitempty"`
	League        string `json:"league,omitempty"`
	MatchesPlayed int    `json:"matches_played"`
	Wins          int    `json:"wins"`
	Draws         int    `json:"draws"`
	Losses        int    `json:"losses"`
	GoalsScored   int    `json:"goals_scored"`
	GoalsConceded int    `json:"goals_conceded"`
	Points        int    `json:"points,omitempty"`
	Position      int    `json:"position,omitempty"`
	FormLast5     []int  `json:"form_last_5,omitempty"`
	HomeWins      int    `json:"home_wins"`
	HomeDraws     int    `json:"home_draws"`
	HomeLosses    int    `json:"home_losses"`
	AwayWins      int    `json:"away_wins"`
	AwayDraws     int    `json:"away_draws"`
	AwayLosses    int    `json:"away_losses"`
	CleanSheets   int    `json:"clean_sheets"`
	FailedToScore int    `json:"failed_to_score"`
}

// H2HResult is a single previous meeting between the two teams
type H2HResult struct {
	Date  string `json:"date"`
	Home  string `json:"home"`
	Away  string `json:"away"`
	Score string `json:"score"`
}

// RawHeadToHead aggregates previous meetings. Team1 is the home side of the fixture being predicted.
type RawHeadToHead struct {
	TotalMatches     int         `json:"total_matches"`
	Team1Wins        int         `json:"team1_wins"`
	Draws            int         `json:"draws"`
	Team2Wins        int         `json:"team2_wins"`
	Team1Goals       int         `json:"team1_goals"`
	Team2Goals       int         `json:"team2_goals"`
	AvgGoalsPerMatch *float64    `json:"avg_goals_per_match,omitempty"`
	BothTeamsScored  int         `json:"both_teams_scored"`
	Over25Goals      int         `json:"over_2_5_goals"`
	RecentResults    []H2HResult `json:"recent_results,omitempty"`
}

// AvgGoals returns the supplied average or DefaultH2HAvgGoals when absent
func (h *RawHeadToHead) AvgGoals() float64 {
	if h.AvgGoalsPerMatch == nil {
		return DefaultH2HAvgGoals
	}
	return *h.AvgGoalsPerMatch
}

// RawAvailability lists unavailable players for one team
type RawAvailability struct {
	Team              string   `json:"team,omitempty"`
	Injuries          []string `json:"injuries"`
	Suspensions       []string `json:"suspensions"`
	KeyPlayersMissing int      `json:"key_players_missing"`
	SquadStrength     *float64 `json:"squad_strength,omitempty"`
}

// Squad returns the supplied squad strength or DefaultSquadStrength when absent
func (a *RawAvailability) Squad() float64 {
	if a.SquadStrength == nil {
		return DefaultSquadStrength
	}
	return *a.SquadStrength
}

// RawFormMatch is one recent result from a team's perspective
type RawFormMatch struct {
	Date          string `json:"date,omitempty"`
	Opponent      string `json:"opponent,omitempty"`
	HomeAway      string `json:"home_away,omitempty"`
	Result        string `json:"result"`
	GoalsScored   int    `json:"goals_scored"`
	GoalsConceded int    `json:"goals_conceded"`
}

// RawMatchData is everything the pipeline needs to predict one fixture
type RawMatchData struct {
	HomeTeam         string           `json:"home_team"`
	AwayTeam         string           `json:"away_team"`
	League           string           `json:"league,omitempty"`
	HomeStats        *RawTeamStats    `json:"home_stats"`
	AwayStats        *RawTeamStats    `json:"away_stats"`
	HeadToHead       *RawHeadToHead   `json:"head_to_head"`
	HomeAvailability *RawAvailability `json:"home_player_availability"`
	AwayAvailability *RawAvailability `json:"away_player_availability"`
	HomeRecentForm   []RawFormMatch   `json:"home_recent_form"`
	AwayRecentForm   []RawFormMatch   `json:"away_recent_form"`
	FetchTimestamp   string           `json:"fetch_timestamp,omitempty"`
}

// LeagueOrDefault returns the league name or DefaultLeague
func (r *RawMatchData) LeagueOrDefault() string {
	if r.League == "" {
		return DefaultLeague
	}
	return r.League
}

// requiredKeys are the top level keys a match document must carry
var requiredKeys = []string{
	"home_team", "away_team",
	"home_stats", "away_stats", "head_to_head",
	"home_player_availability", "away_player_availability",
	"home_recent_form", "away_recent_form",
}

// Validate checks that every record the preprocessor reads is present.
// A nil recent form list is read as no recent matches.
func (r *RawMatchData) Validate() error {
	switch {
	case r.HomeStats == nil:
		return &MissingDataError{Field: "home_stats"}
	case r.AwayStats == nil:
		return &MissingDataError{Field: "away_stats"}
	case r.HeadToHead == nil:
		return &MissingDataError{Field: "head_to_head"}
	case r.HomeAvailability == nil:
		return &MissingDataError{Field: "home_player_availability"}
	case r.AwayAvailability == nil:
		return &MissingDataError{Field: "away_player_availability"}
	}
	return nil
}

// Decode parses a raw match document and validates it.
// Every required key must be present. A null recent form list decodes as empty.
func Decode(data []byte) (*RawMatchData, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("invalid match data JSON: %w", err)
	}
	for _, k := range requiredKeys {
		if _, ok := keys[k]; !ok {
			return nil, &MissingDataError{Field: k}
		}
	}

	var raw RawMatchData
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid match data JSON: %w", err)
	}
	if raw.HomeRecentForm == nil {
		raw.HomeRecentForm = []RawFormMatch{}
	}
	if raw.AwayRecentForm == nil {
		raw.AwayRecentForm = []RawFormMatch{}
	}
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	return &raw, nil
}
