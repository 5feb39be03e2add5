package preprocess

import (
	"github.com/richard-senior/footy/internal/logger"
	"github.com/richard-senior/footy/pkg/matchdata"
)

/////////////////////////////////////////////////////////////////////////
////// Cleaned Records
/////////////////////////////////////////////////////////////////////////

// TeamStats is a cleaned season record with derived rates.
// MatchesPlayed is floored to 1 so every ratio below is defined.
type TeamStats struct {
	MatchesPlayed     int     `json:"matches_played"`
	Wins              int     `json:"wins"`
	Draws             int     `json:"draws"`
	Losses            int     `json:"losses"`
	GoalsScored       int     `json:"goals_scored"`
	GoalsConceded     int     `json:"goals_conceded"`
	HomeWins          int     `json:"home_wins"`
	HomeDraws         int     `json:"home_draws"`
	HomeLosses        int     `json:"home_losses"`
	AwayWins          int     `json:"away_wins"`
	AwayDraws         int     `json:"away_draws"`
	AwayLosses        int     `json:"away_losses"`
	WinRate           float64 `json:"win_rate"`
	DrawRate          float64 `json:"draw_rate"`
	LossRate          float64 `json:"loss_rate"`
	AvgGoalsScored    float64 `json:"avg_goals_scored"`
	AvgGoalsConceded  float64 `json:"avg_goals_conceded"`
	GoalDifference    int     `json:"goal_difference"`
	Points            int     `json:"points"`
	PointsPerGame     float64 `json:"points_per_game"`
	HomeWinRate       float64 `json:"home_win_rate"`
	HomePointsPerGame float64 `json:"home_points_per_game"`
	AwayWinRate       float64 `json:"away_win_rate"`
	AwayPointsPerGame float64 `json:"away_points_per_game"`
	CleanSheetRate    float64 `json:"clean_sheet_rate"`
	ScoringRate       float64 `json:"scoring_rate"`
}

// HeadToHead is the cleaned meeting history. TotalMatches is floored to 1.
type HeadToHead struct {
	TotalMatches    int     `json:"total_matches"`
	Team1Wins       int     `json:"team1_wins"`
	Draws           int     `json:"draws"`
	Team2Wins       int     `json:"team2_wins"`
	Team1Goals      int     `json:"team1_goals"`
	Team2Goals      int     `json:"team2_goals"`
	AvgGoals        float64 `json:"avg_goals"`
	BothTeamsScored int     `json:"both_teams_scored"`
	Over25Goals     int     `json:"over_2_5_goals"`
	Team1WinRate    float64 `json:"team1_win_rate"`
	DrawRate        float64 `json:"draw_rate"`
	Team2WinRate    float64 `json:"team2_win_rate"`
	BTTSRate        float64 `json:"btts_rate"`
	Over25Rate      float64 `json:"over_2_5_rate"`
}

// Availability summarises missing players for one side
type Availability struct {
	NumInjuries       int     `json:"num_injuries"`
	NumSuspensions    int     `json:"num_suspensions"`
	TotalUnavailable  int     `json:"total_unavailable"`
	KeyPlayersMissing int     `json:"key_players_missing"`
	SquadStrength     float64 `json:"squad_strength"`
	AvailabilityScore float64 `json:"availability_score"`
}

// Form summarises a window of recent results
type Form struct {
	NumMatches       int     `json:"num_matches"`
	Wins             int     `json:"wins"`
	Draws            int     `json:"draws"`
	Losses           int     `json:"losses"`
	GoalsScored      int     `json:"goals_scored"`
	GoalsConceded    int     `json:"goals_conceded"`
	FormScore        float64 `json:"form_score"`
	AvgGoalsScored   float64 `json:"avg_goals_scored"`
	AvgGoalsConceded float64 `json:"avg_goals_conceded"`
	WinRate          float64 `json:"win_rate"`
	PointsPerGame    float64 `json:"points_per_game"`
}

// Data is the preprocessed view of one fixture consumed by feature engineering
type Data struct {
	HomeTeam         string       `json:"home_team"`
	AwayTeam         string       `json:"away_team"`
	League           string       `json:"league"`
	HomeStats        TeamStats    `json:"home_stats"`
	AwayStats        TeamStats    `json:"away_stats"`
	H2H              HeadToHead   `json:"h2h_stats"`
	HomeAvailability Availability `json:"home_availability"`
	AwayAvailability Availability `json:"away_availability"`
	HomeForm         Form         `json:"home_form"`
	AwayForm         Form         `json:"away_form"`
}

/////////////////////////////////////////////////////////////////////////
////// Preprocessing
/////////////////////////////////////////////////////////////////////////

// Availability penalties and the neutral prior for an empty form window
const (
	unavailablePenalty = 0.05
	keyPlayerPenalty   = 0.1
	neutralFormScore   = 0.5
)

// Preprocess validates the raw record and derives every rate the feature engineer needs.
// A missing top level field is returned as a *matchdata.MissingDataError.
func Preprocess(raw *matchdata.RawMatchData) (*Data, error) {
	if raw == nil {
		return nil, &matchdata.MissingDataError{Field: "match_data"}
	}
	if err := raw.Validate(); err != nil {
		logger.Error("Error preprocessing", err)
		return nil, err
	}
	logger.Info("Preprocessing:", raw.HomeTeam, "vs", raw.AwayTeam)

	return &Data{
		HomeTeam:         raw.HomeTeam,
		AwayTeam:         raw.AwayTeam,
		League:           raw.LeagueOrDefault(),
		HomeStats:        CleanTeamStats(raw.HomeStats),
		AwayStats:        CleanTeamStats(raw.AwayStats),
		H2H:              CleanHeadToHead(raw.HeadToHead),
		HomeAvailability: ProcessAvailability(raw.HomeAvailability),
		AwayAvailability: ProcessAvailability(raw.AwayAvailability),
		HomeForm:         ProcessRecentForm(raw.HomeRecentForm),
		AwayForm:         ProcessRecentForm(raw.AwayRecentForm),
	}, nil
}

// CleanTeamStats floors matches played and derives season rates.
// Venue rates are computed over that venue's own matches and are 0 when there are none.
func CleanTeamStats(s *matchdata.RawTeamStats) TeamStats {
	mp := s.MatchesPlayed
	if mp < 1 {
		mp = 1
	}
	n := float64(mp)

	ts := TeamStats{
		MatchesPlayed: mp,
		Wins:          s.Wins,
		Draws:         s.Draws,
		Losses:        s.Losses,
		GoalsScored:   s.GoalsScored,
		GoalsConceded: s.GoalsConceded,
		HomeWins:      s.HomeWins,
		HomeDraws:     s.HomeDraws,
		HomeLosses:    s.HomeLosses,
		AwayWins:      s.AwayWins,
		AwayDraws:     s.AwayDraws,
		AwayLosses:    s.AwayLosses,
	}

	ts.WinRate = float64(s.Wins) / n
	ts.DrawRate = float64(s.Draws) / n
	ts.LossRate = float64(s.Losses) / n
	ts.AvgGoalsScored = float64(s.GoalsScored) / n
	ts.AvgGoalsConceded = float64(s.GoalsConceded) / n
	ts.GoalDifference = s.GoalsScored - s.GoalsConceded
	ts.Points = s.Wins*3 + s.Draws
	ts.PointsPerGame = float64(ts.Points) / n

	ts.HomeWinRate, ts.HomePointsPerGame = venueRates(s.HomeWins, s.HomeDraws, s.HomeLosses)
	ts.AwayWinRate, ts.AwayPointsPerGame = venueRates(s.AwayWins, s.AwayDraws, s.AwayLosses)

	ts.CleanSheetRate = clamp01(float64(s.CleanSheets) / n)
	ts.ScoringRate = clamp01(1 - float64(s.FailedToScore)/n)

	return ts
}

func venueRates(wins, draws, losses int) (winRate, ppg float64) {
	played := wins + draws + losses
	if played <= 0 {
		return 0.0, 0.0
	}
	return float64(wins) / float64(played), float64(wins*3+draws) / float64(played)
}

// CleanHeadToHead floors total matches and derives meeting rates
func CleanHeadToHead(h *matchdata.RawHeadToHead) HeadToHead {
	total := h.TotalMatches
	if total < 1 {
		total = 1
	}
	n := float64(total)

	return HeadToHead{
		TotalMatches:    total,
		Team1Wins:       h.Team1Wins,
		Draws:           h.Draws,
		Team2Wins:       h.Team2Wins,
		Team1Goals:      h.Team1Goals,
		Team2Goals:      h.Team2Goals,
		AvgGoals:        h.AvgGoals(),
		BothTeamsScored: h.BothTeamsScored,
		Over25Goals:     h.Over25Goals,
		Team1WinRate:    float64(h.Team1Wins) / n,
		DrawRate:        float64(h.Draws) / n,
		Team2WinRate:    float64(h.Team2Wins) / n,
		BTTSRate:        float64(h.BothTeamsScored) / n,
		Over25Rate:      float64(h.Over25Goals) / n,
	}
}

// ProcessAvailability applies the linear availability penalty:
// 1 - 0.05 per injured or suspended player - 0.1 per key player missing, clamped to [0,1]
func ProcessAvailability(a *matchdata.RawAvailability) Availability {
	injuries := len(a.Injuries)
	suspensions := len(a.Suspensions)
	total := injuries + suspensions

	score := 1.0 - float64(total)*unavailablePenalty
	score -= float64(a.KeyPlayersMissing) * keyPlayerPenalty

	return Availability{
		NumInjuries:       injuries,
		NumSuspensions:    suspensions,
		TotalUnavailable:  total,
		KeyPlayersMissing: a.KeyPlayersMissing,
		SquadStrength:     a.Squad(),
		AvailabilityScore: clamp01(score),
	}
}

// ProcessRecentForm summarises recent results. An empty window yields the neutral prior.
func ProcessRecentForm(matches []matchdata.RawFormMatch) Form {
	if len(matches) == 0 {
		return Form{FormScore: neutralFormScore}
	}

	var f Form
	for _, m := range matches {
		switch m.Result {
		case "W":
			f.Wins++
		case "D":
			f.Draws++
		case "L":
			f.Losses++
		}
		f.GoalsScored += m.GoalsScored
		f.GoalsConceded += m.GoalsConceded
	}

	f.NumMatches = len(matches)
	n := float64(f.NumMatches)
	points := float64(f.Wins*3 + f.Draws)

	f.FormScore = points / (3 * n)
	f.AvgGoalsScored = float64(f.GoalsScored) / n
	f.AvgGoalsConceded = float64(f.GoalsConceded) / n
	f.WinRate = float64(f.Wins) / n
	f.PointsPerGame = points / n
	return f
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
