package features

import (
	"math"

	"github.com/richard-senior/footy/internal/logger"
	"github.com/richard-senior/footy/pkg/preprocess"
)

// Defaults and weights used while deriving features
const (
	SafeDivideDefault  = 1.0
	momentumFormWeight = 0.7
	momentumWinWeight  = 0.3
	formVsSeasonWeight = 0.8
)

// SafeDivide returns numerator/denominator, or def when the denominator is exactly zero
func SafeDivide(numerator, denominator, def float64) float64 {
	if denominator == 0 {
		return def
	}
	return numerator / denominator
}

// OverProbability is the logistic proxy 1/(1+exp(-(expected-threshold)))
func OverProbability(expectedGoals, threshold float64) float64 {
	return 1 / (1 + math.Exp(-(expectedGoals - threshold)))
}

// Momentum blends form score and win rate, capped at 1
func Momentum(f preprocess.Form) float64 {
	m := f.FormScore * momentumFormWeight
	if f.NumMatches > 0 {
		m += float64(f.Wins) / float64(f.NumMatches) * momentumWinWeight
	}
	return math.Min(1.0, m)
}

// Engineer builds the ordered feature vector for one fixture.
// Groups are appended in a fixed order: basic, strength, form, head to head,
// matchup, availability, home advantage and trend.
func Engineer(d *preprocess.Data) *Vector {
	logger.Debug("Engineering features for", d.HomeTeam, "vs", d.AwayTeam)

	v := NewVector()
	basic(v, d)
	strength(v, d)
	form(v, d)
	headToHead(v, d)
	matchup(v, d)
	availability(v, d)
	homeAdvantage(v, d)
	trend(v, d)
	return v
}

/////////////////////////////////////////////////////////////////////////
////// Feature Groups
/////////////////////////////////////////////////////////////////////////

func basic(v *Vector, d *preprocess.Data) {
	h, a := d.HomeStats, d.AwayStats
	v.Set("home_win_rate", h.WinRate)
	v.Set("home_draw_rate", h.DrawRate)
	v.Set("home_avg_goals_scored", h.AvgGoalsScored)
	v.Set("home_avg_goals_conceded", h.AvgGoalsConceded)
	v.Set("home_points_per_game", h.PointsPerGame)
	v.Set("home_clean_sheet_rate", h.CleanSheetRate)
	v.Set("home_scoring_rate", h.ScoringRate)
	v.Set("away_win_rate", a.WinRate)
	v.Set("away_draw_rate", a.DrawRate)
	v.Set("away_avg_goals_scored", a.AvgGoalsScored)
	v.Set("away_avg_goals_conceded", a.AvgGoalsConceded)
	v.Set("away_points_per_game", a.PointsPerGame)
	v.Set("away_clean_sheet_rate", a.CleanSheetRate)
	v.Set("away_scoring_rate", a.ScoringRate)
	v.Set("home_home_win_rate", h.HomeWinRate)
	v.Set("home_home_ppg", h.HomePointsPerGame)
	v.Set("away_away_win_rate", a.AwayWinRate)
	v.Set("away_away_ppg", a.AwayPointsPerGame)
}

func strength(v *Vector, d *preprocess.Data) {
	h, a := d.HomeStats, d.AwayStats
	v.Set("win_rate_diff", h.WinRate-a.WinRate)
	v.Set("ppg_diff", h.PointsPerGame-a.PointsPerGame)
	v.Set("attack_strength_diff", h.AvgGoalsScored-a.AvgGoalsConceded)
	v.Set("defense_strength_diff", a.AvgGoalsScored-h.AvgGoalsConceded)
	v.Set("goal_diff_comparison", float64(h.GoalDifference-a.GoalDifference))
	v.Set("strength_ratio", SafeDivide(h.PointsPerGame, a.PointsPerGame, SafeDivideDefault))
	v.Set("home_advantage_strength", h.HomeWinRate-a.AwayWinRate)
}

func form(v *Vector, d *preprocess.Data) {
	hf, af := d.HomeForm, d.AwayForm
	v.Set("home_form_score", hf.FormScore)
	v.Set("away_form_score", af.FormScore)
	v.Set("form_diff", hf.FormScore-af.FormScore)
	v.Set("home_recent_goals_scored", hf.AvgGoalsScored)
	v.Set("away_recent_goals_scored", af.AvgGoalsScored)
	v.Set("home_recent_goals_conceded", hf.AvgGoalsConceded)
	v.Set("away_recent_goals_conceded", af.AvgGoalsConceded)
	v.Set("home_momentum", Momentum(hf))
	v.Set("away_momentum", Momentum(af))
	v.Set("home_recent_win_rate", hf.WinRate)
	v.Set("away_recent_win_rate", af.WinRate)
}

func headToHead(v *Vector, d *preprocess.Data) {
	h2h := d.H2H
	v.Set("h2h_home_win_rate", h2h.Team1WinRate)
	v.Set("h2h_draw_rate", h2h.DrawRate)
	v.Set("h2h_away_win_rate", h2h.Team2WinRate)
	v.Set("h2h_avg_goals", h2h.AvgGoals)
	v.Set("h2h_btts_rate", h2h.BTTSRate)
	v.Set("h2h_over_2_5_rate", h2h.Over25Rate)
	v.Set("h2h_dominance", h2h.Team1WinRate-h2h.Team2WinRate)
}

func matchup(v *Vector, d *preprocess.Data) {
	h, a := d.HomeStats, d.AwayStats

	expectedHome := math.Max(0, (h.AvgGoalsScored+a.AvgGoalsConceded)/2)
	expectedAway := math.Max(0, (a.AvgGoalsScored+h.AvgGoalsConceded)/2)
	total := expectedHome + expectedAway

	v.Set("home_attack_vs_away_defense", h.AvgGoalsScored-a.AvgGoalsConceded)
	v.Set("away_attack_vs_home_defense", a.AvgGoalsScored-h.AvgGoalsConceded)
	v.Set("expected_home_goals", expectedHome)
	v.Set("expected_away_goals", expectedAway)
	v.Set("expected_total_goals", total)
	v.Set("home_clean_sheet_prob", h.CleanSheetRate*(1-a.ScoringRate))
	v.Set("away_clean_sheet_prob", a.CleanSheetRate*(1-h.ScoringRate))
	v.Set("btts_probability", h.ScoringRate*a.ScoringRate)
	v.Set("over_1_5_prob", OverProbability(total, 1.5))
	v.Set("over_2_5_prob", OverProbability(total, 2.5))
	v.Set("over_3_5_prob", OverProbability(total, 3.5))
}

func availability(v *Vector, d *preprocess.Data) {
	ha, aa := d.HomeAvailability, d.AwayAvailability
	v.Set("home_availability_score", ha.AvailabilityScore)
	v.Set("away_availability_score", aa.AvailabilityScore)
	v.Set("availability_diff", ha.AvailabilityScore-aa.AvailabilityScore)
	v.Set("home_key_players_missing", float64(ha.KeyPlayersMissing))
	v.Set("away_key_players_missing", float64(aa.KeyPlayersMissing))
}

// homeAdvantage re-sets home_home_win_rate and away_away_win_rate, which keep
// their original position from the basic group.
func homeAdvantage(v *Vector, d *preprocess.Data) {
	h, a := d.HomeStats, d.AwayStats
	v.Set("home_advantage_factor", h.HomePointsPerGame-a.AwayPointsPerGame)
	v.Set("home_home_win_rate", h.HomeWinRate)
	v.Set("away_away_win_rate", a.AwayWinRate)
	v.Set("home_venue_strength", h.HomeWinRate-h.AwayWinRate)
	v.Set("away_travel_weakness", a.HomeWinRate-a.AwayWinRate)
}

func trend(v *Vector, d *preprocess.Data) {
	hf, af := d.HomeForm, d.AwayForm
	h, a := d.HomeStats, d.AwayStats
	v.Set("home_scoring_trend", hf.AvgGoalsScored-h.AvgGoalsScored)
	v.Set("away_scoring_trend", af.AvgGoalsScored-a.AvgGoalsScored)
	v.Set("home_defense_trend", h.AvgGoalsConceded-hf.AvgGoalsConceded)
	v.Set("away_defense_trend", a.AvgGoalsConceded-af.AvgGoalsConceded)
	v.Set("home_form_vs_season", hf.FormScore-h.WinRate*formVsSeasonWeight)
	v.Set("away_form_vs_season", af.FormScore-a.WinRate*formVsSeasonWeight)
}
