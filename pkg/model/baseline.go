package model

import "math"

// Positions in the feature vector read as strength proxies, and their fallbacks
const (
	homeProxyIndex   = 0
	awayProxyIndex   = 8
	defaultHomeProxy = 0.4
	defaultAwayProxy = 0.3

	drawWeight         = 0.25
	homeGoalScale      = 2.5
	awayGoalScale      = 2.0
	baselineConfidence = 0.5
	neutralMarket      = 0.5
)

// Baseline is the deterministic heuristic used while no trained network is available.
// It only reads feature 0 (home win rate) and feature 8 (away draw rate) and never
// predicts a draw.
type Baseline struct{}

func (Baseline) Name() string { return "baseline" }

func (Baseline) Trained() bool { return false }

func (Baseline) Predict(features []float64) (*Prediction, error) {
	home := defaultHomeProxy
	if len(features) > homeProxyIndex {
		home = features[homeProxyIndex]
	}
	away := defaultAwayProxy
	if len(features) > awayProxyIndex {
		away = features[awayProxyIndex]
	}

	total := home + away + drawWeight
	mr := MatchResult{
		HomeWinProbability: 0.45,
		DrawProbability:    0.30,
		AwayWinProbability: 0.25,
		PredictedOutcome:   AwayWin,
		Confidence:         baselineConfidence,
	}
	if total > 0 {
		mr.HomeWinProbability = home / total
		mr.DrawProbability = drawWeight / total
		mr.AwayWinProbability = away / total
	}
	if home > away {
		mr.PredictedOutcome = HomeWin
	}

	homeGoals := math.Max(0, home*homeGoalScale)
	awayGoals := math.Max(0, away*awayGoalScale)

	return &Prediction{
		MatchResult:    mr,
		ExpectedGoals:  ExpectedGoals{Home: homeGoals, Away: awayGoals, Total: homeGoals + awayGoals},
		BettingMarkets: Markets(neutralMarket, neutralMarket),
	}, nil
}
