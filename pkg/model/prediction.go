package model

// Outcome labels, indexed the same way as the result distribution
const (
	HomeWin = "Home Win"
	Draw    = "Draw"
	AwayWin = "Away Win"
)

var outcomes = [3]string{HomeWin, Draw, AwayWin}

// MatchResult is the three way result distribution
type MatchResult struct {
	HomeWinProbability float64 `json:"home_win_probability"`
	DrawProbability    float64 `json:"draw_probability"`
	AwayWinProbability float64 `json:"away_win_probability"`
	PredictedOutcome   string  `json:"predicted_outcome"`
	Confidence         float64 `json:"confidence"`
}

// ExpectedGoals holds non negative goal expectations
type ExpectedGoals struct {
	Home  float64 `json:"home"`
	Away  float64 `json:"away"`
	Total float64 `json:"total"`
}

// BettingMarkets holds the two complementary goal markets
type BettingMarkets struct {
	Over25Probability  float64 `json:"over_2_5_probability"`
	Under25Probability float64 `json:"under_2_5_probability"`
	BTTSProbability    float64 `json:"btts_probability"`
	BTTSNoProbability  float64 `json:"btts_no_probability"`
}

// Prediction is the output contract shared by every Predictor
type Prediction struct {
	MatchResult    MatchResult    `json:"match_result"`
	ExpectedGoals  ExpectedGoals  `json:"expected_goals"`
	BettingMarkets BettingMarkets `json:"betting_markets"`
}

// Markets builds the complementary betting markets from the two modelled probabilities
func Markets(over25, btts float64) BettingMarkets {
	return BettingMarkets{
		Over25Probability:  over25,
		Under25Probability: 1 - over25,
		BTTSProbability:    btts,
		BTTSNoProbability:  1 - btts,
	}
}

// ResultFromDistribution picks the argmax label. Ties resolve to the earliest outcome.
func ResultFromDistribution(home, draw, away float64) MatchResult {
	probs := [3]float64{home, draw, away}
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return MatchResult{
		HomeWinProbability: home,
		DrawProbability:    draw,
		AwayWinProbability: away,
		PredictedOutcome:   outcomes[best],
		Confidence:         probs[best],
	}
}
