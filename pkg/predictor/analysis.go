package predictor

import (
	"github.com/richard-senior/footy/pkg/model"
	"github.com/richard-senior/footy/pkg/preprocess"
)

// Thresholds for the qualitative analysis
const (
	excellentForm    = 0.7
	poorForm         = 0.3
	h2hDominance     = 0.6
	keyPlayersWorry  = 2
	strongConfidence = 0.7
	modestConfidence = 0.5
	goalsMarketEdge  = 0.65
	bttsMarketEdge   = 0.6
)

// Insight confidence levels
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// FormSummary is a form score with its rating bucket
type FormSummary struct {
	Score  float64 `json:"score"`
	Rating string  `json:"rating"`
}

// H2HSummary condenses the meeting history from the home side's point of view
type H2HSummary struct {
	HomeWins int     `json:"home_wins"`
	Draws    int     `json:"draws"`
	AwayWins int     `json:"away_wins"`
	AvgGoals float64 `json:"avg_goals"`
}

// Analysis is the human readable commentary attached to a detailed prediction
type Analysis struct {
	KeyFactors []string    `json:"key_factors"`
	HomeForm   FormSummary `json:"home_form"`
	AwayForm   FormSummary `json:"away_form"`
	HeadToHead H2HSummary  `json:"head_to_head"`
}

// ResultInsight is the match result recommendation
type ResultInsight struct {
	Recommendation string `json:"recommendation"`
	Confidence     string `json:"confidence"`
}

// BettingInsights are short recommendations for each market
type BettingInsights struct {
	MatchResult ResultInsight `json:"match_result"`
	Goals       string        `json:"goals"`
	BTTS        string        `json:"btts"`
}

// FormRating buckets a form score
func FormRating(score float64) string {
	switch {
	case score >= 0.7:
		return "Excellent"
	case score >= 0.5:
		return "Good"
	case score >= 0.3:
		return "Average"
	default:
		return "Poor"
	}
}

func formFactor(side string, score float64) (string, bool) {
	switch {
	case score > excellentForm:
		return side + " team in excellent form", true
	case score < poorForm:
		return side + " team struggling with poor form", true
	}
	return "", false
}

// Analyze derives the key factors and summaries from preprocessed data
func Analyze(d *preprocess.Data) *Analysis {
	factors := []string{}

	if f, ok := formFactor("Home", d.HomeForm.FormScore); ok {
		factors = append(factors, f)
	}
	if f, ok := formFactor("Away", d.AwayForm.FormScore); ok {
		factors = append(factors, f)
	}

	if d.H2H.Team1WinRate > h2hDominance {
		factors = append(factors, "Home team dominates head-to-head history")
	} else if d.H2H.Team2WinRate > h2hDominance {
		factors = append(factors, "Away team dominates head-to-head history")
	}

	if d.HomeAvailability.KeyPlayersMissing > keyPlayersWorry {
		factors = append(factors, "Home team missing key players")
	}
	if d.AwayAvailability.KeyPlayersMissing > keyPlayersWorry {
		factors = append(factors, "Away team missing key players")
	}

	return &Analysis{
		KeyFactors: factors,
		HomeForm:   FormSummary{Score: d.HomeForm.FormScore, Rating: FormRating(d.HomeForm.FormScore)},
		AwayForm:   FormSummary{Score: d.AwayForm.FormScore, Rating: FormRating(d.AwayForm.FormScore)},
		HeadToHead: H2HSummary{
			HomeWins: d.H2H.Team1Wins,
			Draws:    d.H2H.Draws,
			AwayWins: d.H2H.Team2Wins,
			AvgGoals: d.H2H.AvgGoals,
		},
	}
}

// Insights turns prediction probabilities into betting recommendations
func Insights(p *model.Prediction) *BettingInsights {
	out := &BettingInsights{}

	r := p.MatchResult
	switch {
	case r.Confidence > strongConfidence:
		out.MatchResult = ResultInsight{Recommendation: "Strong " + r.PredictedOutcome, Confidence: ConfidenceHigh}
	case r.Confidence > modestConfidence:
		out.MatchResult = ResultInsight{Recommendation: "Moderate " + r.PredictedOutcome, Confidence: ConfidenceMedium}
	default:
		out.MatchResult = ResultInsight{Recommendation: "Uncertain outcome", Confidence: ConfidenceLow}
	}

	m := p.BettingMarkets
	switch {
	case m.Over25Probability > goalsMarketEdge:
		out.Goals = "Over 2.5 goals likely"
	case m.Under25Probability > goalsMarketEdge:
		out.Goals = "Under 2.5 goals likely"
	default:
		out.Goals = "Goals market uncertain"
	}

	switch {
	case m.BTTSProbability > bttsMarketEdge:
		out.BTTS = "Both teams likely to score"
	case m.BTTSNoProbability > bttsMarketEdge:
		out.BTTS = "Clean sheet likely"
	default:
		out.BTTS = "BTTS market uncertain"
	}
	return out
}
