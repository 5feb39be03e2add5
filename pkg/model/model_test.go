package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertCoherent(t *testing.T, p *Prediction) {
	t.Helper()
	mr := p.MatchResult
	assert.InDelta(t, 1.0, mr.HomeWinProbability+mr.DrawProbability+mr.AwayWinProbability, 1e-6)
	for _, v := range []float64{mr.HomeWinProbability, mr.DrawProbability, mr.AwayWinProbability, mr.Confidence} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	bm := p.BettingMarkets
	assert.InDelta(t, 1.0, bm.Over25Probability+bm.Under25Probability, 1e-6)
	assert.InDelta(t, 1.0, bm.BTTSProbability+bm.BTTSNoProbability, 1e-6)
	assert.GreaterOrEqual(t, p.ExpectedGoals.Home, 0.0)
	assert.GreaterOrEqual(t, p.ExpectedGoals.Away, 0.0)
	assert.InDelta(t, p.ExpectedGoals.Home+p.ExpectedGoals.Away, p.ExpectedGoals.Total, 1e-12)
}

func vector(home, away float64) []float64 {
	v := make([]float64, 68)
	v[0] = home
	v[8] = away
	return v
}

func TestBaselineHomeWin(t *testing.T) {
	p, err := Baseline{}.Predict(vector(0.6, 0.2))
	require.NoError(t, err)

	assert.Equal(t, HomeWin, p.MatchResult.PredictedOutcome)
	assert.Equal(t, 0.5, p.MatchResult.Confidence)
	assert.InDelta(t, 0.6/1.05, p.MatchResult.HomeWinProbability, 1e-12)
	assert.InDelta(t, 0.25/1.05, p.MatchResult.DrawProbability, 1e-12)
	assert.InDelta(t, 0.2/1.05, p.MatchResult.AwayWinProbability, 1e-12)
	assert.InDelta(t, 1.5, p.ExpectedGoals.Home, 1e-12)
	assert.InDelta(t, 0.4, p.ExpectedGoals.Away, 1e-12)
	assert.Equal(t, Markets(0.5, 0.5), p.BettingMarkets)
	assertCoherent(t, p)
}

func TestBaselineNeverPredictsDraw(t *testing.T) {
	p, err := Baseline{}.Predict(vector(0.3, 0.3))
	require.NoError(t, err)
	assert.Equal(t, AwayWin, p.MatchResult.PredictedOutcome)
}

func TestBaselineShortVectors(t *testing.T) {
	p, err := Baseline{}.Predict(nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.4/0.95, p.MatchResult.HomeWinProbability, 1e-12)
	assert.Equal(t, HomeWin, p.MatchResult.PredictedOutcome)

	p, err = Baseline{}.Predict([]float64{0.1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.1/0.65, p.MatchResult.HomeWinProbability, 1e-12)
	assert.Equal(t, AwayWin, p.MatchResult.PredictedOutcome)
}

func TestBaselineNonPositiveTotalFallsBack(t *testing.T) {
	p, err := Baseline{}.Predict(vector(-0.5, -0.5))
	require.NoError(t, err)
	assert.Equal(t, 0.45, p.MatchResult.HomeWinProbability)
	assert.Equal(t, 0.30, p.MatchResult.DrawProbability)
	assert.Equal(t, 0.25, p.MatchResult.AwayWinProbability)
	assert.Equal(t, 0.0, p.ExpectedGoals.Home)
	assert.Equal(t, 0.0, p.ExpectedGoals.Total)
}

func TestBaselineDeterministic(t *testing.T) {
	a, _ := Baseline{}.Predict(vector(0.55, 0.35))
	b, _ := Baseline{}.Predict(vector(0.55, 0.35))
	assert.Equal(t, a, b)
}

func TestResultFromDistribution(t *testing.T) {
	mr := ResultFromDistribution(0.2, 0.5, 0.3)
	assert.Equal(t, Draw, mr.PredictedOutcome)
	assert.Equal(t, 0.5, mr.Confidence)

	mr = ResultFromDistribution(0.4, 0.2, 0.4)
	assert.Equal(t, HomeWin, mr.PredictedOutcome)
}

func TestModelStates(t *testing.T) {
	m := New(TypeLSTM, 68)
	assert.Equal(t, TypeMLP, m.Type())
	assert.False(t, m.Trained())

	net := m.Build()
	assert.Same(t, net, m.Build())
	assert.False(t, m.Trained(), "building the layout does not train it")

	p, err := m.Predict(vector(0.6, 0.2))
	require.NoError(t, err)
	assert.Equal(t, 0.5, p.MatchResult.Confidence)

	m.Promote(net)
	assert.True(t, m.Trained())
	p, err = m.Predict(vector(0.6, 0.2))
	require.NoError(t, err)
	assertCoherent(t, p)
	assert.Contains(t, []string{HomeWin, Draw, AwayWin}, p.MatchResult.PredictedOutcome)
}

func TestNetworkRejectsWrongWidth(t *testing.T) {
	_, err := NewNetwork(4).Predict([]float64{1, 2})
	assert.Error(t, err)
}
