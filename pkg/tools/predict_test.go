package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/richard-senior/footy/pkg/model"
	"github.com/richard-senior/footy/pkg/predictor"
	"github.com/richard-senior/footy/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	league   string
	fail     bool
	clearErr error
	cleared  int
}

func (f *fakeEngine) PredictMatch(ctx context.Context, home, away, league string, details bool) (*predictor.Result, *predictor.ErrorPayload) {
	f.league = league
	if f.fail {
		return nil, &predictor.ErrorPayload{Error: "no data", HomeTeam: home, AwayTeam: away}
	}
	return &predictor.Result{
		Prediction: model.Prediction{
			MatchResult:    model.ResultFromDistribution(0.5, 0.3, 0.2),
			ExpectedGoals:  model.ExpectedGoals{Home: 1.4, Away: 1.1, Total: 2.5},
			BettingMarkets: model.Markets(0.5, 0.5),
		},
		Metadata: predictor.Metadata{HomeTeam: home, AwayTeam: away, League: league},
	}, nil
}

func (f *fakeEngine) ClearCache() error {
	f.cleared++
	return f.clearErr
}

func call(t *testing.T, h HandlerFunc, params any) *protocol.ToolResult {
	t.Helper()
	out, err := h(context.Background(), params)
	require.NoError(t, err)
	res, ok := out.(*protocol.ToolResult)
	require.True(t, ok)
	require.Len(t, res.Content, 1)
	return res
}

func TestPredictMatchMarkdown(t *testing.T) {
	eng := &fakeEngine{}
	res := call(t, New(eng).HandlePredictMatch, map[string]any{"home": " Arsenal ", "away": "Chelsea", "league": "La Liga"})
	assert.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "Arsenal vs Chelsea")
	assert.Equal(t, "La Liga", eng.league)
}

func TestPredictMatchJSON(t *testing.T) {
	res := call(t, New(&fakeEngine{}).HandlePredictMatch, map[string]any{"home": "Arsenal", "away": "Chelsea", "format": "json"})

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &body))
	assert.Contains(t, body, "match_result")
	assert.Equal(t, "Arsenal", body["metadata"].(map[string]any)["home_team"])
}

func TestPredictMatchFailureIsToolError(t *testing.T) {
	res := call(t, New(&fakeEngine{fail: true}).HandlePredictMatch, map[string]any{"home": "Arsenal", "away": "Chelsea"})
	assert.True(t, res.IsError)
	assert.JSONEq(t, `{"error":"no data","home_team":"Arsenal","away_team":"Chelsea"}`, res.Content[0].Text)
}

func TestPredictMatchRequiresTeams(t *testing.T) {
	tl := New(&fakeEngine{})
	_, err := tl.HandlePredictMatch(context.Background(), map[string]any{"home": "Arsenal"})
	assert.Error(t, err)
	_, err = tl.HandlePredictMatch(context.Background(), "Arsenal v Chelsea")
	assert.Error(t, err)
}

func TestListLeagues(t *testing.T) {
	res := call(t, New(&fakeEngine{}).HandleListLeagues, nil)
	assert.Contains(t, res.Content[0].Text, "Premier League")
	assert.Contains(t, res.Content[0].Text, "Bundesliga")
}

func TestClearCache(t *testing.T) {
	eng := &fakeEngine{}
	res := call(t, New(eng).HandleClearCache, map[string]any{})
	assert.Equal(t, "Cache cleared", res.Content[0].Text)
	assert.Equal(t, 1, eng.cleared)

	eng.clearErr = errors.New("disk full")
	_, err := New(eng).HandleClearCache(context.Background(), nil)
	assert.ErrorContains(t, err, "disk full")
}

func TestToolDefinitions(t *testing.T) {
	tool := PredictMatchTool()
	assert.Equal(t, "predict_match", tool.Name)
	assert.ElementsMatch(t, []string{"home", "away"}, tool.InputSchema.Required)
	assert.Contains(t, tool.InputSchema.Properties["league"].Enum, "Serie A")
	assert.Equal(t, "list_leagues", ListLeaguesTool().Name)
	assert.Equal(t, "clear_cache", ClearCacheTool().Name)
}
