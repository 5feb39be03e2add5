package processor

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/richard-senior/footy/pkg/matchdata"
	"github.com/richard-senior/footy/pkg/predictor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const document = `{
	"home_team": "Arsenal",
	"away_team": "Chelsea",
	"home_stats": {"matches_played": 10, "wins": 6, "draws": 2, "losses": 2, "goals_scored": 18, "goals_conceded": 8},
	"away_stats": {"matches_played": 10, "wins": 3, "draws": 3, "losses": 4, "goals_scored": 12, "goals_conceded": 14},
	"head_to_head": {"total_matches": 4, "team1_wins": 2, "draws": 1, "team2_wins": 1},
	"home_player_availability": {"injuries": ["Saka"], "suspensions": []},
	"away_player_availability": {"injuries": [], "suspensions": []},
	"home_recent_form": [{"result": "W", "goals_scored": 2, "goals_conceded": 0}],
	"away_recent_form": []
}`

func TestProcessRequest(t *testing.T) {
	engine := predictor.NewEngine(nil, predictor.Options{Normalize: true})

	out, err := ProcessRequest(context.Background(), engine, []byte(document), true)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(out, &body))
	assert.Contains(t, body, "match_result")
	assert.Contains(t, body, "analysis")
	meta := body["metadata"].(map[string]any)
	assert.Equal(t, "Arsenal", meta["home_team"])
	assert.Equal(t, matchdata.DefaultLeague, meta["league"])
}

func TestProcessRequestWithoutDetails(t *testing.T) {
	engine := predictor.NewEngine(nil, predictor.Options{})

	out, err := ProcessRequest(context.Background(), engine, []byte(document), false)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"analysis"`)
}

func TestProcessRequestMissingField(t *testing.T) {
	engine := predictor.NewEngine(nil, predictor.Options{})

	out, err := ProcessRequest(context.Background(), engine, []byte(`{"home_team":"Arsenal","away_team":"Chelsea"}`), true)
	require.ErrorIs(t, err, ErrPredictionFailed)

	var payload predictor.ErrorPayload
	require.NoError(t, json.Unmarshal(out, &payload))
	assert.Equal(t, "Arsenal", payload.HomeTeam)
	assert.Equal(t, "Chelsea", payload.AwayTeam)
	assert.Contains(t, payload.Error, "home_stats")
}

func TestProcessRequestNullForm(t *testing.T) {
	engine := predictor.NewEngine(nil, predictor.Options{})
	doc := strings.Replace(document, `"away_recent_form": []`, `"away_recent_form": null`, 1)

	out, err := ProcessRequest(context.Background(), engine, []byte(doc), false)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"match_result"`)
}

func TestProcessRequestInvalidJSON(t *testing.T) {
	engine := predictor.NewEngine(nil, predictor.Options{})

	out, err := ProcessRequest(context.Background(), engine, []byte(`{not json`), true)
	require.ErrorIs(t, err, ErrPredictionFailed)
	assert.Contains(t, string(out), `"error"`)
}
