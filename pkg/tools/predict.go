// Package tools exposes the prediction engine as MCP tools.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/richard-senior/footy/internal/logger"
	"github.com/richard-senior/footy/pkg/datasource"
	"github.com/richard-senior/footy/pkg/predictor"
	"github.com/richard-senior/footy/pkg/protocol"
	"github.com/richard-senior/footy/pkg/report"
)

// HandlerFunc runs a tool with the arguments of a tools/call request
type HandlerFunc func(ctx context.Context, params any) (any, error)

// Engine is the part of the prediction engine the tools drive
type Engine interface {
	PredictMatch(ctx context.Context, home, away, league string, details bool) (*predictor.Result, *predictor.ErrorPayload)
	ClearCache() error
}

// Tools binds tool handlers to an engine
type Tools struct {
	engine Engine
}

// New creates the tool set for an engine
func New(engine Engine) *Tools {
	return &Tools{engine: engine}
}

/////////////////////////////////////////////////////////////////////////
////// predict_match
/////////////////////////////////////////////////////////////////////////

// PredictMatchTool returns the predict_match tool definition
func PredictMatchTool() protocol.Tool {
	return protocol.Tool{
		Name: "predict_match",
		Description: `
		Predicts the outcome of a football match between two teams.
		Returns home win, draw and away win probabilities, expected goals,
		over/under 2.5 goals and both teams to score probabilities, a short analysis
		of form and head to head record, and betting insights.
		`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"home": {
					Type:        "string",
					Description: "The home team, for example 'Arsenal'",
				},
				"away": {
					Type:        "string",
					Description: "The away team, for example 'Chelsea'",
				},
				"league": {
					Type:        "string",
					Description: "The league the match is played in",
					Enum:        datasource.Leagues(),
					Default:     datasource.DefaultLeague,
				},
				"format": {
					Type:        "string",
					Description: "markdown for a readable report, json for the raw prediction",
					Enum:        []string{"markdown", "json"},
					Default:     "markdown",
				},
			},
			Required: []string{"home", "away"},
		},
	}
}

// HandlePredictMatch runs a prediction. A failed prediction is reported as an
// error result rather than a protocol error so the client can show it.
func (t *Tools) HandlePredictMatch(ctx context.Context, params any) (any, error) {
	paramsMap, ok := params.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid parameters format")
	}
	home := stringParam(paramsMap, "home")
	away := stringParam(paramsMap, "away")
	if home == "" || away == "" {
		return nil, fmt.Errorf("home and away parameters are required")
	}
	league := stringParam(paramsMap, "league")
	format := stringParam(paramsMap, "format")
	logger.Info("predict_match:", home, "vs", away, league)

	res, errPayload := t.engine.PredictMatch(ctx, home, away, league, true)
	if errPayload != nil {
		b, _ := json.Marshal(errPayload)
		return protocol.ErrorResult(string(b)), nil
	}

	if format == "json" {
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal prediction: %w", err)
		}
		return protocol.TextResult(string(b)), nil
	}
	md, err := report.Markdown(res)
	if err != nil {
		return nil, err
	}
	return protocol.TextResult(md), nil
}

/////////////////////////////////////////////////////////////////////////
////// list_leagues
/////////////////////////////////////////////////////////////////////////

func ListLeaguesTool() protocol.Tool {
	return protocol.Tool{
		Name:        "list_leagues",
		Description: "Lists the leagues predictions can be made for",
		InputSchema: protocol.InputSchema{Type: "object", Required: []string{}},
	}
}

func (t *Tools) HandleListLeagues(ctx context.Context, params any) (any, error) {
	return protocol.TextResult(strings.Join(datasource.Leagues(), "\n")), nil
}

/////////////////////////////////////////////////////////////////////////
////// clear_cache
/////////////////////////////////////////////////////////////////////////

func ClearCacheTool() protocol.Tool {
	return protocol.Tool{
		Name:        "clear_cache",
		Description: "Discards cached football data so the next prediction fetches fresh statistics",
		InputSchema: protocol.InputSchema{Type: "object", Required: []string{}},
	}
}

func (t *Tools) HandleClearCache(ctx context.Context, params any) (any, error) {
	if err := t.engine.ClearCache(); err != nil {
		return nil, fmt.Errorf("failed to clear cache: %w", err)
	}
	return protocol.TextResult("Cache cleared"), nil
}

// stringParam returns a trimmed string argument or "" when absent
func stringParam(params map[string]any, name string) string {
	s, _ := params[name].(string)
	return strings.TrimSpace(s)
}
