// Package processor runs offline predictions: a raw match document in, prediction JSON out.
package processor

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/richard-senior/footy/internal/logger"
	"github.com/richard-senior/footy/pkg/matchdata"
	"github.com/richard-senior/footy/pkg/predictor"
)

// ErrPredictionFailed is returned alongside an error payload document
var ErrPredictionFailed = errors.New("prediction failed")

// Predictor predicts from data that has already been fetched
type Predictor interface {
	PredictRaw(ctx context.Context, raw *matchdata.RawMatchData, details bool) (*predictor.Result, *predictor.ErrorPayload)
}

// ProcessRequest decodes input as a raw match document and predicts it.
// The returned bytes are always a JSON document: the prediction, or the error
// payload together with an error wrapping ErrPredictionFailed.
func ProcessRequest(ctx context.Context, p Predictor, input []byte, details bool) ([]byte, error) {
	raw, err := matchdata.Decode(input)
	if err != nil {
		logger.Error("Failed to decode match data", err)
		return createErrorResponse(teamsOf(input), err)
	}

	logger.Info("Processing", raw.HomeTeam, "vs", raw.AwayTeam)
	res, errPayload := p.PredictRaw(ctx, raw, details)
	if errPayload != nil {
		out, mErr := json.MarshalIndent(errPayload, "", "  ")
		if mErr != nil {
			return nil, mErr
		}
		return out, errors.Join(ErrPredictionFailed, errors.New(errPayload.Error))
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		logger.Error("Failed to marshal prediction", err)
		return nil, err
	}
	return out, nil
}

// createErrorResponse builds the error payload for input that never reached the engine
func createErrorResponse(payload predictor.ErrorPayload, cause error) ([]byte, error) {
	payload.Error = cause.Error()
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, err
	}
	return out, errors.Join(ErrPredictionFailed, cause)
}

// teamsOf recovers whatever team names a rejected document carries
func teamsOf(input []byte) predictor.ErrorPayload {
	var teams struct {
		HomeTeam string `json:"home_team"`
		AwayTeam string `json:"away_team"`
	}
	_ = json.Unmarshal(input, &teams)
	return predictor.ErrorPayload{HomeTeam: teams.HomeTeam, AwayTeam: teams.AwayTeam}
}
