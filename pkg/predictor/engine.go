// Package predictor runs the full prediction pipeline for a fixture: fetch, preprocess,
// engineer, normalise, predict, then attach analysis, betting insights and metadata.
//
// Failures surface as an ErrorPayload that echoes the team names and carries no
// partial prediction.
package predictor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richard-senior/footy/internal/logger"
	"github.com/richard-senior/footy/pkg/datasource"
	"github.com/richard-senior/footy/pkg/features"
	"github.com/richard-senior/footy/pkg/matchdata"
	"github.com/richard-senior/footy/pkg/model"
	"github.com/richard-senior/footy/pkg/normalize"
	"github.com/richard-senior/footy/pkg/preprocess"
)

// Metadata identifies a prediction
type Metadata struct {
	HomeTeam       string `json:"home_team"`
	AwayTeam       string `json:"away_team"`
	League         string `json:"league"`
	PredictionTime string `json:"prediction_time"`
	ModelType      string `json:"model_type"`
	PredictionID   string `json:"prediction_id"`
}

// Result is a prediction with its optional commentary and metadata
type Result struct {
	model.Prediction
	Analysis        *Analysis        `json:"analysis,omitempty"`
	BettingInsights *BettingInsights `json:"betting_insights,omitempty"`
	Metadata        Metadata         `json:"metadata"`

	predictedAt time.Time
}

// ErrorPayload is returned in place of a Result when a prediction fails
type ErrorPayload struct {
	Error    string `json:"error"`
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
}

// Notifier is told about every successful prediction
type Notifier interface {
	Notify(ctx context.Context, r *Result) error
}

// Options configures an Engine
type Options struct {
	// ModelType is recorded in metadata and selects the network layout
	ModelType string
	// Normalize enables the feature normaliser
	Normalize bool

	// Trained, when set, is promoted into the model once it is built
	Trained model.Predictor

	History  *History
	Notifier Notifier
}

// Engine is the process wide prediction pipeline. It is safe for concurrent use.
type Engine struct {
	source     datasource.Source
	normalizer *normalize.Normalizer
	opts       Options

	mu    sync.Mutex
	model *model.Model

	pending sync.WaitGroup
}

// NewEngine creates an engine. source may be nil when only PredictRaw is used.
func NewEngine(source datasource.Source, opts Options) *Engine {
	if opts.ModelType == "" {
		opts.ModelType = model.TypeMLP
	}
	e := &Engine{source: source, opts: opts}
	if opts.Normalize {
		e.normalizer = normalize.New()
	}
	return e
}

// Initialized reports whether the model has been built by a first prediction
func (e *Engine) Initialized() bool {
	return e.Model() != nil
}

// Model returns the model, or nil before the first prediction
func (e *Engine) Model() *model.Model {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}

// ensureModel builds the model for vectors of the given width on first use
func (e *Engine) ensureModel(inputs int) *model.Model {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		m := model.New(e.opts.ModelType, inputs)
		m.Build()
		if e.opts.Trained != nil {
			m.Promote(e.opts.Trained)
		}
		e.model = m
	}
	return e.model
}

// ClearCache drops the data source's cached responses
func (e *Engine) ClearCache() error {
	if e.source == nil {
		return nil
	}
	return e.source.ClearCache()
}

// History returns up to limit stored predictions, newest first
func (e *Engine) History(limit int) ([]*Record, error) {
	if e.opts.History == nil {
		return []*Record{}, nil
	}
	return e.opts.History.Recent(limit)
}

// PredictMatch fetches data for a fixture and predicts it. An empty league means
// the Premier League.
func (e *Engine) PredictMatch(ctx context.Context, home, away, league string, details bool) (*Result, *ErrorPayload) {
	logger.Info("Predicting:", home, "vs", away)
	if league == "" {
		league = datasource.DefaultLeague
	}
	if e.source == nil {
		return nil, e.fail(home, away, fmt.Errorf("no data source configured"))
	}

	raw, err := e.source.FetchMatchData(ctx, home, away, league)
	if err != nil {
		return nil, e.fail(home, away, err)
	}
	return e.predict(ctx, raw, home, away, league, details)
}

// PredictRaw predicts from data that has already been fetched
func (e *Engine) PredictRaw(ctx context.Context, raw *matchdata.RawMatchData, details bool) (*Result, *ErrorPayload) {
	if raw == nil {
		return nil, e.fail("", "", &matchdata.MissingDataError{Field: "match_data"})
	}
	return e.predict(ctx, raw, raw.HomeTeam, raw.AwayTeam, raw.LeagueOrDefault(), details)
}

func (e *Engine) fail(home, away string, err error) *ErrorPayload {
	logger.Error("Prediction error:", err)
	return &ErrorPayload{Error: err.Error(), HomeTeam: home, AwayTeam: away}
}

func (e *Engine) predict(ctx context.Context, raw *matchdata.RawMatchData, home, away, league string, details bool) (*Result, *ErrorPayload) {
	data, err := preprocess.Preprocess(raw)
	if err != nil {
		return nil, e.fail(home, away, err)
	}

	vec := features.Engineer(data)
	if e.normalizer != nil {
		if vec, err = e.normalizer.TransformVector(vec); err != nil {
			return nil, e.fail(home, away, err)
		}
	}

	m := e.ensureModel(vec.Len())
	pred, err := m.Predict(vec.Values())
	if err != nil {
		return nil, e.fail(home, away, err)
	}

	now := time.Now()
	res := &Result{
		Prediction: *pred,
		Metadata: Metadata{
			HomeTeam:       home,
			AwayTeam:       away,
			League:         league,
			PredictionTime: now.Format(time.RFC3339),
			ModelType:      m.Type(),
			PredictionID:   uuid.NewString(),
		},
		predictedAt: now,
	}
	insights := Insights(pred)
	if details {
		res.Analysis = Analyze(data)
		res.BettingInsights = insights
	}

	e.record(ctx, res, insights)
	return res, nil
}

// notifyTimeout bounds one notification, retries included
const notifyTimeout = 30 * time.Second

// record stores the prediction and notifies on a strong call. Both are best effort.
// The notification is sent in the background and outlives the request.
func (e *Engine) record(ctx context.Context, res *Result, insights *BettingInsights) {
	if e.opts.History != nil {
		if err := e.opts.History.Add(res); err != nil {
			logger.Warn("Failed to store prediction", res.Metadata.PredictionID, err)
		}
	}
	if e.opts.Notifier == nil || insights.MatchResult.Confidence != ConfidenceHigh {
		return
	}
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := e.opts.Notifier.Notify(nctx, res); err != nil {
			logger.Warn("Failed to send notification", res.Metadata.PredictionID, err)
		}
	}()
}

// Wait blocks until every background notification has finished
func (e *Engine) Wait() {
	e.pending.Wait()
}
