package predictor

import (
	"time"

	"github.com/richard-senior/footy/pkg/store"
)

// Record is one stored prediction
type Record struct {
	ID                 string  `column:"prediction_id" dbtype:"TEXT NOT NULL" primary:"true" json:"prediction_id"`
	HomeTeam           string  `column:"home_team" dbtype:"TEXT NOT NULL" json:"home_team"`
	AwayTeam           string  `column:"away_team" dbtype:"TEXT NOT NULL" json:"away_team"`
	League             string  `column:"league" dbtype:"TEXT" json:"league"`
	PredictedOutcome   string  `column:"predicted_outcome" dbtype:"TEXT" json:"predicted_outcome"`
	HomeWinProbability float64 `column:"home_win_probability" dbtype:"REAL" json:"home_win_probability"`
	DrawProbability    float64 `column:"draw_probability" dbtype:"REAL" json:"draw_probability"`
	AwayWinProbability float64 `column:"away_win_probability" dbtype:"REAL" json:"away_win_probability"`
	Confidence         float64 `column:"confidence" dbtype:"REAL" json:"confidence"`
	ModelType          string  `column:"model_type" dbtype:"TEXT" json:"model_type"`
	PredictedAt        int64   `column:"predicted_at" dbtype:"INTEGER NOT NULL" index:"true" json:"predicted_at"`
}

func (r *Record) TableName() string { return "prediction_history" }

func (r *Record) PrimaryKey() map[string]any {
	return map[string]any{"prediction_id": r.ID}
}

// History stores completed predictions
type History struct {
	db *store.DB
}

// NewHistory prepares the history table
func NewHistory(db *store.DB) (*History, error) {
	if err := db.CreateTable(&Record{}); err != nil {
		return nil, err
	}
	return &History{db: db}, nil
}

// Add stores the headline figures of a prediction
func (h *History) Add(r *Result) error {
	mr := r.MatchResult
	return h.db.Save(&Record{
		ID:                 r.Metadata.PredictionID,
		HomeTeam:           r.Metadata.HomeTeam,
		AwayTeam:           r.Metadata.AwayTeam,
		League:             r.Metadata.League,
		PredictedOutcome:   mr.PredictedOutcome,
		HomeWinProbability: mr.HomeWinProbability,
		DrawProbability:    mr.DrawProbability,
		AwayWinProbability: mr.AwayWinProbability,
		Confidence:         mr.Confidence,
		ModelType:          r.Metadata.ModelType,
		PredictedAt:        r.predictedAt.UnixMilli(),
	})
}

// Recent returns up to limit predictions, newest first
func (h *History) Recent(limit int) ([]*Record, error) {
	if limit < 1 {
		limit = 20
	}
	return store.Find[Record](h.db, store.Query{OrderBy: "predicted_at", Desc: true, Limit: limit})
}

// Time returns when the prediction was made
func (r *Record) Time() time.Time {
	return time.UnixMilli(r.PredictedAt)
}
