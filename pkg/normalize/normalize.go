// Package normalize standardises feature columns with statistics fitted once per process.
//
// A Normalizer that was never fitted passes data through untouched. After a fit the
// statistics are read only; a later FitTransform reuses them rather than refitting.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/richard-senior/footy/internal/logger"
	"github.com/richard-senior/footy/pkg/features"
)

var ErrNoRows = errors.New("no rows to fit")

// Normalizer holds per-column mean and standard deviation
type Normalizer struct {
	mu     sync.RWMutex
	fitted bool
	mean   []float64
	scale  []float64
}

// New returns an unfitted normalizer
func New() *Normalizer {
	return &Normalizer{}
}

// IsFitted reports whether fit statistics are present
func (n *Normalizer) IsFitted() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.fitted
}

// FitTransform establishes column statistics from rows and returns the standardised rows.
// Statistics are set at most once; if already fitted the existing statistics are used.
func (n *Normalizer) FitTransform(rows [][]float64) ([][]float64, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	width := len(rows[0])
	for i, r := range rows {
		if len(r) != width {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(r), width)
		}
	}

	n.mu.Lock()
	if n.fitted {
		n.mu.Unlock()
		logger.Warn("Normalizer already fitted, reusing existing statistics")
		return n.Transform(rows)
	}
	n.mean, n.scale = columnStats(rows, width)
	n.fitted = true
	n.mu.Unlock()

	logger.Debug("Normalizer fitted on", len(rows), "rows of", width, "columns")
	return n.Transform(rows)
}

// Transform standardises rows with the fitted statistics.
// When unfitted the input is returned unchanged.
func (n *Normalizer) Transform(rows [][]float64) ([][]float64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if !n.fitted {
		return rows, nil
	}

	out := make([][]float64, len(rows))
	for i, r := range rows {
		if len(r) != len(n.mean) {
			return nil, fmt.Errorf("row %d has %d columns, normalizer fitted on %d", i, len(r), len(n.mean))
		}
		o := make([]float64, len(r))
		for j, v := range r {
			o[j] = (v - n.mean[j]) / n.scale[j]
		}
		out[i] = o
	}
	ImputeNonFinite(out)
	return out, nil
}

// TransformVector standardises a single feature vector, keeping its names and order
func (n *Normalizer) TransformVector(v *features.Vector) (*features.Vector, error) {
	if !n.IsFitted() {
		return v, nil
	}
	rows, err := n.Transform([][]float64{v.Values()})
	if err != nil {
		return nil, err
	}
	return v.WithValues(rows[0])
}

// ImputeNonFinite replaces every NaN or infinite cell with its column's median over the
// finite cells, or 0 when the column has no finite cell.
func ImputeNonFinite(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	for j := range rows[0] {
		var finite []float64
		dirty := false
		for _, r := range rows {
			if isFinite(r[j]) {
				finite = append(finite, r[j])
			} else {
				dirty = true
			}
		}
		if !dirty {
			continue
		}
		fill := median(finite)
		if !isFinite(fill) {
			fill = 0
		}
		for _, r := range rows {
			if !isFinite(r[j]) {
				r[j] = fill
			}
		}
	}
}

// columnStats uses the population standard deviation
func columnStats(rows [][]float64, width int) (mean, std []float64) {
	mean = make([]float64, width)
	std = make([]float64, width)
	count := float64(len(rows))
	for _, r := range rows {
		for j, v := range r {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= count
	}
	for _, r := range rows {
		for j, v := range r {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / count)
	}
	return mean, std
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
