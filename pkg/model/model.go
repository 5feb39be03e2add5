// Package model turns a feature vector into a Prediction.
//
// A Model starts Untrained and answers with the Baseline heuristic. It moves to
// Trained only when a Network is promoted into it; nothing in this repository trains
// one, so the baseline is what production serves.
package model

import (
	"sync"

	"github.com/richard-senior/footy/internal/logger"
)

// Supported model types
const (
	TypeMLP  = "mlp"
	TypeLSTM = "lstm"
)

// Predictor is the inference contract shared by the untrained and trained strategies
type Predictor interface {
	Name() string
	Trained() bool
	Predict(features []float64) (*Prediction, error)
}

// Model is the two state prediction engine
type Model struct {
	mu      sync.RWMutex
	kind    string
	inputs  int
	network *Network
	active  Predictor
}

// New returns an Untrained model of the given type for vectors of the given width.
// An lstm request falls back to the mlp layout.
func New(kind string, inputs int) *Model {
	if kind == TypeLSTM {
		logger.Warn("LSTM not implemented, using MLP")
		kind = TypeMLP
	}
	if kind == "" {
		kind = TypeMLP
	}
	return &Model{kind: kind, inputs: inputs, active: Baseline{}}
}

// Type returns the configured model type
func (m *Model) Type() string {
	return m.kind
}

// Build constructs the network layout once. Building does not train it, so the
// model remains Untrained.
func (m *Model) Build() *Network {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.network == nil {
		logger.Info("Building", m.kind, "model with", m.inputs, "inputs")
		m.network = NewNetwork(m.inputs)
	}
	return m.network
}

// Promote switches the model to the Trained state using the given predictor
func (m *Model) Promote(p Predictor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	logger.Info("Model promoted to", p.Name())
	m.active = p
}

// Trained reports whether predictions come from a trained network
func (m *Model) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active.Trained()
}

// Predict routes the features to the active strategy
func (m *Model) Predict(features []float64) (*Prediction, error) {
	m.mu.RLock()
	p := m.active
	m.mu.RUnlock()
	return p.Predict(features)
}
