package model

import (
	"fmt"
	"math"
	"sync"

	deep "github.com/patrikeh/go-deep"
)

// Hidden layer widths shared by every head of the MLP
var HiddenLayers = []int{256, 128, 64, 32}

// Network is the trained predictor. Three go-deep heads share the same hidden
// layout: a softmax result head, a regression goals head and a sigmoid markets head.
type Network struct {
	mu      sync.Mutex
	inputs  int
	result  *deep.Neural
	goals   *deep.Neural
	markets *deep.Neural
}

func head(inputs, outputs int, mode deep.Mode) *deep.Neural {
	layout := append(append([]int(nil), HiddenLayers...), outputs)
	return deep.NewNeural(&deep.Config{
		Inputs:     inputs,
		Layout:     layout,
		Activation: deep.ActivationReLU,
		Mode:       mode,
		Weight:     deep.NewNormal(0.1, 0.0),
		Bias:       true,
	})
}

// NewNetwork builds the MLP heads for a feature vector of the given width
func NewNetwork(inputs int) *Network {
	return &Network{
		inputs:  inputs,
		result:  head(inputs, 3, deep.ModeMultiClass),
		goals:   head(inputs, 2, deep.ModeRegression),
		markets: head(inputs, 2, deep.ModeMultiLabel),
	}
}

func (n *Network) Name() string { return "mlp" }

func (n *Network) Trained() bool { return true }

// Predict runs the feature vector through all three heads.
// Under 2.5 and BTTS-no are the complements of the modelled probabilities.
func (n *Network) Predict(features []float64) (*Prediction, error) {
	if len(features) != n.inputs {
		return nil, fmt.Errorf("network expects %d features, got %d", n.inputs, len(features))
	}

	// go-deep keeps activations on the neurons so a forward pass is not reentrant
	n.mu.Lock()
	r := n.result.Predict(features)
	g := n.goals.Predict(features)
	m := n.markets.Predict(features)
	n.mu.Unlock()

	if len(r) != 3 || len(g) != 2 || len(m) != 2 {
		return nil, fmt.Errorf("unexpected network output widths %d/%d/%d", len(r), len(g), len(m))
	}

	home := math.Max(0, g[0])
	away := math.Max(0, g[1])

	return &Prediction{
		MatchResult:    ResultFromDistribution(r[0], r[1], r[2]),
		ExpectedGoals:  ExpectedGoals{Home: home, Away: away, Total: home + away},
		BettingMarkets: Markets(m[0], m[1]),
	}, nil
}
