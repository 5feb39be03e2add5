package features

import "fmt"

// Vector is an insertion ordered set of named features.
// Models read it positionally so the order of Set calls is part of its contract.
type Vector struct {
	names  []string
	values []float64
	index  map[string]int
}

// NewVector returns an empty vector
func NewVector() *Vector {
	return &Vector{index: make(map[string]int)}
}

// Set appends a feature, or overwrites it in place when the name already exists
func (v *Vector) Set(name string, value float64) {
	if i, ok := v.index[name]; ok {
		v.values[i] = value
		return
	}
	v.index[name] = len(v.names)
	v.names = append(v.names, name)
	v.values = append(v.values, value)
}

// Get returns a feature by name
func (v *Vector) Get(name string) (float64, bool) {
	i, ok := v.index[name]
	if !ok {
		return 0, false
	}
	return v.values[i], true
}

// At returns the feature at position i
func (v *Vector) At(i int) float64 {
	return v.values[i]
}

// Len returns the number of features
func (v *Vector) Len() int {
	return len(v.values)
}

// Names returns a copy of the feature names in order
func (v *Vector) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Values returns a copy of the feature values in order
func (v *Vector) Values() []float64 {
	out := make([]float64, len(v.values))
	copy(out, v.values)
	return out
}

// WithValues returns a vector with the same names and the given values
func (v *Vector) WithValues(values []float64) (*Vector, error) {
	if len(values) != len(v.values) {
		return nil, fmt.Errorf("feature count mismatch: have %d names, got %d values", len(v.values), len(values))
	}
	out := NewVector()
	for i, name := range v.names {
		out.Set(name, values[i])
	}
	return out, nil
}
