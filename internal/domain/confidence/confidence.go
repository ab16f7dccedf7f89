// Package confidence defines the answerability estimate attached to a
// ranked result set.
package confidence

import "fmt"

// Label buckets the scalar confidence for downstream prompt construction
// or refusal.
type Label string

// Confidence labels, strongest first.
const (
	High         Label = "high"
	Medium       Label = "medium"
	Low          Label = "low"
	Insufficient Label = "insufficient"
)

// Thresholds are the label cutpoints. They must be strictly monotonic so
// a higher scalar can never earn a weaker label.
type Thresholds struct {
	High   float64
	Medium float64
	Low    float64
}

// DefaultThresholds returns the standard cutpoints.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.75, Medium: 0.5, Low: 0.25}
}

// Validate checks 0 < Low < Medium < High <= 1.
func (t Thresholds) Validate() error {
	if !(t.Low > 0 && t.Low < t.Medium && t.Medium < t.High && t.High <= 1) {
		return fmt.Errorf("thresholds must satisfy 0 < low < medium < high <= 1, got %+v", t)
	}
	return nil
}

// Score is the scalar confidence in [0,1] plus its label.
type Score struct {
	value float64
	label Label
}

// New clamps the value to [0,1] and labels it by the thresholds.
func New(value float64, t Thresholds) Score {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	var label Label
	switch {
	case value >= t.High:
		label = High
	case value >= t.Medium:
		label = Medium
	case value >= t.Low:
		label = Low
	default:
		label = Insufficient
	}
	return Score{value: value, label: label}
}

// Value returns the scalar in [0,1].
func (s Score) Value() float64 { return s.value }

// Label returns the bucketed label.
func (s Score) Label() Label { return s.label }

// Answerable reports whether generation should proceed at all.
func (s Score) Answerable() bool { return s.label != Insufficient }
