// Package emotion defines the fixed emotion vocabulary shared across the
// analysis pipeline: the seven classifier labels and the score distribution
// a classifier produces for an audio window.
package emotion

import (
	"errors"
	"fmt"
	"math"
)

// Label identifies one of the seven emotion classes.
type Label string

const (
	// Neutral indicates no pronounced emotional coloring.
	Neutral Label = "neutral"
	// Happy indicates joy or contentment.
	Happy Label = "happy"
	// Sad indicates sadness or grief.
	Sad Label = "sad"
	// Angry indicates anger or irritation.
	Angry Label = "angry"
	// Fear indicates anxiety or fear.
	Fear Label = "fear"
	// Disgust indicates aversion or disgust.
	Disgust Label = "disgust"
	// Surprise indicates astonishment.
	Surprise Label = "surprise"
)

// ErrUnknownLabel is returned when a string does not name one of the seven labels.
var ErrUnknownLabel = errors.New("unknown emotion label")

// canonical fixes the label order used for deterministic iteration.
// It matches the class index order of the underlying model.
var canonical = [...]Label{Neutral, Happy, Sad, Angry, Fear, Disgust, Surprise}

// Labels returns the seven labels in canonical order.
func Labels() []Label {
	out := make([]Label, len(canonical))
	copy(out, canonical)
	return out
}

// IsValid returns true if the label is one of the seven classes.
func (l Label) IsValid() bool {
	for _, c := range canonical {
		if l == c {
			return true
		}
	}
	return false
}

// Parse converts a string into a Label.
func Parse(s string) (Label, error) {
	l := Label(s)
	if !l.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
	}
	return l, nil
}

// Scores is a probability distribution over the seven labels.
// A well-formed distribution has an entry for every label, each score in
// [0, 1], and scores summing to approximately 1.
type Scores map[Label]float64

// sumTolerance bounds how far a distribution's total may drift from 1.
const sumTolerance = 0.01

// Validate checks that the distribution is well formed.
func (s Scores) Validate() error {
	if len(s) != len(canonical) {
		return fmt.Errorf("distribution has %d labels, want %d", len(s), len(canonical))
	}
	sum := 0.0
	for _, l := range canonical {
		v, ok := s[l]
		if !ok {
			return fmt.Errorf("distribution missing label %q", l)
		}
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("score for %q out of range: %v", l, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > sumTolerance {
		return fmt.Errorf("distribution sums to %v, want 1", sum)
	}
	return nil
}

// Dominant returns the highest-scoring label and its score.
// Ties resolve to the earlier label in canonical order.
func (s Scores) Dominant() (Label, float64) {
	best := canonical[0]
	bestScore := s[best]
	for _, l := range canonical[1:] {
		if s[l] > bestScore {
			best = l
			bestScore = s[l]
		}
	}
	return best, bestScore
}

// Clone returns an independent copy of the distribution.
func (s Scores) Clone() Scores {
	out := make(Scores, len(s))
	for l, v := range s {
		out[l] = v
	}
	return out
}
