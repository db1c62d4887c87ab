// Package classifier provides the emotion classification capability used by
// the analysis pipeline: given one window of normalized samples, produce a
// probability distribution over the seven emotion labels.
//
// The pipeline is agnostic to the backend. HTTPClassifier delegates to an
// external inference service, EnergyClassifier derives a deterministic
// distribution from time-domain features, and CachedClassifier memoizes any
// backend by content hash.
package classifier

import (
	"context"
	"errors"

	"github.com/voicepulse/voicepulse-api/internal/emotion"
)

// ErrNoSamples is returned when a classification is requested for an empty window.
var ErrNoSamples = errors.New("classifier: no samples")

// Classifier scores one window of audio.
type Classifier interface {
	// Classify returns the emotion probability distribution for the given
	// samples. Implementations must be safe for concurrent use.
	Classify(ctx context.Context, samples []float64, sampleRate int) (emotion.Scores, error)
}
