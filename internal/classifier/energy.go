package classifier

import (
	"context"
	"math"

	"github.com/voicepulse/voicepulse-api/internal/emotion"
)

// EnergyClassifier derives an emotion distribution from time-domain signal
// features: RMS energy, zero-crossing rate and crest factor. It is a pure
// function of the samples, so identical windows always score identically.
// It backs the standalone mode and deterministic pipeline tests; production
// deployments point at an inference service instead.
type EnergyClassifier struct{}

// NewEnergyClassifier creates a new EnergyClassifier.
func NewEnergyClassifier() *EnergyClassifier {
	return &EnergyClassifier{}
}

// scoreFloor keeps every label present in the distribution.
const scoreFloor = 0.02

// Classify implements Classifier.
func (c *EnergyClassifier) Classify(ctx context.Context, samples []float64, sampleRate int) (emotion.Scores, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	rms, zcr, crest := timeFeatures(samples)

	// Squash features into [0, 1]. 0.3 RMS sits around loud speech; voiced
	// speech rarely crosses zero more than a quarter of the time at 16kHz.
	energy := math.Min(1, rms/0.3)
	bright := math.Min(1, zcr/0.25)
	spike := math.Min(1, math.Max(0, (crest-1.5)/3))

	weights := emotion.Scores{
		emotion.Neutral:  affinity(energy, 0.3, 0.5) * affinity(bright, 0.3, 0.5),
		emotion.Happy:    energy * bright,
		emotion.Sad:      (1 - energy) * (1 - bright),
		emotion.Angry:    energy * (1 - bright),
		emotion.Fear:     (1 - energy) * bright,
		emotion.Disgust:  0.5 * (1 - energy) * affinity(bright, 0.4, 0.4),
		emotion.Surprise: spike * energy,
	}

	sum := 0.0
	for _, l := range emotion.Labels() {
		weights[l] += scoreFloor
		sum += weights[l]
	}
	for _, l := range emotion.Labels() {
		weights[l] /= sum
	}

	return weights, nil
}

// timeFeatures computes RMS energy, zero-crossing rate and crest factor.
func timeFeatures(samples []float64) (rms, zcr, crest float64) {
	var sumSquares, peak float64
	crossings := 0

	for i, s := range samples {
		sumSquares += s * s
		if a := math.Abs(s); a > peak {
			peak = a
		}
		if i > 0 && (s >= 0) != (samples[i-1] >= 0) {
			crossings++
		}
	}

	rms = math.Sqrt(sumSquares / float64(len(samples)))
	zcr = float64(crossings) / float64(len(samples))
	if rms > 0 {
		crest = peak / rms
	}
	return rms, zcr, crest
}

// affinity scores how close x is to center, reaching zero at distance width.
func affinity(x, center, width float64) float64 {
	return math.Max(0, 1-math.Abs(x-center)/width)
}

// Verify interface implementation at compile time.
var _ Classifier = (*EnergyClassifier)(nil)
