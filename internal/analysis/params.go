// Package analysis implements the emotion analysis pipeline: windowing a
// normalized audio buffer, classifying each window, detecting emotional
// transitions, aggregating sentiment, and assembling the final report.
package analysis

import (
	"errors"
	"fmt"

	"github.com/voicepulse/voicepulse-api/internal/audio"
	"github.com/voicepulse/voicepulse-api/internal/emotion"
)

// ErrInvalidParams is returned when pipeline parameters are out of range.
var ErrInvalidParams = errors.New("analysis: invalid parameters")

// Params configures one analysis pipeline.
type Params struct {
	// WindowSeconds is the analysis window length.
	WindowSeconds float64
	// OverlapSeconds is the overlap between consecutive windows.
	OverlapSeconds float64
	// MinWindowFraction is the minimum trailing-window length as a fraction
	// of WindowSeconds.
	MinWindowFraction float64
	// SignificanceThreshold is the confidence-change magnitude above which a
	// transition is significant on its own.
	SignificanceThreshold float64
	// PositiveThreshold and NegativeThreshold bound the neutral band of the
	// overall sentiment score.
	PositiveThreshold float64
	NegativeThreshold float64
	// SentimentTable maps each emotion label to its polarity in [-1, 1].
	SentimentTable map[emotion.Label]float64
	// MaxConcurrency bounds parallel window classification.
	MaxConcurrency int
}

// DefaultParams returns the default pipeline parameters.
func DefaultParams() Params {
	return Params{
		WindowSeconds:         2.0,
		OverlapSeconds:        1.0,
		MinWindowFraction:     0.5,
		SignificanceThreshold: 0.15,
		PositiveThreshold:     0.15,
		NegativeThreshold:     -0.15,
		SentimentTable:        DefaultSentimentTable(),
		MaxConcurrency:        4,
	}
}

// Validate checks threshold and table ranges. Window geometry is validated
// against the buffer when segmenting.
func (p Params) Validate() error {
	if p.SignificanceThreshold < 0 || p.SignificanceThreshold > 1 {
		return fmt.Errorf("%w: significance threshold %v", ErrInvalidParams, p.SignificanceThreshold)
	}
	if p.PositiveThreshold <= 0 || p.PositiveThreshold > 1 {
		return fmt.Errorf("%w: positive threshold %v", ErrInvalidParams, p.PositiveThreshold)
	}
	if p.NegativeThreshold >= 0 || p.NegativeThreshold < -1 {
		return fmt.Errorf("%w: negative threshold %v", ErrInvalidParams, p.NegativeThreshold)
	}
	if p.MaxConcurrency < 1 {
		return fmt.Errorf("%w: max concurrency %d", ErrInvalidParams, p.MaxConcurrency)
	}
	if len(p.SentimentTable) != len(emotion.Labels()) {
		return fmt.Errorf("%w: sentiment table has %d labels, want %d",
			ErrInvalidParams, len(p.SentimentTable), len(emotion.Labels()))
	}
	for _, label := range emotion.Labels() {
		v, ok := p.SentimentTable[label]
		if !ok {
			return fmt.Errorf("%w: sentiment table missing %q", ErrInvalidParams, label)
		}
		if v < -1 || v > 1 {
			return fmt.Errorf("%w: sentiment for %q out of range: %v", ErrInvalidParams, label, v)
		}
	}
	return nil
}

// segmentOpts converts the window geometry into segmenter options.
func (p Params) segmentOpts() audio.SegmentOpts {
	return audio.SegmentOpts{
		WindowSeconds:     p.WindowSeconds,
		OverlapSeconds:    p.OverlapSeconds,
		MinWindowFraction: p.MinWindowFraction,
	}
}
