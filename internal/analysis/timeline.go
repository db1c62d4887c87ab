package analysis

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/voicepulse/voicepulse-api/internal/audio"
	"github.com/voicepulse/voicepulse-api/internal/classifier"
	"github.com/voicepulse/voicepulse-api/internal/emotion"
)

// TimelineEntry is one classified window in temporal order. The timeline is
// the single source of truth every downstream aggregate derives from.
type TimelineEntry struct {
	SegmentID      int            `json:"segment_id"`
	StartSeconds   float64        `json:"start_seconds"`
	EndSeconds     float64        `json:"end_seconds"`
	StartFormatted string         `json:"start_formatted"`
	EndFormatted   string         `json:"end_formatted"`
	Emotion        emotion.Label  `json:"emotion"`
	Confidence     float64        `json:"confidence"`
	Distribution   emotion.Scores `json:"distribution"`
	Sentiment      Category       `json:"sentiment"`
	SentimentScore float64        `json:"sentiment_score"`
}

// ClassificationError reports a failed window classification with the
// window's time range.
type ClassificationError struct {
	StartSeconds float64
	EndSeconds   float64
	Err          error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify window %.2fs-%.2fs: %v", e.StartSeconds, e.EndSeconds, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// TimelineBuilder classifies windows and assembles the ordered timeline.
type TimelineBuilder struct {
	classifier     classifier.Classifier
	maxConcurrency int
}

// NewTimelineBuilder creates a builder that classifies up to maxConcurrency
// windows in parallel.
func NewTimelineBuilder(c classifier.Classifier, maxConcurrency int) *TimelineBuilder {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &TimelineBuilder{classifier: c, maxConcurrency: maxConcurrency}
}

// Build classifies every window and returns entries sorted by start time.
//
// Windows are classified concurrently, but each result lands in the slot of
// its window index, so the returned order is the windows' temporal order
// regardless of completion order. The first failure cancels the remaining
// classifications and aborts the build; no partial timeline is returned.
func (b *TimelineBuilder) Build(ctx context.Context, windows []audio.Window) ([]TimelineEntry, error) {
	if len(windows) == 0 {
		return nil, nil
	}

	entries := make([]TimelineEntry, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.maxConcurrency)

	for _, w := range windows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			scores, err := b.classifier.Classify(gctx, w.Samples, w.Rate)
			if err != nil {
				return &ClassificationError{
					StartSeconds: w.StartSeconds(),
					EndSeconds:   w.EndSeconds(),
					Err:          err,
				}
			}

			label, confidence := scores.Dominant()
			entries[w.Index] = TimelineEntry{
				SegmentID:      w.Index,
				StartSeconds:   w.StartSeconds(),
				EndSeconds:     w.EndSeconds(),
				StartFormatted: formatTime(w.StartSeconds()),
				EndFormatted:   formatTime(w.EndSeconds()),
				Emotion:        label,
				Confidence:     round3(confidence),
				Distribution:   scores,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// coverage returns each entry's non-overlapping covered duration: entry i
// owns the span up to the next entry's start, and the last entry owns its
// full window. The spans partition the analyzed range, so summing them gives
// the total covered duration.
func coverage(timeline []TimelineEntry) []float64 {
	weights := make([]float64, len(timeline))
	for i := range timeline {
		if i < len(timeline)-1 {
			weights[i] = timeline[i+1].StartSeconds - timeline[i].StartSeconds
		} else {
			weights[i] = timeline[i].EndSeconds - timeline[i].StartSeconds
		}
	}
	return weights
}
