package analysis

import (
	"math"

	"github.com/voicepulse/voicepulse-api/internal/emotion"
)

// Transition is a change of dominant emotion between two adjacent timeline
// entries, stamped at the later entry's start.
type Transition struct {
	Time             string        `json:"time"`
	TimeSeconds      float64       `json:"time_seconds"`
	FromEmotion      emotion.Label `json:"from_emotion"`
	ToEmotion        emotion.Label `json:"to_emotion"`
	FromConfidence   float64       `json:"from_confidence"`
	ToConfidence     float64       `json:"to_confidence"`
	ConfidenceChange float64       `json:"confidence_change"`
	IsSignificant    bool          `json:"is_significant"`
}

// TransitionDetector finds dominant-emotion changes in a timeline.
type TransitionDetector struct {
	threshold float64
	mapper    *SentimentMapper
}

// NewTransitionDetector creates a detector. A transition is significant when
// the confidence change magnitude exceeds threshold, or when it crosses a
// sentiment-category boundary.
func NewTransitionDetector(threshold float64, mapper *SentimentMapper) *TransitionDetector {
	return &TransitionDetector{threshold: threshold, mapper: mapper}
}

// Detect scans adjacent entry pairs and returns the transitions in order.
// Timelines of fewer than two entries yield no transitions.
func (d *TransitionDetector) Detect(timeline []TimelineEntry) []Transition {
	if len(timeline) < 2 {
		return nil
	}

	var transitions []Transition
	for i := 1; i < len(timeline); i++ {
		prev, cur := timeline[i-1], timeline[i]
		if prev.Emotion == cur.Emotion {
			continue
		}

		change := round3(cur.Confidence - prev.Confidence)
		transitions = append(transitions, Transition{
			Time:             cur.StartFormatted,
			TimeSeconds:      cur.StartSeconds,
			FromEmotion:      prev.Emotion,
			ToEmotion:        cur.Emotion,
			FromConfidence:   round3(prev.Confidence),
			ToConfidence:     round3(cur.Confidence),
			ConfidenceChange: change,
			IsSignificant:    d.significant(prev.Emotion, cur.Emotion, change),
		})
	}
	return transitions
}

// significant applies the significance rule. A zero confidence change is
// never significant, even across a category boundary. The threshold
// comparison is strictly greater-than.
func (d *TransitionDetector) significant(from, to emotion.Label, change float64) bool {
	if change == 0 {
		return false
	}
	if math.Abs(change) > d.threshold {
		return true
	}
	return d.mapper.LabelCategory(from) != d.mapper.LabelCategory(to)
}
