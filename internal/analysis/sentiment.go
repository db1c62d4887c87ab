package analysis

import (
	"github.com/voicepulse/voicepulse-api/internal/emotion"
)

// Category is a sentiment polarity bucket.
type Category string

const (
	// CategoryPositive marks sentiment above the positive threshold.
	CategoryPositive Category = "positive"
	// CategoryNeutral marks sentiment inside the neutral band.
	CategoryNeutral Category = "neutral"
	// CategoryNegative marks sentiment below the negative threshold.
	CategoryNegative Category = "negative"
)

// DefaultSentimentTable returns the polarity assigned to each emotion label.
func DefaultSentimentTable() map[emotion.Label]float64 {
	return map[emotion.Label]float64{
		emotion.Happy:    0.8,
		emotion.Surprise: 0.6,
		emotion.Neutral:  0.0,
		emotion.Sad:      -0.6,
		emotion.Angry:    -0.8,
		emotion.Fear:     -0.7,
		emotion.Disgust:  -0.75,
	}
}

// SentimentSummary aggregates per-entry sentiment into one overall result.
type SentimentSummary struct {
	// Score is the coverage-weighted mean sentiment in [-1, 1].
	Score float64 `json:"score"`
	// Category buckets the score by the configured thresholds.
	Category Category `json:"category"`
	// Breakdown is the percentage of covered duration per polarity bucket.
	Breakdown map[Category]float64 `json:"breakdown"`
}

// SentimentMapper converts emotion labels into sentiment values and
// aggregates them across a timeline.
type SentimentMapper struct {
	table             map[emotion.Label]float64
	positiveThreshold float64
	negativeThreshold float64
}

// NewSentimentMapper builds a mapper from the pipeline parameters.
func NewSentimentMapper(p Params) *SentimentMapper {
	table := make(map[emotion.Label]float64, len(p.SentimentTable))
	for label, v := range p.SentimentTable {
		table[label] = v
	}
	return &SentimentMapper{
		table:             table,
		positiveThreshold: p.PositiveThreshold,
		negativeThreshold: p.NegativeThreshold,
	}
}

// Value returns the polarity assigned to a label.
func (m *SentimentMapper) Value(label emotion.Label) float64 {
	return m.table[label]
}

// LabelCategory buckets a label by the sign of its polarity.
func (m *SentimentMapper) LabelCategory(label emotion.Label) Category {
	switch v := m.table[label]; {
	case v > 0:
		return CategoryPositive
	case v < 0:
		return CategoryNegative
	default:
		return CategoryNeutral
	}
}

// EntryScore is the sentiment contribution of one timeline entry: the label's
// polarity weighted by the prediction confidence.
func (m *SentimentMapper) EntryScore(entry TimelineEntry) float64 {
	return m.table[entry.Emotion] * entry.Confidence
}

// Annotate fills each entry's sentiment fields in place.
func (m *SentimentMapper) Annotate(timeline []TimelineEntry) {
	for i := range timeline {
		timeline[i].Sentiment = m.LabelCategory(timeline[i].Emotion)
		timeline[i].SentimentScore = round3(m.EntryScore(timeline[i]))
	}
}

// scoreCategory buckets an overall score by the configured thresholds.
func (m *SentimentMapper) scoreCategory(score float64) Category {
	switch {
	case score > m.positiveThreshold:
		return CategoryPositive
	case score < m.negativeThreshold:
		return CategoryNegative
	default:
		return CategoryNeutral
	}
}

// Summarize computes the overall sentiment of a timeline. Each entry is
// weighted by its non-overlapping covered duration so overlapping windows
// and shorter trailing windows do not skew the mean.
func (m *SentimentMapper) Summarize(timeline []TimelineEntry) SentimentSummary {
	breakdown := map[Category]float64{
		CategoryPositive: 0,
		CategoryNeutral:  0,
		CategoryNegative: 0,
	}
	if len(timeline) == 0 {
		return SentimentSummary{Score: 0, Category: CategoryNeutral, Breakdown: breakdown}
	}

	weights := coverage(timeline)
	var total, weightedSum float64
	for i, entry := range timeline {
		w := weights[i]
		total += w
		weightedSum += w * m.EntryScore(entry)
		breakdown[m.LabelCategory(entry.Emotion)] += w
	}

	score := 0.0
	if total > 0 {
		score = weightedSum / total
		for cat := range breakdown {
			breakdown[cat] = round1(breakdown[cat] / total * 100)
		}
	}

	return SentimentSummary{
		Score:     round3(score),
		Category:  m.scoreCategory(round3(score)),
		Breakdown: breakdown,
	}
}
