package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/voicepulse/voicepulse-api/internal/emotion"
)

// ErrInconsistentReport is returned when an assembled report fails its
// internal cross checks. It signals a pipeline defect, not bad input.
var ErrInconsistentReport = errors.New("analysis: report failed consistency check")

// distributionTolerance bounds how far the distribution may sum from 100%.
const distributionTolerance = 0.5

// Metadata describes the analyzed buffer.
type Metadata struct {
	Duration      float64 `json:"duration"`
	TotalSegments int     `json:"total_segments"`
	SamplingRate  int     `json:"sampling_rate"`
}

// ConfidencePoint is one sample of the confidence curve.
type ConfidencePoint struct {
	Time        string        `json:"time"`
	TimeSeconds float64       `json:"time_seconds"`
	Confidence  float64       `json:"confidence"`
	Emotion     emotion.Label `json:"emotion"`
}

// HeatmapPoint carries the full distribution of one entry for multi-series
// visualization. The emotion fields are fixed so every row has all seven.
type HeatmapPoint struct {
	Time        string  `json:"time"`
	TimeSeconds float64 `json:"time_seconds"`
	Happy       float64 `json:"happy"`
	Sad         float64 `json:"sad"`
	Angry       float64 `json:"angry"`
	Neutral     float64 `json:"neutral"`
	Fear        float64 `json:"fear"`
	Disgust     float64 `json:"disgust"`
	Surprise    float64 `json:"surprise"`
}

// EmotionShare is one emotion's percentage of covered duration.
type EmotionShare struct {
	Emotion    emotion.Label `json:"emotion"`
	Percentage float64       `json:"percentage"`
}

// JourneySummary narrates the recording's emotional arc.
type JourneySummary struct {
	PrimaryEmotion       emotion.Label  `json:"primary_emotion"`
	TotalTransitions     int            `json:"total_transitions"`
	StabilityScore       float64        `json:"stability_score"`
	DominantEmotions     []EmotionShare `json:"dominant_emotions"`
	EmotionalVariability string         `json:"emotional_variability"`
}

// Report is the terminal artifact of one analysis. It is immutable once
// assembled; storage and transport only read it.
type Report struct {
	Metadata          Metadata                  `json:"metadata"`
	Timeline          []TimelineEntry           `json:"timeline"`
	Transitions       []Transition              `json:"transitions"`
	Distribution      map[emotion.Label]float64 `json:"distribution"`
	ConfidenceCurve   []ConfidencePoint         `json:"confidence_curve"`
	HeatmapData       []HeatmapPoint            `json:"heatmap_data"`
	SentimentAnalysis SentimentSummary          `json:"sentiment_analysis"`
	JourneyAnalysis   JourneySummary            `json:"journey_analysis"`
}

// ReportAggregator assembles reports from a timeline and its transitions.
type ReportAggregator struct {
	mapper *SentimentMapper
}

// NewReportAggregator creates an aggregator using the given sentiment mapper.
func NewReportAggregator(mapper *SentimentMapper) *ReportAggregator {
	return &ReportAggregator{mapper: mapper}
}

// Aggregate composes the report and verifies its internal invariants.
// Aggregation is pure: identical inputs produce identical reports.
func (a *ReportAggregator) Aggregate(timeline []TimelineEntry, transitions []Transition, meta Metadata) (*Report, error) {
	if timeline == nil {
		timeline = []TimelineEntry{}
	}
	if transitions == nil {
		transitions = []Transition{}
	}

	report := &Report{
		Metadata:          meta,
		Timeline:          timeline,
		Transitions:       transitions,
		Distribution:      distribution(timeline),
		ConfidenceCurve:   confidenceCurve(timeline),
		HeatmapData:       heatmapData(timeline),
		SentimentAnalysis: a.mapper.Summarize(timeline),
		JourneyAnalysis:   journey(timeline, transitions),
	}

	if err := report.verify(); err != nil {
		return nil, err
	}
	return report, nil
}

// distribution computes each present emotion's share of covered duration.
func distribution(timeline []TimelineEntry) map[emotion.Label]float64 {
	dist := make(map[emotion.Label]float64)
	if len(timeline) == 0 {
		return dist
	}

	weights := coverage(timeline)
	var total float64
	covered := make(map[emotion.Label]float64)
	for i, entry := range timeline {
		covered[entry.Emotion] += weights[i]
		total += weights[i]
	}
	for label, seconds := range covered {
		dist[label] = round2(seconds / total * 100)
	}
	return dist
}

// confidenceCurve projects the timeline onto (time, confidence) points.
func confidenceCurve(timeline []TimelineEntry) []ConfidencePoint {
	curve := make([]ConfidencePoint, 0, len(timeline))
	for _, entry := range timeline {
		curve = append(curve, ConfidencePoint{
			Time:        entry.StartFormatted,
			TimeSeconds: entry.StartSeconds,
			Confidence:  entry.Confidence,
			Emotion:     entry.Emotion,
		})
	}
	return curve
}

// heatmapData projects each entry's full distribution onto a fixed-column row.
func heatmapData(timeline []TimelineEntry) []HeatmapPoint {
	rows := make([]HeatmapPoint, 0, len(timeline))
	for _, entry := range timeline {
		rows = append(rows, HeatmapPoint{
			Time:        entry.StartFormatted,
			TimeSeconds: entry.StartSeconds,
			Happy:       round3(entry.Distribution[emotion.Happy]),
			Sad:         round3(entry.Distribution[emotion.Sad]),
			Angry:       round3(entry.Distribution[emotion.Angry]),
			Neutral:     round3(entry.Distribution[emotion.Neutral]),
			Fear:        round3(entry.Distribution[emotion.Fear]),
			Disgust:     round3(entry.Distribution[emotion.Disgust]),
			Surprise:    round3(entry.Distribution[emotion.Surprise]),
		})
	}
	return rows
}

// journey summarizes the emotional arc: the emotion covering the most
// duration, transition count, stability, and the top three emotions.
func journey(timeline []TimelineEntry, transitions []Transition) JourneySummary {
	if len(timeline) == 0 {
		return JourneySummary{
			PrimaryEmotion:       emotion.Neutral,
			TotalTransitions:     len(transitions),
			StabilityScore:       1.0,
			DominantEmotions:     []EmotionShare{},
			EmotionalVariability: "low",
		}
	}

	weights := coverage(timeline)
	var total float64
	covered := make(map[emotion.Label]float64)
	for i, entry := range timeline {
		covered[entry.Emotion] += weights[i]
		total += weights[i]
	}

	rank := make(map[emotion.Label]int, len(emotion.Labels()))
	for i, label := range emotion.Labels() {
		rank[label] = i
	}

	shares := make([]EmotionShare, 0, len(covered))
	for label, seconds := range covered {
		shares = append(shares, EmotionShare{Emotion: label, Percentage: round2(seconds / total * 100)})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Percentage != shares[j].Percentage {
			return shares[i].Percentage > shares[j].Percentage
		}
		return rank[shares[i].Emotion] < rank[shares[j].Emotion]
	})

	dominant := shares
	if len(dominant) > 3 {
		dominant = dominant[:3]
	}

	stability := math.Max(0, 1-float64(len(transitions))/float64(len(timeline)))
	variability := "low"
	if float64(len(transitions)) > 0.3*float64(len(timeline)) {
		variability = "high"
	}

	return JourneySummary{
		PrimaryEmotion:       shares[0].Emotion,
		TotalTransitions:     len(transitions),
		StabilityScore:       round3(stability),
		DominantEmotions:     dominant,
		EmotionalVariability: variability,
	}
}

// verify checks the report invariants that must hold by construction.
func (r *Report) verify() error {
	if len(r.ConfidenceCurve) != len(r.Timeline) {
		return fmt.Errorf("%w: confidence curve has %d points for %d timeline entries",
			ErrInconsistentReport, len(r.ConfidenceCurve), len(r.Timeline))
	}
	if len(r.HeatmapData) != len(r.Timeline) {
		return fmt.Errorf("%w: heatmap has %d rows for %d timeline entries",
			ErrInconsistentReport, len(r.HeatmapData), len(r.Timeline))
	}
	if r.JourneyAnalysis.TotalTransitions != len(r.Transitions) {
		return fmt.Errorf("%w: journey counts %d transitions, detector found %d",
			ErrInconsistentReport, r.JourneyAnalysis.TotalTransitions, len(r.Transitions))
	}
	if len(r.Timeline) > 0 {
		var sum float64
		for _, pct := range r.Distribution {
			sum += pct
		}
		if math.Abs(sum-100) > distributionTolerance {
			return fmt.Errorf("%w: distribution sums to %.2f%%", ErrInconsistentReport, sum)
		}
	}
	return nil
}
