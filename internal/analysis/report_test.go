package analysis

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/voicepulse/voicepulse-api/internal/emotion"
)

func testAggregator(t *testing.T) *ReportAggregator {
	t.Helper()
	return NewReportAggregator(testMapper(t))
}

func TestAggregate_SingleLabel(t *testing.T) {
	a := testAggregator(t)
	timeline := []TimelineEntry{
		testEntry(0, 0, 2, emotion.Happy, 0.9),
		testEntry(1, 1, 3, emotion.Happy, 0.8),
		testEntry(2, 2, 4, emotion.Happy, 0.85),
	}

	report, err := a.Aggregate(timeline, nil, Metadata{Duration: 4, TotalSegments: 3, SamplingRate: 16000})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(report.Distribution) != 1 || report.Distribution[emotion.Happy] != 100 {
		t.Errorf("distribution %v, want happy at 100%%", report.Distribution)
	}
	if len(report.ConfidenceCurve) != 3 || len(report.HeatmapData) != 3 {
		t.Errorf("curve %d rows, heatmap %d rows, want 3 each",
			len(report.ConfidenceCurve), len(report.HeatmapData))
	}
	if len(report.Transitions) != 0 {
		t.Errorf("expected no transitions, got %d", len(report.Transitions))
	}

	j := report.JourneyAnalysis
	if j.PrimaryEmotion != emotion.Happy {
		t.Errorf("primary emotion %s, want happy", j.PrimaryEmotion)
	}
	if j.TotalTransitions != 0 || j.StabilityScore != 1.0 {
		t.Errorf("transitions %d stability %v, want 0 and 1", j.TotalTransitions, j.StabilityScore)
	}
	if j.EmotionalVariability != "low" {
		t.Errorf("variability %s, want low", j.EmotionalVariability)
	}
	if len(j.DominantEmotions) != 1 || j.DominantEmotions[0].Percentage != 100 {
		t.Errorf("dominant emotions %v", j.DominantEmotions)
	}
	if report.Metadata.SamplingRate != 16000 {
		t.Errorf("metadata not carried: %+v", report.Metadata)
	}
}

func TestAggregate_MixedTimeline(t *testing.T) {
	a := testAggregator(t)
	timeline := []TimelineEntry{
		testEntry(0, 0, 2, emotion.Happy, 0.9),
		testEntry(1, 1, 3, emotion.Happy, 0.9),
		testEntry(2, 2, 4, emotion.Happy, 0.9),
		testEntry(3, 3, 5, emotion.Happy, 0.9),
		testEntry(4, 4, 6, emotion.Sad, 0.6),
	}
	transitions := []Transition{{
		Time: "00:04", TimeSeconds: 4,
		FromEmotion: emotion.Happy, ToEmotion: emotion.Sad,
		FromConfidence: 0.9, ToConfidence: 0.6,
		ConfidenceChange: -0.3, IsSignificant: true,
	}}

	report, err := a.Aggregate(timeline, transitions, Metadata{Duration: 6, TotalSegments: 5, SamplingRate: 16000})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if report.Distribution[emotion.Happy] != 66.67 || report.Distribution[emotion.Sad] != 33.33 {
		t.Errorf("distribution %v", report.Distribution)
	}
	var sum float64
	for _, pct := range report.Distribution {
		sum += pct
	}
	if math.Abs(sum-100) > distributionTolerance {
		t.Errorf("distribution sums to %v", sum)
	}

	j := report.JourneyAnalysis
	if j.PrimaryEmotion != emotion.Happy {
		t.Errorf("primary emotion %s, want happy", j.PrimaryEmotion)
	}
	if j.TotalTransitions != 1 {
		t.Errorf("journey transitions %d, want 1", j.TotalTransitions)
	}
	if j.StabilityScore != 0.8 {
		t.Errorf("stability %v, want 0.8", j.StabilityScore)
	}
	if len(j.DominantEmotions) != 2 ||
		j.DominantEmotions[0].Emotion != emotion.Happy ||
		j.DominantEmotions[1].Emotion != emotion.Sad {
		t.Errorf("dominant emotions %v", j.DominantEmotions)
	}
}

func TestAggregate_EmptyTimeline(t *testing.T) {
	a := testAggregator(t)

	report, err := a.Aggregate(nil, nil, Metadata{})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if report.Timeline == nil || report.Transitions == nil {
		t.Error("empty sections must be non-nil slices")
	}
	if len(report.Distribution) != 0 {
		t.Errorf("distribution %v, want empty", report.Distribution)
	}
	if report.JourneyAnalysis.PrimaryEmotion != emotion.Neutral {
		t.Errorf("primary emotion %s, want neutral", report.JourneyAnalysis.PrimaryEmotion)
	}
	if report.SentimentAnalysis.Category != CategoryNeutral {
		t.Errorf("sentiment category %s, want neutral", report.SentimentAnalysis.Category)
	}

	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, key := range []string{`"timeline":[]`, `"transitions":[]`, `"confidence_curve":[]`, `"heatmap_data":[]`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("marshaled report missing %s", key)
		}
	}
}

func TestHeatmapRows(t *testing.T) {
	a := testAggregator(t)
	timeline := []TimelineEntry{testEntry(0, 0, 2, emotion.Happy, 0.9)}

	report, err := a.Aggregate(timeline, nil, Metadata{Duration: 2, TotalSegments: 1, SamplingRate: 16000})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	row := report.HeatmapData[0]
	if row.Time != "00:00" || row.TimeSeconds != 0 {
		t.Errorf("row stamped at %s (%v)", row.Time, row.TimeSeconds)
	}
	if row.Happy != 0.9 {
		t.Errorf("happy cell %v, want 0.9", row.Happy)
	}
	// The remaining six labels split 0.1 evenly, rounded to 0.017.
	for name, v := range map[string]float64{
		"sad": row.Sad, "angry": row.Angry, "neutral": row.Neutral,
		"fear": row.Fear, "disgust": row.Disgust, "surprise": row.Surprise,
	} {
		if v != 0.017 {
			t.Errorf("%s cell %v, want 0.017", name, v)
		}
	}
}

func TestJourney_TopThreeAndTieBreak(t *testing.T) {
	a := testAggregator(t)
	// Four labels at equal weight; ties resolve toward the canonical label
	// order and only three survive.
	timeline := []TimelineEntry{
		testEntry(0, 0, 1, emotion.Surprise, 0.9),
		testEntry(1, 1, 2, emotion.Sad, 0.9),
		testEntry(2, 2, 3, emotion.Happy, 0.9),
		testEntry(3, 3, 4, emotion.Fear, 0.9),
	}
	transitions := make([]Transition, 3)
	for i := range transitions {
		transitions[i] = Transition{TimeSeconds: float64(i + 1)}
	}

	report, err := a.Aggregate(timeline, transitions, Metadata{Duration: 4, TotalSegments: 4, SamplingRate: 16000})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	j := report.JourneyAnalysis
	if len(j.DominantEmotions) != 3 {
		t.Fatalf("dominant emotions %v, want 3", j.DominantEmotions)
	}
	want := []emotion.Label{emotion.Happy, emotion.Sad, emotion.Fear}
	for i, share := range j.DominantEmotions {
		if share.Emotion != want[i] {
			t.Errorf("dominant[%d] = %s, want %s", i, share.Emotion, want[i])
		}
		if share.Percentage != 25 {
			t.Errorf("dominant[%d] share %v, want 25", i, share.Percentage)
		}
	}
	if j.PrimaryEmotion != emotion.Happy {
		t.Errorf("primary emotion %s, want happy", j.PrimaryEmotion)
	}

	// 3 transitions over 4 entries crosses the 0.3 ratio.
	if j.EmotionalVariability != "high" {
		t.Errorf("variability %s, want high", j.EmotionalVariability)
	}
	if j.StabilityScore != 0.25 {
		t.Errorf("stability %v, want 0.25", j.StabilityScore)
	}
}

func TestVerify_Inconsistencies(t *testing.T) {
	a := testAggregator(t)
	timeline := []TimelineEntry{
		testEntry(0, 0, 2, emotion.Happy, 0.9),
		testEntry(1, 1, 3, emotion.Sad, 0.6),
	}
	base, err := a.Aggregate(timeline, nil, Metadata{Duration: 3, TotalSegments: 2, SamplingRate: 16000})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(r *Report)
	}{
		{"curve length mismatch", func(r *Report) {
			r.ConfidenceCurve = r.ConfidenceCurve[:1]
		}},
		{"heatmap length mismatch", func(r *Report) {
			r.HeatmapData = append(r.HeatmapData, HeatmapPoint{})
		}},
		{"journey transition count mismatch", func(r *Report) {
			r.JourneyAnalysis.TotalTransitions = 7
		}},
		{"distribution sum off", func(r *Report) {
			r.Distribution[emotion.Happy] = 10
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := *base
			bad.ConfidenceCurve = append([]ConfidencePoint(nil), base.ConfidenceCurve...)
			bad.HeatmapData = append([]HeatmapPoint(nil), base.HeatmapData...)
			bad.Distribution = make(map[emotion.Label]float64, len(base.Distribution))
			for k, v := range base.Distribution {
				bad.Distribution[k] = v
			}

			tt.mutate(&bad)
			if err := bad.verify(); !errors.Is(err, ErrInconsistentReport) {
				t.Errorf("expected ErrInconsistentReport, got %v", err)
			}
		})
	}

	if err := base.verify(); err != nil {
		t.Errorf("untouched report failed verify: %v", err)
	}
}
