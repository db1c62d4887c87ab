package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/voicepulse/voicepulse-api/internal/audio"
	"github.com/voicepulse/voicepulse-api/internal/emotion"
)

// stepBuffer builds a buffer holding one constant value per second, so a
// scripted classifier can identify each window by its first sample.
func stepBuffer(rate int, values ...float64) *audio.Buffer {
	samples := make([]float64, 0, rate*len(values))
	for _, v := range values {
		for i := 0; i < rate; i++ {
			samples = append(samples, v)
		}
	}
	return &audio.Buffer{Samples: samples, Rate: rate}
}

func TestPipeline_Analyze(t *testing.T) {
	script := map[float64]emotion.Scores{
		0.10: fixedScores(emotion.Happy, 0.9),
		0.15: fixedScores(emotion.Happy, 0.8),
		0.20: fixedScores(emotion.Sad, 0.6),
		0.25: fixedScores(emotion.Sad, 0.55),
	}
	p, err := NewPipeline(&scriptedClassifier{byKey: script}, DefaultParams())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	// Five seconds at 2s windows with 1s overlap: four windows starting at
	// seconds 0 through 3.
	buf := stepBuffer(16000, 0.10, 0.15, 0.20, 0.25, 0.25)
	report, err := p.Analyze(context.Background(), buf)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(report.Timeline) != 4 {
		t.Fatalf("expected 4 timeline entries, got %d", len(report.Timeline))
	}
	wantLabels := []emotion.Label{emotion.Happy, emotion.Happy, emotion.Sad, emotion.Sad}
	for i, entry := range report.Timeline {
		if entry.Emotion != wantLabels[i] {
			t.Errorf("entry %d: %s, want %s", i, entry.Emotion, wantLabels[i])
		}
	}
	if report.Timeline[0].Sentiment != CategoryPositive || report.Timeline[0].SentimentScore != 0.72 {
		t.Errorf("entry 0 sentiment %s %v", report.Timeline[0].Sentiment, report.Timeline[0].SentimentScore)
	}

	if len(report.Transitions) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(report.Transitions))
	}
	tr := report.Transitions[0]
	if tr.TimeSeconds != 2.0 || tr.Time != "00:02" {
		t.Errorf("transition at %v (%s), want 2 (00:02)", tr.TimeSeconds, tr.Time)
	}
	if math.Abs(tr.ConfidenceChange-(-0.2)) > 1e-9 || !tr.IsSignificant {
		t.Errorf("transition change %v significant %v, want -0.2 and true",
			tr.ConfidenceChange, tr.IsSignificant)
	}

	// Coverage weights are 1,1,1,2: happy holds two of five seconds.
	if report.Distribution[emotion.Happy] != 40 || report.Distribution[emotion.Sad] != 60 {
		t.Errorf("distribution %v", report.Distribution)
	}
	if report.JourneyAnalysis.PrimaryEmotion != emotion.Sad {
		t.Errorf("primary emotion %s, want sad", report.JourneyAnalysis.PrimaryEmotion)
	}
	if report.JourneyAnalysis.StabilityScore != 0.75 {
		t.Errorf("stability %v, want 0.75", report.JourneyAnalysis.StabilityScore)
	}

	// (0.72 + 0.64 - 0.36 - 2*0.33) / 5
	if math.Abs(report.SentimentAnalysis.Score-0.068) > 1e-9 {
		t.Errorf("sentiment score %v, want 0.068", report.SentimentAnalysis.Score)
	}
	if report.SentimentAnalysis.Category != CategoryNeutral {
		t.Errorf("sentiment category %s, want neutral", report.SentimentAnalysis.Category)
	}

	meta := report.Metadata
	if meta.Duration != 5 || meta.TotalSegments != 4 || meta.SamplingRate != 16000 {
		t.Errorf("metadata %+v", meta)
	}
}

func TestPipeline_ConstantEmotion(t *testing.T) {
	script := map[float64]emotion.Scores{
		0.1: fixedScores(emotion.Happy, 0.9),
	}
	p, err := NewPipeline(&scriptedClassifier{byKey: script}, DefaultParams())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	// Six seconds of identical content: five windows, one emotion.
	buf := stepBuffer(16000, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1)
	report, err := p.Analyze(context.Background(), buf)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(report.Timeline) != 5 {
		t.Fatalf("expected 5 windows for 6s at 2s/1s, got %d", len(report.Timeline))
	}
	if len(report.Transitions) != 0 {
		t.Errorf("expected no transitions, got %d", len(report.Transitions))
	}
	if report.Distribution[emotion.Happy] != 100 {
		t.Errorf("distribution %v, want happy at 100%%", report.Distribution)
	}
	if report.JourneyAnalysis.PrimaryEmotion != emotion.Happy {
		t.Errorf("primary emotion %s", report.JourneyAnalysis.PrimaryEmotion)
	}
	if report.JourneyAnalysis.StabilityScore != 1.0 {
		t.Errorf("stability %v, want 1", report.JourneyAnalysis.StabilityScore)
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	script := map[float64]emotion.Scores{
		0.10: fixedScores(emotion.Happy, 0.9),
		0.15: fixedScores(emotion.Surprise, 0.7),
		0.20: fixedScores(emotion.Sad, 0.6),
	}
	p, err := NewPipeline(&scriptedClassifier{byKey: script}, DefaultParams())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	buf := stepBuffer(16000, 0.10, 0.15, 0.20, 0.20)

	first, err := p.Analyze(context.Background(), buf)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := p.Analyze(context.Background(), buf)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical inputs produced different reports")
	}
}

func TestPipeline_EmptyBuffer(t *testing.T) {
	p, err := NewPipeline(&scriptedClassifier{byKey: nil}, DefaultParams())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	if _, err := p.Analyze(context.Background(), &audio.Buffer{Rate: 16000}); !errors.Is(err, audio.ErrEmptyAudio) {
		t.Errorf("expected ErrEmptyAudio, got %v", err)
	}
	if _, err := p.QuickAnalyze(context.Background(), nil); !errors.Is(err, audio.ErrEmptyAudio) {
		t.Errorf("expected ErrEmptyAudio, got %v", err)
	}
}

func TestPipeline_ClassifierFailure(t *testing.T) {
	classifyErr := errors.New("model crashed")
	c := &scriptedClassifier{
		byKey:  map[float64]emotion.Scores{0.1: fixedScores(emotion.Happy, 0.9)},
		errKey: 0.2,
		err:    classifyErr,
	}
	p, err := NewPipeline(c, DefaultParams())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	buf := stepBuffer(16000, 0.1, 0.1, 0.2, 0.1, 0.1)
	_, err = p.Analyze(context.Background(), buf)

	var classErr *ClassificationError
	if !errors.As(err, &classErr) {
		t.Fatalf("expected ClassificationError, got %v", err)
	}
	if !errors.Is(err, classifyErr) {
		t.Error("expected wrapped cause to survive")
	}
}

func TestPipeline_InvalidParams(t *testing.T) {
	params := DefaultParams()
	params.MaxConcurrency = 0

	if _, err := NewPipeline(&scriptedClassifier{}, params); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams, got %v", err)
	}
}

func TestPipeline_BadWindowGeometry(t *testing.T) {
	params := DefaultParams()
	params.OverlapSeconds = params.WindowSeconds
	p, err := NewPipeline(&scriptedClassifier{}, params)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	_, err = p.Analyze(context.Background(), stepBuffer(16000, 0.1, 0.1, 0.1))
	if !errors.Is(err, audio.ErrInvalidWindowConfig) {
		t.Errorf("expected ErrInvalidWindowConfig, got %v", err)
	}
}

func TestPipeline_QuickAnalyze(t *testing.T) {
	script := map[float64]emotion.Scores{
		0.1: fixedScores(emotion.Surprise, 0.8),
	}
	c := &scriptedClassifier{byKey: script}
	p, err := NewPipeline(c, DefaultParams())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	result, err := p.QuickAnalyze(context.Background(), stepBuffer(16000, 0.1))
	if err != nil {
		t.Fatalf("QuickAnalyze failed: %v", err)
	}

	if result.Emotion != emotion.Surprise || result.Confidence != 0.8 {
		t.Errorf("result %s at %v, want surprise at 0.8", result.Emotion, result.Confidence)
	}
	if len(result.Scores) != 7 {
		t.Errorf("expected 7 scores, got %d", len(result.Scores))
	}
	if result.Scores[emotion.Happy] != 0.033 {
		t.Errorf("happy score %v, want 0.033", result.Scores[emotion.Happy])
	}
	if c.calls != 1 {
		t.Errorf("classifier called %d times, want 1", c.calls)
	}
}
