package analysis

import (
	"context"
	"fmt"

	"github.com/voicepulse/voicepulse-api/internal/audio"
	"github.com/voicepulse/voicepulse-api/internal/classifier"
	"github.com/voicepulse/voicepulse-api/internal/emotion"
)

// Pipeline runs a complete analysis: segment, classify, detect transitions,
// aggregate sentiment, assemble the report. A Pipeline is safe for concurrent
// use; each Analyze call owns all of its intermediate state.
type Pipeline struct {
	params     Params
	builder    *TimelineBuilder
	detector   *TransitionDetector
	mapper     *SentimentMapper
	aggregator *ReportAggregator
}

// NewPipeline creates a pipeline around the given classifier capability.
func NewPipeline(c classifier.Classifier, params Params) (*Pipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	mapper := NewSentimentMapper(params)
	return &Pipeline{
		params:     params,
		builder:    NewTimelineBuilder(c, params.MaxConcurrency),
		detector:   NewTransitionDetector(params.SignificanceThreshold, mapper),
		mapper:     mapper,
		aggregator: NewReportAggregator(mapper),
	}, nil
}

// Analyze runs the full pipeline over a normalized buffer.
//
// A classification failure aborts the whole analysis; no partial report is
// produced. Cancelling ctx stops the run between window classifications.
func (p *Pipeline) Analyze(ctx context.Context, buf *audio.Buffer) (*Report, error) {
	if buf.Empty() {
		return nil, audio.ErrEmptyAudio
	}

	windows, err := audio.Segment(buf, p.params.segmentOpts())
	if err != nil {
		return nil, err
	}

	timeline, err := p.builder.Build(ctx, windows)
	if err != nil {
		return nil, err
	}
	p.mapper.Annotate(timeline)

	transitions := p.detector.Detect(timeline)

	meta := Metadata{
		Duration:      round2(buf.Duration()),
		TotalSegments: len(timeline),
		SamplingRate:  buf.Rate,
	}
	return p.aggregator.Aggregate(timeline, transitions, meta)
}

// QuickResult is the outcome of a single whole-buffer classification.
type QuickResult struct {
	Emotion    emotion.Label  `json:"emotion"`
	Confidence float64        `json:"confidence"`
	Scores     emotion.Scores `json:"scores"`
}

// QuickAnalyze classifies the entire buffer in one shot, skipping windowing
// and aggregation. Useful for short clips and previews.
func (p *Pipeline) QuickAnalyze(ctx context.Context, buf *audio.Buffer) (*QuickResult, error) {
	if buf.Empty() {
		return nil, audio.ErrEmptyAudio
	}

	scores, err := p.builder.classifier.Classify(ctx, buf.Samples, buf.Rate)
	if err != nil {
		return nil, fmt.Errorf("quick analyze: %w", err)
	}

	rounded := make(emotion.Scores, len(scores))
	for label, v := range scores {
		rounded[label] = round3(v)
	}

	label, confidence := scores.Dominant()
	return &QuickResult{
		Emotion:    label,
		Confidence: round3(confidence),
		Scores:     rounded,
	}, nil
}
