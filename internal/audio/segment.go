package audio

import (
	"errors"
	"fmt"
)

// ErrInvalidWindowConfig is returned when windowing parameters violate
// 0 < overlap < window length <= buffer duration.
var ErrInvalidWindowConfig = errors.New("invalid window configuration")

// SegmentOpts configures how a buffer is cut into analysis windows.
type SegmentOpts struct {
	// WindowSeconds is the length of each analysis window.
	// Default: 2.0 seconds.
	WindowSeconds float64

	// OverlapSeconds is how much consecutive windows overlap.
	// Must be positive and smaller than WindowSeconds.
	// Default: 1.0 second.
	OverlapSeconds float64

	// MinWindowFraction is the minimum length of the trailing window as a
	// fraction of WindowSeconds. A shorter remainder is dropped.
	// Default: 0.5.
	MinWindowFraction float64
}

// DefaultSegmentOpts returns the default windowing options.
func DefaultSegmentOpts() SegmentOpts {
	return SegmentOpts{
		WindowSeconds:     2.0,
		OverlapSeconds:    1.0,
		MinWindowFraction: 0.5,
	}
}

// Window is a contiguous slice of a Buffer scheduled for classification.
// Samples is a view into the source buffer, not a copy.
type Window struct {
	// Index is the window's position in the emitted sequence.
	Index int
	// StartSample and EndSample delimit the window in the source buffer.
	// EndSample is exclusive.
	StartSample int
	EndSample   int
	// Rate is the sample rate of the source buffer.
	Rate int
	// Samples holds the window's amplitude values.
	Samples []float64
}

// StartSeconds returns the window start position in seconds.
func (w Window) StartSeconds() float64 {
	return float64(w.StartSample) / float64(w.Rate)
}

// EndSeconds returns the window end position in seconds.
func (w Window) EndSeconds() float64 {
	return float64(w.EndSample) / float64(w.Rate)
}

// Duration returns the window length in seconds.
func (w Window) Duration() float64 {
	return float64(w.EndSample-w.StartSample) / float64(w.Rate)
}

// Segment cuts the buffer into fixed-length overlapping windows.
//
// Windows start at multiples of the step (window length minus overlap) and are
// full length except possibly the last: when the remainder past the final full
// window is at least MinWindowFraction of the window length, one shorter
// trailing window is emitted; anything shorter is dropped. All boundary math
// is done on sample indices, so identical input always yields identical
// windows.
func Segment(buf *Buffer, opts SegmentOpts) ([]Window, error) {
	if buf.Empty() {
		return nil, ErrEmptyAudio
	}
	if buf.Rate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidWindowConfig, buf.Rate)
	}

	windowSamples := int(opts.WindowSeconds * float64(buf.Rate))
	overlapSamples := int(opts.OverlapSeconds * float64(buf.Rate))

	if windowSamples <= 0 {
		return nil, fmt.Errorf("%w: window length %.3fs", ErrInvalidWindowConfig, opts.WindowSeconds)
	}
	if overlapSamples <= 0 || overlapSamples >= windowSamples {
		return nil, fmt.Errorf("%w: overlap %.3fs with window length %.3fs",
			ErrInvalidWindowConfig, opts.OverlapSeconds, opts.WindowSeconds)
	}
	if windowSamples > len(buf.Samples) {
		return nil, fmt.Errorf("%w: window length %.3fs exceeds buffer duration %.3fs",
			ErrInvalidWindowConfig, opts.WindowSeconds, buf.Duration())
	}
	if opts.MinWindowFraction <= 0 || opts.MinWindowFraction > 1 {
		return nil, fmt.Errorf("%w: minimum window fraction %.3f", ErrInvalidWindowConfig, opts.MinWindowFraction)
	}

	step := windowSamples - overlapSamples
	minTrailing := int(opts.MinWindowFraction * float64(windowSamples))

	var windows []Window
	for start := 0; start < len(buf.Samples); start += step {
		end := start + windowSamples
		if end > len(buf.Samples) {
			end = len(buf.Samples)
			if end-start < minTrailing {
				break
			}
		}

		windows = append(windows, Window{
			Index:       len(windows),
			StartSample: start,
			EndSample:   end,
			Rate:        buf.Rate,
			Samples:     buf.Samples[start:end],
		})

		if end >= len(buf.Samples) {
			break
		}
	}

	return windows, nil
}
