// Package audio provides audio decoding and windowing for the analysis
// pipeline: normalizing recordings to mono fixed-rate sample buffers and
// cutting them into fixed-length overlapping windows.
package audio

// Buffer is a normalized, single-channel audio signal at a fixed sample rate.
// A Buffer is treated as read-only once produced; the pipeline invocation
// that created it is its sole owner.
type Buffer struct {
	// Samples holds the amplitude values in [-1, 1].
	Samples []float64
	// Rate is the sample rate in Hz.
	Rate int
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.Rate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.Rate)
}

// Empty returns true if the buffer holds no samples.
func (b *Buffer) Empty() bool {
	return b == nil || len(b.Samples) == 0
}
