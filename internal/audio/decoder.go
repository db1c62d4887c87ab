package audio

import (
	"context"
	"errors"
)

// ErrUnsupportedFormat is returned when the input cannot be decoded as audio.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ErrEmptyAudio is returned when decoding produces zero samples.
var ErrEmptyAudio = errors.New("audio contains no samples")

// ErrAudioTooLong is returned when the input exceeds the configured duration
// ceiling. Over-limit audio is rejected outright, never truncated.
var ErrAudioTooLong = errors.New("audio exceeds maximum duration")

// DecodeOpts configures audio normalization.
type DecodeOpts struct {
	// TargetRate is the sample rate the input is resampled to, in Hz.
	// Default: 16000.
	TargetRate int

	// MaxSeconds is the duration ceiling. Inputs longer than this are
	// rejected with ErrAudioTooLong. Zero disables the check.
	// Default: 600 seconds.
	MaxSeconds float64
}

// DefaultDecodeOpts returns the default normalization options.
func DefaultDecodeOpts() DecodeOpts {
	return DecodeOpts{
		TargetRate: 16000,
		MaxSeconds: 600,
	}
}

// Decoder normalizes audio files into mono fixed-rate sample buffers.
type Decoder interface {
	// Decode reads the audio file at path, downmixes it to one channel and
	// resamples it to opts.TargetRate.
	//
	// Returns ErrUnsupportedFormat if the file cannot be decoded,
	// ErrEmptyAudio if it decodes to zero samples, and ErrAudioTooLong if
	// it exceeds opts.MaxSeconds.
	Decode(ctx context.Context, path string, opts DecodeOpts) (*Buffer, error)

	// Probe returns the duration of the audio file in seconds without
	// decoding its samples.
	Probe(ctx context.Context, path string) (float64, error)
}
