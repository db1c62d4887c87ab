package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// bytesPerSample is the width of one pcm_f32le sample on the wire.
const bytesPerSample = 4

// FFmpegDecoder implements Decoder using the ffmpeg CLI.
type FFmpegDecoder struct {
	ffmpegPath string
}

// NewFFmpegDecoder creates a new FFmpegDecoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegDecoder(ffmpegPath string) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath}
}

// Decode implements Decoder.Decode by streaming raw little-endian float32
// PCM out of ffmpeg. Resampling and downmixing happen inside ffmpeg, so any
// container or codec ffmpeg understands is accepted.
func (d *FFmpegDecoder) Decode(ctx context.Context, path string, opts DecodeOpts) (*Buffer, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", path)
	}
	rate := opts.TargetRate
	if rate <= 0 {
		rate = DefaultDecodeOpts().TargetRate
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"pipe:1",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	// Reading one sample past the ceiling is enough to detect over-limit
	// input without buffering the whole file first.
	var reader io.Reader = stdout
	limitBytes := int64(0)
	if opts.MaxSeconds > 0 {
		limitBytes = int64(opts.MaxSeconds*float64(rate)) * bytesPerSample
		reader = io.LimitReader(stdout, limitBytes+bytesPerSample)
	}

	data, readErr := io.ReadAll(reader)
	if limitBytes > 0 && int64(len(data)) > limitBytes {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("%w: limit %.1fs", ErrAudioTooLong, opts.MaxSeconds)
	}
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if readErr != nil {
		return nil, fmt.Errorf("read ffmpeg output: %w", readErr)
	}
	if waitErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, strings.TrimSpace(stderr.String()))
	}
	if len(data) < bytesPerSample {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAudio, path)
	}

	samples := make([]float64, 0, len(data)/bytesPerSample)
	for i := 0; i+bytesPerSample <= len(data); i += bytesPerSample {
		bits := binary.LittleEndian.Uint32(data[i:])
		samples = append(samples, float64(math.Float32frombits(bits)))
	}

	return &Buffer{Samples: samples, Rate: rate}, nil
}

// Probe implements Decoder.Probe by parsing the duration ffmpeg reports.
func (d *FFmpegDecoder) Probe(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return 0, fmt.Errorf("input file does not exist: %s", path)
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-i", path,
		"-hide_banner",
		"-f", "null", "-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// ffmpeg writes stream info to stderr and exits non-zero with a null
	// muxer, so the exit code is not meaningful here.
	_ = cmd.Run()

	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	return parseDuration(stderr.String())
}

// durationRe matches "Duration: HH:MM:SS.ms" in ffmpeg stream info.
var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// parseDuration extracts the duration in seconds from ffmpeg stderr output.
func parseDuration(output string) (float64, error) {
	matches := durationRe.FindStringSubmatch(output)
	if len(matches) < 5 {
		return 0, fmt.Errorf("%w: could not parse duration from ffmpeg output", ErrUnsupportedFormat)
	}

	hours, _ := strconv.ParseFloat(matches[1], 64)
	minutes, _ := strconv.ParseFloat(matches[2], 64)
	seconds, _ := strconv.ParseFloat(matches[3], 64)
	frac, _ := strconv.ParseFloat(matches[4], 64)

	// The fractional part varies in precision across ffmpeg builds.
	divisor := 1.0
	for i := 0; i < len(matches[4]); i++ {
		divisor *= 10
	}

	return hours*3600 + minutes*60 + seconds + frac/divisor, nil
}

// Verify interface implementation at compile time.
var _ Decoder = (*FFmpegDecoder)(nil)
