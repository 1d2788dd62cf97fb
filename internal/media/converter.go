// Package media converts voice attachments between container formats by
// shelling out to ffmpeg, the same way the recognition engine shells out to
// whisper-cli. Decoding normalizes everything to the 16 kHz mono PCM the
// engine expects; encoding produces the playback format for transcodes.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Format is a supported encode target.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
)

// ErrUnsupportedFormat is returned when the source container or codec
// cannot be parsed.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Recognition input: whisper wants 16 kHz mono s16le.
const (
	decodeSampleRate = 16000
	decodeChannels   = 1
)

// Audio is a decoded attachment, held as a normalized WAV stream.
type Audio struct {
	WAV  []byte
	Info Info
}

type runner func(ctx context.Context, name string, args []string, stdin []byte) (stdout []byte, stderr string, err error)

// Converter decodes and re-encodes audio via an ffmpeg subprocess.
type Converter struct {
	ffmpeg string
	run    runner
	logger *zap.Logger
}

// NewConverter locates ffmpeg and builds a Converter. VOXBOT_FFMPEG_PATH
// overrides PATH lookup.
func NewConverter(logger *zap.Logger) (*Converter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ffmpeg := strings.TrimSpace(os.Getenv("VOXBOT_FFMPEG_PATH"))
	if ffmpeg == "" {
		found, err := exec.LookPath("ffmpeg")
		if err != nil {
			return nil, fmt.Errorf("ffmpeg not found on PATH: %w", err)
		}
		ffmpeg = found
	}

	return &Converter{ffmpeg: ffmpeg, run: runCommand, logger: logger}, nil
}

// Decode parses the source attachment and resamples it to recognition-ready
// PCM. Unparseable input maps to ErrUnsupportedFormat.
func (c *Converter) Decode(ctx context.Context, raw []byte) (Audio, error) {
	if len(raw) == 0 {
		return Audio{}, fmt.Errorf("%w: empty input", ErrUnsupportedFormat)
	}

	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-ac", fmt.Sprint(decodeChannels),
		"-ar", fmt.Sprint(decodeSampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		"pipe:1",
	}

	c.logger.Debug("decoding attachment", zap.Int("bytes", len(raw)))
	out, stderr, err := c.run(ctx, c.ffmpeg, args, raw)
	if err != nil {
		if isParseFailure(stderr) {
			return Audio{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, firstLine(stderr))
		}
		return Audio{}, fmt.Errorf("decode audio: %w (%s)", err, firstLine(stderr))
	}

	info, err := ProbeWAV(out)
	if err != nil {
		return Audio{}, fmt.Errorf("probe decoded audio: %w", err)
	}

	return Audio{WAV: out, Info: info}, nil
}

// Encode renders decoded audio into the target format.
func (c *Converter) Encode(ctx context.Context, audio Audio, target Format) ([]byte, error) {
	switch target {
	case FormatWAV:
		return audio.WAV, nil
	case FormatMP3:
	default:
		return nil, fmt.Errorf("%w: encode target %q", ErrUnsupportedFormat, target)
	}

	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-f", "wav",
		"-i", "pipe:0",
		"-c:a", "libmp3lame",
		"-q:a", "4",
		"-f", "mp3",
		"pipe:1",
	}

	c.logger.Debug("encoding audio", zap.String("target", string(target)), zap.Duration("duration", audio.Info.Duration))
	out, stderr, err := c.run(ctx, c.ffmpeg, args, audio.WAV)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w (%s)", target, err, firstLine(stderr))
	}

	return out, nil
}

func runCommand(ctx context.Context, name string, args []string, stdin []byte) ([]byte, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.String(), err
}

func isParseFailure(stderr string) bool {
	value := strings.ToLower(stderr)
	if value == "" {
		return false
	}

	patterns := []string{
		"invalid data found when processing input",
		"could not find codec parameters",
		"unknown format",
		"failed to read header",
		"end of file",
		"invalid argument",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
