package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

// Info describes the decoded PCM stream inside a WAV container.
type Info struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Frames        int64
	Duration      time.Duration
}

// ProbeWAV parses a RIFF/WAVE byte stream and reports its format and
// duration. Only PCM (format 1) and IEEE float (format 3) streams are
// accepted; everything else is ErrUnsupportedWAV.
func ProbeWAV(data []byte) (Info, error) {
	if len(data) < 12 {
		return Info{}, ErrInvalidWAV
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Info{}, ErrInvalidWAV
	}

	var (
		audioFormat   uint16
		channels      uint16
		sampleRate    uint32
		blockAlign    uint16
		bitsPerSample uint16
		dataSize      uint32
		hasFmt        bool
		hasData       bool
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8

		end := body + int(chunkSize)
		if end > len(data) {
			// A streamed WAV (ffmpeg writing to a pipe) may carry a
			// placeholder size; clamp the data chunk to what is present.
			if chunkID != "data" {
				return Info{}, ErrInvalidWAV
			}
			end = len(data)
			chunkSize = uint32(end - body)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Info{}, ErrInvalidWAV
			}
			audioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			blockAlign = binary.LittleEndian.Uint16(data[body+12 : body+14])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			hasFmt = true
		case "data":
			dataSize = chunkSize
			hasData = true
		}

		offset = end
		if chunkSize%2 != 0 {
			offset++
		}
	}

	if !hasFmt || !hasData {
		return Info{}, ErrInvalidWAV
	}
	if err := validateWAVFormat(audioFormat, bitsPerSample); err != nil {
		return Info{}, err
	}
	if channels == 0 || sampleRate == 0 {
		return Info{}, ErrInvalidWAV
	}

	if blockAlign == 0 {
		blockAlign = channels * bitsPerSample / 8
	}
	if blockAlign == 0 {
		return Info{}, ErrInvalidWAV
	}

	frames := int64(dataSize) / int64(blockAlign)
	duration := time.Duration(frames) * time.Second / time.Duration(sampleRate)

	return Info{
		SampleRate:    int(sampleRate),
		Channels:      int(channels),
		BitsPerSample: int(bitsPerSample),
		Frames:        frames,
		Duration:      duration,
	}, nil
}

func validateWAVFormat(audioFormat, bitsPerSample uint16) error {
	switch audioFormat {
	case 1:
		switch bitsPerSample {
		case 8, 16, 24, 32:
			return nil
		}
	case 3:
		switch bitsPerSample {
		case 32, 64:
			return nil
		}
	default:
		return fmt.Errorf("%w: format %d", ErrUnsupportedWAV, audioFormat)
	}
	return fmt.Errorf("%w: %d bits per sample", ErrUnsupportedWAV, bitsPerSample)
}
