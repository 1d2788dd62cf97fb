package stt

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/fmueller/voxbot/internal/media"
	"github.com/stretchr/testify/require"
)

func fakeWhisperRun(t *testing.T, transcript string) func(context.Context, string, []string) (string, error) {
	t.Helper()

	return func(_ context.Context, _ string, args []string) (string, error) {
		var base string
		for i, arg := range args {
			if arg == "-of" && i+1 < len(args) {
				base = args[i+1]
			}
		}
		require.NotEmpty(t, base, "whisper args should carry an -of output base")
		require.NoError(t, os.WriteFile(base+".txt", []byte(transcript), 0o600))
		return "", nil
	}
}

func TestLocalTranscribeReadsEngineOutput(t *testing.T) {
	t.Parallel()

	engine := &Local{
		Executable: "whisper-cli",
		ModelPath:  "ggml-small.bin",
		run:        fakeWhisperRun(t, "  hello from whisper \n"),
	}

	text, err := engine.Transcribe(context.Background(), media.Audio{WAV: []byte("RIFF fake")})
	require.NoError(t, err)
	require.Equal(t, "hello from whisper", text)
}

func TestLocalTranscribeEmptyOutputIsNotAnError(t *testing.T) {
	t.Parallel()

	engine := &Local{
		Executable: "whisper-cli",
		ModelPath:  "ggml-small.bin",
		run:        fakeWhisperRun(t, "\n"),
	}

	text, err := engine.Transcribe(context.Background(), media.Audio{WAV: []byte("RIFF fake")})
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestLocalTranscribePassesLanguageFlag(t *testing.T) {
	t.Parallel()

	var seen []string
	engine := &Local{
		Executable: "whisper-cli",
		ModelPath:  "ggml-small.bin",
		Language:   "de",
		run: func(_ context.Context, _ string, args []string) (string, error) {
			seen = args
			return "", errors.New("stop here")
		},
	}

	_, err := engine.Transcribe(context.Background(), media.Audio{WAV: []byte("RIFF fake")})
	require.Error(t, err)
	require.Contains(t, seen, "-l")
	require.Contains(t, seen, "de")
}

func TestLocalTranscribeAutoLanguageOmitsFlag(t *testing.T) {
	t.Parallel()

	var seen []string
	engine := &Local{
		Executable: "whisper-cli",
		ModelPath:  "ggml-small.bin",
		Language:   "auto",
		run: func(_ context.Context, _ string, args []string) (string, error) {
			seen = args
			return "", errors.New("stop here")
		},
	}

	_, err := engine.Transcribe(context.Background(), media.Audio{WAV: []byte("RIFF fake")})
	require.Error(t, err)
	require.NotContains(t, seen, "-l")
}

func TestLocalTranscribeRejectsEmptyAudio(t *testing.T) {
	t.Parallel()

	engine := &Local{Executable: "whisper-cli", ModelPath: "ggml-small.bin"}
	_, err := engine.Transcribe(context.Background(), media.Audio{})
	require.Error(t, err)
}

func TestLocalTranscribeSurfacesEngineFailure(t *testing.T) {
	t.Parallel()

	engine := &Local{
		Executable: "whisper-cli",
		ModelPath:  "ggml-small.bin",
		run: func(context.Context, string, []string) (string, error) {
			return "ggml_init failed", errors.New("exit status 3")
		},
	}

	_, err := engine.Transcribe(context.Background(), media.Audio{WAV: []byte("RIFF fake")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ggml_init failed")
}

func TestNewLocalRequiresModelPath(t *testing.T) {
	t.Parallel()

	_, err := NewLocal("", "auto", nil)
	require.Error(t, err)
}
