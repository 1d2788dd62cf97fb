package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranscribeCommandPrintsTranscript(t *testing.T) {
	t.Parallel()

	app := &appState{
		transcribeFn: func(ctx context.Context, audioPath string) (string, error) {
			require.Equal(t, "voice.ogg", audioPath)
			return "guten tag", nil
		},
	}

	stdout, _, err := runCommandWith(t, app, []string{"transcribe", "voice.ogg"})
	require.NoError(t, err)
	require.Equal(t, "guten tag\n", stdout)
}

func TestTranscribeCommandSurfacesEngineError(t *testing.T) {
	t.Parallel()

	app := &appState{
		transcribeFn: func(ctx context.Context, audioPath string) (string, error) {
			return "", errors.New("engine exploded")
		},
	}

	_, _, err := runCommandWith(t, app, []string{"transcribe", "voice.ogg"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "engine exploded")
}

func TestTranscribeCommandPrintsBlankTranscript(t *testing.T) {
	t.Parallel()

	app := &appState{
		transcribeFn: func(ctx context.Context, audioPath string) (string, error) {
			return "[BLANK_AUDIO]", nil
		},
	}

	stdout, _, err := runCommandWith(t, app, []string{"transcribe", "voice.ogg"})
	require.NoError(t, err)
	require.Equal(t, "[BLANK_AUDIO]\n", stdout)
}

func TestBuildEngineRejectsUnknownEngine(t *testing.T) {
	t.Parallel()

	app := &appState{}
	_, err := app.buildEngine(context.Background(), engineParams{engine: "azure"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown engine")
}

func TestBuildEngineAPIWithoutKeySucceeds(t *testing.T) {
	t.Parallel()

	app := &appState{}
	engine, err := app.buildEngine(context.Background(), engineParams{engine: "api"})
	require.NoError(t, err)
	require.Equal(t, "api", engine.Name())
}
