package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fmueller/voxbot/internal/download"
	"github.com/fmueller/voxbot/internal/media"
	"github.com/fmueller/voxbot/internal/stt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTranscribeCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe a local audio file without connecting to the chat platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcribeFn := app.transcribeFn
			if transcribeFn == nil {
				transcribeFn = app.transcribeAudio
			}

			transcript, err := transcribeFn(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), transcript)
			if isBlankTranscript(transcript) {
				app.log().Warn(noSpeechHint())
			}
			return nil
		},
	}

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindModelFlags(cmd, app)
	bindLanguageAndModelDownloadFlags(cmd, app)
	bindEngineFlags(cmd, app)
	return cmd
}

// transcribeAudio runs the same decode and recognize stages the bot runs,
// against a file on disk.
func (a *appState) transcribeAudio(ctx context.Context, audioPath string) (string, error) {
	audioPath = filepath.Clean(audioPath)
	raw, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	engine, err := a.buildEngine(ctx, engineParams{
		engine:   a.engine,
		apiKey:   a.offlineAPIKey(),
		model:    a.model,
		modelDir: a.modelDir,
		language: a.language,
	})
	if err != nil {
		return "", err
	}

	converter, err := media.NewConverter(a.log())
	if err != nil {
		return "", err
	}

	audio, err := converter.Decode(ctx, raw)
	if err != nil {
		return "", err
	}

	a.log().Info("transcribing...",
		zap.String("audio", audioPath),
		zap.String("engine", engine.Name()),
		zap.Duration("duration", audio.Info.Duration),
		zap.String("language", a.language),
	)
	stopSpinner := startSpinner(a.progressEnabled(), "Transcribing")
	started := time.Now()

	transcript, err := engine.Transcribe(ctx, audio)
	stopSpinner()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return "", err
	}
	a.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)))

	return transcript, nil
}

func (a *appState) offlineAPIKey() string {
	if a.apiKey != "" {
		return a.apiKey
	}
	return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
}

func (a *appState) ensureModelAvailable(ctx context.Context, modelRef, modelDirOverride string) (stt.ResolvedModel, error) {
	modelDir, err := a.modelStorageDir(modelDirOverride)
	if err != nil {
		return stt.ResolvedModel{}, err
	}

	resolved, err := stt.ResolveModel(modelRef, modelDir)
	if err != nil {
		return stt.ResolvedModel{}, err
	}

	if !resolved.NeedsDownload {
		return resolved, nil
	}

	if !a.autoDownload {
		return stt.ResolvedModel{}, fmt.Errorf("model %q is missing at %s; run `voxbot setup --model %s` or use --auto-download=true", resolved.Name, resolved.Path, resolved.Name)
	}

	a.log().Info("model not found, downloading", zap.String("model", resolved.Name), zap.String("destination", resolved.Path))
	if err := download.DownloadFile(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		NoProgress:     a.noProgress,
		Logger:         a.log(),
	}); err != nil {
		return stt.ResolvedModel{}, fmt.Errorf("download model %q: %w", resolved.Name, err)
	}

	resolved.NeedsDownload = false
	return resolved, nil
}

func sanitizeLanguage(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return "auto"
	}
	return trimmed
}
