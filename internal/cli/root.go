package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fmueller/voxbot/internal/bot"
	"github.com/fmueller/voxbot/internal/config"
	"github.com/fmueller/voxbot/internal/discord"
	"github.com/fmueller/voxbot/internal/fetch"
	"github.com/fmueller/voxbot/internal/ledger"
	"github.com/fmueller/voxbot/internal/logging"
	"github.com/fmueller/voxbot/internal/media"
	"github.com/fmueller/voxbot/internal/platform"
	"github.com/fmueller/voxbot/internal/stt"
	"github.com/fmueller/voxbot/internal/version"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"
)

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool
	configPath string

	model        string
	modelDir     string
	language     string
	engine       string
	apiKey       string
	autoDownload bool

	logger *zap.Logger

	serveFn      func(ctx context.Context) error
	transcribeFn func(ctx context.Context, audioPath string) (string, error)
}

func NewRootCmd() *cobra.Command {
	app := &appState{
		configPath:   "config.toml",
		model:        stt.DefaultModel,
		language:     "auto",
		engine:       config.EngineWhisper,
		autoDownload: true,
	}
	app.serveFn = app.serve
	app.transcribeFn = app.transcribeAudio

	return newRootCmd(app)
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "voxbot",
		Short:         "Chat bot that transcribes voice messages and converts them to mp3",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.language = sanitizeLanguage(app.language)
			app.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			serveFn := app.serveFn
			if serveFn == nil {
				serveFn = app.serve
			}
			return serveFn(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	cmd.Flags().StringVar(&app.configPath, "config", app.configPath, "Path to the bot configuration file")

	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.Flags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.model, "model", app.model, "Model name or model file path")
	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
}

func bindLanguageAndModelDownloadFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.language, "language", app.language, "Language code (auto|en|de|...) for transcription")
	cmd.Flags().BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing models")
}

func bindEngineFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.engine, "engine", app.engine, "Recognition engine: whisper|api")
	cmd.Flags().StringVar(&app.apiKey, "api-key", app.apiKey, "API key for the api engine (or OPENAI_API_KEY)")
}

// serve loads the deployment config, assembles the pipeline, and runs the
// gateway until interrupted.
func (a *appState) serve(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cfg.BotToken == "" {
		return errors.New("BOT_TOKEN is not set; export it or add it to .env")
	}

	engine, err := a.buildEngine(ctx, engineParams{
		engine:   cfg.Engine,
		apiKey:   cfg.APIKey,
		apiURL:   cfg.APIURL,
		model:    cfg.Model,
		modelDir: cfg.ModelDir,
		language: cfg.Language,
	})
	if err != nil {
		return err
	}

	converter, err := media.NewConverter(a.log())
	if err != nil {
		return err
	}

	led, err := ledger.New(cfg.LedgerCapacity)
	if err != nil {
		return err
	}

	gateway, err := discord.New(cfg.BotToken, a.log())
	if err != nil {
		return err
	}

	manager, err := bot.New(bot.Options{
		Fetcher:           fetch.NewClient(fetch.Options{Logger: a.log()}),
		Converter:         converter,
		Engine:            engine,
		Ledger:            led,
		History:           gateway,
		Logger:            a.log(),
		Automatic:         cfg.Automatic,
		VoiceMessagesOnly: cfg.VoiceMessagesOnly,
		AdminUsers:        cfg.AdminUsers,
		AdminRole:         cfg.AdminRole,
		Workers:           cfg.Workers,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.log().Info("starting bot",
		zap.String("engine", engine.Name()),
		zap.Bool("automatic", cfg.Automatic),
		zap.Bool("voice_messages_only", cfg.VoiceMessagesOnly),
		zap.Int("workers", cfg.Workers),
	)
	return gateway.Run(ctx, manager)
}

// engineParams carries the engine selection regardless of whether it came from
// the config file (serve) or command-line flags (offline transcribe).
type engineParams struct {
	engine   string
	apiKey   string
	apiURL   string
	model    string
	modelDir string
	language string
}

func (a *appState) buildEngine(ctx context.Context, params engineParams) (stt.Engine, error) {
	switch params.engine {
	case config.EngineAPI:
		// A missing key is not fatal here: the remote engine reports it
		// per request so the bot still answers with a proper notice.
		return stt.NewRemote(stt.RemoteOptions{
			APIKey:   params.apiKey,
			Endpoint: params.apiURL,
			Language: params.language,
			Logger:   a.log(),
		}), nil
	case config.EngineWhisper:
		model, err := a.ensureModelAvailable(ctx, params.model, params.modelDir)
		if err != nil {
			return nil, err
		}
		return stt.NewLocal(model.Path, params.language, a.log())
	default:
		return nil, fmt.Errorf("unknown engine %q (want %s or %s)", params.engine, config.EngineWhisper, config.EngineAPI)
	}
}

func (a *appState) modelStorageDir(override string) (string, error) {
	dir, err := platform.ResolveModelDir(override)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
