package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fmueller/voxbot/internal/media"
	"go.uber.org/zap"
)

// Local runs a bundled whisper-cli binary against decoded audio. No network
// dependency; latency is bounded by local compute only.
type Local struct {
	Executable string
	ModelPath  string
	Language   string
	Logger     *zap.Logger

	run func(ctx context.Context, name string, args []string) (stderr string, err error)
}

// NewLocal resolves the whisper-cli binary and builds a local engine.
// VOXBOT_WHISPER_PATH overrides the search next to the voxbot executable.
func NewLocal(modelPath, language string, logger *zap.Logger) (*Local, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is required")
	}

	if override := strings.TrimSpace(os.Getenv("VOXBOT_WHISPER_PATH")); override != "" {
		if err := ensureExecutable(override); err != nil {
			return nil, fmt.Errorf("VOXBOT_WHISPER_PATH is not executable: %w", err)
		}
		return &Local{Executable: override, ModelPath: modelPath, Language: language, Logger: logger}, nil
	}

	voxbotExe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve voxbot executable path: %w", err)
	}

	whisperExe, err := ResolveEnginePath(voxbotExe)
	if err != nil {
		return nil, err
	}

	return &Local{Executable: whisperExe, ModelPath: modelPath, Language: language, Logger: logger}, nil
}

// ResolveEnginePath locates the whisper-cli binary shipped alongside voxbot.
func ResolveEnginePath(voxbotExecutable string) (string, error) {
	for _, candidate := range enginePathCandidates(voxbotExecutable) {
		if err := ensureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("whisper engine not found near %s; expected at ../libexec/whisper/%s or via VOXBOT_WHISPER_PATH", voxbotExecutable, engineBinaryName())
}

func enginePathCandidates(voxbotExecutable string) []string {
	binDir := filepath.Dir(voxbotExecutable)
	engineName := engineBinaryName()

	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", engineName),
		filepath.Join(binDir, "libexec", "whisper", engineName),
		filepath.Join(binDir, engineName),
	}
}

// Name identifies the engine in logs and status output.
func (l *Local) Name() string {
	return "whisper"
}

// Transcribe writes the decoded audio to a temp file and runs whisper-cli
// over it, returning the trimmed text output.
func (l *Local) Transcribe(ctx context.Context, audio media.Audio) (string, error) {
	if len(audio.WAV) == 0 {
		return "", errors.New("decoded audio is empty")
	}

	base := filepath.Join(os.TempDir(), fmt.Sprintf("voxbot-%d", time.Now().UnixNano()))
	wavPath := base + ".wav"
	txtPath := base + ".txt"

	if err := os.WriteFile(wavPath, audio.WAV, 0o600); err != nil {
		return "", fmt.Errorf("write audio temp file: %w", err)
	}
	defer os.Remove(wavPath)
	defer os.Remove(txtPath)

	args := []string{"-m", l.ModelPath, "-f", wavPath, "-nt", "-otxt", "-of", base}
	lang := strings.TrimSpace(l.Language)
	if lang != "" && lang != "auto" {
		args = append(args, "-l", lang)
	}

	l.logger().Debug("running whisper engine", zap.String("engine", l.Executable), zap.Strings("args", args))

	stderr, err := l.runCommand(ctx, l.Executable, args)
	if err != nil {
		errText := strings.TrimSpace(stderr)
		if isMissingSharedLibraryError(errText) {
			return "", fmt.Errorf("whisper engine at %s is missing required shared libraries (%s)", l.Executable, errText)
		}
		if isIllegalInstructionError(errText) || isIllegalInstructionError(err.Error()) {
			return "", fmt.Errorf("whisper engine crashed with an illegal CPU instruction; set VOXBOT_WHISPER_PATH to a whisper-cli binary built for this CPU")
		}
		return "", fmt.Errorf("whisper transcribe failed: %w (%s)", err, errText)
	}

	content, err := os.ReadFile(txtPath)
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}

	return strings.TrimSpace(string(content)), nil
}

func (l *Local) runCommand(ctx context.Context, name string, args []string) (string, error) {
	if l.run != nil {
		return l.run(ctx, name, args)
	}

	if err := ensureExecutable(name); err != nil {
		return "", fmt.Errorf("whisper engine missing or not executable: %w", err)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.String(), err
}

func (l *Local) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}
