package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/fmueller/voxbot/internal/media"
	"go.uber.org/zap"
)

// DefaultRemoteEndpoint is the Whisper-compatible transcription endpoint
// used when none is configured.
const DefaultRemoteEndpoint = "https://api.openai.com/v1/audio/transcriptions"

const defaultRemoteModel = "whisper-1"

// RemoteOptions configures a Remote engine.
type RemoteOptions struct {
	APIKey     string
	Endpoint   string
	Model      string
	Language   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Remote submits decoded audio to a network recognition API. Construction
// always succeeds; a missing credential surfaces as ErrNoAPIKey per request
// so a misconfigured deployment still answers every request with a notice.
type Remote struct {
	apiKey   string
	endpoint string
	model    string
	language string
	http     *http.Client
	logger   *zap.Logger
}

// NewRemote builds a remote engine from opts.
func NewRemote(opts RemoteOptions) *Remote {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultRemoteEndpoint
	}
	if opts.Model == "" {
		opts.Model = defaultRemoteModel
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Remote{
		apiKey:   strings.TrimSpace(opts.APIKey),
		endpoint: opts.Endpoint,
		model:    opts.Model,
		language: strings.TrimSpace(opts.Language),
		http:     opts.HTTPClient,
		logger:   opts.Logger,
	}
}

// Name identifies the engine in logs and status output.
func (r *Remote) Name() string {
	return "api"
}

// Transcribe uploads the audio as multipart form data and returns the text
// field of the response.
func (r *Remote) Transcribe(ctx context.Context, audio media.Audio) (string, error) {
	if r.apiKey == "" {
		return "", ErrNoAPIKey
	}
	if len(audio.WAV) == 0 {
		return "", fmt.Errorf("decoded audio is empty")
	}

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	part, err := form.CreateFormFile("file", "voice.wav")
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(audio.WAV); err != nil {
		return "", fmt.Errorf("write upload form: %w", err)
	}
	if err := form.WriteField("model", r.model); err != nil {
		return "", fmt.Errorf("write upload form: %w", err)
	}
	if r.language != "" && r.language != "auto" {
		if err := form.WriteField("language", r.language); err != nil {
			return "", fmt.Errorf("write upload form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("create transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	started := time.Now()
	resp, err := r.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("transcription API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}

	r.logger.Debug("remote transcription finished", zap.Duration("elapsed", time.Since(started)), zap.Int("chars", len(result.Text)))
	return strings.TrimSpace(result.Text), nil
}
