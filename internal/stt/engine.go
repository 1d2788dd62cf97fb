// Package stt turns decoded audio into text. Two engines exist: a local one
// driving a bundled whisper-cli binary and a remote one calling a
// Whisper-compatible HTTP API. The engine is chosen once at startup from
// configuration; request handling only sees the Engine interface.
package stt

import (
	"context"
	"errors"

	"github.com/fmueller/voxbot/internal/media"
)

// Engine converts decoded audio into plain text. An empty result means
// nothing was heard and is a valid outcome, not an error.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, audio media.Audio) (string, error)
}

// ErrNoAPIKey is returned by the remote engine when it is selected without a
// configured credential. It fails the request, not the process.
var ErrNoAPIKey = errors.New("configured to use the transcription API, but no API key provided")
