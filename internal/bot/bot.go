// Package bot owns the request lifecycle: precondition checks, the dedupe
// short-circuit, the fetch -> decode -> recognize/encode pipeline, and the
// staged notifications that keep the user informed. Every admitted request
// reaches exactly one terminal notification.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/fmueller/voxbot/internal/chat"
	"github.com/fmueller/voxbot/internal/ledger"
	"github.com/fmueller/voxbot/internal/media"
	"github.com/fmueller/voxbot/internal/notify"
	"github.com/fmueller/voxbot/internal/stt"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// voiceContentType is the content type the platform stamps on native voice
// recordings; the voice-messages-only policy checks against it.
const voiceContentType = "audio/ogg"

// Fetcher retrieves raw attachment bytes.
type Fetcher interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Converter decodes attachments and re-encodes them into target formats.
type Converter interface {
	Decode(ctx context.Context, raw []byte) (media.Audio, error)
	Encode(ctx context.Context, audio media.Audio, target media.Format) ([]byte, error)
}

// Options wires a Manager. Fetcher, Converter, Engine, and Ledger are
// required; History is optional and only used to validate ledger hits.
type Options struct {
	Fetcher   Fetcher
	Converter Converter
	Engine    stt.Engine
	Ledger    *ledger.Ledger
	History   chat.History
	Logger    *zap.Logger

	Automatic         bool
	VoiceMessagesOnly bool
	AdminUsers        []string
	AdminRole         string

	// Workers bounds how many pipelines run at once so a burst of voice
	// messages cannot exhaust the process. The event-dispatch side never
	// blocks; submissions queue on the worker slots.
	Workers int
}

// Manager runs the request lifecycle.
type Manager struct {
	fetcher   Fetcher
	converter Converter
	engine    stt.Engine
	ledger    *ledger.Ledger
	history   chat.History
	logger    *zap.Logger

	automatic  bool
	voiceOnly  bool
	adminUsers map[string]struct{}
	adminRole  string

	sem chan struct{}

	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
}

// New validates opts and builds a Manager.
func New(opts Options) (*Manager, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if opts.Converter == nil {
		return nil, errors.New("converter is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	admins := make(map[string]struct{}, len(opts.AdminUsers))
	for _, id := range opts.AdminUsers {
		admins[id] = struct{}{}
	}

	return &Manager{
		fetcher:    opts.Fetcher,
		converter:  opts.Converter,
		engine:     opts.Engine,
		ledger:     opts.Ledger,
		history:    opts.History,
		logger:     opts.Logger,
		automatic:  opts.Automatic,
		voiceOnly:  opts.VoiceMessagesOnly,
		adminUsers: admins,
		adminRole:  opts.AdminRole,
		sem:        make(chan struct{}, opts.Workers),
	}, nil
}

// Submit admits a request and runs its pipeline on a worker slot. It returns
// immediately so the event-dispatch goroutine stays free. There is no
// cancellation: an admitted request always runs to a terminal notification.
// Requests arriving after Drain has started are dropped.
func (m *Manager) Submit(req Request) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	// Admission and wg.Add happen under the lock so a late event handler
	// cannot race Add against an in-progress Drain.
	m.mu.Lock()
	if m.draining {
		m.mu.Unlock()
		m.logger.Info("request rejected: shutting down", zap.String("request", req.ID))
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.sem <- struct{}{}
		defer func() { <-m.sem }()

		m.Handle(context.Background(), req)
	}()
}

// Drain stops admitting new requests and waits for in-flight ones to finish.
func (m *Manager) Drain() {
	m.mu.Lock()
	m.draining = true
	m.mu.Unlock()
	m.wg.Wait()
}

// AutoTranscribe submits a transcription for an automatic message-creation
// trigger. It reports whether the message qualified: automatic mode on, the
// platform voice flag set, and exactly one attachment present.
func (m *Manager) AutoTranscribe(msg chat.Message, target chat.Target) bool {
	if !m.automatic || !msg.VoiceMessage || len(msg.Attachments) != 1 {
		return false
	}

	m.Submit(Request{Source: msg, Op: OpTranscribe, Target: target})
	return true
}

// IsManager reports whether the user may use privileged commands: either on
// the allow-list or carrying the configured admin role (role "0" disables
// the role path).
func (m *Manager) IsManager(userID string, roleIDs []string) bool {
	if _, ok := m.adminUsers[userID]; ok {
		return true
	}
	if m.adminRole == "" || m.adminRole == "0" {
		return false
	}
	for _, id := range roleIDs {
		if id == m.adminRole {
			return true
		}
	}
	return false
}

// Handle runs one request to its terminal notification. Exported for the
// worker goroutines and for tests; transports should go through Submit.
func (m *Manager) Handle(ctx context.Context, req Request) {
	log := m.logger.With(
		zap.String("request", req.ID),
		zap.String("op", req.Op.String()),
		zap.String("source", req.Source.ID),
	)

	note := notify.Resume(req.Target, req.Placeholder, m.logger)

	if len(req.Source.Attachments) == 0 {
		log.Info("rejected: no attachment")
		note.Fail(ctx, failureText(req.Op, "No Voice Message"))
		return
	}

	attachment := req.Source.Attachments[0]
	if m.voiceOnly && !isVoiceAttachment(attachment) {
		log.Info("rejected: not a voice message", zap.String("content_type", attachment.ContentType))
		note.Fail(ctx, failureText(req.Op, "Attachment not a Voice Message"))
		return
	}

	// Transcode results are not deduped; only transcription outcomes are
	// recorded and short-circuited.
	if req.Op == OpTranscribe {
		// A hit only ever arrives through an interaction placeholder: the
		// automatic trigger fires once, at message creation, before any
		// entry for that message can exist.
		if entry, ok := m.ledger.Lookup(req.Source.ID); ok && m.entryStillValid(ctx, log, req, entry) {
			if _, err := note.Succeed(ctx, notify.AlreadyProcessedEmbed(entry.URL)); err != nil {
				m.failUnknown(ctx, log, note, req.Op, "deliver already-processed notice", err)
			}
			return
		}
	}

	if err := note.Wait(ctx, notify.WaitingEmbed(req.Op.Activity())); err != nil {
		log.Error("failed to post waiting notice", zap.Error(err))
		note.Fail(ctx, unknownFailureText(req.Op))
		return
	}

	raw, err := m.fetcher.Download(ctx, attachment.URL)
	if err != nil {
		m.failUnknown(ctx, log, note, req.Op, "fetch attachment", err)
		return
	}

	audio, err := m.converter.Decode(ctx, raw)
	if err != nil {
		m.failUnknown(ctx, log, note, req.Op, "decode audio", err)
		return
	}

	switch req.Op {
	case OpTranscribe:
		m.finishTranscribe(ctx, log, note, req, audio)
	case OpTranscode:
		m.finishTranscode(ctx, log, note, audio)
	default:
		m.failUnknown(ctx, log, note, req.Op, "dispatch", errors.New("unknown operation"))
	}
}

func (m *Manager) finishTranscribe(ctx context.Context, log *zap.Logger, note *notify.Notification, req Request, audio media.Audio) {
	text, err := m.engine.Transcribe(ctx, audio)
	if err != nil {
		if errors.Is(err, stt.ErrNoAPIKey) {
			log.Warn("remote engine selected without an api key")
			note.Fail(ctx, failureText(req.Op, "Configured to use Whisper API, but no API Key provided!"))
			return
		}
		m.failUnknown(ctx, log, note, req.Op, "recognize speech", err)
		return
	}

	// An empty transcript is a valid outcome, reported as a warning notice
	// and never recorded in the ledger.
	if strings.TrimSpace(text) == "" {
		log.Info("nothing heard", zap.Duration("audio", audio.Info.Duration))
		if _, err := note.Succeed(ctx, notify.NothingHeardEmbed()); err != nil {
			m.failUnknown(ctx, log, note, req.Op, "deliver empty-result notice", err)
		}
		return
	}

	embed := notify.TranscriptEmbed(text)

	var ref chat.MessageRef
	if req.Interaction && !req.Private {
		// The interaction placeholder is requester-only; a public result
		// replaces it with a regular reply.
		ref, err = note.SucceedPublic(ctx, embed)
	} else {
		ref, err = note.Succeed(ctx, embed)
	}
	if err != nil {
		m.failUnknown(ctx, log, note, req.Op, "deliver result", err)
		return
	}

	m.ledger.Record(req.Source.ID, ledger.Entry{MessageID: ref.ID, URL: ref.URL})
	log.Info("transcription delivered", zap.Int("chars", len(text)), zap.String("result", ref.ID))
}

func (m *Manager) finishTranscode(ctx context.Context, log *zap.Logger, note *notify.Notification, audio media.Audio) {
	encoded, err := m.converter.Encode(ctx, audio, media.FormatMP3)
	if err != nil {
		m.failUnknown(ctx, log, note, OpTranscode, "encode audio", err)
		return
	}

	attachments, err := note.Attach(ctx, chat.File{
		Name:        "voice_message",
		ContentType: "audio/mpeg",
		Data:        encoded,
	})
	if err != nil || len(attachments) == 0 {
		if err == nil {
			err = errors.New("transport returned no attachment")
		}
		m.failUnknown(ctx, log, note, OpTranscode, "upload media", err)
		return
	}

	if _, err := note.Succeed(ctx, notify.PlayLinkEmbed(attachments[0].URL)); err != nil {
		m.failUnknown(ctx, log, note, OpTranscode, "deliver result", err)
		return
	}
	log.Info("transcode delivered", zap.Int("bytes", len(encoded)))
}

// entryStillValid confirms a ledger hit still points at a live message. Any
// lookup failure is treated as a cache miss so the request falls through to
// normal re-processing; this is a deliberate best-effort policy, not an
// error path.
func (m *Manager) entryStillValid(ctx context.Context, log *zap.Logger, req Request, entry ledger.Entry) bool {
	if m.history == nil {
		return true
	}

	if _, err := m.history.Message(ctx, req.Source.ChannelID, entry.MessageID); err != nil {
		log.Debug("ledger entry no longer resolvable; re-processing", zap.String("result", entry.MessageID), zap.Error(err))
		return false
	}
	return true
}

func (m *Manager) failUnknown(ctx context.Context, log *zap.Logger, note *notify.Notification, op Operation, stage string, err error) {
	// Full diagnostic detail stays in the log; the user sees a generic
	// failure notice only.
	log.Error("pipeline stage failed", zap.String("stage", stage), zap.Error(err))
	note.Fail(ctx, unknownFailureText(op))
}

func isVoiceAttachment(attachment chat.Attachment) bool {
	contentType := attachment.ContentType
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType) == voiceContentType
}
