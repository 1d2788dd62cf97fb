// Package notify owns the staged notification a request shows to the user:
// a single message whose content moves through Created -> Waiting ->
// Done or Error, with exactly one terminal state ever reached.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/fmueller/voxbot/internal/chat"
	"go.uber.org/zap"
)

// State enumerates where a staged notification is in its lifecycle.
type State int

const (
	StateCreated State = iota
	StateWaiting
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateWaiting:
		return "waiting"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrTerminal is returned when a transition is attempted after the
// notification already reached Done or Error.
var ErrTerminal = errors.New("notification already in a terminal state")

// Notification is the typed handle for one request's staged message. It is
// owned by a single pipeline execution; it is not safe for concurrent use
// and does not need to be.
type Notification struct {
	target chat.Target
	ref    chat.MessageRef
	state  State
	logger *zap.Logger
}

// New starts a notification with no placeholder posted yet.
func New(target chat.Target, logger *zap.Logger) *Notification {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notification{target: target, state: StateCreated, logger: logger}
}

// Resume wraps a placeholder the transport already posted (an interaction
// that had to answer within its deadline) so the pipeline can keep editing it.
func Resume(target chat.Target, placeholder chat.MessageRef, logger *zap.Logger) *Notification {
	n := New(target, logger)
	if !placeholder.IsZero() {
		n.ref = placeholder
		n.state = StateWaiting
	}
	return n
}

// State reports the current lifecycle state.
func (n *Notification) State() State {
	return n.state
}

// Ref returns the placeholder ref, zero until Wait or a terminal call posts one.
func (n *Notification) Ref() chat.MessageRef {
	return n.ref
}

// Wait posts the in-progress placeholder. A notification resumed from an
// existing placeholder is already Waiting and Wait is a no-op.
func (n *Notification) Wait(ctx context.Context, embed chat.Embed) error {
	switch n.state {
	case StateWaiting:
		return nil
	case StateDone, StateError:
		return ErrTerminal
	}

	ref, err := n.target.Create(ctx, embed)
	if err != nil {
		return fmt.Errorf("post waiting notice: %w", err)
	}
	n.ref = ref
	n.state = StateWaiting
	return nil
}

// Attach replaces the placeholder's attachments with the produced media.
// The notification stays in Waiting; the terminal embed follows separately.
func (n *Notification) Attach(ctx context.Context, file chat.File) ([]chat.Attachment, error) {
	if n.state != StateWaiting {
		return nil, fmt.Errorf("attach in state %s", n.state)
	}

	ref, attachments, err := n.target.Attach(ctx, n.ref, file)
	if err != nil {
		return nil, fmt.Errorf("attach media: %w", err)
	}
	n.ref = ref
	return attachments, nil
}

// Succeed moves the notification to Done, editing the placeholder in place,
// or posting a fresh message when none exists yet (the already-processed
// short-circuit never enters Waiting).
func (n *Notification) Succeed(ctx context.Context, embed chat.Embed) (chat.MessageRef, error) {
	if n.state == StateDone || n.state == StateError {
		return chat.MessageRef{}, ErrTerminal
	}

	if n.ref.IsZero() {
		ref, err := n.target.Create(ctx, embed)
		if err != nil {
			return chat.MessageRef{}, fmt.Errorf("post result: %w", err)
		}
		n.ref = ref
	} else if err := n.target.Edit(ctx, n.ref, embed); err != nil {
		return chat.MessageRef{}, fmt.Errorf("edit result: %w", err)
	}

	n.state = StateDone
	return n.ref, nil
}

// SucceedPublic discards the (ephemeral) placeholder and posts the result as
// a public reply instead. Used when a public transcription was requested
// through an interaction, whose placeholder is only visible to the requester.
func (n *Notification) SucceedPublic(ctx context.Context, embed chat.Embed) (chat.MessageRef, error) {
	if n.state == StateDone || n.state == StateError {
		return chat.MessageRef{}, ErrTerminal
	}

	if !n.ref.IsZero() {
		if err := n.target.Discard(ctx, n.ref); err != nil {
			n.logger.Warn("failed to discard placeholder", zap.String("message", n.ref.ID), zap.Error(err))
		}
	}

	ref, err := n.target.Publish(ctx, embed)
	if err != nil {
		return chat.MessageRef{}, fmt.Errorf("publish result: %w", err)
	}

	n.ref = ref
	n.state = StateDone
	return ref, nil
}

// Fail moves the notification to Error. When no placeholder exists yet it
// posts a fresh notice so the request still gets a terminal answer. Delivery
// is best-effort: a failure to send the error notice itself is only logged.
func (n *Notification) Fail(ctx context.Context, message string) {
	if n.state == StateDone || n.state == StateError {
		n.logger.Warn("discarding error for terminal notification", zap.String("state", n.state.String()), zap.String("message", message))
		return
	}

	embed := ErrorEmbed(message)
	var err error
	if n.ref.IsZero() {
		n.ref, err = n.target.Create(ctx, embed)
	} else {
		err = n.target.Edit(ctx, n.ref, embed)
	}
	if err != nil {
		n.logger.Warn("failed to deliver error notice", zap.Error(err))
	}

	n.state = StateError
}
