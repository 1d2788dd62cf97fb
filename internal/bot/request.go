package bot

import (
	"fmt"

	"github.com/fmueller/voxbot/internal/chat"
)

// Operation is what a request wants done with the attachment.
type Operation int

const (
	OpTranscribe Operation = iota
	OpTranscode
)

func (op Operation) String() string {
	switch op {
	case OpTranscribe:
		return "transcribe"
	case OpTranscode:
		return "transcode"
	default:
		return fmt.Sprintf("operation(%d)", int(op))
	}
}

// Activity is the progress-notice verb for the operation.
func (op Operation) Activity() string {
	if op == OpTranscode {
		return "Transcoding"
	}
	return "Transcribing"
}

// Request is one unit of work: a source message, the operation to run on its
// first attachment, and the surface the outcome is reported on. Immutable
// once submitted; discarded after the terminal notification.
type Request struct {
	ID     string
	Source chat.Message
	Op     Operation

	// Interaction marks requests arriving through an explicit command
	// rather than the automatic trigger.
	Interaction bool

	// Private keeps the result visible to the requester only.
	Private bool

	// Target is where staged notifications are delivered.
	Target chat.Target

	// Placeholder carries a pre-posted waiting notice when the transport
	// had to answer an interaction before handing the request over.
	Placeholder chat.MessageRef
}

func failureText(op Operation, reason string) string {
	if op == OpTranscode {
		return "Transcode failed! (" + reason + ")"
	}
	return "Transcription failed! (" + reason + ")"
}

// The catch-all notices keep the original deployment's wording, quirky
// "Transcribe" prefix included.
func unknownFailureText(op Operation) string {
	if op == OpTranscode {
		return "Transcode failed! (Unknown Error)"
	}
	return "Transcribe failed! (Unknown Error)"
}
