// Package chat defines the platform-neutral surface the bot core talks to.
// The concrete transport (Discord today) lives behind these types so the
// pipeline, ledger, and notification code never import an SDK.
package chat

import "context"

// Embed status colors, matching the deployment's established palette.
const (
	ColorError   = 0xda201b
	ColorWaiting = 0x1d4ffc
	ColorWarn    = 0xdb8d1a
	ColorDone    = 0x239632
)

// Attachment describes one file attached to a message.
type Attachment struct {
	ID          string
	URL         string
	Filename    string
	ContentType string
}

// Message is the slice of an inbound message the pipeline needs.
type Message struct {
	ID           string
	ChannelID    string
	GuildID      string
	AuthorID     string
	Content      string
	VoiceMessage bool
	Attachments  []Attachment
}

// MessageRef identifies an outcome message and where to find it.
type MessageRef struct {
	ID  string
	URL string
}

// IsZero reports whether the ref points at nothing.
func (r MessageRef) IsZero() bool {
	return r.ID == ""
}

// Embed is a rendered status or result card.
type Embed struct {
	Title       string
	Description string
	URL         string
	Color       int
}

// File is an outbound attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Target is one surface a staged notification lives on: either a reply
// thread under the source message or an interaction's (possibly ephemeral)
// response. Implementations decide visibility; callers only sequence edits.
type Target interface {
	// Create posts the placeholder message and returns its ref.
	Create(ctx context.Context, embed Embed) (MessageRef, error)

	// Edit replaces the placeholder's embed.
	Edit(ctx context.Context, ref MessageRef, embed Embed) error

	// Discard deletes the placeholder (used when visibility changes
	// mid-pipeline and the result moves to a public reply).
	Discard(ctx context.Context, ref MessageRef) error

	// Publish posts a public reply to the source message, independent of
	// the placeholder.
	Publish(ctx context.Context, embed Embed) (MessageRef, error)

	// Attach replaces the placeholder's attachments with the given file and
	// returns the updated ref plus the uploaded attachments.
	Attach(ctx context.Context, ref MessageRef, file File) (MessageRef, []Attachment, error)
}

// History looks up previously posted messages. The lifecycle manager uses it
// to confirm a dedupe-ledger entry still points at a live message.
type History interface {
	Message(ctx context.Context, channelID, messageID string) (MessageRef, error)
}
