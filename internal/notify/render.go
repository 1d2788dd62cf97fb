package notify

import (
	"net/url"

	"github.com/fmueller/voxbot/internal/chat"
)

// MaxTranscriptChars caps how much transcribed text is rendered; anything
// longer is cut and marked with ContinuationMarker.
const (
	MaxTranscriptChars = 4050
	ContinuationMarker = "..."
)

const playerBaseURL = "https://embedmediaplayer.web.app/?url="

// TruncateTranscript enforces the display cap on transcript text.
func TruncateTranscript(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxTranscriptChars {
		return text
	}
	return string(runes[:MaxTranscriptChars]) + ContinuationMarker
}

// TranscriptEmbed renders a successful transcription as a quoted result card.
func TranscriptEmbed(text string) chat.Embed {
	return chat.Embed{
		Color:       chat.ColorDone,
		Description: `*"` + TruncateTranscript(text) + `"*`,
	}
}

// WaitingEmbed renders the in-progress placeholder for the given activity,
// e.g. "Transcribing" or "Transcoding".
func WaitingEmbed(activity string) chat.Embed {
	return chat.Embed{
		Color:       chat.ColorWaiting,
		Description: "✨ " + activity + "...",
	}
}

// ErrorEmbed renders a terminal failure notice.
func ErrorEmbed(message string) chat.Embed {
	return chat.Embed{
		Color:       chat.ColorError,
		Description: message,
	}
}

// NothingHeardEmbed renders the empty-transcription outcome. An empty
// transcript is a valid result, not an error, so it uses the warning color.
func NothingHeardEmbed() chat.Embed {
	return chat.Embed{
		Color:       chat.ColorWarn,
		Description: "*The bot didn't hear anything*",
	}
}

// AlreadyProcessedEmbed points a repeat request at the stored outcome.
func AlreadyProcessedEmbed(resultURL string) chat.Embed {
	return chat.Embed{
		Color:       chat.ColorDone,
		Description: "Already processed: " + resultURL,
	}
}

// PlayLinkEmbed renders the transcode outcome as a playback link for the
// uploaded media.
func PlayLinkEmbed(mediaURL string) chat.Embed {
	return chat.Embed{
		Color: chat.ColorDone,
		Title: ":arrow_forward: Play Mp3",
		URL:   playerBaseURL + url.QueryEscape(mediaURL),
	}
}
