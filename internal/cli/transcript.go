package cli

import "strings"

// blankAudioToken is what the local whisper engine emits for speechless audio.
const blankAudioToken = "[BLANK_AUDIO]"

func isBlankTranscript(transcript string) bool {
	trimmed := strings.TrimSpace(transcript)
	if trimmed == "" {
		return true
	}

	return strings.EqualFold(trimmed, blankAudioToken)
}

func noSpeechHint() string {
	return "No speech detected in the audio."
}
