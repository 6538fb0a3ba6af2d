package voice

import (
	"errors"

	apperrors "plate/internal/errors"
	"plate/internal/speech"
)

var (
	ErrMicrophoneDenied = errors.New("voice: microphone permission denied")
	ErrNoMicrophone     = errors.New("voice: no microphone available")
	ErrEncoding         = errors.New("voice: audio encoding failed")
	ErrEmptyRecording   = errors.New("voice: empty recording")
)

const (
	MessageUnknownCommand = `Command not recognized. Say "help" for available commands.`
	MessageNoSpeech       = "No speech detected. Please try again."

	HelpText = `Voice commands: "bump order 12", "recall order 12", "start order 12", ` +
		`"set order 12 priority high", "show grill", "show overdue", "filter by ready", "clear filters".`
)

// FeedbackMessage turns a failure from the capture, transcription or
// dispatch path into the short message shown to kitchen staff.
func FeedbackMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMicrophoneDenied), errors.Is(err, speech.ErrPermission):
		return "Microphone access denied. Please allow microphone permissions."
	case errors.Is(err, ErrNoMicrophone):
		return "No microphone found. Please connect a microphone."
	case errors.Is(err, ErrEncoding):
		return "Could not process the recording. Please try again."
	case errors.Is(err, ErrEmptyRecording):
		return MessageNoSpeech
	case errors.Is(err, speech.ErrNetwork), errors.Is(err, speech.ErrUnavailable):
		return "Network issue. Check your connection and try again."
	case errors.Is(err, speech.ErrAuthRequired):
		return "Authentication required. Please sign in again."
	case errors.Is(err, speech.ErrInvalidFormat):
		return "Audio format not supported. Please try again."
	case errors.Is(err, speech.ErrTooLarge):
		return "Recording too long. Please keep commands short."
	case errors.Is(err, speech.ErrTimeout):
		return "Transcription timed out. Please try again."
	case errors.Is(err, speech.ErrRateLimited):
		return "Too many requests. Please wait a moment."
	}

	if _, ok := apperrors.IsForbiddenError(err); ok {
		return "Insufficient permissions for this kitchen action."
	}
	if _, ok := apperrors.IsUnauthorizedError(err); ok {
		return "Authentication required. Please sign in again."
	}
	if nfe, ok := apperrors.IsNotFoundError(err); ok {
		return nfe.Message
	}
	if ce, ok := apperrors.IsConflictError(err); ok {
		return ce.Message
	}
	if ve, ok := apperrors.IsValidationError(err); ok {
		return ve.Message
	}

	return "Voice command failed. Please try again."
}
