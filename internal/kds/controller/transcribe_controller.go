package controller

import (
	"context"
	"errors"
	"io"
	"net/http"

	"plate/internal/dto"
	apperrors "plate/internal/errors"
	"plate/internal/speech"
	"plate/internal/voice"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (*speech.Transcription, error)
}

const audioField = "audio"

type TranscribeController struct {
	responder
	transcriber    Transcriber
	limiter        *ClientLimiter
	maxUploadBytes int64
}

func NewTranscribeController(transcriber Transcriber, limiter *ClientLimiter, maxUploadBytes int64, logger *zap.Logger) *TranscribeController {
	return &TranscribeController{
		responder:      responder{logger: logger},
		transcriber:    transcriber,
		limiter:        limiter,
		maxUploadBytes: maxUploadBytes,
	}
}

// Transcribe serves POST /api/transcribe. The multipart "audio" part is
// forwarded to the speech provider and the transcript is split into order
// items.
func (c *TranscribeController) Transcribe(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	if !c.limiter.Allow(clientKey(r)) {
		logger.Warn("transcription rate limited", zap.String("client", clientKey(r)))
		c.writeError(w, traceID, http.StatusTooManyRequests, "RATE_LIMITED", voice.FeedbackMessage(speech.ErrRateLimited))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadBytes)
	if err := r.ParseMultipartForm(c.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.writeError(w, traceID, http.StatusRequestEntityTooLarge, "TOO_LARGE", voice.FeedbackMessage(speech.ErrTooLarge))
			return
		}
		logger.Warn("invalid multipart body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid multipart body", apperrors.ValidationDetail{
			Field:   audioField,
			Message: "request must be multipart/form-data",
		})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(audioField)
	if err != nil {
		c.writeValidationError(w, traceID, "missing audio", apperrors.ValidationDetail{
			Field:   audioField,
			Message: "audio file is required",
		})
		return
	}
	defer file.Close()

	filename, ok := speech.NormalizeFilename(header.Filename, header.Header.Get("Content-Type"))
	if !ok {
		c.writeError(w, traceID, http.StatusUnsupportedMediaType, "INVALID_FORMAT", voice.FeedbackMessage(speech.ErrInvalidFormat))
		return
	}

	result, err := c.transcriber.Transcribe(r.Context(), file, filename)
	if err != nil {
		c.handleTranscriptionError(w, traceID, err, logger)
		return
	}

	logger.Info("audio transcribed",
		zap.Int64("bytes", header.Size),
		zap.Duration("processingTime", result.ProcessingTime))

	c.writeJSON(w, http.StatusOK, dto.TranscribeResponse{
		Transcript:     result.Text,
		Items:          voice.ParseItems(result.Text),
		Confidence:     result.Confidence,
		ProcessingTime: result.ProcessingTime.Seconds(),
	})
}

func (c *TranscribeController) handleTranscriptionError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	message := voice.FeedbackMessage(err)

	switch {
	case errors.Is(err, speech.ErrRateLimited):
		c.writeError(w, traceID, http.StatusTooManyRequests, "RATE_LIMITED", message)
	case errors.Is(err, speech.ErrTooLarge):
		c.writeError(w, traceID, http.StatusRequestEntityTooLarge, "TOO_LARGE", message)
	case errors.Is(err, speech.ErrInvalidFormat):
		c.writeError(w, traceID, http.StatusUnsupportedMediaType, "INVALID_FORMAT", message)
	case errors.Is(err, speech.ErrTimeout):
		c.writeError(w, traceID, http.StatusGatewayTimeout, "TIMEOUT", message)
	case errors.Is(err, speech.ErrNetwork), errors.Is(err, speech.ErrUnavailable):
		logger.Warn("speech provider unreachable", zap.Error(err))
		c.writeError(w, traceID, http.StatusServiceUnavailable, "UNAVAILABLE", message)
	default:
		logger.Error("transcription failed", zap.Error(err))
		c.writeError(w, traceID, http.StatusBadGateway, "TRANSCRIPTION_FAILED", message)
	}
}
