package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"plate/internal/dto"
	apperrors "plate/internal/errors"
	"plate/internal/speech"
	"plate/internal/voice"
)

// httpDispatcher sends parsed commands to the KDS API.
type httpDispatcher struct {
	client    *http.Client
	endpoint  string
	token     string
	stationID *int64
}

func newHTTPDispatcher(baseURL, token string, stationID *int64, timeout time.Duration) *httpDispatcher {
	return &httpDispatcher{
		client:    &http.Client{Timeout: timeout},
		endpoint:  strings.TrimRight(baseURL, "/") + "/api/kds/voice",
		token:     token,
		stationID: stationID,
	}
}

func (d *httpDispatcher) Dispatch(ctx context.Context, cmd voice.Parsed) (string, error) {
	body, err := json.Marshal(dto.VoiceCommandRequest{Text: cmd.OriginalText, StationID: d.stationID})
	if err != nil {
		return "", fmt.Errorf("encoding voice command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building voice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", speech.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var out dto.VoiceCommandResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("decoding voice response: %w", err)
		}
		return out.Message, nil
	}

	var failure dto.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil || failure.Message == "" {
		failure.Message = http.StatusText(resp.StatusCode)
	}
	return "", statusError(resp.StatusCode, failure.Message)
}

// statusError turns an API failure back into the typed error the voice
// feedback messages understand.
func statusError(status int, message string) error {
	switch status {
	case http.StatusBadRequest:
		return apperrors.NewValidationError(message)
	case http.StatusUnauthorized:
		return apperrors.NewUnauthorizedError(message)
	case http.StatusForbidden:
		return apperrors.NewForbiddenError(message)
	case http.StatusNotFound:
		return apperrors.NewNotFoundError(message)
	case http.StatusConflict:
		return apperrors.NewConflictError(message)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", speech.ErrUnavailable, message)
	default:
		return fmt.Errorf("voice command failed with status %d: %s", status, message)
	}
}
