package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrPermission    = errors.New("speech: permission denied")
	ErrNetwork       = errors.New("speech: network failure")
	ErrAuthRequired  = errors.New("speech: authentication required")
	ErrInvalidFormat = errors.New("speech: invalid audio format")
	ErrTooLarge      = errors.New("speech: audio too large")
	ErrTimeout       = errors.New("speech: timeout")
	ErrRateLimited   = errors.New("speech: rate limited")
	ErrUnavailable   = errors.New("speech: provider unavailable")
)

var allowedExtensions = map[string]string{
	".webm": "audio/webm",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".mpeg": "audio/mpeg",
	".mpga": "audio/mpeg",
	".mp4":  "audio/mp4",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// AllowedFormat reports whether filename or contentType names an audio
// format the provider accepts.
func AllowedFormat(filename, contentType string) bool {
	if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return true
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, known := range allowedExtensions {
		if ct == known {
			return true
		}
	}
	return false
}

var extensionFor = map[string]string{
	"audio/webm": ".webm",
	"audio/wav":  ".wav",
	"audio/mpeg": ".mp3",
	"audio/mp4":  ".m4a",
	"audio/ogg":  ".ogg",
	"audio/flac": ".flac",
}

// NormalizeFilename returns a filename whose extension the provider
// accepts, deriving the extension from contentType for blobs such as
// "recording" sent as audio/webm.
func NormalizeFilename(filename, contentType string) (string, bool) {
	if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return filename, true
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := extensionFor[ct]
	if !ok {
		return "", false
	}
	if filename == "" {
		filename = "recording"
	}
	return filename + ext, true
}

type Transcription struct {
	Text           string
	Confidence     float64
	ProcessingTime time.Duration
}

type Config struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	model      string
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger,
	}
}

type transcriptionResponse struct {
	Transcription  string   `json:"transcription"`
	Text           string   `json:"text"`
	Confidence     *float64 `json:"confidence"`
	ProcessingTime *float64 `json:"processing_time"`
}

func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (*Transcription, error) {
	if !AllowedFormat(filename, "") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, filepath.Ext(filename))
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("buffering audio: %w", err)
	}
	if err := mw.WriteField("model", c.model); err != nil {
		return nil, fmt.Errorf("writing model field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, fmt.Errorf("building transcription request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("transcription rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(snippet)),
		)
		return nil, classifyStatus(resp.StatusCode)
	}

	var payload transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}

	out := &Transcription{
		Text:           strings.TrimSpace(payload.Transcription),
		Confidence:     1,
		ProcessingTime: time.Since(started),
	}
	if out.Text == "" {
		out.Text = strings.TrimSpace(payload.Text)
	}
	if payload.Confidence != nil {
		out.Confidence = *payload.Confidence
	}
	if payload.ProcessingTime != nil {
		out.ProcessingTime = time.Duration(*payload.ProcessingTime * float64(time.Second))
	}

	c.logger.Debug("transcription complete",
		zap.String("filename", filename),
		zap.Int("chars", len(out.Text)),
		zap.Duration("processingTime", out.ProcessingTime),
	)

	return out, nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d", ErrAuthRequired, code)
	case code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrPermission, code)
	case code == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: status %d", ErrTooLarge, code)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, code)
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", ErrTimeout, code)
	case code == http.StatusBadRequest || code == http.StatusUnsupportedMediaType || code == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: status %d", ErrInvalidFormat, code)
	default:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	}
}
