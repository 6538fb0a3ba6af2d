package speech

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(Config{URL: url, APIKey: "test-key", Timeout: timeout}, zap.NewNop())
}

func TestTranscribe_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "command.webm", header.Filename)
		assert.Equal(t, "audio-bytes", string(data))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transcription":" bump order 123 ","confidence":0.92,"processing_time":1.5}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL, time.Second).Transcribe(context.Background(), strings.NewReader("audio-bytes"), "command.webm")
	require.NoError(t, err)

	assert.Equal(t, "bump order 123", out.Text)
	assert.Equal(t, 0.92, out.Confidence)
	assert.Equal(t, 1500*time.Millisecond, out.ProcessingTime)
}

func TestTranscribe_TextFieldFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":"burger and fries"}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL, time.Second).Transcribe(context.Background(), strings.NewReader("x"), "order.wav")
	require.NoError(t, err)
	assert.Equal(t, "burger and fries", out.Text)
	assert.Equal(t, 1.0, out.Confidence)
}

func TestTranscribe_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuthRequired},
		{http.StatusForbidden, ErrPermission},
		{http.StatusRequestEntityTooLarge, ErrTooLarge},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusGatewayTimeout, ErrTimeout},
		{http.StatusUnsupportedMediaType, ErrInvalidFormat},
		{http.StatusBadRequest, ErrInvalidFormat},
		{http.StatusBadGateway, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL, time.Second).Transcribe(context.Background(), strings.NewReader("x"), "a.webm")
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestTranscribe_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(srv.URL, 50*time.Millisecond).Transcribe(context.Background(), strings.NewReader("x"), "a.webm")
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
}

func TestTranscribe_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, time.Second).Transcribe(context.Background(), strings.NewReader("x"), "a.webm")
	assert.True(t, errors.Is(err, ErrNetwork), "got %v", err)
}

func TestTranscribe_RejectsUnknownExtension(t *testing.T) {
	_, err := newTestClient("http://unused", time.Second).Transcribe(context.Background(), strings.NewReader("x"), "notes.txt")
	assert.True(t, errors.Is(err, ErrInvalidFormat))
}

func TestAllowedFormat(t *testing.T) {
	assert.True(t, AllowedFormat("clip.WEBM", ""))
	assert.True(t, AllowedFormat("blob", "audio/wav"))
	assert.True(t, AllowedFormat("blob", "audio/webm;codecs=opus"))
	assert.False(t, AllowedFormat("clip.txt", "text/plain"))
	assert.False(t, AllowedFormat("", ""))
}

func TestNormalizeFilename(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        string
		ok          bool
	}{
		{"clip.wav", "", "clip.wav", true},
		{"blob", "audio/webm;codecs=opus", "blob.webm", true},
		{"", "audio/mpeg", "recording.mp3", true},
		{"notes.txt", "text/plain", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename+"|"+tt.contentType, func(t *testing.T) {
			got, ok := NormalizeFilename(tt.filename, tt.contentType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
