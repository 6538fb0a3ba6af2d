package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"plate/internal/speech"
)

type State int

const (
	StateIdle State = iota
	StateOpening
	StateListening
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DefaultCaptureWindow is how long a capture runs before it stops itself.
const DefaultCaptureWindow = 5 * time.Second

type Recording struct {
	Data     []byte
	Filename string
}

// Capture is an open microphone stream. Release must be safe to call more
// than once and must stop every underlying track.
type Capture interface {
	Stop() (Recording, error)
	Release()
}

type AudioSource interface {
	Open(ctx context.Context) (Capture, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (*speech.Transcription, error)
}

// Dispatcher executes a parsed command and returns the confirmation shown
// to the user.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd Parsed) (string, error)
}

type FeedbackKind string

const (
	FeedbackSuccess FeedbackKind = "success"
	FeedbackError   FeedbackKind = "error"
	FeedbackUnknown FeedbackKind = "unknown"
)

type Feedback struct {
	Kind    FeedbackKind
	Message string
	Command *Parsed
}

type Notifier interface {
	Notify(Feedback)
}

type NotifierFunc func(Feedback)

func (f NotifierFunc) Notify(fb Feedback) { f(fb) }

// Session drives one station's idle -> listening -> processing -> idle cycle.
type Session struct {
	id          string
	source      AudioSource
	transcriber Transcriber
	dispatcher  Dispatcher
	notifier    Notifier
	window      time.Duration
	logger      *zap.Logger

	mu      sync.Mutex
	state   State
	capture Capture
	timer   *time.Timer
	ctx     context.Context
	// gen counts captures; the auto-stop timer only acts on its own.
	gen uint64
}

func NewSession(
	source AudioSource,
	transcriber Transcriber,
	dispatcher Dispatcher,
	notifier Notifier,
	window time.Duration,
	logger *zap.Logger,
) *Session {
	if window <= 0 {
		window = DefaultCaptureWindow
	}
	return &Session{
		id:          uuid.New().String(),
		source:      source,
		transcriber: transcriber,
		dispatcher:  dispatcher,
		notifier:    notifier,
		window:      window,
		logger:      logger,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start opens the microphone and arms the auto-stop timer. Calling Start
// while the microphone is opening, a capture is running or a command is
// processing does nothing. The lock is not held while the source opens, so
// State and Close stay responsive during a slow permission prompt.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if state := s.state; state != StateIdle {
		s.mu.Unlock()
		s.logger.Debug("voice start ignored", zap.String("session", s.id), zap.Stringer("state", state))
		return nil
	}
	s.gen++
	gen := s.gen
	s.state = StateOpening
	s.mu.Unlock()

	capture, err := s.source.Open(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpening || s.gen != gen {
		if capture != nil {
			capture.Release()
		}
		s.logger.Debug("voice start abandoned while opening", zap.String("session", s.id))
		return nil
	}

	if err != nil {
		if capture != nil {
			capture.Release()
		}
		s.state = StateIdle
		s.logger.Warn("microphone open failed", zap.String("session", s.id), zap.Error(err))
		s.notify(Feedback{Kind: FeedbackError, Message: FeedbackMessage(err)})
		return err
	}

	s.state = StateListening
	s.capture = capture
	s.ctx = ctx
	s.timer = time.AfterFunc(s.window, func() { s.autoStop(gen) })
	s.logger.Info("voice listening", zap.String("session", s.id), zap.Duration("window", s.window))

	return nil
}

// Stop ends the capture, releases the microphone and runs transcription,
// parsing and dispatch. The session is idle again when Stop returns.
func (s *Session) Stop() error {
	capture, ctx, ok := s.claim(0, false)
	if !ok {
		return nil
	}
	return s.finish(ctx, capture)
}

// autoStop runs when the capture window of generation gen elapses. A timer
// left over from an earlier capture does nothing.
func (s *Session) autoStop(gen uint64) {
	capture, ctx, ok := s.claim(gen, true)
	if !ok {
		s.logger.Debug("stale auto-stop ignored", zap.String("session", s.id), zap.Uint64("generation", gen))
		return
	}
	if err := s.finish(ctx, capture); err != nil {
		s.logger.Debug("auto-stop finished with error", zap.String("session", s.id), zap.Error(err))
	}
}

// claim moves a listening session to processing and hands over its capture.
// With matchGen set, only the capture of generation gen is claimed.
func (s *Session) claim(gen uint64, matchGen bool) (Capture, context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateListening || (matchGen && gen != s.gen) {
		return nil, nil, false
	}
	s.timer.Stop()
	capture, ctx := s.capture, s.ctx
	s.capture = nil
	s.state = StateProcessing
	return capture, ctx, true
}

func (s *Session) finish(ctx context.Context, capture Capture) error {
	defer s.setIdle()

	rec, err := stopAndRelease(capture)
	if err != nil {
		s.notify(Feedback{Kind: FeedbackError, Message: FeedbackMessage(err)})
		return err
	}

	return s.process(ctx, rec)
}

// Close abandons an active capture without processing it. A microphone that
// is still opening is released as soon as Open returns.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateOpening:
		s.gen++
		s.state = StateIdle
	case StateListening:
		s.gen++
		s.timer.Stop()
		s.capture.Release()
		s.capture = nil
		s.state = StateIdle
	}
}

func stopAndRelease(c Capture) (rec Recording, err error) {
	defer c.Release()

	rec, err = c.Stop()
	if err != nil {
		if errors.Is(err, ErrMicrophoneDenied) || errors.Is(err, ErrEmptyRecording) {
			return Recording{}, err
		}
		return Recording{}, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if len(rec.Data) == 0 {
		return Recording{}, ErrEmptyRecording
	}
	return rec, nil
}

func (s *Session) process(ctx context.Context, rec Recording) error {
	filename := rec.Filename
	if filename == "" {
		filename = "command.webm"
	}

	t, err := s.transcriber.Transcribe(ctx, bytes.NewReader(rec.Data), filename)
	if err != nil {
		s.logger.Warn("transcription failed", zap.String("session", s.id), zap.Error(err))
		s.notify(Feedback{Kind: FeedbackError, Message: FeedbackMessage(err)})
		return err
	}
	if strings.TrimSpace(t.Text) == "" {
		s.notify(Feedback{Kind: FeedbackUnknown, Message: MessageNoSpeech})
		return nil
	}

	cmd := Parse(t.Text)
	s.logger.Info("voice command parsed",
		zap.String("session", s.id),
		zap.String("action", string(cmd.Action())),
		zap.String("target", cmd.Target()),
		zap.Float64("confidence", cmd.Confidence),
	)

	switch cmd.Command.(type) {
	case Unknown:
		s.notify(Feedback{Kind: FeedbackUnknown, Message: MessageUnknownCommand, Command: &cmd})
		return nil
	case Help:
		s.notify(Feedback{Kind: FeedbackSuccess, Message: HelpText, Command: &cmd})
		return nil
	}

	msg, err := s.dispatcher.Dispatch(ctx, cmd)
	if err != nil {
		s.logger.Warn("voice command rejected", zap.String("session", s.id), zap.Error(err))
		s.notify(Feedback{Kind: FeedbackError, Message: FeedbackMessage(err), Command: &cmd})
		return err
	}

	s.notify(Feedback{Kind: FeedbackSuccess, Message: msg, Command: &cmd})
	return nil
}

func (s *Session) setIdle() {
	s.mu.Lock()
	s.state = StateIdle
	s.ctx = nil
	s.mu.Unlock()
}

func (s *Session) notify(fb Feedback) {
	if s.notifier != nil {
		s.notifier.Notify(fb)
	}
}
