package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"plate/internal/voice"
)

// fileSource stands in for a microphone: every capture yields the current
// contents of one audio file. Station terminals record into that file with
// an external tool.
type fileSource struct {
	path string
}

func (s fileSource) Open(ctx context.Context) (voice.Capture, error) {
	info, err := os.Stat(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", voice.ErrNoMicrophone, s.path)
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %s", voice.ErrMicrophoneDenied, s.path)
	case err != nil:
		return nil, err
	case info.IsDir():
		return nil, fmt.Errorf("%w: %s is a directory", voice.ErrNoMicrophone, s.path)
	}
	return &fileCapture{path: s.path}, nil
}

type fileCapture struct {
	path string

	mu       sync.Mutex
	released bool
}

func (c *fileCapture) Stop() (voice.Recording, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return voice.Recording{}, voice.ErrEmptyRecording
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrPermission) {
		return voice.Recording{}, voice.ErrMicrophoneDenied
	}
	if err != nil {
		return voice.Recording{}, err
	}
	return voice.Recording{Data: data, Filename: filepath.Base(c.path)}, nil
}

func (c *fileCapture) Release() {
	c.mu.Lock()
	c.released = true
	c.mu.Unlock()
}
