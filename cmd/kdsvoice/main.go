// Command kdsvoice is the station voice client. Each line read from stdin
// toggles listening; a capture also stops by itself after the window.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plate/internal/commons"
	"plate/internal/infrastructure/logger"
	"plate/internal/speech"
	"plate/internal/voice"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to the YAML config file")
	audioPath := flag.String("audio", "command.webm", "audio file the station recorder writes to")
	serverURL := flag.String("server", "http://localhost:8080", "KDS API base URL")
	station := flag.Int64("station", 0, "station id the commands apply to, 0 for all stations")
	window := flag.Duration("window", voice.DefaultCaptureWindow, "maximum capture length")
	flag.Parse()

	cfg, err := commons.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, "console", "kdsvoice")
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	var stationID *int64
	if *station > 0 {
		stationID = station
	}

	transcriber := speech.NewClient(speech.Config{
		URL:     cfg.Speech.URL,
		APIKey:  cfg.Speech.APIKey,
		Timeout: cfg.Speech.Timeout,
	}, zapLogger)
	dispatcher := newHTTPDispatcher(*serverURL, os.Getenv("KDS_TOKEN"), stationID, 10*time.Second)
	notifier := voice.NotifierFunc(func(fb voice.Feedback) {
		fmt.Printf("[%s] %s\n", fb.Kind, fb.Message)
	})

	session := voice.NewSession(fileSource{path: *audioPath}, transcriber, dispatcher, notifier, *window, zapLogger)
	defer session.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lines := make(chan struct{})
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- struct{}{}
		}
	}()

	fmt.Println("press enter to start or stop listening, ctrl-d to quit")
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-lines:
			if !ok {
				return
			}
			toggle(ctx, session, zapLogger)
		}
	}
}

func toggle(ctx context.Context, session *voice.Session, logger *zap.Logger) {
	switch session.State() {
	case voice.StateIdle:
		if err := session.Start(ctx); err != nil {
			logger.Debug("start failed", zap.Error(err))
		}
	case voice.StateListening:
		if err := session.Stop(); err != nil {
			logger.Debug("command failed", zap.Error(err))
		}
	case voice.StateOpening:
		fmt.Println("microphone is still opening")
	default:
		fmt.Println("still processing the previous command")
	}
}
