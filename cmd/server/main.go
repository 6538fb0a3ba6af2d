package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"plate/internal/auth"
	"plate/internal/cache"
	"plate/internal/commons"
	"plate/internal/infrastructure/database"
	"plate/internal/infrastructure/logger"
	"plate/internal/infrastructure/rabbitmq"
	"plate/internal/kds"
	"plate/internal/realtime"
	"plate/internal/server"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to the YAML config file")
	issueToken := flag.String("issue-token", "", "print a JWT for userId:role and exit")
	flag.Parse()

	cfg, err := commons.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	authenticator := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if *issueToken != "" {
		userID, role, ok := strings.Cut(*issueToken, ":")
		if !ok || userID == "" || role == "" {
			log.Fatalf("issue-token expects userId:role, got %q", *issueToken)
		}
		token, err := authenticator.GenerateToken(userID, role)
		if err != nil {
			log.Fatalf("issuing token: %v", err)
		}
		fmt.Println(token)
		return
	}

	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format, "plate")
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected", zap.String("driver", string(db.Dialect)))

	boardCache := cache.New(cache.Options{
		DefaultTTL:    cfg.Cache.HotTTL,
		SweepInterval: cfg.Cache.SweepInterval,
		Logger:        zapLogger,
	})

	var feed realtime.Feed
	if cfg.RabbitMQ.Enabled {
		rmq := rabbitmq.NewFeed(cfg.RabbitMQ, cfg.Realtime.ReconnectDelay, zapLogger)
		defer rmq.Close()
		feed = rmq
		zapLogger.Info("using rabbitmq change feed", zap.String("exchange", cfg.RabbitMQ.Exchange))
	} else {
		feed = realtime.NewLocalFeed()
		zapLogger.Info("using in-process change feed")
	}

	var store *realtime.Store
	module := kds.NewModule(db, cfg, feed, boardCache, func(int64) { store.Reload() }, zapLogger)

	store = realtime.NewStore(module.Loader, cfg.Realtime.RefreshInterval, zapLogger)
	hub := realtime.NewHub(store.Snapshot, zapLogger)
	store.Subscribe(hub.Listen)
	store.Subscribe(func(realtime.State, *realtime.Event) {
		boardCache.InvalidateTag(cache.TagOrders)
	})

	router := server.NewRouter(module, hub, authenticator, zapLogger)
	srv := server.New(cfg.Server, router, zapLogger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return store.Run(gctx) })
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return feed.Consume(gctx, store) })
	g.Go(func() error { return boardCache.Run(gctx) })
	g.Go(func() error { return module.Cleaner.Run(gctx) })
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}

	zapLogger.Info("server stopped gracefully")
}
