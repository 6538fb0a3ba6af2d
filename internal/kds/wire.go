package kds

import (
	"plate/internal/cache"
	"plate/internal/config"
	"plate/internal/infrastructure/database"
	"plate/internal/kds/controller"
	"plate/internal/kds/repository"
	"plate/internal/kds/service"
	"plate/internal/kds/usecase"
	"plate/internal/speech"

	"go.uber.org/zap"
)

type Module struct {
	Board      *controller.BoardController
	Commands   *controller.CommandController
	Orders     *controller.OrderController
	Transcribe *controller.TranscribeController

	Loader  *service.StateLoader
	Cleaner *service.Cleaner
}

// NewModule wires the KDS feature. onCleaned runs after the cleanup job
// removed rows so the realtime state can be refetched.
func NewModule(
	db *database.DB,
	cfg *config.Config,
	publisher service.Publisher,
	c *cache.Cache,
	onCleaned func(n int64),
	logger *zap.Logger,
) *Module {
	stationRepo := repository.NewSQLStationRepository(db)
	routingRepo := repository.NewSQLRoutingRepository(db)
	orderRepo := repository.NewSQLOrderRepository(db)

	routingSvc := service.NewRoutingService(db, routingRepo, orderRepo, publisher, c, logger)

	boardUC := usecase.NewBoardUseCase(routingRepo, stationRepo, c, cfg.Cache.HotTTL, cfg.Cache.StaticTTL, logger)
	commandUC := usecase.NewCommandUseCase(routingSvc, routingRepo, stationRepo, logger, cfg.Order.MaxRetryAttempts)
	orderUC := usecase.NewOrderEntryUseCase(routingSvc, stationRepo, cfg.Order.DefaultStation, logger)

	transcriber := speech.NewClient(speech.Config{
		URL:     cfg.Speech.URL,
		APIKey:  cfg.Speech.APIKey,
		Timeout: cfg.Speech.Timeout,
	}, logger)
	limiter := controller.NewClientLimiter(cfg.RateLimit.TranscribeRPS, cfg.RateLimit.TranscribeBurst)

	return &Module{
		Board:      controller.NewBoardController(boardUC, logger),
		Commands:   controller.NewCommandController(commandUC, logger),
		Orders:     controller.NewOrderController(orderUC, logger),
		Transcribe: controller.NewTranscribeController(transcriber, limiter, cfg.Speech.MaxUploadBytes, logger),
		Loader:     service.NewStateLoader(routingRepo, stationRepo),
		Cleaner:    service.NewCleaner(routingRepo, cfg.Order.Retention, cfg.Order.CleanupInterval, onCleaned, logger),
	}
}
