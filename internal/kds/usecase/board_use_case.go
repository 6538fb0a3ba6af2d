package usecase

import (
	"context"
	"time"

	"plate/internal/cache"
	"plate/internal/domain"
	"plate/internal/routing"

	"go.uber.org/zap"
)

type RoutingViewReader interface {
	FindActive(ctx context.Context) ([]domain.RoutingView, error)
	FindByStation(ctx context.Context, stationID int64) ([]domain.RoutingView, error)
}

type StationReader interface {
	FindAll(ctx context.Context) ([]domain.Station, error)
}

type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration, tags ...string)
}

// BoardUseCase serves the read side of the kitchen displays. Reads go
// through the cache; a failed database read is logged and served as an
// empty board so screens stay usable.
type BoardUseCase struct {
	routings  RoutingViewReader
	stations  StationReader
	cache     Cache
	hotTTL    time.Duration
	staticTTL time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewBoardUseCase(
	routings RoutingViewReader,
	stations StationReader,
	c Cache,
	hotTTL time.Duration,
	staticTTL time.Duration,
	logger *zap.Logger,
) *BoardUseCase {
	return &BoardUseCase{
		routings:  routings,
		stations:  stations,
		cache:     c,
		hotTTL:    hotTTL,
		staticTTL: staticTTL,
		now:       time.Now,
		logger:    logger,
	}
}

func (uc *BoardUseCase) ListStations(ctx context.Context) []domain.Station {
	if v, ok := uc.cache.Get(cache.StationsKey); ok {
		if stations, ok := v.([]domain.Station); ok {
			return stations
		}
	}

	stations, err := uc.stations.FindAll(ctx)
	if err != nil {
		uc.logger.Warn("station list unavailable, serving empty list", zap.Error(err))
		return []domain.Station{}
	}

	uc.cache.Set(cache.StationsKey, stations, uc.staticTTL, cache.TagStations)
	return stations
}

// ListOrders returns the board for one station, or for every station when
// stationID is zero, in display order. Derived fields are computed against
// the current clock on every call; only the raw rows are cached.
func (uc *BoardUseCase) ListOrders(ctx context.Context, stationID int64) []routing.Entry {
	views := uc.views(ctx, stationID)
	now := uc.now()

	if stationID > 0 {
		return routing.StationList(views, stationID, now)
	}

	entries := routing.AnnotateAll(views, now)
	routing.Sort(entries)
	return entries
}

func (uc *BoardUseCase) ListByTable(ctx context.Context, stationID int64) []routing.TableGroup {
	return routing.GroupByTableSeat(uc.ListOrders(ctx, stationID))
}

func (uc *BoardUseCase) Stats(ctx context.Context) []routing.StationStats {
	return routing.Summarize(routing.AnnotateAll(uc.views(ctx, 0), uc.now()))
}

func (uc *BoardUseCase) views(ctx context.Context, stationID int64) []domain.RoutingView {
	key := cache.ActiveOrdersKey
	if stationID > 0 {
		key = cache.StationOrdersKey(stationID)
	}

	if v, ok := uc.cache.Get(key); ok {
		if views, ok := v.([]domain.RoutingView); ok {
			return views
		}
	}

	var (
		views []domain.RoutingView
		err   error
	)
	if stationID > 0 {
		views, err = uc.routings.FindByStation(ctx, stationID)
	} else {
		views, err = uc.routings.FindActive(ctx)
	}
	if err != nil {
		uc.logger.Warn("orders unavailable, serving empty board",
			zap.Int64("stationId", stationID),
			zap.Error(err))
		return []domain.RoutingView{}
	}

	uc.cache.Set(key, views, uc.hotTTL, cache.TagOrders)
	return views
}
