package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plate/internal/cache"
	"plate/internal/domain"
	"plate/internal/routing"
)

var boardNow = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

type mockRoutingViewReader struct {
	FindActiveFunc    func(ctx context.Context) ([]domain.RoutingView, error)
	FindByStationFunc func(ctx context.Context, stationID int64) ([]domain.RoutingView, error)
}

func (m *mockRoutingViewReader) FindActive(ctx context.Context) ([]domain.RoutingView, error) {
	return m.FindActiveFunc(ctx)
}

func (m *mockRoutingViewReader) FindByStation(ctx context.Context, stationID int64) ([]domain.RoutingView, error) {
	return m.FindByStationFunc(ctx, stationID)
}

type mockStationReader struct {
	FindAllFunc func(ctx context.Context) ([]domain.Station, error)
}

func (m *mockStationReader) FindAll(ctx context.Context) ([]domain.Station, error) {
	return m.FindAllFunc(ctx)
}

func newTestBoard(routings RoutingViewReader, stations StationReader) (*BoardUseCase, *cache.Cache) {
	c := cache.New(cache.Options{Now: func() time.Time { return boardNow }})
	uc := NewBoardUseCase(routings, stations, c, 5*time.Second, 5*time.Minute, zap.NewNop())
	uc.now = func() time.Time { return boardNow }
	return uc, c
}

func view(id, stationID int64, stationType string, routedAgo time.Duration, priority int) domain.RoutingView {
	routed := boardNow.Add(-routedAgo)
	tableID := id % 2
	return domain.RoutingView{
		Routing: domain.OrderRouting{
			ID: id, OrderID: 100 + id, StationID: stationID, RoutedAt: &routed, Priority: priority,
		},
		Order:       domain.Order{ID: 100 + id, TableID: &tableID, Status: domain.OrderStatusNew},
		StationName: stationType,
		StationType: stationType,
	}
}

func TestBoard_ListOrdersAllStationsSorted(t *testing.T) {
	calls := 0
	routings := &mockRoutingViewReader{
		FindActiveFunc: func(ctx context.Context) ([]domain.RoutingView, error) {
			calls++
			return []domain.RoutingView{
				view(1, 1, domain.StationGrill, 2*time.Minute, 50),
				view(2, 1, domain.StationGrill, 13*time.Minute, 50),
				view(3, 2, domain.StationSalad, time.Minute, 80),
			}, nil
		},
	}
	uc, _ := newTestBoard(routings, &mockStationReader{})

	entries := uc.ListOrders(context.Background(), 0)

	require.Len(t, entries, 3)
	assert.Equal(t, int64(3), entries[0].View.Routing.ID)
	assert.Equal(t, int64(2), entries[1].View.Routing.ID)
	assert.True(t, entries[1].Overdue)
	assert.Equal(t, 70, entries[1].Priority)
	assert.Equal(t, int64(1), entries[2].View.Routing.ID)

	uc.ListOrders(context.Background(), 0)
	assert.Equal(t, 1, calls, "second read should be served from cache")
}

func TestBoard_ListOrdersByStation(t *testing.T) {
	var gotStation int64
	routings := &mockRoutingViewReader{
		FindByStationFunc: func(ctx context.Context, stationID int64) ([]domain.RoutingView, error) {
			gotStation = stationID
			return []domain.RoutingView{
				view(4, 2, domain.StationSalad, 3*time.Minute, 50),
				view(5, 2, domain.StationSalad, 6*time.Minute, 50),
			}, nil
		},
	}
	uc, c := newTestBoard(routings, &mockStationReader{})

	entries := uc.ListOrders(context.Background(), 2)

	assert.Equal(t, int64(2), gotStation)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(5), entries[0].View.Routing.ID)

	_, cached := c.Get(cache.StationOrdersKey(2))
	assert.True(t, cached)
}

func TestBoard_InvalidationForcesReload(t *testing.T) {
	calls := 0
	routings := &mockRoutingViewReader{
		FindActiveFunc: func(ctx context.Context) ([]domain.RoutingView, error) {
			calls++
			return []domain.RoutingView{view(1, 1, domain.StationGrill, time.Minute, 50)}, nil
		},
	}
	uc, c := newTestBoard(routings, &mockStationReader{})

	uc.ListOrders(context.Background(), 0)
	c.InvalidateTag(cache.TagOrders)
	uc.ListOrders(context.Background(), 0)

	assert.Equal(t, 2, calls)
}

func TestBoard_DegradesToEmpty(t *testing.T) {
	dbErr := errors.New("connection refused")
	routings := &mockRoutingViewReader{
		FindActiveFunc: func(ctx context.Context) ([]domain.RoutingView, error) { return nil, dbErr },
		FindByStationFunc: func(ctx context.Context, stationID int64) ([]domain.RoutingView, error) {
			return nil, dbErr
		},
	}
	stations := &mockStationReader{
		FindAllFunc: func(ctx context.Context) ([]domain.Station, error) { return nil, dbErr },
	}
	uc, c := newTestBoard(routings, stations)

	assert.NotNil(t, uc.ListOrders(context.Background(), 0))
	assert.Empty(t, uc.ListOrders(context.Background(), 0))
	assert.Empty(t, uc.ListOrders(context.Background(), 3))
	assert.Empty(t, uc.ListByTable(context.Background(), 0))
	assert.Empty(t, uc.Stats(context.Background()))

	stationList := uc.ListStations(context.Background())
	assert.NotNil(t, stationList)
	assert.Empty(t, stationList)

	assert.Equal(t, 0, c.Len(), "failures must not be cached")
}

func TestBoard_ListStationsCached(t *testing.T) {
	calls := 0
	stations := &mockStationReader{
		FindAllFunc: func(ctx context.Context) ([]domain.Station, error) {
			calls++
			return []domain.Station{{ID: 1, Name: "Grill", Type: domain.StationGrill, IsActive: true}}, nil
		},
	}
	uc, _ := newTestBoard(&mockRoutingViewReader{}, stations)

	first := uc.ListStations(context.Background())
	second := uc.ListStations(context.Background())

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestBoard_ListByTableAndStats(t *testing.T) {
	routings := &mockRoutingViewReader{
		FindActiveFunc: func(ctx context.Context) ([]domain.RoutingView, error) {
			return []domain.RoutingView{
				view(1, 1, domain.StationGrill, 2*time.Minute, 50),
				view(2, 1, domain.StationGrill, 20*time.Minute, 50),
				view(3, 2, domain.StationSalad, time.Minute, 50),
			}, nil
		},
	}
	uc, _ := newTestBoard(routings, &mockStationReader{})

	groups := uc.ListByTable(context.Background(), 0)
	require.Len(t, groups, 2)
	assert.Equal(t, int64(0), groups[0].TableID, "group holding the overdue routing leads")

	stats := uc.Stats(context.Background())
	require.Len(t, stats, 2)
	assert.Equal(t, routing.StationStats{
		StationID:      1,
		StationName:    domain.StationGrill,
		New:            2,
		Overdue:        1,
		AverageElapsed: 11 * time.Minute,
	}, stats[0])
}
