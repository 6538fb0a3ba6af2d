package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plate/internal/domain"
)

type mockActiveRoutingReader struct {
	FindActiveFunc func(ctx context.Context) ([]domain.RoutingView, error)
}

func (m *mockActiveRoutingReader) FindActive(ctx context.Context) ([]domain.RoutingView, error) {
	return m.FindActiveFunc(ctx)
}

type mockStationLister struct {
	FindAllFunc func(ctx context.Context) ([]domain.Station, error)
}

func (m *mockStationLister) FindAll(ctx context.Context) ([]domain.Station, error) {
	return m.FindAllFunc(ctx)
}

func TestStateLoader_Load(t *testing.T) {
	tableID, seatID := int64(4), int64(9)
	routings := &mockActiveRoutingReader{
		FindActiveFunc: func(ctx context.Context) ([]domain.RoutingView, error) {
			return []domain.RoutingView{
				{
					Routing:     domain.OrderRouting{ID: 1, OrderID: 10, StationID: 1},
					Order:       domain.Order{ID: 10, TableID: &tableID, SeatID: &seatID, Status: domain.OrderStatusNew},
					StationName: "Grill",
					StationType: domain.StationGrill,
					TableLabel:  "T4",
					SeatNumber:  2,
				},
				{
					Routing:     domain.OrderRouting{ID: 2, OrderID: 10, StationID: 6},
					Order:       domain.Order{ID: 10, TableID: &tableID, SeatID: &seatID, Status: domain.OrderStatusNew},
					StationName: "Old Wok",
					StationType: "wok",
					TableLabel:  "T4",
					SeatNumber:  2,
				},
			}, nil
		},
	}
	stations := &mockStationLister{
		FindAllFunc: func(ctx context.Context) ([]domain.Station, error) {
			return []domain.Station{
				{ID: 1, Name: "Grill", Type: domain.StationGrill, IsActive: true},
				{ID: 5, Name: "Bar", Type: domain.StationBar, IsActive: true},
			}, nil
		},
	}

	state, err := NewStateLoader(routings, stations).Load(context.Background())

	require.NoError(t, err)
	assert.Len(t, state.Routings, 2)
	assert.Len(t, state.Orders, 1)
	assert.Len(t, state.Stations, 3)
	assert.Equal(t, "Old Wok", state.Stations[6].Name)
	assert.Equal(t, "T4", state.Tables[4])
	assert.Equal(t, 2, state.Seats[9])

	views := state.Views()
	require.Len(t, views, 2)
	assert.Equal(t, "T4", views[0].TableLabel)
	assert.Equal(t, "wok", views[1].StationType)
}

func TestStateLoader_Errors(t *testing.T) {
	dbErr := errors.New("connection refused")

	t.Run("stations", func(t *testing.T) {
		loader := NewStateLoader(
			&mockActiveRoutingReader{},
			&mockStationLister{FindAllFunc: func(ctx context.Context) ([]domain.Station, error) { return nil, dbErr }},
		)
		_, err := loader.Load(context.Background())
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("routings", func(t *testing.T) {
		loader := NewStateLoader(
			&mockActiveRoutingReader{FindActiveFunc: func(ctx context.Context) ([]domain.RoutingView, error) { return nil, dbErr }},
			&mockStationLister{FindAllFunc: func(ctx context.Context) ([]domain.Station, error) { return nil, nil }},
		)
		_, err := loader.Load(context.Background())
		assert.ErrorIs(t, err, dbErr)
	})
}
