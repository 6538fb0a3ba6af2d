package service

import (
	"context"
	"fmt"

	"plate/internal/domain"
	"plate/internal/realtime"
)

type ActiveRoutingReader interface {
	FindActive(ctx context.Context) ([]domain.RoutingView, error)
}

type StationLister interface {
	FindAll(ctx context.Context) ([]domain.Station, error)
}

// StateLoader builds the full realtime state from the database. The store
// calls it on startup, after a feed reconnect and on every refresh tick.
type StateLoader struct {
	routings ActiveRoutingReader
	stations StationLister
}

func NewStateLoader(routings ActiveRoutingReader, stations StationLister) *StateLoader {
	return &StateLoader{routings: routings, stations: stations}
}

func (l *StateLoader) Load(ctx context.Context) (realtime.State, error) {
	stations, err := l.stations.FindAll(ctx)
	if err != nil {
		return realtime.State{}, fmt.Errorf("loading stations: %w", err)
	}

	views, err := l.routings.FindActive(ctx)
	if err != nil {
		return realtime.State{}, fmt.Errorf("loading active routings: %w", err)
	}

	state := realtime.EmptyState()
	for _, st := range stations {
		state.Stations[st.ID] = st
	}
	for _, v := range views {
		state.Routings[v.Routing.ID] = v.Routing
		state.Orders[v.Order.ID] = v.Order
		if v.Order.TableID != nil {
			state.Tables[*v.Order.TableID] = v.TableLabel
		}
		if v.Order.SeatID != nil {
			state.Seats[*v.Order.SeatID] = v.SeatNumber
		}
		// Inactive stations still own routings; keep them renderable.
		if _, ok := state.Stations[v.Routing.StationID]; !ok {
			state.Stations[v.Routing.StationID] = domain.Station{
				ID:   v.Routing.StationID,
				Name: v.StationName,
				Type: v.StationType,
			}
		}
	}
	return state, nil
}
