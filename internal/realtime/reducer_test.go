package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plate/internal/domain"
)

func routingEvent(t *testing.T, typ EventType, r domain.OrderRouting) Event {
	t.Helper()
	e, err := RoutingEvent(typ, r)
	require.NoError(t, err)
	return e
}

func TestReduce_InsertUpdateDelete(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := EmptyState()

	s = Reduce(s, routingEvent(t, EventInsert, domain.OrderRouting{ID: 1, OrderID: 10, StationID: 2, RoutedAt: &t0}))
	require.Contains(t, s.Routings, int64(1))
	assert.Nil(t, s.Routings[1].StartedAt)

	t1 := t0.Add(time.Minute)
	s = Reduce(s, routingEvent(t, EventUpdate, domain.OrderRouting{ID: 1, OrderID: 10, StationID: 2, RoutedAt: &t0, StartedAt: &t1}))
	require.NotNil(t, s.Routings[1].StartedAt)
	assert.True(t, t1.Equal(*s.Routings[1].StartedAt))

	s = Reduce(s, Event{Type: EventDelete, Table: TableRouting, Record: json.RawMessage(`{"id":1}`)})
	assert.NotContains(t, s.Routings, int64(1))
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	before := EmptyState()
	before.Routings[1] = domain.OrderRouting{ID: 1, Priority: 50}

	after := Reduce(before, routingEvent(t, EventUpdate, domain.OrderRouting{ID: 1, Priority: 80}))

	assert.Equal(t, 50, before.Routings[1].Priority)
	assert.Equal(t, 80, after.Routings[1].Priority)
}

func TestReduce_LastArrivalWins(t *testing.T) {
	s := EmptyState()
	fresh := domain.OrderRouting{ID: 7, Priority: 90}
	stale := domain.OrderRouting{ID: 7, Priority: 60}

	s = Reduce(s, routingEvent(t, EventUpdate, fresh))
	s = Reduce(s, routingEvent(t, EventUpdate, stale))

	// no ordering beyond arrival: the stale row overwrites the fresh one
	assert.Equal(t, 60, s.Routings[7].Priority)
}

func TestReduce_IgnoresUnusable(t *testing.T) {
	s := EmptyState()
	s.Routings[1] = domain.OrderRouting{ID: 1}

	tests := []struct {
		name string
		e    Event
	}{
		{"unknown table", Event{Type: EventInsert, Table: "tables", Record: json.RawMessage(`{"id":3}`)}},
		{"malformed record", Event{Type: EventInsert, Table: TableRouting, Record: json.RawMessage(`{"id":`)}},
		{"missing id", Event{Type: EventInsert, Table: TableRouting, Record: json.RawMessage(`{}`)}},
		{"unknown type", Event{Type: "truncate", Table: TableRouting, Record: json.RawMessage(`{"id":1}`)}},
		{"delete missing row", Event{Type: EventDelete, Table: TableRouting, Record: json.RawMessage(`{"id":99}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reduce(s, tt.e)
			assert.Equal(t, s, got)
		})
	}
}

func TestReduce_Orders(t *testing.T) {
	s := State{}
	e, err := OrderEvent(EventInsert, domain.Order{ID: 4, Status: domain.OrderStatusNew, Items: []string{"soup"}})
	require.NoError(t, err)

	s = Reduce(s, e)

	require.Contains(t, s.Orders, int64(4))
	assert.Equal(t, []string{"soup"}, s.Orders[4].Items)
}

func TestState_Views(t *testing.T) {
	tableID, seatID := int64(3), int64(8)
	s := EmptyState()
	s.Stations[1] = domain.Station{ID: 1, Name: "Grill", Type: domain.StationGrill}
	s.Tables[tableID] = "T3"
	s.Seats[seatID] = 2
	s.Orders[10] = domain.Order{ID: 10, Status: domain.OrderStatusNew, TableID: &tableID, SeatID: &seatID}
	s.Orders[11] = domain.Order{ID: 11, Status: domain.OrderStatusDelivered}
	s.Routings[5] = domain.OrderRouting{ID: 5, OrderID: 10, StationID: 1}
	s.Routings[2] = domain.OrderRouting{ID: 2, OrderID: 10, StationID: 9}
	s.Routings[6] = domain.OrderRouting{ID: 6, OrderID: 11, StationID: 1}
	s.Routings[7] = domain.OrderRouting{ID: 7, OrderID: 404, StationID: 1}

	views := s.Views()

	require.Len(t, views, 2)
	assert.Equal(t, int64(2), views[0].Routing.ID)
	assert.Equal(t, "", views[0].StationName)
	assert.Equal(t, int64(5), views[1].Routing.ID)
	assert.Equal(t, "Grill", views[1].StationName)
	assert.Equal(t, domain.StationGrill, views[1].StationType)
	assert.Equal(t, "T3", views[1].TableLabel)
	assert.Equal(t, 2, views[1].SeatNumber)
}
