package realtime

import (
	"encoding/json"
	"maps"
	"sort"

	"plate/internal/domain"
)

// State is the locally held view of the kitchen. A State is never mutated
// after it is built: Reduce copies any map it changes, so snapshots can be
// shared between goroutines.
type State struct {
	Routings map[int64]domain.OrderRouting
	Orders   map[int64]domain.Order
	Stations map[int64]domain.Station
	Tables   map[int64]string
	Seats    map[int64]int
}

func EmptyState() State {
	return State{
		Routings: map[int64]domain.OrderRouting{},
		Orders:   map[int64]domain.Order{},
		Stations: map[int64]domain.Station{},
		Tables:   map[int64]string{},
		Seats:    map[int64]int{},
	}
}

// Reduce merges one change event into s by primary key. Inserts and updates
// replace the row, deletes remove it. Events for other tables and records
// that do not decode leave s unchanged. The latest event to arrive wins.
func Reduce(s State, e Event) State {
	switch e.Table {
	case TableRouting:
		var r domain.OrderRouting
		if err := json.Unmarshal(e.Record, &r); err != nil || r.ID == 0 {
			return s
		}
		if routings, ok := apply(s.Routings, e.Type, r.ID, r); ok {
			s.Routings = routings
		}
	case TableOrders:
		var o domain.Order
		if err := json.Unmarshal(e.Record, &o); err != nil || o.ID == 0 {
			return s
		}
		if orders, ok := apply(s.Orders, e.Type, o.ID, o); ok {
			s.Orders = orders
		}
	}
	return s
}

func apply[V any](m map[int64]V, typ EventType, id int64, v V) (map[int64]V, bool) {
	switch typ {
	case EventInsert, EventUpdate:
		out := clone(m)
		out[id] = v
		return out, true
	case EventDelete:
		if _, ok := m[id]; !ok {
			return m, false
		}
		out := clone(m)
		delete(out, id)
		return out, true
	default:
		return m, false
	}
}

func clone[V any](m map[int64]V) map[int64]V {
	if m == nil {
		return map[int64]V{}
	}
	return maps.Clone(m)
}

// Views joins every routing whose order is still active with its order,
// station and floor-plan data. Rows are returned in routing ID order;
// display ordering is the caller's concern.
func (s State) Views() []domain.RoutingView {
	views := make([]domain.RoutingView, 0, len(s.Routings))
	for _, r := range s.Routings {
		order, ok := s.Orders[r.OrderID]
		if !ok || !order.Active() {
			continue
		}
		v := domain.RoutingView{Routing: r, Order: order}
		if st, ok := s.Stations[r.StationID]; ok {
			v.StationName = st.Name
			v.StationType = st.Type
		}
		if order.TableID != nil {
			v.TableLabel = s.Tables[*order.TableID]
		}
		if order.SeatID != nil {
			v.SeatNumber = s.Seats[*order.SeatID]
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Routing.ID < views[j].Routing.ID })
	return views
}
