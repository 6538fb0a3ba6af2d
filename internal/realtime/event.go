package realtime

import (
	"encoding/json"
	"fmt"

	"plate/internal/domain"
)

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Tables carried on the change feed.
const (
	TableRouting = "kds_order_routing"
	TableOrders  = "orders"
)

// Event is one row-level change. Record holds the row as JSON; for deletes
// only the primary key is required.
type Event struct {
	Type   EventType       `json:"type"`
	Table  string          `json:"table"`
	Record json.RawMessage `json:"record"`
}

func NewEvent(typ EventType, table string, record any) (Event, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return Event{}, fmt.Errorf("encoding %s record: %w", table, err)
	}
	return Event{Type: typ, Table: table, Record: data}, nil
}

func RoutingEvent(typ EventType, r domain.OrderRouting) (Event, error) {
	return NewEvent(typ, TableRouting, r)
}

func OrderEvent(typ EventType, o domain.Order) (Event, error) {
	return NewEvent(typ, TableOrders, o)
}
