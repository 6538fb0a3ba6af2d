package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"plate/internal/domain"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

const routingColumns = `r.id, r.order_id, r.station_id, r.routed_at, r.started_at, r.completed_at,
		       r.bumped_at, r.recalled_at, r.priority, r.recall_count`

const orderColumns = `o.id, o.table_id, o.seat_id, o.resident_id, o.server_id, o.items,
		       o.transcript, o.status, o.type, o.created_at`

func routingDest(r *domain.OrderRouting) []any {
	return []any{
		&r.ID, &r.OrderID, &r.StationID, &r.RoutedAt, &r.StartedAt, &r.CompletedAt,
		&r.BumpedAt, &r.RecalledAt, &r.Priority, &r.RecallCount,
	}
}

func scanRouting(s rowScanner) (domain.OrderRouting, error) {
	var r domain.OrderRouting
	err := s.Scan(routingDest(&r)...)
	return r, err
}

// orderScan collects an order row; items arrive as JSON text.
type orderScan struct {
	order domain.Order
	items sql.NullString
}

func (o *orderScan) dest() []any {
	return []any{
		&o.order.ID, &o.order.TableID, &o.order.SeatID, &o.order.ResidentID, &o.order.ServerID, &o.items,
		&o.order.Transcript, &o.order.Status, &o.order.Type, &o.order.CreatedAt,
	}
}

func (o *orderScan) finish() (domain.Order, error) {
	items, err := decodeItems(o.items)
	if err != nil {
		return domain.Order{}, fmt.Errorf("decoding items of order %d: %w", o.order.ID, err)
	}
	o.order.Items = items
	return o.order, nil
}

func decodeItems(raw sql.NullString) ([]string, error) {
	items := []string{}
	if !raw.Valid || raw.String == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw.String), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func encodeItems(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
