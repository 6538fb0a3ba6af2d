package domain

import "time"

// OrderRouting binds one order to one preparation station and records the
// station-level lifecycle of that order.
type OrderRouting struct {
	ID          int64      `json:"id"`
	OrderID     int64      `json:"order_id"`
	StationID   int64      `json:"station_id"`
	RoutedAt    *time.Time `json:"routed_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	BumpedAt    *time.Time `json:"bumped_at"`
	RecalledAt  *time.Time `json:"recalled_at"`
	Priority    int        `json:"priority"`
	RecallCount int        `json:"recall_count"`
}

const DefaultPriority = 50

// RoutingView is a routing row joined with the order, station and floor-plan
// data a kitchen display renders.
type RoutingView struct {
	Routing     OrderRouting
	Order       Order
	StationName string
	StationType string
	TableLabel  string
	SeatNumber  int
}
