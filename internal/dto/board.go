package dto

import "time"

type StationDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Color        string `json:"color"`
	DisplayOrder int    `json:"displayOrder"`
}

// RoutingDTO is one card on a station board.
type RoutingDTO struct {
	ID             int64      `json:"id"`
	OrderID        int64      `json:"orderId"`
	StationID      int64      `json:"stationId"`
	StationName    string     `json:"stationName"`
	Status         string     `json:"status"`
	Priority       int        `json:"priority"`
	Overdue        bool       `json:"overdue"`
	ElapsedSeconds int64      `json:"elapsedSeconds"`
	RoutedAt       *time.Time `json:"routedAt"`
	StartedAt      *time.Time `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt"`
	RecalledAt     *time.Time `json:"recalledAt,omitempty"`
	RecallCount    int        `json:"recallCount"`
	TableLabel     string     `json:"tableLabel,omitempty"`
	SeatNumber     int        `json:"seatNumber,omitempty"`
	OrderType      string     `json:"orderType"`
	Items          []string   `json:"items"`
	Transcript     string     `json:"transcript,omitempty"`
}

type TableGroupDTO struct {
	TableID    int64        `json:"tableId"`
	SeatID     int64        `json:"seatId"`
	TableLabel string       `json:"tableLabel"`
	SeatNumber int          `json:"seatNumber"`
	Orders     []RoutingDTO `json:"orders"`
}

type StationStatsDTO struct {
	StationID             int64  `json:"stationId"`
	StationName           string `json:"stationName"`
	New                   int    `json:"new"`
	Preparing             int    `json:"preparing"`
	Ready                 int    `json:"ready"`
	Overdue               int    `json:"overdue"`
	AverageElapsedSeconds int64  `json:"averageElapsedSeconds"`
}

type StatsResponse struct {
	Stations    []StationStatsDTO `json:"stations"`
	GeneratedAt time.Time         `json:"generatedAt"`
}
