package dto

import "time"

type CreateOrderRequest struct {
	TableID    *int64   `json:"tableId"`
	SeatID     *int64   `json:"seatId"`
	ResidentID *string  `json:"residentId"`
	Items      []string `json:"items"`
	Transcript string   `json:"transcript"`
	Type       string   `json:"type"`
}

type RoutedStationDTO struct {
	RoutingID   int64  `json:"routingId"`
	StationID   int64  `json:"stationId"`
	StationName string `json:"stationName"`
}

type CreateOrderResponse struct {
	TraceID   string             `json:"traceId"`
	OrderID   int64              `json:"orderId"`
	Status    string             `json:"status"`
	Items     []string           `json:"items"`
	Routings  []RoutedStationDTO `json:"routings"`
	Timestamp time.Time          `json:"timestamp"`
}

type TranscribeResponse struct {
	Transcript     string   `json:"transcript"`
	Items          []string `json:"items"`
	Confidence     float64  `json:"confidence"`
	ProcessingTime float64  `json:"processingTime"`
}
