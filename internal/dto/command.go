package dto

import (
	"time"

	"plate/internal/voice"
)

type VoiceCommandRequest struct {
	Text      string `json:"text"`
	StationID *int64 `json:"stationId,omitempty"`
}

type VoiceCommandResponse struct {
	TraceID   string       `json:"traceId"`
	Command   voice.Parsed `json:"command"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
}

type PriorityRequest struct {
	Level *int `json:"level"`
}

type ActionResponse struct {
	TraceID   string    `json:"traceId"`
	Action    string    `json:"action"`
	RoutingID int64     `json:"routingId"`
	OrderID   int64     `json:"orderId"`
	Status    string    `json:"status"`
	Priority  int       `json:"priority"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
