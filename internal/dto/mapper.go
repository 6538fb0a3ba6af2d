package dto

import (
	"plate/internal/domain"
	"plate/internal/routing"
)

func NewStationDTOs(stations []domain.Station) []StationDTO {
	out := make([]StationDTO, 0, len(stations))
	for _, s := range stations {
		out = append(out, StationDTO{
			ID:           s.ID,
			Name:         s.Name,
			Type:         s.Type,
			Color:        s.Color,
			DisplayOrder: s.DisplayOrder,
		})
	}
	return out
}

func NewRoutingDTO(e routing.Entry) RoutingDTO {
	v := e.View
	items := v.Order.Items
	if items == nil {
		items = []string{}
	}
	return RoutingDTO{
		ID:             v.Routing.ID,
		OrderID:        v.Routing.OrderID,
		StationID:      v.Routing.StationID,
		StationName:    v.StationName,
		Status:         string(e.Status),
		Priority:       e.Priority,
		Overdue:        e.Overdue,
		ElapsedSeconds: int64(e.Elapsed.Seconds()),
		RoutedAt:       v.Routing.RoutedAt,
		StartedAt:      v.Routing.StartedAt,
		CompletedAt:    v.Routing.CompletedAt,
		RecalledAt:     v.Routing.RecalledAt,
		RecallCount:    v.Routing.RecallCount,
		TableLabel:     v.TableLabel,
		SeatNumber:     v.SeatNumber,
		OrderType:      v.Order.Type,
		Items:          items,
		Transcript:     v.Order.Transcript,
	}
}

func NewRoutingDTOs(entries []routing.Entry) []RoutingDTO {
	out := make([]RoutingDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewRoutingDTO(e))
	}
	return out
}

func NewTableGroupDTOs(groups []routing.TableGroup) []TableGroupDTO {
	out := make([]TableGroupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, TableGroupDTO{
			TableID:    g.TableID,
			SeatID:     g.SeatID,
			TableLabel: g.TableLabel,
			SeatNumber: g.SeatNumber,
			Orders:     NewRoutingDTOs(g.Entries),
		})
	}
	return out
}

func NewStationStatsDTOs(stats []routing.StationStats) []StationStatsDTO {
	out := make([]StationStatsDTO, 0, len(stats))
	for _, s := range stats {
		out = append(out, StationStatsDTO{
			StationID:             s.StationID,
			StationName:           s.StationName,
			New:                   s.New,
			Preparing:             s.Preparing,
			Ready:                 s.Ready,
			Overdue:               s.Overdue,
			AverageElapsedSeconds: int64(s.AverageElapsed.Seconds()),
		})
	}
	return out
}
