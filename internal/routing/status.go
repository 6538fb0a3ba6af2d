// Package routing derives display state for kitchen routing rows and orders
// them for station boards. Everything here is pure; malformed timestamps
// degrade to "new" and zero elapsed time instead of failing.
package routing

import (
	"strings"
	"time"

	"plate/internal/domain"
)

type Status string

const (
	StatusNew       Status = "new"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
)

const DefaultOverdueMinutes = 10

var overdueMinutes = map[string]int{
	domain.StationGrill: 12,
	domain.StationFryer: 8,
	domain.StationSalad: 5,
	domain.StationExpo:  15,
	domain.StationBar:   10,
}

func DeriveStatus(r domain.OrderRouting) Status {
	if r.CompletedAt != nil {
		return StatusReady
	}
	if r.StartedAt != nil {
		return StatusPreparing
	}
	return StatusNew
}

// Elapsed measures from started_at (or routed_at) to completed_at (or now).
// It is zero when routed_at is missing and never negative.
func Elapsed(r domain.OrderRouting, now time.Time) time.Duration {
	if r.RoutedAt == nil {
		return 0
	}

	start := *r.RoutedAt
	if r.StartedAt != nil {
		start = *r.StartedAt
	}
	end := now
	if r.CompletedAt != nil {
		end = *r.CompletedAt
	}

	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return d
}

// OverdueThreshold returns the station's allowed minutes. Unknown stations
// use DefaultOverdueMinutes.
func OverdueThreshold(station string) int {
	if m, ok := overdueMinutes[strings.ToLower(strings.TrimSpace(station))]; ok {
		return m
	}
	return DefaultOverdueMinutes
}

// IsOverdue compares whole elapsed minutes against the station threshold.
func IsOverdue(r domain.OrderRouting, station string, now time.Time) bool {
	minutes := int(Elapsed(r, now) / time.Minute)
	return minutes > OverdueThreshold(station)
}
