package routing

import (
	"time"

	"plate/internal/domain"
)

const (
	MaxPriority     = 100
	overdueBoost    = 20
	startedBoost    = 10
	priorityPerStep = 10
	// lowestPriority is what level 0 stores; a stored 0 means "unset".
	lowestPriority = 1
)

// Priority is recomputed on every read and never written back.
func Priority(r domain.OrderRouting, station string, now time.Time) int {
	p := r.Priority
	if p <= 0 {
		p = domain.DefaultPriority
	}
	if IsOverdue(r, station, now) {
		p += overdueBoost
	}
	if r.StartedAt != nil {
		p += startedBoost
	}
	if p > MaxPriority {
		p = MaxPriority
	}
	return p
}

// StoredPriority converts a 0-10 command level into the stored 0-100 scale,
// so "medium" (5) lands on the default of 50. Level 0 stores 1 rather than
// 0, which Priority would read back as the default.
func StoredPriority(level int) int {
	if level <= 0 {
		return lowestPriority
	}
	if level > 10 {
		level = 10
	}
	return level * priorityPerStep
}

// Entry is a routing view annotated with its derived display state.
type Entry struct {
	View     domain.RoutingView
	Status   Status
	Elapsed  time.Duration
	Overdue  bool
	Priority int
}

func stationKey(v domain.RoutingView) string {
	if v.StationType != "" {
		return v.StationType
	}
	return v.StationName
}

func Annotate(v domain.RoutingView, now time.Time) Entry {
	station := stationKey(v)
	return Entry{
		View:     v,
		Status:   DeriveStatus(v.Routing),
		Elapsed:  Elapsed(v.Routing, now),
		Overdue:  IsOverdue(v.Routing, station, now),
		Priority: Priority(v.Routing, station, now),
	}
}

func AnnotateAll(views []domain.RoutingView, now time.Time) []Entry {
	entries := make([]Entry, 0, len(views))
	for _, v := range views {
		entries = append(entries, Annotate(v, now))
	}
	return entries
}
