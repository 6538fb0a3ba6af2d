package routing

import (
	"sort"
	"time"

	"plate/internal/domain"
)

// Less orders entries by derived priority descending, then routed_at
// ascending, then routing ID. Rows without routed_at go after timed rows of
// the same priority.
func Less(a, b Entry) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}

	ra, rb := a.View.Routing.RoutedAt, b.View.Routing.RoutedAt
	switch {
	case ra != nil && rb != nil && !ra.Equal(*rb):
		return ra.Before(*rb)
	case ra != nil && rb == nil:
		return true
	case ra == nil && rb != nil:
		return false
	}

	return a.View.Routing.ID < b.View.Routing.ID
}

func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return Less(entries[i], entries[j]) })
}

// StationList annotates every view routed to stationID and returns them in
// board order.
func StationList(views []domain.RoutingView, stationID int64, now time.Time) []Entry {
	entries := []Entry{}
	for _, v := range views {
		if v.Routing.StationID != stationID {
			continue
		}
		entries = append(entries, Annotate(v, now))
	}
	Sort(entries)
	return entries
}
