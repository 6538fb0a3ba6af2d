package routing

import (
	"sort"
	"time"
)

type TableGroup struct {
	TableID    int64
	SeatID     int64
	TableLabel string
	SeatNumber int
	Entries    []Entry
}

type groupKey struct {
	table int64
	seat  int64
}

func valueOrZero(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// GroupByTableSeat clusters entries by (table, seat). Entries inside a group
// are in board order and groups are ordered by their leading entry.
func GroupByTableSeat(entries []Entry) []TableGroup {
	index := make(map[groupKey]int)
	groups := []TableGroup{}

	for _, e := range entries {
		key := groupKey{
			table: valueOrZero(e.View.Order.TableID),
			seat:  valueOrZero(e.View.Order.SeatID),
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, TableGroup{
				TableID:    key.table,
				SeatID:     key.seat,
				TableLabel: e.View.TableLabel,
				SeatNumber: e.View.SeatNumber,
			})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}

	for i := range groups {
		Sort(groups[i].Entries)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return Less(groups[i].Entries[0], groups[j].Entries[0])
	})

	return groups
}

type StationStats struct {
	StationID      int64
	StationName    string
	New            int
	Preparing      int
	Ready          int
	Overdue        int
	AverageElapsed time.Duration
}

// Summarize aggregates entries per station for the dashboard. Stations are
// returned in ascending ID order.
func Summarize(entries []Entry) []StationStats {
	byStation := make(map[int64]*StationStats)
	totals := make(map[int64]time.Duration)

	for _, e := range entries {
		id := e.View.Routing.StationID
		s, ok := byStation[id]
		if !ok {
			s = &StationStats{StationID: id, StationName: e.View.StationName}
			byStation[id] = s
		}
		switch e.Status {
		case StatusNew:
			s.New++
		case StatusPreparing:
			s.Preparing++
		case StatusReady:
			s.Ready++
		}
		if e.Overdue && e.Status != StatusReady {
			s.Overdue++
		}
		totals[id] += e.Elapsed
	}

	stats := make([]StationStats, 0, len(byStation))
	for id, s := range byStation {
		if n := s.New + s.Preparing + s.Ready; n > 0 {
			s.AverageElapsed = totals[id] / time.Duration(n)
		}
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].StationID < stats[j].StationID })

	return stats
}
