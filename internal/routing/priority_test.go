package routing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"plate/internal/domain"
)

func TestPriority(t *testing.T) {
	now := t0.Add(20 * time.Minute)

	tests := []struct {
		name    string
		routing domain.OrderRouting
		station string
		want    int
	}{
		{"default base", domain.OrderRouting{RoutedAt: at(19 * time.Minute)}, "grill", 50},
		{"started", domain.OrderRouting{RoutedAt: at(18 * time.Minute), StartedAt: at(19 * time.Minute)}, "grill", 60},
		{"overdue", domain.OrderRouting{RoutedAt: at(0)}, "grill", 70},
		{"overdue and started", domain.OrderRouting{RoutedAt: at(0), StartedAt: at(time.Minute)}, "grill", 80},
		{"stored base", domain.OrderRouting{RoutedAt: at(19 * time.Minute), Priority: 80}, "grill", 80},
		{"capped", domain.OrderRouting{RoutedAt: at(0), StartedAt: at(time.Minute), Priority: 90}, "grill", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Priority(tt.routing, tt.station, now))
		})
	}
}

func TestPriority_NeverExceedsCap(t *testing.T) {
	now := t0.Add(time.Hour)
	for base := 0; base <= 150; base += 5 {
		for _, started := range []bool{false, true} {
			r := domain.OrderRouting{RoutedAt: at(0), Priority: base}
			if started {
				r.StartedAt = at(time.Minute)
			}
			p := Priority(r, "expo", now)
			assert.LessOrEqual(t, p, MaxPriority)

			if started {
				effective := base
				if effective <= 0 {
					effective = domain.DefaultPriority
				}
				assert.GreaterOrEqual(t, p, min(effective+30, MaxPriority))
			}
		}
	}
}

func TestStoredPriority(t *testing.T) {
	assert.Equal(t, 80, StoredPriority(8))
	assert.Equal(t, 50, StoredPriority(5))
	assert.Equal(t, 20, StoredPriority(2))
	assert.Equal(t, 1, StoredPriority(0))
	assert.Equal(t, 1, StoredPriority(-3))
	assert.Equal(t, 100, StoredPriority(42))
}

func TestStoredPriority_LevelsKeepTheirOrder(t *testing.T) {
	now := t0.Add(time.Minute)
	score := func(level int) int {
		r := domain.OrderRouting{RoutedAt: at(0), Priority: StoredPriority(level)}
		return Priority(r, "grill", now)
	}

	for level := 0; level < 10; level++ {
		assert.Less(t, score(level), score(level+1), "level %d", level)
	}
	assert.Less(t, score(0), domain.DefaultPriority)
	assert.Equal(t, 0, StoredPriority(0)/priorityPerStep)
}

func TestAnnotate_GrillOverdueScenario(t *testing.T) {
	view := domain.RoutingView{
		Routing:     domain.OrderRouting{ID: 1, RoutedAt: at(0)},
		StationName: "Grill",
		StationType: "grill",
	}

	e := Annotate(view, t0.Add(13*time.Minute))

	assert.Equal(t, StatusNew, e.Status)
	assert.True(t, e.Overdue)
	assert.Equal(t, 70, e.Priority)
	assert.Equal(t, 13*time.Minute, e.Elapsed)
}

func TestAnnotate_FallsBackToStationName(t *testing.T) {
	view := domain.RoutingView{
		Routing:     domain.OrderRouting{RoutedAt: at(0)},
		StationName: "salad",
	}

	e := Annotate(view, t0.Add(6*time.Minute))
	assert.True(t, e.Overdue)
}
