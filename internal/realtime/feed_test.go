package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plate/internal/domain"
)

type recordingSink struct {
	mu      sync.Mutex
	events  []Event
	reloads int
}

func (s *recordingSink) Push(ctx context.Context, e Event) error {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) Reload() {
	s.mu.Lock()
	s.reloads++
	s.mu.Unlock()
}

func (s *recordingSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events), s.reloads
}

func TestLocalFeed_DeliversToConsumers(t *testing.T) {
	feed := NewLocalFeed()
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = feed.Consume(ctx, sink)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, reloads := sink.counts()
		return reloads == 1
	}, time.Second, 5*time.Millisecond)

	e, err := RoutingEvent(EventUpdate, domain.OrderRouting{ID: 1})
	require.NoError(t, err)
	require.NoError(t, feed.Publish(context.Background(), e))

	events, _ := sink.counts()
	assert.Equal(t, 1, events)

	cancel()
	<-done

	// detached consumers no longer receive events
	require.NoError(t, feed.Publish(context.Background(), e))
	events, _ = sink.counts()
	assert.Equal(t, 1, events)
}

func TestLocalFeed_PublishWithoutConsumers(t *testing.T) {
	feed := NewLocalFeed()
	e, err := RoutingEvent(EventInsert, domain.OrderRouting{ID: 1})
	require.NoError(t, err)
	assert.NoError(t, feed.Publish(context.Background(), e))
}
