package realtime

import (
	"context"
	"sync"
)

// Sink receives change events from a feed. Reload asks for a full refetch,
// which a feed requests after every (re)connect.
type Sink interface {
	Push(ctx context.Context, e Event) error
	Reload()
}

// Feed carries change events between service instances.
type Feed interface {
	Publish(ctx context.Context, e Event) error
	// Consume delivers events to sink until ctx is done.
	Consume(ctx context.Context, sink Sink) error
}

// LocalFeed is an in-process Feed for single-instance deployments.
type LocalFeed struct {
	mu    sync.RWMutex
	sinks map[int]Sink
	next  int
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{sinks: make(map[int]Sink)}
}

func (f *LocalFeed) Publish(ctx context.Context, e Event) error {
	f.mu.RLock()
	sinks := make([]Sink, 0, len(f.sinks))
	for _, s := range f.sinks {
		sinks = append(sinks, s)
	}
	f.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Push(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (f *LocalFeed) Consume(ctx context.Context, sink Sink) error {
	f.mu.Lock()
	id := f.next
	f.next++
	f.sinks[id] = sink
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.sinks, id)
		f.mu.Unlock()
	}()

	sink.Reload()
	<-ctx.Done()
	return nil
}
