package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrStoreStopped = errors.New("realtime: store stopped")

// Loader fetches the full kitchen state from the persistent store.
type Loader interface {
	Load(ctx context.Context) (State, error)
}

// Listener is called on the store goroutine after each change. e is nil when
// the state was replaced by a full reload.
type Listener func(s State, e *Event)

// Store owns the kitchen State. A single goroutine started by Run applies
// events and reloads; everything else talks to it over channels.
type Store struct {
	loader  Loader
	refresh time.Duration
	logger  *zap.Logger

	events    chan Event
	reloads   chan struct{}
	snapshots chan chan State
	done      chan struct{}
	ready     chan struct{}

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

func NewStore(loader Loader, refresh time.Duration, logger *zap.Logger) *Store {
	return &Store{
		loader:    loader,
		refresh:   refresh,
		logger:    logger,
		events:    make(chan Event, 256),
		reloads:   make(chan struct{}, 1),
		snapshots: make(chan chan State),
		done:      make(chan struct{}),
		ready:     make(chan struct{}),
		listeners: make(map[int]Listener),
	}
}

// Push queues an event for the store goroutine.
func (s *Store) Push(ctx context.Context, e Event) error {
	select {
	case s.events <- e:
		return nil
	case <-s.done:
		return ErrStoreStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload requests a full refetch. Requests made while one is pending are
// coalesced.
func (s *Store) Reload() {
	select {
	case s.reloads <- struct{}{}:
	default:
	}
}

// Snapshot returns the current state. It waits for the first load attempt
// to finish.
func (s *Store) Snapshot(ctx context.Context) (State, error) {
	select {
	case <-s.ready:
	case <-s.done:
		return State{}, ErrStoreStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}

	reply := make(chan State, 1)
	select {
	case s.snapshots <- reply:
	case <-s.done:
		return State{}, ErrStoreStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	return <-reply, nil
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) Run(ctx context.Context) error {
	defer close(s.done)

	state := s.load(ctx, EmptyState())
	close(s.ready)

	var tick <-chan time.Time
	if s.refresh > 0 {
		t := time.NewTicker(s.refresh)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-s.events:
			state = Reduce(state, e)
			s.notify(state, &e)
		case <-s.reloads:
			state = s.load(ctx, state)
		case <-tick:
			state = s.load(ctx, state)
		case reply := <-s.snapshots:
			reply <- state
		}
	}
}

// load replaces the state with a fresh fetch. On failure the previous state
// is kept until the next attempt.
func (s *Store) load(ctx context.Context, prev State) State {
	next, err := s.loader.Load(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("realtime reload failed, keeping previous state", zap.Error(err))
		}
		return prev
	}
	s.logger.Debug("realtime state reloaded",
		zap.Int("routings", len(next.Routings)),
		zap.Int("orders", len(next.Orders)),
	)
	s.notify(next, nil)
	return next
}

func (s *Store) notify(state State, e *Event) {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(state, e)
	}
}
