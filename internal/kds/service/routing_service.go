package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"plate/internal/cache"
	"plate/internal/domain"
	apperrors "plate/internal/errors"
	"plate/internal/realtime"
	"plate/internal/routing"

	"go.uber.org/zap"
)

type TransactionManager interface {
	WithinTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error
}

type RoutingRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.OrderRouting, error)
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.OrderRouting, error)
	ListForOrder(ctx context.Context, tx *sql.Tx, orderID int64) ([]domain.OrderRouting, error)
	Insert(ctx context.Context, tx *sql.Tx, rt domain.OrderRouting) (int64, error)
	MarkStarted(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error
	MarkCompleted(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error
	Recall(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error
	SetPriority(ctx context.Context, tx *sql.Tx, id int64, priority int) error
}

type OrderRepository interface {
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Order, error)
	Insert(ctx context.Context, tx *sql.Tx, o domain.Order) (int64, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status string) error
}

// Publisher is the outbound half of the change feed.
type Publisher interface {
	Publish(ctx context.Context, e realtime.Event) error
}

type Invalidator interface {
	InvalidateTag(tag string) int
}

type Action string

const (
	ActionStart    Action = "start"
	ActionBump     Action = "bump"
	ActionRecall   Action = "recall"
	ActionPriority Action = "priority"
)

func ValidAction(a Action) bool {
	switch a {
	case ActionStart, ActionBump, ActionRecall, ActionPriority:
		return true
	}
	return false
}

// Mutation is one station-level change to a routing. Priority is on the
// stored 0-100 scale and only read for ActionPriority.
type Mutation struct {
	Action    Action
	RoutingID int64
	Priority  int
}

type MutationResult struct {
	Routing      domain.OrderRouting
	Order        domain.Order
	OrderChanged bool
}

const txTimeout = 5 * time.Second

type RoutingService struct {
	db          TransactionManager
	routingRepo RoutingRepository
	orderRepo   OrderRepository
	publisher   Publisher
	cache       Invalidator
	now         func() time.Time
	logger      *zap.Logger
}

func NewRoutingService(
	db TransactionManager,
	routingRepo RoutingRepository,
	orderRepo OrderRepository,
	publisher Publisher,
	cache Invalidator,
	logger *zap.Logger,
) *RoutingService {
	return &RoutingService{
		db:          db,
		routingRepo: routingRepo,
		orderRepo:   orderRepo,
		publisher:   publisher,
		cache:       cache,
		now:         time.Now,
		logger:      logger,
	}
}

// Apply runs m in a single transaction. Locks are taken order first, then
// routing, so concurrent mutations on sibling routings of the same order
// serialize on the order row.
func (s *RoutingService) Apply(ctx context.Context, m Mutation) (*MutationResult, error) {
	if !ValidAction(m.Action) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown action %q", m.Action))
	}

	current, err := s.routingRepo.FindByID(ctx, m.RoutingID)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	var result MutationResult
	err = s.db.WithinTx(txCtx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx *sql.Tx) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, tx, current.OrderID)
		if err != nil {
			return err
		}
		if !order.Active() {
			return apperrors.NewConflictError(fmt.Sprintf("order %d is %s", order.ID, order.Status))
		}

		rt, err := s.routingRepo.FindByIDForUpdate(txCtx, tx, m.RoutingID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if err := s.mutate(txCtx, tx, rt, m, now); err != nil {
			return err
		}

		siblings, err := s.routingRepo.ListForOrder(txCtx, tx, order.ID)
		if err != nil {
			return err
		}

		status := routing.DeriveOrderStatus(order.Status, siblings)
		if status != order.Status {
			if err := s.orderRepo.UpdateStatus(txCtx, tx, order.ID, status); err != nil {
				return err
			}
			order.Status = status
			result.OrderChanged = true
		}

		result.Routing = *rt
		result.Order = *order
		return nil
	})
	if err != nil {
		if !isClientError(err) {
			s.logger.Error("routing mutation failed",
				zap.String("action", string(m.Action)),
				zap.Int64("routingId", m.RoutingID),
				zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("routing updated",
		zap.String("action", string(m.Action)),
		zap.Int64("routingId", result.Routing.ID),
		zap.Int64("orderId", result.Order.ID),
		zap.String("orderStatus", result.Order.Status))

	s.publishRouting(ctx, realtime.EventUpdate, result.Routing)
	if result.OrderChanged {
		s.publishOrder(ctx, realtime.EventUpdate, result.Order)
	}
	s.cache.InvalidateTag(cache.TagOrders)

	return &result, nil
}

func isClientError(err error) bool {
	if _, ok := apperrors.IsConflictError(err); ok {
		return true
	}
	if _, ok := apperrors.IsValidationError(err); ok {
		return true
	}
	_, ok := apperrors.IsNotFoundError(err)
	return ok
}

// mutate checks the transition against the locked row, writes it and
// mirrors the write onto rt.
func (s *RoutingService) mutate(ctx context.Context, tx *sql.Tx, rt *domain.OrderRouting, m Mutation, now time.Time) error {
	switch m.Action {
	case ActionStart:
		if rt.CompletedAt != nil {
			return apperrors.NewConflictError(fmt.Sprintf("routing %d is already ready", rt.ID))
		}
		if rt.StartedAt != nil {
			return apperrors.NewConflictError(fmt.Sprintf("routing %d is already started", rt.ID))
		}
		if err := s.routingRepo.MarkStarted(ctx, tx, rt.ID, now); err != nil {
			return err
		}
		rt.StartedAt = &now

	case ActionBump:
		if rt.CompletedAt != nil {
			return apperrors.NewConflictError(fmt.Sprintf("routing %d is already bumped", rt.ID))
		}
		if err := s.routingRepo.MarkCompleted(ctx, tx, rt.ID, now); err != nil {
			return err
		}
		rt.CompletedAt = &now
		rt.BumpedAt = &now

	case ActionRecall:
		if rt.CompletedAt == nil {
			return apperrors.NewConflictError(fmt.Sprintf("routing %d is not ready", rt.ID))
		}
		if err := s.routingRepo.Recall(ctx, tx, rt.ID, now); err != nil {
			return err
		}
		rt.CompletedAt = nil
		rt.RecalledAt = &now
		rt.RecallCount++

	case ActionPriority:
		if m.Priority < 0 || m.Priority > routing.MaxPriority {
			return apperrors.NewValidationError(fmt.Sprintf("priority must be between 0 and %d", routing.MaxPriority))
		}
		if err := s.routingRepo.SetPriority(ctx, tx, rt.ID, m.Priority); err != nil {
			return err
		}
		rt.Priority = m.Priority
	}
	return nil
}

// CreateOrder inserts the order and one routing per station in one
// transaction, then announces them on the change feed.
func (s *RoutingService) CreateOrder(ctx context.Context, order domain.Order, stationIDs []int64) (*domain.Order, []domain.OrderRouting, error) {
	if len(stationIDs) == 0 {
		return nil, nil, apperrors.NewValidationError("order must be routed to at least one station")
	}

	txCtx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	now := s.now().UTC()
	order.Status = domain.OrderStatusNew
	order.CreatedAt = now

	var routings []domain.OrderRouting
	err := s.db.WithinTx(txCtx, nil, func(tx *sql.Tx) error {
		id, err := s.orderRepo.Insert(txCtx, tx, order)
		if err != nil {
			return err
		}
		order.ID = id

		routings = make([]domain.OrderRouting, 0, len(stationIDs))
		for _, stationID := range stationIDs {
			rt := domain.OrderRouting{
				OrderID:   id,
				StationID: stationID,
				RoutedAt:  &now,
				Priority:  domain.DefaultPriority,
			}
			rt.ID, err = s.routingRepo.Insert(txCtx, tx, rt)
			if err != nil {
				return err
			}
			routings = append(routings, rt)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to create order", zap.Error(err))
		return nil, nil, err
	}

	s.logger.Info("order created",
		zap.Int64("orderId", order.ID),
		zap.Int("routings", len(routings)))

	s.publishOrder(ctx, realtime.EventInsert, order)
	for _, rt := range routings {
		s.publishRouting(ctx, realtime.EventInsert, rt)
	}
	s.cache.InvalidateTag(cache.TagOrders)

	return &order, routings, nil
}

// The database is the source of truth once committed; a lost event is
// repaired by the next periodic refresh.
func (s *RoutingService) publishRouting(ctx context.Context, typ realtime.EventType, rt domain.OrderRouting) {
	e, err := realtime.RoutingEvent(typ, rt)
	if err != nil {
		s.logger.Error("failed to encode routing event", zap.Int64("routingId", rt.ID), zap.Error(err))
		return
	}
	s.publish(ctx, e)
}

func (s *RoutingService) publishOrder(ctx context.Context, typ realtime.EventType, o domain.Order) {
	e, err := realtime.OrderEvent(typ, o)
	if err != nil {
		s.logger.Error("failed to encode order event", zap.Int64("orderId", o.ID), zap.Error(err))
		return
	}
	s.publish(ctx, e)
}

func (s *RoutingService) publish(ctx context.Context, e realtime.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish change event",
			zap.String("table", e.Table),
			zap.String("type", string(e.Type)),
			zap.Error(err))
	}
}
