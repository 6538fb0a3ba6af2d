package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"plate/internal/auth"
	"plate/internal/domain"
	apperrors "plate/internal/errors"
	"plate/internal/infrastructure/database"
	"plate/internal/kds/service"
	"plate/internal/routing"
	"plate/internal/voice"

	"go.uber.org/zap"
)

type RoutingMutator interface {
	Apply(ctx context.Context, m service.Mutation) (*service.MutationResult, error)
}

type OrderRoutingReader interface {
	FindByOrderID(ctx context.Context, orderID int64) ([]domain.OrderRouting, error)
}

type StationFinder interface {
	FindByName(ctx context.Context, name string) (*domain.Station, error)
}

const retryBackoff = 100 * time.Millisecond

// CommandUseCase authorizes and executes kitchen actions coming from the
// touch screens and from voice commands.
type CommandUseCase struct {
	mutator          RoutingMutator
	routings         OrderRoutingReader
	stations         StationFinder
	logger           *zap.Logger
	maxRetryAttempts int
	sleep            func(ctx context.Context, d time.Duration) error
}

func NewCommandUseCase(
	mutator RoutingMutator,
	routings OrderRoutingReader,
	stations StationFinder,
	logger *zap.Logger,
	maxRetryAttempts int,
) *CommandUseCase {
	if maxRetryAttempts < 1 {
		maxRetryAttempts = 1
	}
	return &CommandUseCase{
		mutator:          mutator,
		routings:         routings,
		stations:         stations,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
		sleep:            sleepContext,
	}
}

func authorize(id auth.Identity) error {
	if !auth.CanPerformKitchenAction(id.Role) {
		return apperrors.NewForbiddenError("insufficient permissions")
	}
	return nil
}

// Execute applies one direct action to a routing.
func (uc *CommandUseCase) Execute(ctx context.Context, id auth.Identity, m service.Mutation) (*service.MutationResult, error) {
	if err := authorize(id); err != nil {
		uc.logger.Warn("kitchen action rejected",
			zap.String("userId", id.UserID),
			zap.String("role", id.Role),
			zap.String("action", string(m.Action)))
		return nil, err
	}
	return uc.applyWithRetry(ctx, m)
}

func (uc *CommandUseCase) applyWithRetry(ctx context.Context, m service.Mutation) (*service.MutationResult, error) {
	for attempt := 1; attempt <= uc.maxRetryAttempts; attempt++ {
		result, err := uc.mutator.Apply(ctx, m)
		if err == nil {
			return result, nil
		}
		if !database.IsDeadlock(err) {
			return nil, err
		}
		if attempt == uc.maxRetryAttempts {
			break
		}

		uc.logger.Warn("deadlock detected, retrying",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", uc.maxRetryAttempts),
			zap.Int64("routingId", m.RoutingID))
		if err := uc.sleep(ctx, backoff(attempt)); err != nil {
			return nil, err
		}
	}

	return nil, apperrors.NewDeadlockError("max retries exceeded")
}

// backoff grows linearly with the attempt number, with +-20% jitter.
func backoff(attempt int) time.Duration {
	base := time.Duration(attempt) * retryBackoff
	return time.Duration(float64(base) * (0.8 + rand.Float64()*0.4))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DispatchVoice executes a parsed voice command and returns the
// confirmation for the speaker. Order commands address every routing of
// the order, or only the one at stationID when it is set.
func (uc *CommandUseCase) DispatchVoice(ctx context.Context, id auth.Identity, parsed voice.Parsed, stationID *int64) (string, error) {
	switch cmd := parsed.Command.(type) {
	case voice.Bump:
		return uc.orderCommand(ctx, id, cmd.OrderID, stationID, service.Mutation{Action: service.ActionBump})
	case voice.Recall:
		return uc.orderCommand(ctx, id, cmd.OrderID, stationID, service.Mutation{Action: service.ActionRecall})
	case voice.Start:
		return uc.orderCommand(ctx, id, cmd.OrderID, stationID, service.Mutation{Action: service.ActionStart})
	case voice.SetPriority:
		return uc.orderCommand(ctx, id, cmd.OrderID, stationID, service.Mutation{
			Action:   service.ActionPriority,
			Priority: routing.StoredPriority(cmd.Level),
		})
	case voice.Show:
		return uc.describeView(ctx, "Showing", cmd.View)
	case voice.Filter:
		if cmd.Criterion == "all" {
			return "Filters cleared", nil
		}
		return uc.describeView(ctx, "Filtering by", cmd.Criterion)
	case voice.Help:
		return voice.HelpText, nil
	default:
		return voice.MessageUnknownCommand, nil
	}
}

func (uc *CommandUseCase) orderCommand(ctx context.Context, id auth.Identity, target string, stationID *int64, m service.Mutation) (string, error) {
	if err := authorize(id); err != nil {
		uc.logger.Warn("voice command rejected",
			zap.String("userId", id.UserID),
			zap.String("role", id.Role),
			zap.String("action", string(m.Action)))
		return "", err
	}

	orderID, err := strconv.ParseInt(target, 10, 64)
	if err != nil || orderID <= 0 {
		return "", apperrors.NewNotFoundError(fmt.Sprintf("Order %s not found", target))
	}

	all, err := uc.routings.FindByOrderID(ctx, orderID)
	if err != nil {
		return "", err
	}

	var candidates []domain.OrderRouting
	for _, rt := range all {
		if stationID != nil && rt.StationID != *stationID {
			continue
		}
		candidates = append(candidates, rt)
	}
	if len(candidates) == 0 {
		return "", apperrors.NewNotFoundError(fmt.Sprintf("Order %d not found", orderID))
	}

	// Each routing commits on its own, so a failure part way through leaves
	// the earlier stations changed. The reply then says how far it got.
	applied, attempted := 0, 0
	var firstErr error
	for _, rt := range candidates {
		if !applicable(m.Action, rt) {
			continue
		}
		attempted++
		m.RoutingID = rt.ID
		if _, err := uc.applyWithRetry(ctx, m); err != nil {
			uc.logger.Warn("voice command failed at station",
				zap.String("action", string(m.Action)),
				zap.Int64("orderId", orderID),
				zap.Int64("routingId", rt.ID),
				zap.Int64("stationId", rt.StationID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		applied++
	}
	if attempted == 0 {
		return "", apperrors.NewConflictError(fmt.Sprintf("Order %d is already %s", orderID, pastTense(m.Action)))
	}
	if applied == 0 {
		return "", firstErr
	}

	uc.logger.Info("voice command applied",
		zap.String("action", string(m.Action)),
		zap.Int64("orderId", orderID),
		zap.Int("routings", applied),
		zap.Int("failed", attempted-applied))

	msg := fmt.Sprintf("Order %d %s", orderID, pastTense(m.Action))
	if m.Action == service.ActionPriority {
		msg = fmt.Sprintf("Order %d priority set to %d", orderID, m.Priority/10)
	}
	if applied < attempted {
		msg = fmt.Sprintf("%s at %d of %d stations", msg, applied, attempted)
	}
	return msg, nil
}

// applicable skips routings the action would reject, so "bump order 12"
// only touches the stations still working on it.
func applicable(a service.Action, rt domain.OrderRouting) bool {
	switch a {
	case service.ActionBump:
		return rt.CompletedAt == nil
	case service.ActionRecall:
		return rt.CompletedAt != nil
	case service.ActionStart:
		return rt.StartedAt == nil && rt.CompletedAt == nil
	default:
		return true
	}
}

func pastTense(a service.Action) string {
	switch a {
	case service.ActionBump:
		return "bumped"
	case service.ActionRecall:
		return "recalled"
	case service.ActionStart:
		return "started"
	default:
		return "updated"
	}
}

func isStatusView(v string) bool {
	switch v {
	case "all", "overdue", "new", "preparing", "ready", "active":
		return true
	}
	return false
}

func (uc *CommandUseCase) describeView(ctx context.Context, verb, view string) (string, error) {
	switch {
	case strings.HasPrefix(view, "table "):
		return fmt.Sprintf("%s %s", verb, view), nil
	case isStatusView(view):
		return fmt.Sprintf("%s %s orders", verb, view), nil
	}

	st, err := uc.stations.FindByName(ctx, view)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return "", apperrors.NewNotFoundError(fmt.Sprintf("Station %s not found", view))
		}
		return "", err
	}
	return fmt.Sprintf("%s %s station", verb, st.Name), nil
}
