package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"plate/internal/domain"
	apperrors "plate/internal/errors"
	"plate/internal/infrastructure/database"
)

type SQLRoutingRepository struct {
	db *database.DB
}

func NewSQLRoutingRepository(db *database.DB) *SQLRoutingRepository {
	return &SQLRoutingRepository{db: db}
}

const viewQuery = `
		SELECT ` + routingColumns + `,
		       ` + orderColumns + `,
		       s.name, s.type, COALESCE(t.label, ''), COALESCE(se.seat_number, 0)
		FROM kds_order_routing r
		JOIN orders o ON o.id = r.order_id
		JOIN kds_stations s ON s.id = r.station_id
		LEFT JOIN tables t ON t.id = o.table_id
		LEFT JOIN seats se ON se.id = o.seat_id
		WHERE o.status NOT IN (?, ?)`

// FindActive returns every routing whose order is neither delivered nor
// cancelled, joined for display.
func (r *SQLRoutingRepository) FindActive(ctx context.Context) ([]domain.RoutingView, error) {
	query := viewQuery + ` ORDER BY r.id`
	return r.queryViews(ctx, query, domain.OrderStatusDelivered, domain.OrderStatusCancelled)
}

func (r *SQLRoutingRepository) FindByStation(ctx context.Context, stationID int64) ([]domain.RoutingView, error) {
	query := viewQuery + ` AND r.station_id = ? ORDER BY r.id`
	return r.queryViews(ctx, query, domain.OrderStatusDelivered, domain.OrderStatusCancelled, stationID)
}

func (r *SQLRoutingRepository) queryViews(ctx context.Context, query string, args ...any) ([]domain.RoutingView, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying routing views: %w", err)
	}
	defer rows.Close()

	views := []domain.RoutingView{}
	for rows.Next() {
		var (
			v     domain.RoutingView
			order orderScan
		)
		dest := routingDest(&v.Routing)
		dest = append(dest, order.dest()...)
		dest = append(dest, &v.StationName, &v.StationType, &v.TableLabel, &v.SeatNumber)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning routing view: %w", err)
		}
		if v.Order, err = order.finish(); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating routing views: %w", err)
	}

	return views, nil
}

// FindByOrderID returns every routing of an order, completed ones included.
func (r *SQLRoutingRepository) FindByOrderID(ctx context.Context, orderID int64) ([]domain.OrderRouting, error) {
	return r.listForOrder(ctx, r.db, orderID, "")
}

// ListForOrder is FindByOrderID inside tx, locking the rows.
func (r *SQLRoutingRepository) ListForOrder(ctx context.Context, tx *sql.Tx, orderID int64) ([]domain.OrderRouting, error) {
	return r.listForOrder(ctx, tx, orderID, " FOR UPDATE")
}

func (r *SQLRoutingRepository) listForOrder(ctx context.Context, q querier, orderID int64, lock string) ([]domain.OrderRouting, error) {
	query := `SELECT ` + routingColumns + ` FROM kds_order_routing r WHERE r.order_id = ? ORDER BY r.id` + lock

	rows, err := q.QueryContext(ctx, r.db.Rebind(query), orderID)
	if err != nil {
		return nil, fmt.Errorf("querying routings by order: %w", err)
	}
	defer rows.Close()

	routings := []domain.OrderRouting{}
	for rows.Next() {
		rt, err := scanRouting(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning routing: %w", err)
		}
		routings = append(routings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating routings: %w", err)
	}

	return routings, nil
}

func (r *SQLRoutingRepository) FindByID(ctx context.Context, id int64) (*domain.OrderRouting, error) {
	return r.findByID(ctx, r.db, id, "")
}

// FindByIDForUpdate locks the routing row for the rest of tx.
func (r *SQLRoutingRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.OrderRouting, error) {
	return r.findByID(ctx, tx, id, " FOR UPDATE")
}

func (r *SQLRoutingRepository) findByID(ctx context.Context, q querier, id int64, lock string) (*domain.OrderRouting, error) {
	query := `SELECT ` + routingColumns + ` FROM kds_order_routing r WHERE r.id = ?` + lock

	rt, err := scanRouting(q.QueryRowContext(ctx, r.db.Rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("routing %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying routing by id: %w", err)
	}

	return &rt, nil
}

func (r *SQLRoutingRepository) Insert(ctx context.Context, tx *sql.Tx, rt domain.OrderRouting) (int64, error) {
	query := `
		INSERT INTO kds_order_routing (order_id, station_id, routed_at, priority, recall_count)
		VALUES (?, ?, ?, ?, ?)`

	id, err := r.db.InsertReturningID(ctx, tx, query, rt.OrderID, rt.StationID, rt.RoutedAt, rt.Priority, rt.RecallCount)
	if err != nil {
		return 0, fmt.Errorf("inserting routing: %w", err)
	}

	return id, nil
}

func (r *SQLRoutingRepository) MarkStarted(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error {
	return r.update(ctx, tx, id, "marking routing started",
		`UPDATE kds_order_routing SET started_at = ? WHERE id = ?`, at, id)
}

// MarkCompleted bumps the routing. started_at is left as is, so a routing
// bumped without an explicit start keeps a null start.
func (r *SQLRoutingRepository) MarkCompleted(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error {
	return r.update(ctx, tx, id, "marking routing completed",
		`UPDATE kds_order_routing SET completed_at = ?, bumped_at = ? WHERE id = ?`, at, at, id)
}

// Recall reopens a bumped routing.
func (r *SQLRoutingRepository) Recall(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error {
	return r.update(ctx, tx, id, "recalling routing",
		`UPDATE kds_order_routing SET completed_at = NULL, recalled_at = ?, recall_count = recall_count + 1 WHERE id = ?`, at, id)
}

func (r *SQLRoutingRepository) SetPriority(ctx context.Context, tx *sql.Tx, id int64, priority int) error {
	return r.update(ctx, tx, id, "setting routing priority",
		`UPDATE kds_order_routing SET priority = ? WHERE id = ?`, priority, id)
}

func (r *SQLRoutingRepository) update(ctx context.Context, tx *sql.Tx, id int64, op, query string, args ...any) error {
	result, err := tx.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("routing %d not found", id))
	}

	return nil
}

// DeleteCompletedBefore removes routings completed before cutoff and
// returns how many were deleted.
func (r *SQLRoutingRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM kds_order_routing WHERE completed_at IS NOT NULL AND completed_at < ?`

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting completed routings: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	return n, nil
}
