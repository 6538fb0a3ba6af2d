package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"plate/internal/domain"
	apperrors "plate/internal/errors"
	"plate/internal/infrastructure/database"
)

type SQLOrderRepository struct {
	db *database.DB
}

func NewSQLOrderRepository(db *database.DB) *SQLOrderRepository {
	return &SQLOrderRepository{db: db}
}

func (r *SQLOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = ?`

	var row orderScan
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), id).Scan(row.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("Order %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	order, err := row.finish()
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *SQLOrderRepository) Insert(ctx context.Context, tx *sql.Tx, o domain.Order) (int64, error) {
	items, err := encodeItems(o.Items)
	if err != nil {
		return 0, fmt.Errorf("encoding order items: %w", err)
	}

	query := `
		INSERT INTO orders (table_id, seat_id, resident_id, server_id, items, transcript, status, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := r.db.InsertReturningID(ctx, tx, query,
		o.TableID, o.SeatID, o.ResidentID, o.ServerID, items, o.Transcript, o.Status, o.Type, o.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}

	return id, nil
}

func (r *SQLOrderRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status string) error {
	query := `UPDATE orders SET status = ? WHERE id = ?`

	result, err := tx.ExecContext(ctx, r.db.Rebind(query), status, id)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("Order %d not found", id))
	}

	return nil
}

// FindByIDForUpdate locks the order row for the rest of tx.
func (r *SQLOrderRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = ? FOR UPDATE`

	var row orderScan
	err := tx.QueryRowContext(ctx, r.db.Rebind(query), id).Scan(row.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("Order %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order for update: %w", err)
	}

	order, err := row.finish()
	if err != nil {
		return nil, err
	}
	return &order, nil
}
