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

type SQLStationRepository struct {
	db *database.DB
}

func NewSQLStationRepository(db *database.DB) *SQLStationRepository {
	return &SQLStationRepository{db: db}
}

const stationColumns = `id, name, type, color, display_order, is_active`

func scanStation(s rowScanner) (domain.Station, error) {
	var st domain.Station
	err := s.Scan(&st.ID, &st.Name, &st.Type, &st.Color, &st.DisplayOrder, &st.IsActive)
	return st, err
}

// FindAll returns active stations in display order.
func (r *SQLStationRepository) FindAll(ctx context.Context) ([]domain.Station, error) {
	query := `
		SELECT ` + stationColumns + `
		FROM kds_stations
		WHERE is_active = ?
		ORDER BY display_order, id
	`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), true)
	if err != nil {
		return nil, fmt.Errorf("querying stations: %w", err)
	}
	defer rows.Close()

	stations := []domain.Station{}
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning station: %w", err)
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stations: %w", err)
	}

	return stations, nil
}

func (r *SQLStationRepository) FindByID(ctx context.Context, id int64) (*domain.Station, error) {
	query := `SELECT ` + stationColumns + ` FROM kds_stations WHERE id = ?`

	st, err := scanStation(r.db.QueryRowContext(ctx, r.db.Rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("station %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying station by id: %w", err)
	}

	return &st, nil
}

// FindByName matches a station by name or type, ignoring case.
func (r *SQLStationRepository) FindByName(ctx context.Context, name string) (*domain.Station, error) {
	query := `
		SELECT ` + stationColumns + `
		FROM kds_stations
		WHERE LOWER(name) = LOWER(?) OR LOWER(type) = LOWER(?)
		ORDER BY display_order, id
		LIMIT 1
	`

	st, err := scanStation(r.db.QueryRowContext(ctx, r.db.Rebind(query), name, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("station %q not found", name))
	}
	if err != nil {
		return nil, fmt.Errorf("querying station by name: %w", err)
	}

	return &st, nil
}
