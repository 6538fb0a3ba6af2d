package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plate/internal/domain"
	apperrors "plate/internal/errors"
	"plate/internal/infrastructure/database"
	"plate/internal/testutil"
)

func inTx(t *testing.T, db *database.DB, fn func(tx *sql.Tx)) {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	defer tx.Rollback()
	fn(tx)
	require.NoError(t, tx.Commit())
}

func insertRouting(t *testing.T, db *database.DB, orderID, stationID int64, routedAt time.Time) int64 {
	t.Helper()
	repo := NewSQLRoutingRepository(db)
	var id int64
	inTx(t, db, func(tx *sql.Tx) {
		var err error
		id, err = repo.Insert(context.Background(), tx, domain.OrderRouting{
			OrderID:   orderID,
			StationID: stationID,
			RoutedAt:  &routedAt,
			Priority:  domain.DefaultPriority,
		})
		require.NoError(t, err)
	})
	return id
}

func TestRoutingRepository_FindActiveAndByStation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	grill := testutil.InsertStation(t, db, "Grill", domain.StationGrill, 1)
	bar := testutil.InsertStation(t, db, "Bar", domain.StationBar, 2)

	tableID, err := db.InsertReturningID(context.Background(), db, `INSERT INTO tables (label) VALUES (?)`, "T7")
	require.NoError(t, err)
	seatID, err := db.InsertReturningID(context.Background(), db, `INSERT INTO seats (table_id, seat_number) VALUES (?, ?)`, tableID, 3)
	require.NoError(t, err)

	now := testutil.Now()
	active := insertOrder(t, db, domain.Order{TableID: &tableID, SeatID: &seatID, Items: []string{"steak", "wine"}, Status: domain.OrderStatusNew, Type: domain.OrderTypeFood, CreatedAt: now})
	delivered := insertOrder(t, db, domain.Order{Items: []string{"soup"}, Status: domain.OrderStatusDelivered, Type: domain.OrderTypeFood, CreatedAt: now})

	r1 := insertRouting(t, db, active, grill, now)
	r2 := insertRouting(t, db, active, bar, now)
	insertRouting(t, db, delivered, grill, now)

	repo := NewSQLRoutingRepository(db)

	views, err := repo.FindActive(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, r1, views[0].Routing.ID)
	assert.Equal(t, "Grill", views[0].StationName)
	assert.Equal(t, domain.StationGrill, views[0].StationType)
	assert.Equal(t, "T7", views[0].TableLabel)
	assert.Equal(t, 3, views[0].SeatNumber)
	assert.Equal(t, []string{"steak", "wine"}, views[0].Order.Items)
	assert.Equal(t, domain.DefaultPriority, views[0].Routing.Priority)
	require.NotNil(t, views[0].Routing.RoutedAt)
	assert.Nil(t, views[0].Routing.StartedAt)

	byStation, err := repo.FindByStation(context.Background(), bar)
	require.NoError(t, err)
	require.Len(t, byStation, 1)
	assert.Equal(t, r2, byStation[0].Routing.ID)
}

func TestRoutingRepository_Lifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	grill := testutil.InsertStation(t, db, "Grill", domain.StationGrill, 1)
	now := testutil.Now()
	orderID := insertOrder(t, db, domain.Order{Items: []string{"burger"}, Status: domain.OrderStatusNew, Type: domain.OrderTypeFood, CreatedAt: now})
	id := insertRouting(t, db, orderID, grill, now)

	repo := NewSQLRoutingRepository(db)
	ctx := context.Background()

	started := now.Add(time.Minute)
	completed := now.Add(5 * time.Minute)
	recalled := now.Add(6 * time.Minute)

	inTx(t, db, func(tx *sql.Tx) {
		locked, err := repo.FindByIDForUpdate(ctx, tx, id)
		require.NoError(t, err)
		assert.Equal(t, orderID, locked.OrderID)

		require.NoError(t, repo.MarkStarted(ctx, tx, id, started))
		require.NoError(t, repo.MarkCompleted(ctx, tx, id, completed))
		require.NoError(t, repo.SetPriority(ctx, tx, id, 80))
	})

	rt, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rt.StartedAt)
	require.NotNil(t, rt.CompletedAt)
	require.NotNil(t, rt.BumpedAt)
	assert.True(t, completed.Equal(rt.CompletedAt.UTC()))
	assert.Equal(t, 80, rt.Priority)

	inTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.Recall(ctx, tx, id, recalled))
	})

	rt, err = repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rt.CompletedAt)
	require.NotNil(t, rt.RecalledAt)
	assert.Equal(t, 1, rt.RecallCount)

	routings, err := repo.FindByOrderID(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, routings, 1)
	assert.Equal(t, id, routings[0].ID)

	inTx(t, db, func(tx *sql.Tx) {
		err := repo.MarkStarted(ctx, tx, 987654, started)
		_, ok := apperrors.IsNotFoundError(err)
		assert.True(t, ok)
	})
}

func TestRoutingRepository_DeleteCompletedBefore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	grill := testutil.InsertStation(t, db, "Grill", domain.StationGrill, 1)
	now := testutil.Now()
	orderID := insertOrder(t, db, domain.Order{Items: []string{"burger"}, Status: domain.OrderStatusReady, Type: domain.OrderTypeFood, CreatedAt: now})

	old := insertRouting(t, db, orderID, grill, now.Add(-96*time.Hour))
	recent := insertRouting(t, db, orderID, grill, now)
	open := insertRouting(t, db, orderID, grill, now.Add(-96*time.Hour))

	repo := NewSQLRoutingRepository(db)
	inTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.MarkCompleted(context.Background(), tx, old, now.Add(-95*time.Hour)))
		require.NoError(t, repo.MarkCompleted(context.Background(), tx, recent, now))
	})

	n, err := repo.DeleteCompletedBefore(context.Background(), now.Add(-72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.FindByID(context.Background(), old)
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)

	for _, id := range []int64{recent, open} {
		_, err := repo.FindByID(context.Background(), id)
		assert.NoError(t, err)
	}
}
