package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"plate/internal/infrastructure/database"
)

// SetupTestDB opens the integration database and skips the test when it is
// not reachable. TEST_DB_DRIVER selects mysql (default) or postgres; both
// expect a database named plate_test on localhost.
func SetupTestDB(t *testing.T) *database.DB {
	t.Helper()

	dialect := database.Dialect(os.Getenv("TEST_DB_DRIVER"))
	if dialect == "" {
		dialect = database.MySQL
	}

	driver, dsn := "mysql", "root:@tcp(localhost:3306)/plate_test?parseTime=true&loc=UTC&clientFoundRows=true"
	if dialect == database.Postgres {
		driver, dsn = "pgx", "host=localhost port=5432 user=postgres dbname=plate_test sslmode=disable"
	}
	if v := os.Getenv("TEST_DB_DSN"); v != "" {
		dsn = v
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("test database not available: %v", err)
	}

	return &database.DB{DB: db, Dialect: dialect}
}

// CleanupTestDB empties the tables and closes the connection.
func CleanupTestDB(t *testing.T, db *database.DB) {
	if db == nil {
		return
	}

	tables := []string{"kds_order_routing", "orders", "seats", "tables", "kds_stations"}
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

var mysqlSchema = []struct{ name, query string }{
	{"kds_stations", `
	CREATE TABLE IF NOT EXISTS kds_stations (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		type VARCHAR(50) NOT NULL,
		color VARCHAR(20) NOT NULL DEFAULT '',
		display_order INT NOT NULL DEFAULT 0,
		is_active TINYINT(1) NOT NULL DEFAULT 1
	)`},
	{"tables", `
	CREATE TABLE IF NOT EXISTS tables (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		label VARCHAR(50) NOT NULL
	)`},
	{"seats", `
	CREATE TABLE IF NOT EXISTS seats (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		table_id BIGINT NOT NULL,
		seat_number INT NOT NULL
	)`},
	{"orders", `
	CREATE TABLE IF NOT EXISTS orders (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		table_id BIGINT NULL,
		seat_id BIGINT NULL,
		resident_id VARCHAR(64) NULL,
		server_id VARCHAR(64) NULL,
		items TEXT NOT NULL,
		transcript TEXT NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'new',
		type VARCHAR(20) NOT NULL DEFAULT 'food',
		created_at DATETIME(6) NOT NULL,
		INDEX idx_status (status)
	)`},
	{"kds_order_routing", `
	CREATE TABLE IF NOT EXISTS kds_order_routing (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		station_id BIGINT NOT NULL,
		routed_at DATETIME(6) NULL,
		started_at DATETIME(6) NULL,
		completed_at DATETIME(6) NULL,
		bumped_at DATETIME(6) NULL,
		recalled_at DATETIME(6) NULL,
		priority INT NOT NULL DEFAULT 50,
		recall_count INT NOT NULL DEFAULT 0,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
		INDEX idx_station (station_id),
		INDEX idx_completed (completed_at)
	)`},
}

var postgresSchema = []struct{ name, query string }{
	{"kds_stations", `
	CREATE TABLE IF NOT EXISTS kds_stations (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		display_order INT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`},
	{"tables", `
	CREATE TABLE IF NOT EXISTS tables (
		id BIGSERIAL PRIMARY KEY,
		label TEXT NOT NULL
	)`},
	{"seats", `
	CREATE TABLE IF NOT EXISTS seats (
		id BIGSERIAL PRIMARY KEY,
		table_id BIGINT NOT NULL,
		seat_number INT NOT NULL
	)`},
	{"orders", `
	CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		table_id BIGINT NULL,
		seat_id BIGINT NULL,
		resident_id TEXT NULL,
		server_id TEXT NULL,
		items TEXT NOT NULL,
		transcript TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'new',
		type TEXT NOT NULL DEFAULT 'food',
		created_at TIMESTAMPTZ NOT NULL
	)`},
	{"kds_order_routing", `
	CREATE TABLE IF NOT EXISTS kds_order_routing (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		station_id BIGINT NOT NULL,
		routed_at TIMESTAMPTZ NULL,
		started_at TIMESTAMPTZ NULL,
		completed_at TIMESTAMPTZ NULL,
		bumped_at TIMESTAMPTZ NULL,
		recalled_at TIMESTAMPTZ NULL,
		priority INT NOT NULL DEFAULT 50,
		recall_count INT NOT NULL DEFAULT 0
	)`},
}

// SetupTestTables creates the schema the repositories expect.
func SetupTestTables(t *testing.T, db *database.DB) {
	schema := mysqlSchema
	if db.Dialect == database.Postgres {
		schema = postgresSchema
	}

	for _, tbl := range schema {
		if _, err := db.Exec(tbl.query); err != nil {
			t.Logf("failed to create table %s: %v", tbl.name, err)
		}
	}
}

// InsertStation seeds one station and returns its id.
func InsertStation(t *testing.T, db *database.DB, name, typ string, displayOrder int) int64 {
	t.Helper()
	id, err := db.InsertReturningID(t.Context(), db,
		`INSERT INTO kds_stations (name, type, color, display_order, is_active) VALUES (?, ?, ?, ?, ?)`,
		name, typ, "#ff0000", displayOrder, true)
	if err != nil {
		t.Fatalf("failed to insert station: %v", err)
	}
	return id
}

// Now is a database-friendly timestamp with microsecond precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
