package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"venuebook/backend/internal/domain"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// IsPostgresURL reports whether databaseURL addresses Postgres; anything else is
// treated as a SQLite path or DSN.
func IsPostgresURL(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}

func Open(databaseURL string, pool PoolConfig) (*bun.DB, error) {
	if IsPostgresURL(databaseURL) {
		return openPostgres(databaseURL, pool)
	}
	return openSQLite(databaseURL)
}

func openPostgres(databaseURL string, pool PoolConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return bun.NewDB(sqlDB, pgdialect.New()), nil
}

// openSQLite pins the pool to a single connection. SQLite has one writer anyway, and
// a single connection makes every transaction serial, which is what the booking
// critical section needs without advisory locks. It also keeps :memory: databases
// alive for the lifetime of the pool.
func openSQLite(dsn string) (*bun.DB, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

func Close(db *bun.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func isPostgres(db bun.IDB) bool {
	return db.Dialect().Name() == dialect.PG
}

var models = []any{
	(*domain.Venue)(nil),
	(*domain.Service)(nil),
	(*domain.StaffMember)(nil),
	(*domain.StaffService)(nil),
	(*domain.AvailabilityRule)(nil),
	(*domain.Booking)(nil),
}

// CreateSchema creates tables from the models. Postgres deployments use migrations/;
// this is for SQLite development databases and tests.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	_, err := db.NewCreateIndex().
		Model((*domain.Booking)(nil)).
		Index("bookings_lookup_idx").
		IfNotExists().
		Column("venue_id", "service_id", "booking_date").
		Exec(ctx)
	return err
}
