package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBConfig configures the relational source connection pool.
type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// driverName maps a configured driver to its database/sql registration.
func driverName(driver string) (string, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return "", err
	}
	if d == DialectSQLite {
		return SQLiteDriverName, nil
	}
	return driver, nil
}

// OpenDB opens and pings the source database.
func OpenDB(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	name, err := driverName(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: empty DSN", ErrOpen)
	}

	db, err := sql.Open(name, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure pool
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	if err := Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Ping checks connectivity with a five second ceiling.
func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping source: %w", err)
	}
	return nil
}
