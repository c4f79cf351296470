// Package db opens the relational database used by the SQL graph store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// Open connects to dbURL with the named driver and verifies the connection.
func Open(ctx context.Context, driver, dbURL string) (*sql.DB, error) {
	if driver != Postgres && driver != SQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if dbURL == "" {
		return nil, fmt.Errorf("DB_URL is not set")
	}

	log := logrus.WithField("driver", driver)
	db, err := sql.Open(driver, dbURL)
	if err != nil {
		log.WithError(err).Error("failed opening database connection")
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == SQLite {
		// A single connection keeps ":memory:" databases shared and avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
		}
		for _, p := range pragmas {
			if _, err := db.ExecContext(ctx, p); err != nil {
				db.Close()
				return nil, fmt.Errorf("pragma failed: %w", err)
			}
		}
	} else {
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		log.WithError(err).Error("database ping failed")
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Info("database connection established")
	return db, nil
}
