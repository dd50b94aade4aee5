package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Pool sizing for the record store. Traffic is a handful of staff sessions
// plus one cron scan and the occasional CSV import; idle connections drain
// between the daily scans.
const (
	recordPoolMaxOpen     = 10
	recordPoolMaxIdle     = 5
	recordPoolConnMaxLife = 30 * time.Minute
	recordPoolConnMaxIdle = 5 * time.Minute
)

// NewPostgresConnection opens the ELBP record store and verifies it is
// reachable before handing the pool out.
func NewPostgresConnection(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(recordPoolMaxOpen)
	db.SetMaxIdleConns(recordPoolMaxIdle)
	db.SetConnMaxLifetime(recordPoolConnMaxLife)
	db.SetConnMaxIdleTime(recordPoolConnMaxIdle)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
