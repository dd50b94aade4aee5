package mis

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	defaultMaxOpenConns = 5
	defaultConnLifetime = 5 * time.Minute
)

// Connect opens the external MIS database. The connection is read-only by
// convention: only the configured view is ever queried.
func Connect(driver, dataSourceName string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MIS database: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetConnMaxLifetime(defaultConnLifetime)
	return db, nil
}
