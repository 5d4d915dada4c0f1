package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/noah-isme/geophoto-api/pkg/config"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know as a '?' driver.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// NewSQLite opens the local database file used by the device agent.
func NewSQLite(cfg config.SQLiteConfig) (*sqlx.DB, error) {
	path := cfg.Path
	if path == "" {
		path = "./geophoto.db"
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := ping(db); err != nil {
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	return db, nil
}
