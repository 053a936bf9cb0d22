// Package mariadb reads reference faces straight from a PhotoPrism MariaDB.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// connectTimeout bounds the initial ping; the profile is read once at startup.
const connectTimeout = 10 * time.Second

// Open connects to the PhotoPrism database and returns a marker reader.
// The caller closes the reader once the profile is loaded.
func Open(ctx context.Context, dsn string) (*MarkerReader, error) {
	if dsn == "" {
		return nil, errors.New("PhotoPrism MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open PhotoPrism MariaDB: %w", err)
	}
	// Loading is a handful of sequential queries.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping PhotoPrism MariaDB: %w", err)
	}

	return &MarkerReader{db: db}, nil
}

// Close releases the connection pool.
func (r *MarkerReader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close PhotoPrism MariaDB: %w", err)
	}
	return nil
}
