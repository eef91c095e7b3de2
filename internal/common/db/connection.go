package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goroute-booking/internal/common/logger"
	_ "github.com/lib/pq"
)

type DB struct {
	conn   *sql.DB
	logger logger.Logger
}

func New(ctx context.Context, connStr string, logger logger.Logger) (*DB, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A client process needs very few connections.
	conn.SetMaxOpenConns(2)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("Database connection established")

	return &DB{
		conn:   conn,
		logger: logger,
	}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// DB exposes the underlying handle for stores
func (db *DB) DB() *sql.DB {
	return db.conn
}

// Logger returns the logger instance
func (db *DB) Logger() logger.Logger {
	return db.logger
}
