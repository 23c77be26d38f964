package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const retryDelay = time.Second

// Open connects to dsn, waiting for the database to come up, and applies the
// dialect schema.
func Open(ctx context.Context, d Dialect, dsn string, attempts int, log logrus.FieldLogger) (*sql.DB, error) {
	if attempts < 1 {
		attempts = 1
	}
	conn, err := sql.Open(d.Driver, d.DSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}
	if d.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(d.MaxOpenConns)
	}

	for i := 1; ; i++ {
		err = conn.PingContext(ctx)
		if err == nil {
			break
		}
		if i == attempts {
			conn.Close()
			return nil, fmt.Errorf("ping %s after %d attempts: %w", d.Name, attempts, err)
		}
		log.WithError(err).Warnf("Waiting for database... (%d/%d)", i, attempts)
		select {
		case <-ctx.Done():
			conn.Close()
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	if err := InitSchema(ctx, conn, d); err != nil {
		conn.Close()
		return nil, err
	}
	log.WithField("driver", d.Name).Info("database ready")
	return conn, nil
}

func InitSchema(ctx context.Context, conn *sql.DB, d Dialect) error {
	for _, stmt := range d.Schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
