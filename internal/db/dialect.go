package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures what differs between the supported SQL backends.
type Dialect struct {
	Name   string
	Driver string
	Schema []string
	// LockClause is appended to a SELECT to lock the returned rows for the transaction.
	LockClause string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// MaxOpenConns caps the pool, zero means unlimited.
	MaxOpenConns int
	// DSNParams are query parameters the driver applies to every new connection.
	DSNParams string
}

var Postgres = Dialect{
	Name:        "postgres",
	Driver:      "postgres",
	LockClause:  " FOR UPDATE",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS exchanges (
			id UUID PRIMARY KEY,
			from_currency TEXT NOT NULL,
			to_currency TEXT NOT NULL,
			amount NUMERIC(78, 0) NOT NULL CHECK (amount >= 0),
			rate DOUBLE PRECISION NOT NULL,
			expiration TIMESTAMPTZ NOT NULL,
			user_id UUID NOT NULL,
			redeemed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS exchanges_user_id_idx ON exchanges (user_id)`,
		`CREATE TABLE IF NOT EXISTS sell_orders (
			id UUID PRIMARY KEY,
			exchange_id UUID NOT NULL UNIQUE REFERENCES exchanges (id),
			from_currency TEXT NOT NULL,
			to_currency TEXT NOT NULL,
			amount NUMERIC(78, 0) NOT NULL CHECK (amount >= 0),
			user_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	},
}

// SQLite serializes writers through a single connection, so a transaction
// already holds the database lock and no row locking clause is needed.
var SQLite = Dialect{
	Name:         "sqlite",
	Driver:       "sqlite",
	LockClause:   "",
	Placeholder:  func(int) string { return "?" },
	MaxOpenConns: 1,
	DSNParams:    "_pragma=foreign_keys(1)",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS exchanges (
			id TEXT PRIMARY KEY,
			from_currency TEXT NOT NULL,
			to_currency TEXT NOT NULL,
			amount TEXT NOT NULL,
			rate REAL NOT NULL,
			expiration TIMESTAMP NOT NULL,
			user_id TEXT NOT NULL,
			redeemed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS exchanges_user_id_idx ON exchanges (user_id)`,
		`CREATE TABLE IF NOT EXISTS sell_orders (
			id TEXT PRIMARY KEY,
			exchange_id TEXT NOT NULL UNIQUE REFERENCES exchanges (id),
			from_currency TEXT NOT NULL,
			to_currency TEXT NOT NULL,
			amount TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	},
}

func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DSN appends the dialect's connection parameters to dsn.
func (d Dialect) DSN(dsn string) string {
	if d.DSNParams == "" {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + d.DSNParams
}

// Rebind rewrites ? placeholders into the dialect's form. Queries must not
// contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if d.Placeholder == nil {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteString(d.Placeholder(n))
	}
	return b.String()
}

// IsUniqueViolation reports whether err came from a primary key or unique constraint.
func (d Dialect) IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}
