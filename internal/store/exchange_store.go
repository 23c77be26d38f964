package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ExchangeQuotesService/internal/clock"
	"ExchangeQuotesService/internal/db"
	"ExchangeQuotesService/internal/model"

	"github.com/google/uuid"
)

const (
	exchangeColumns = `id, from_currency, to_currency, amount, rate, expiration, user_id, redeemed_at, created_at, updated_at`

	insertExchangeQuery = `INSERT INTO exchanges (` + exchangeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	getExchangeQuery    = `SELECT ` + exchangeColumns + ` FROM exchanges WHERE id = ?`
	updateExpiryQuery   = `UPDATE exchanges SET expiration = ?, updated_at = ? WHERE id = ?`
	markRedeemedQuery   = `UPDATE exchanges SET redeemed_at = ?, updated_at = ? WHERE id = ? AND redeemed_at IS NULL`
	insertSellQuery     = `INSERT INTO sell_orders (id, exchange_id, from_currency, to_currency, amount, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// ExchangeStore persists quotes and the sell orders that consume them.
type ExchangeStore struct {
	conn    *sql.DB
	dialect db.Dialect
	clock   clock.Clock

	insertStmt  *sql.Stmt
	getByIDStmt *sql.Stmt
}

func NewExchangeStore(conn *sql.DB, dialect db.Dialect, clk clock.Clock) (*ExchangeStore, error) {
	insertStmt, err := conn.Prepare(dialect.Rebind(insertExchangeQuery))
	if err != nil {
		return nil, fmt.Errorf("prepare insert exchange: %w", err)
	}
	getByIDStmt, err := conn.Prepare(dialect.Rebind(getExchangeQuery))
	if err != nil {
		insertStmt.Close()
		return nil, fmt.Errorf("prepare get exchange: %w", err)
	}
	return &ExchangeStore{
		conn:        conn,
		dialect:     dialect,
		clock:       clk,
		insertStmt:  insertStmt,
		getByIDStmt: getByIDStmt,
	}, nil
}

func (s *ExchangeStore) Close() error {
	return errors.Join(s.insertStmt.Close(), s.getByIDStmt.Close())
}

func (s *ExchangeStore) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func (s *ExchangeStore) Create(ctx context.Context, ne model.NewExchange) (model.Exchange, error) {
	now := s.now()
	e := model.Exchange{
		ID:         ne.ID,
		From:       ne.From,
		To:         ne.To,
		Amount:     ne.Amount,
		Rate:       ne.Rate,
		Expiration: ne.Expiration.UTC().Truncate(time.Microsecond),
		UserID:     ne.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := s.insertStmt.ExecContext(ctx,
		e.ID, e.From, e.To, e.Amount, e.Rate, e.Expiration, e.UserID, nil, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return model.Exchange{}, fmt.Errorf("%w: exchange %s already exists", model.ErrStorageConflict, e.ID)
		}
		return model.Exchange{}, fmt.Errorf("insert exchange %s: %w", e.ID, err)
	}
	return e, nil
}

// GetByID returns nil when no exchange has the id.
func (s *ExchangeStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Exchange, error) {
	e, err := scanExchange(s.getByIDStmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get exchange %s: %w", id, err)
	}
	return &e, nil
}

// Get returns the exchange only if it is still redeemable for g, nil otherwise.
func (s *ExchangeStore) Get(ctx context.Context, g model.GetExchange) (*model.Exchange, error) {
	e, err := s.GetByID(ctx, g.ID)
	if err != nil || e == nil {
		return nil, err
	}
	if !g.Matches(*e, s.now()) {
		return nil, nil
	}
	return e, nil
}

// UpdateExpiration moves the expiration of id forward to t.
func (s *ExchangeStore) UpdateExpiration(ctx context.Context, id uuid.UUID, t time.Time) (model.Exchange, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return model.Exchange{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	e, err := s.lockExchange(ctx, tx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Exchange{}, fmt.Errorf("%w: exchange %s", model.ErrNotFound, id)
	}
	if err != nil {
		return model.Exchange{}, err
	}

	t = t.UTC().Truncate(time.Microsecond)
	if t.Before(e.Expiration) {
		return model.Exchange{}, fmt.Errorf("%w: %s is before current expiration %s of exchange %s",
			model.ErrInvalidExpiration, t.Format(time.RFC3339), e.Expiration.Format(time.RFC3339), id)
	}

	now := s.now()
	if _, err := tx.ExecContext(ctx, s.dialect.Rebind(updateExpiryQuery), t, now, id); err != nil {
		return model.Exchange{}, fmt.Errorf("update expiration of %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Exchange{}, fmt.Errorf("commit expiration of %s: %w", id, err)
	}
	e.Expiration = t
	e.UpdatedAt = now
	return e, nil
}

// Redeem consumes the exchange described by req and records the sell order,
// both in one transaction. A quote can be redeemed at most once.
func (s *ExchangeStore) Redeem(ctx context.Context, req model.CreateSellOrder, userID uuid.UUID) (model.SellOrder, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return model.SellOrder{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	e, err := s.lockExchange(ctx, tx, req.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SellOrder{}, fmt.Errorf("%w: exchange %s", model.ErrQuoteNotFound, req.ID)
	}
	if err != nil {
		return model.SellOrder{}, err
	}
	if e.Redeemed() {
		return model.SellOrder{}, fmt.Errorf("%w: exchange %s", model.ErrAlreadyRedeemed, req.ID)
	}

	now := s.now()
	if !req.GetExchange().Matches(e, now) {
		return model.SellOrder{}, fmt.Errorf("%w: exchange %s", model.ErrQuoteNotFound, req.ID)
	}

	res, err := tx.ExecContext(ctx, s.dialect.Rebind(markRedeemedQuery), now, now, req.ID)
	if err != nil {
		return model.SellOrder{}, fmt.Errorf("redeem exchange %s: %w", req.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.SellOrder{}, fmt.Errorf("redeem exchange %s: %w", req.ID, err)
	}
	if n != 1 {
		return model.SellOrder{}, fmt.Errorf("%w: exchange %s", model.ErrAlreadyRedeemed, req.ID)
	}

	order := model.SellOrder{
		ID:         uuid.New(),
		ExchangeID: e.ID,
		From:       e.From,
		To:         e.To,
		Amount:     req.ActualAmount,
		UserID:     userID,
		CreatedAt:  now,
	}
	_, err = tx.ExecContext(ctx, s.dialect.Rebind(insertSellQuery),
		order.ID, order.ExchangeID, order.From, order.To, order.Amount, order.UserID, order.CreatedAt)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return model.SellOrder{}, fmt.Errorf("%w: exchange %s", model.ErrAlreadyRedeemed, req.ID)
		}
		return model.SellOrder{}, fmt.Errorf("insert sell order for %s: %w", req.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return model.SellOrder{}, fmt.Errorf("commit redemption of %s: %w", req.ID, err)
	}
	return order, nil
}

func (s *ExchangeStore) lockExchange(ctx context.Context, tx *sql.Tx, id uuid.UUID) (model.Exchange, error) {
	e, err := scanExchange(tx.QueryRowContext(ctx, s.dialect.Rebind(getExchangeQuery+s.dialect.LockClause), id))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.Exchange{}, fmt.Errorf("lock exchange %s: %w", id, err)
	}
	return e, err
}

func scanExchange(row *sql.Row) (model.Exchange, error) {
	var (
		e          model.Exchange
		redeemedAt sql.NullTime
	)
	err := row.Scan(&e.ID, &e.From, &e.To, &e.Amount, &e.Rate, &e.Expiration, &e.UserID, &redeemedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return model.Exchange{}, err
	}
	e.Expiration = e.Expiration.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	if redeemedAt.Valid {
		t := redeemedAt.Time.UTC()
		e.RedeemedAt = &t
	}
	return e, nil
}
