package model

import (
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateIssued   State = "issued"
	StateExpired  State = "expired"
	StateRedeemed State = "redeemed"
)

// Exchange is an issued quote: a locked rate for an amount, valid until Expiration.
type Exchange struct {
	ID         uuid.UUID
	From       Currency
	To         Currency
	Amount     Amount
	Rate       float64
	Expiration time.Time
	UserID     uuid.UUID
	RedeemedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (e Exchange) Redeemed() bool {
	return e.RedeemedAt != nil
}

func (e Exchange) Expired(now time.Time) bool {
	return !now.Before(e.Expiration)
}

// State reports the lifecycle state at now. Expiry is derived, redemption is stored.
func (e Exchange) State(now time.Time) State {
	switch {
	case e.Redeemed():
		return StateRedeemed
	case e.Expired(now):
		return StateExpired
	default:
		return StateIssued
	}
}

type NewExchange struct {
	ID         uuid.UUID
	From       Currency
	To         Currency
	Amount     Amount
	Rate       float64
	Expiration time.Time
	UserID     uuid.UUID
}

func NewExchangeFor(req GetRate, rate float64, expiration time.Time, userID uuid.UUID) NewExchange {
	return NewExchange{
		ID:         uuid.New(),
		From:       req.From,
		To:         req.To,
		Amount:     req.Amount,
		Rate:       rate,
		Expiration: expiration,
		UserID:     userID,
	}
}

type GetRate struct {
	From   Currency
	To     Currency
	Amount Amount
}

// GetExchange describes a redeemable quote: the quote must cover at least ActualAmount.
type GetExchange struct {
	ID           uuid.UUID
	From         Currency
	To           Currency
	ActualAmount Amount
}

// Matches reports whether e can be redeemed for g at now.
func (g GetExchange) Matches(e Exchange, now time.Time) bool {
	return e.ID == g.ID &&
		e.From == g.From &&
		e.To == g.To &&
		e.Amount.Cmp(g.ActualAmount) >= 0 &&
		!e.Expired(now) &&
		!e.Redeemed()
}

type CreateSellOrder struct {
	ID           uuid.UUID
	From         Currency
	To           Currency
	ActualAmount Amount
}

func (c CreateSellOrder) GetExchange() GetExchange {
	return GetExchange{ID: c.ID, From: c.From, To: c.To, ActualAmount: c.ActualAmount}
}

// SellOrder is the settled result of a redemption.
type SellOrder struct {
	ID         uuid.UUID
	ExchangeID uuid.UUID
	From       Currency
	To         Currency
	Amount     Amount
	UserID     uuid.UUID
	CreatedAt  time.Time
}
