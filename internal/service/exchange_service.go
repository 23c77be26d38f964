package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"ExchangeQuotesService/internal/clock"
	"ExchangeQuotesService/internal/model"

	"github.com/google/uuid"
)

type RateSource interface {
	GetRate(ctx context.Context, from, to model.Currency) (float64, error)
}

type ExchangeStore interface {
	Create(ctx context.Context, ne model.NewExchange) (model.Exchange, error)
	Get(ctx context.Context, g model.GetExchange) (*model.Exchange, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exchange, error)
	UpdateExpiration(ctx context.Context, id uuid.UUID, t time.Time) (model.Exchange, error)
	Redeem(ctx context.Context, req model.CreateSellOrder, userID uuid.UUID) (model.SellOrder, error)
}

type ExchangeServiceInterface interface {
	GetRate(ctx context.Context, userID uuid.UUID, req model.GetRate) (model.Exchange, error)
	Sell(ctx context.Context, userID uuid.UUID, req model.CreateSellOrder) (model.SellOrder, error)
	GetExchange(ctx context.Context, id uuid.UUID) (model.Exchange, error)
	Extend(ctx context.Context, id uuid.UUID, expiration time.Time) (model.Exchange, error)
	Refresh(ctx context.Context, id uuid.UUID) (model.Exchange, error)
	Now() time.Time
}

// ExchangeService issues quotes and settles them into sell orders.
type ExchangeService struct {
	store  ExchangeStore
	rates  RateSource
	limits model.Limits
	ttl    time.Duration
	clock  clock.Clock
}

func NewExchangeService(store ExchangeStore, rates RateSource, limits model.Limits, ttl time.Duration, clk clock.Clock) *ExchangeService {
	return &ExchangeService{
		store:  store,
		rates:  rates,
		limits: limits,
		ttl:    ttl,
		clock:  clk,
	}
}

func (s *ExchangeService) Now() time.Time {
	return s.clock.Now()
}

// GetRate quotes req at the current upstream rate. The quote is valid for the configured TTL.
func (s *ExchangeService) GetRate(ctx context.Context, userID uuid.UUID, req model.GetRate) (model.Exchange, error) {
	if req.From == req.To {
		return model.Exchange{}, fmt.Errorf("%w: cannot exchange %s for itself", model.ErrInvalidCurrency, req.From)
	}
	if err := model.ValidateAmount("amount", req.From, req.Amount, s.limits); err != nil {
		return model.Exchange{}, err
	}

	rate, err := s.rates.GetRate(ctx, req.From, req.To)
	if err != nil {
		if !errors.Is(err, model.ErrRateUnavailable) {
			err = fmt.Errorf("%w: %w", model.ErrRateUnavailable, err)
		}
		return model.Exchange{}, err
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return model.Exchange{}, fmt.Errorf("%w: bad rate %v for %s/%s", model.ErrRateUnavailable, rate, req.From, req.To)
	}

	expiration := s.clock.Now().Add(s.ttl)
	return s.store.Create(ctx, model.NewExchangeFor(req, rate, expiration, userID))
}

// Sell redeems a live quote. A quote can be sold at most once.
func (s *ExchangeService) Sell(ctx context.Context, userID uuid.UUID, req model.CreateSellOrder) (model.SellOrder, error) {
	if err := model.ValidateAmount("actual_amount", req.From, req.ActualAmount, s.limits); err != nil {
		return model.SellOrder{}, err
	}
	return s.store.Redeem(ctx, req, userID)
}

func (s *ExchangeService) GetExchange(ctx context.Context, id uuid.UUID) (model.Exchange, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Exchange{}, err
	}
	if e == nil {
		return model.Exchange{}, fmt.Errorf("%w: exchange %s", model.ErrNotFound, id)
	}
	return *e, nil
}

func (s *ExchangeService) Extend(ctx context.Context, id uuid.UUID, expiration time.Time) (model.Exchange, error) {
	return s.store.UpdateExpiration(ctx, id, expiration)
}

// Refresh pushes the expiration of id to a full TTL from now.
func (s *ExchangeService) Refresh(ctx context.Context, id uuid.UUID) (model.Exchange, error) {
	return s.store.UpdateExpiration(ctx, id, s.clock.Now().Add(s.ttl))
}
