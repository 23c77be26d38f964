package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"ExchangeQuotesService/internal/clock"
	"ExchangeQuotesService/internal/db"
	"ExchangeQuotesService/internal/model"
	"ExchangeQuotesService/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var testLimits = model.Limits{
	model.BTC: {Min: 0.001, Max: 10},
	model.ETH: {Min: 0.1, Max: 100},
	model.STQ: {Min: 1, Max: 1_000_000},
}

type fakeRates struct {
	rate  float64
	err   error
	calls int
}

func (f *fakeRates) GetRate(ctx context.Context, from, to model.Currency) (float64, error) {
	f.calls++
	return f.rate, f.err
}

func newTestService(t *testing.T, rates RateSource) (*ExchangeService, *clock.Manual) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	conn, err := db.Open(context.Background(), db.SQLite, filepath.Join(t.TempDir(), "svc.db"), 1, log)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	clk := clock.NewManual(t0)
	st, err := store.NewExchangeStore(conn, db.SQLite, clk)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewExchangeService(st, rates, testLimits, 60*time.Second, clk), clk
}

func ethAmount(t *testing.T, f float64) model.Amount {
	t.Helper()
	a, err := model.ETH.FromFloat(f)
	require.NoError(t, err)
	return a
}

func TestExchangeService_QuoteAndSell(t *testing.T) {
	svc, clk := newTestService(t, &fakeRates{rate: 0.05})
	ctx := context.Background()
	user := uuid.New()
	amount := ethAmount(t, 1.5)

	e, err := svc.GetRate(ctx, user, model.GetRate{From: model.ETH, To: model.BTC, Amount: amount})
	require.NoError(t, err)
	assert.Equal(t, 0.05, e.Rate)
	assert.True(t, e.Amount.Equal(amount))
	assert.Equal(t, "1500000000000000000", e.Amount.String())
	assert.True(t, e.Expiration.Equal(t0.Add(60*time.Second)))
	assert.Equal(t, user, e.UserID)
	assert.Equal(t, model.StateIssued, e.State(svc.Now()))

	clk.Advance(30 * time.Second)
	req := model.CreateSellOrder{ID: e.ID, From: model.ETH, To: model.BTC, ActualAmount: amount}
	order, err := svc.Sell(ctx, user, req)
	require.NoError(t, err)
	assert.Equal(t, e.ID, order.ExchangeID)
	assert.True(t, order.Amount.Equal(amount))

	_, err = svc.Sell(ctx, user, req)
	require.ErrorIs(t, err, model.ErrAlreadyRedeemed)

	got, err := svc.GetExchange(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateRedeemed, got.State(svc.Now()))
}

func TestExchangeService_SellAfterExpiry(t *testing.T) {
	svc, clk := newTestService(t, &fakeRates{rate: 0.05})
	ctx := context.Background()
	amount := ethAmount(t, 1.5)

	e, err := svc.GetRate(ctx, uuid.New(), model.GetRate{From: model.ETH, To: model.BTC, Amount: amount})
	require.NoError(t, err)

	clk.Advance(61 * time.Second)
	_, err = svc.Sell(ctx, uuid.New(), model.CreateSellOrder{ID: e.ID, From: model.ETH, To: model.BTC, ActualAmount: amount})
	require.ErrorIs(t, err, model.ErrQuoteNotFound)

	got, err := svc.GetExchange(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateExpired, got.State(svc.Now()))
}

func TestExchangeService_RefreshAndExtend(t *testing.T) {
	svc, clk := newTestService(t, &fakeRates{rate: 0.05})
	ctx := context.Background()
	amount := ethAmount(t, 1.5)

	e, err := svc.GetRate(ctx, uuid.New(), model.GetRate{From: model.ETH, To: model.BTC, Amount: amount})
	require.NoError(t, err)

	clk.Advance(50 * time.Second)
	refreshed, err := svc.Refresh(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.Expiration.Equal(t0.Add(110*time.Second)))

	_, err = svc.Extend(ctx, e.ID, t0.Add(100*time.Second))
	require.ErrorIs(t, err, model.ErrInvalidExpiration)

	extended, err := svc.Extend(ctx, e.ID, t0.Add(10*time.Minute))
	require.NoError(t, err)
	assert.True(t, extended.Expiration.Equal(t0.Add(10*time.Minute)))

	clk.Advance(5 * time.Minute)
	_, err = svc.Sell(ctx, uuid.New(), model.CreateSellOrder{ID: e.ID, From: model.ETH, To: model.BTC, ActualAmount: amount})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, uuid.New())
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestExchangeService_GetRateValidation(t *testing.T) {
	rates := &fakeRates{rate: 0.05}
	svc, _ := newTestService(t, rates)
	ctx := context.Background()

	_, err := svc.GetRate(ctx, uuid.New(), model.GetRate{From: model.ETH, To: model.ETH, Amount: ethAmount(t, 1)})
	require.ErrorIs(t, err, model.ErrInvalidCurrency)

	_, err = svc.GetRate(ctx, uuid.New(), model.GetRate{From: model.ETH, To: model.BTC, Amount: ethAmount(t, 0.01)})
	require.ErrorIs(t, err, model.ErrValidation)
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "amount", verr.Errors[0].Field)

	assert.Equal(t, 0, rates.calls, "invalid requests must not reach the rate source")
}

func TestExchangeService_SellValidatesActualAmount(t *testing.T) {
	svc, _ := newTestService(t, &fakeRates{rate: 0.05})

	_, err := svc.Sell(context.Background(), uuid.New(), model.CreateSellOrder{
		ID: uuid.New(), From: model.ETH, To: model.BTC, ActualAmount: ethAmount(t, 500),
	})
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "actual_amount", verr.Errors[0].Field)
}

func TestExchangeService_RateFailures(t *testing.T) {
	tests := []struct {
		name  string
		rates *fakeRates
	}{
		{"source error", &fakeRates{err: errors.New("timeout")}},
		{"zero rate", &fakeRates{rate: 0}},
		{"negative rate", &fakeRates{rate: -0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, tt.rates)
			_, err := svc.GetRate(context.Background(), uuid.New(), model.GetRate{From: model.ETH, To: model.BTC, Amount: ethAmount(t, 1)})
			require.ErrorIs(t, err, model.ErrRateUnavailable)
		})
	}
}

func TestExchangeService_GetExchangeMissing(t *testing.T) {
	svc, _ := newTestService(t, &fakeRates{rate: 0.05})
	_, err := svc.GetExchange(context.Background(), uuid.New())
	require.ErrorIs(t, err, model.ErrNotFound)
}

type mockStore struct {
	CreateFunc  func(ctx context.Context, ne model.NewExchange) (model.Exchange, error)
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*model.Exchange, error)
}

func (m *mockStore) Create(ctx context.Context, ne model.NewExchange) (model.Exchange, error) {
	return m.CreateFunc(ctx, ne)
}

func (m *mockStore) Get(ctx context.Context, g model.GetExchange) (*model.Exchange, error) {
	return nil, nil
}

func (m *mockStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Exchange, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockStore) UpdateExpiration(ctx context.Context, id uuid.UUID, t time.Time) (model.Exchange, error) {
	return model.Exchange{}, nil
}

func (m *mockStore) Redeem(ctx context.Context, req model.CreateSellOrder, userID uuid.UUID) (model.SellOrder, error) {
	return model.SellOrder{}, nil
}

func TestExchangeService_StoreErrorsPropagate(t *testing.T) {
	boom := errors.New("disk full")
	st := &mockStore{
		CreateFunc: func(ctx context.Context, ne model.NewExchange) (model.Exchange, error) {
			return model.Exchange{}, boom
		},
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*model.Exchange, error) {
			return nil, boom
		},
	}
	svc := NewExchangeService(st, &fakeRates{rate: 0.05}, testLimits, time.Minute, clock.NewManual(t0))

	_, err := svc.GetRate(context.Background(), uuid.New(), model.GetRate{From: model.ETH, To: model.BTC, Amount: ethAmount(t, 1)})
	require.ErrorIs(t, err, boom)

	_, err = svc.GetExchange(context.Background(), uuid.New())
	require.ErrorIs(t, err, boom)
}
