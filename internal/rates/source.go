package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ExchangeQuotesService/internal/model"

	"golang.org/x/time/rate"
)

// Source returns how many units of to one unit of from buys.
type Source interface {
	GetRate(ctx context.Context, from, to model.Currency) (float64, error)
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// HTTPSource reads rates from an upstream exposing GET /rates?base=XXX.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPSource(baseURL string, timeout time.Duration, requestsPerSecond float64, burst int) *HTTPSource {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (s *HTTPSource) GetRate(ctx context.Context, from, to model.Currency) (float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", model.ErrRateUnavailable, err)
	}

	base, target := strings.ToUpper(from.String()), strings.ToUpper(to.String())
	endpoint := s.baseURL + "/rates?base=" + url.QueryEscape(base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", model.ErrRateUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", model.ErrRateUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: http error: %s", model.ErrRateUnavailable, resp.Status)
	}

	var r ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return 0, fmt.Errorf("%w: decode response: %w", model.ErrRateUnavailable, err)
	}

	v, ok := r.Rates[target]
	if !ok {
		return 0, fmt.Errorf("%w: no rate found for %s/%s", model.ErrRateUnavailable, base, target)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("%w: bad rate %v for %s/%s", model.ErrRateUnavailable, v, base, target)
	}
	return v, nil
}
