package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ExchangeQuotesService/internal/metrics"
	"ExchangeQuotesService/internal/model"
	"ExchangeQuotesService/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const UserIDHeader = "X-User-Id"

type Handler struct {
	Srv     service.ExchangeServiceInterface
	Log     logrus.FieldLogger
	Metrics *metrics.Metrics
}

type RateRequest struct {
	From   model.Currency `json:"from"`
	To     model.Currency `json:"to"`
	Amount model.Amount   `json:"amount"`
}

type SellRequest struct {
	ID           uuid.UUID      `json:"id"`
	From         model.Currency `json:"from"`
	To           model.Currency `json:"to"`
	ActualAmount model.Amount   `json:"actualAmount"`
}

type ExpirationRequest struct {
	Expiration time.Time `json:"expiration"`
}

type ExchangeResponse struct {
	ID         uuid.UUID      `json:"id"`
	From       model.Currency `json:"from"`
	To         model.Currency `json:"to"`
	Amount     model.Amount   `json:"amount"`
	Expiration time.Time      `json:"expiration"`
	Rate       float64        `json:"rate"`
	State      model.State    `json:"state"`
}

type SellOrderResponse struct {
	ID         uuid.UUID      `json:"id"`
	ExchangeID uuid.UUID      `json:"exchangeId"`
	From       model.Currency `json:"from"`
	To         model.Currency `json:"to"`
	Amount     model.Amount   `json:"amount"`
}

type userIDKey struct{}

// Routes builds the HTTP router. Everything under /v1 requires the X-User-Id header.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/healthz", h.Health)
	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(h.requireUser)
		v1.Post("/rate", h.PostRate)
		v1.Get("/rate/{id}", h.GetRate)
		v1.Put("/rate/{id}/expiration", h.PutExpiration)
		v1.Post("/rate/{id}/refresh", h.PostRefresh)
		v1.Post("/sell", h.PostSell)
	})
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	successResponse(w, map[string]string{"status": "ok"})
}

func (h *Handler) PostRate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if !h.decode(w, r, &req) {
		return
	}
	e, err := h.Srv.GetRate(r.Context(), userFrom(r.Context()), model.GetRate{From: req.From, To: req.To, Amount: req.Amount})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.Metrics.QuoteIssued(e.From.String(), e.To.String())
	h.Log.WithFields(logrus.Fields{"exchange_id": e.ID, "pair": e.From.String() + "/" + e.To.String()}).Info("[Handler] quote issued")
	successResponse(w, h.exchangeResponse(e))
}

func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.Srv.GetExchange(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	successResponse(w, h.exchangeResponse(e))
}

func (h *Handler) PutExpiration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ExpirationRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Expiration.IsZero() {
		errorResponse(w, http.StatusBadRequest, BadRequest)
		return
	}
	e, err := h.Srv.Extend(r.Context(), id, req.Expiration)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	successResponse(w, h.exchangeResponse(e))
}

func (h *Handler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.Srv.Refresh(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	successResponse(w, h.exchangeResponse(e))
}

func (h *Handler) PostSell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if !h.decode(w, r, &req) {
		return
	}
	order, err := h.Srv.Sell(r.Context(), userFrom(r.Context()), model.CreateSellOrder{
		ID:           req.ID,
		From:         req.From,
		To:           req.To,
		ActualAmount: req.ActualAmount,
	})
	h.Metrics.Redemption(redemptionResult(err))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.Log.WithFields(logrus.Fields{"exchange_id": order.ExchangeID, "order_id": order.ID}).Info("[Handler] quote redeemed")
	successResponse(w, SellOrderResponse{
		ID:         order.ID,
		ExchangeID: order.ExchangeID,
		From:       order.From,
		To:         order.To,
		Amount:     order.Amount,
	})
}

func (h *Handler) exchangeResponse(e model.Exchange) ExchangeResponse {
	return ExchangeResponse{
		ID:         e.ID,
		From:       e.From,
		To:         e.To,
		Amount:     e.Amount,
		Expiration: e.Expiration,
		Rate:       e.Rate,
		State:      e.State(h.Srv.Now()),
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.Log.WithError(err).Debug("[Handler] bad request body")
		_, msg := classify(err)
		if msg == ServerInternalError {
			msg = BadRequest
		}
		errorResponse(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, BadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func redemptionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrAlreadyRedeemed):
		return "already_redeemed"
	case errors.Is(err, model.ErrQuoteNotFound):
		return "not_found"
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrInvalidCurrency), errors.Is(err, model.ErrInvalidAmount):
		return "invalid"
	default:
		return "error"
	}
}

func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(UserIDHeader))
		if err != nil || id == uuid.Nil {
			errorResponse(w, http.StatusUnauthorized, Unauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, id)))
	})
}

func userFrom(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userIDKey{}).(uuid.UUID)
	return id
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.Log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": chimw.GetReqID(r.Context()),
		}).Debug("[Handler] request served")
	})
}
