package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"ExchangeQuotesService/internal/model"

	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Message ServiceError       `json:"error_message"`
	Details []model.FieldError `json:"details,omitempty"`
}

type ServiceError string

const (
	BadRequest          ServiceError = "Malformed request"
	Unauthorized        ServiceError = "Missing or invalid user id"
	InvalidAmount       ServiceError = "Invalid amount"
	InvalidCurrency     ServiceError = "Unsupported currency pair"
	InvalidExpiration   ServiceError = "Expiration can only move forward"
	QuoteNotFound       ServiceError = "Quote not found or no longer redeemable"
	ExchangeNotFound    ServiceError = "Exchange not found"
	AlreadyRedeemed     ServiceError = "Quote already redeemed"
	StorageConflict     ServiceError = "Conflicting write, retry the request"
	ValidationFailed    ServiceError = "Validation failed"
	RateUnavailable     ServiceError = "Exchange rate unavailable"
	ServerInternalError ServiceError = "Server internal error"
)

func classify(err error) (int, ServiceError) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusUnprocessableEntity, ValidationFailed
	case errors.Is(err, model.ErrInvalidAmount):
		return http.StatusBadRequest, InvalidAmount
	case errors.Is(err, model.ErrInvalidCurrency):
		return http.StatusBadRequest, InvalidCurrency
	case errors.Is(err, model.ErrInvalidExpiration):
		return http.StatusBadRequest, InvalidExpiration
	case errors.Is(err, model.ErrQuoteNotFound):
		return http.StatusNotFound, QuoteNotFound
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, ExchangeNotFound
	case errors.Is(err, model.ErrAlreadyRedeemed):
		return http.StatusConflict, AlreadyRedeemed
	case errors.Is(err, model.ErrStorageConflict):
		return http.StatusConflict, StorageConflict
	case errors.Is(err, model.ErrRateUnavailable):
		return http.StatusServiceUnavailable, RateUnavailable
	default:
		return http.StatusInternalServerError, ServerInternalError
	}
}

func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := classify(err)
	entry := h.Log.WithFields(logrus.Fields{"path": r.URL.Path, "status": code}).WithError(err)
	if code >= http.StatusInternalServerError {
		entry.Error("[Handler] request failed")
	} else {
		entry.Debug("[Handler] request rejected")
	}

	resp := ErrorResponse{Message: msg}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Details = verr.Errors
	}
	writeJSON(w, code, resp)
}

func errorResponse(w http.ResponseWriter, code int, msg ServiceError) {
	writeJSON(w, code, ErrorResponse{Message: msg})
}

func successResponse(w http.ResponseWriter, payload interface{}) {
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	// headers are already sent, an encode failure can only be a broken connection
	_ = json.NewEncoder(w).Encode(payload)
}
