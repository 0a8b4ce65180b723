package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/boddenberg/backoffice-ledger/internal/domain"
	"github.com/boddenberg/backoffice-ledger/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Meta    any  `json:"meta,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type listMeta struct {
	GlobalBalance decimal.Decimal `json:"globalBalance"`
	Total         int             `json:"total"`
	Page          int             `json:"page"`
	Limit         int             `json:"limit"`
	TotalPages    int             `json:"totalPages"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return &domain.ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, &domain.ErrValidation{Field: key, Message: fmt.Sprintf("must be an integer, got %q", v)}
	}
	return i, nil
}

// parseWindow reads year, month, fy, from and to.
func parseWindow(r *http.Request) (service.WindowQuery, error) {
	var (
		w   service.WindowQuery
		err error
	)
	if w.Year, err = queryInt(r, "year"); err != nil {
		return w, err
	}
	if w.Month, err = queryInt(r, "month"); err != nil {
		return w, err
	}
	if w.FiscalYear, err = queryInt(r, "fy"); err != nil {
		return w, err
	}
	q := r.URL.Query()
	w.From = q.Get("from")
	w.To = q.Get("to")
	return w, nil
}

// parseListQuery reads the listing filters. Bad page/limit values fall
// back to the defaults applied by the service.
func parseListQuery(r *http.Request) (service.ListQuery, error) {
	window, err := parseWindow(r)
	if err != nil {
		return service.ListQuery{}, err
	}
	q := r.URL.Query()
	lq := service.ListQuery{
		Type:   q.Get("type"),
		Search: q.Get("search"),
		Window: window,
		All:    q.Get("all") == "true",
	}
	if p, err := strconv.Atoi(q.Get("page")); err == nil {
		lq.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil {
		lq.Limit = l
	}
	return lq, nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var external *domain.ErrExternalService
	var validation *domain.ErrValidation
	var duplicate *domain.ErrDuplicate
	var forbidden *domain.ErrForbidden
	var unauthorized *domain.ErrUnauthorized

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &duplicate):
		logger.Debug("duplicate request", zap.String("error", err.Error()))
		writeJSON(w, http.StatusConflict, struct {
			errorResponse
			ExistingID string `json:"existingId,omitempty"`
		}{errorResponse{Error: err.Error()}, duplicate.ExistingID})
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, "document service unavailable")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
