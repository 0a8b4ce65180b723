package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/calendar"
	"github.com/boddenberg/backoffice-ledger/internal/domain"
	"github.com/boddenberg/backoffice-ledger/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Statements: /v1/pnl, /v1/balance-sheet
// ============================================================

func pnlHandler(svc *service.StatementService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/pnl")
		defer span.End()

		window, err := parseWindow(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		pnl, err := svc.ProfitAndLoss(ctx, window)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, pnl)
	}
}

// balanceSheetHandler takes an optional asOf date. A bare date means the
// end of that IST day.
func balanceSheetHandler(svc *service.StatementService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/balance-sheet")
		defer span.End()

		var asOf time.Time
		if v := r.URL.Query().Get("asOf"); v != "" {
			t, err := calendar.ParseDate(v)
			if err != nil {
				handleServiceError(w, &domain.ErrValidation{Field: "asOf", Message: err.Error()}, logger)
				return
			}
			if t.Equal(calendar.StartOfDay(t)) {
				t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
			}
			asOf = t
		}

		bs, err := svc.BalanceSheet(ctx, asOf)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, bs)
	}
}

func createBalanceSheetItemHandler(svc *service.StatementService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/balance-sheet")
		defer span.End()

		var req domain.CreateBalanceSheetItemRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		item, err := svc.CreateItem(ctx, actorFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusCreated, item)
	}
}

func deleteBalanceSheetItemHandler(svc *service.StatementService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/balance-sheet")
		defer span.End()

		id := r.URL.Query().Get("id")
		if err := svc.DeleteItem(ctx, actorFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, map[string]string{"id": id})
	}
}

func listBalanceSheetItemsHandler(svc *service.StatementService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/balance-sheet/items")
		defer span.End()

		items, err := svc.ListItems(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if items == nil {
			items = []domain.BalanceSheetItem{}
		}
		writeData(w, http.StatusOK, items)
	}
}

func categoriesHandler(svc *service.StatementService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.Categories(r.URL.Query().Get("type"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, categories)
	}
}
