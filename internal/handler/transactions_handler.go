package handler

import (
	"net/http"

	"github.com/boddenberg/backoffice-ledger/internal/domain"
	"github.com/boddenberg/backoffice-ledger/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Transactions: /v1/transactions
// ============================================================

func listTransactionsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		q, err := parseListQuery(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		res, err := svc.List(ctx, q)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, envelope{
			Success: true,
			Data:    res.Entries,
			Meta: listMeta{
				GlobalBalance: res.GlobalBalance,
				Total:         res.Total,
				Page:          res.Page,
				Limit:         res.Limit,
				TotalPages:    res.TotalPages,
			},
		})
	}
}

func createTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		var req domain.CreateEntryRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		res, err := svc.Create(ctx, actorFromContext(ctx), r.Header.Get("Idempotency-Key"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("transaction.id", res.Entry.ID))

		writeData(w, http.StatusCreated, res)
	}
}

// updateTransactionHandler accepts the id in the query string or the body.
func updateTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/transactions")
		defer span.End()

		var req domain.UpdateEntryRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if id := r.URL.Query().Get("id"); id != "" {
			req.ID = id
		}

		res, err := svc.Update(ctx, actorFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, res)
	}
}

func deleteTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions")
		defer span.End()

		id := r.URL.Query().Get("id")
		span.SetAttributes(attribute.String("transaction.id", id))

		res, err := svc.Delete(ctx, actorFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, res)
	}
}
