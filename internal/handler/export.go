package handler

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/calendar"
	"github.com/boddenberg/backoffice-ledger/internal/domain"
	"github.com/boddenberg/backoffice-ledger/internal/service"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ============================================================
// Export: GET /v1/transactions/export?format=xlsx|csv
// ============================================================

const exportSheet = "Transactions"

var exportHeaders = []string{"Date", "Type", "Category", "Accounting Category", "Amount", "Payment Mode", "Description", "Reference"}

func exportTransactionsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/export")
		defer span.End()

		format := r.URL.Query().Get("format")
		if format == "" {
			format = "xlsx"
		}
		if format != "xlsx" && format != "csv" {
			handleServiceError(w, &domain.ErrValidation{Field: "format", Message: "must be xlsx or csv"}, logger)
			return
		}

		q, err := parseListQuery(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		entries, err := svc.ExportRows(ctx, q)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		filename := fmt.Sprintf("transactions_%s.%s", time.Now().In(calendar.IST).Format("20060102"), format)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

		if format == "csv" {
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			if err := writeCSV(w, entries); err != nil {
				logger.Error("csv export failed", zap.Error(err))
			}
			return
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := writeXLSX(w, entries); err != nil {
			logger.Error("xlsx export failed", zap.Error(err))
		}
	}
}

func exportRow(e *domain.LedgerEntry) []string {
	ref := ""
	if e.Reference.Linked() {
		ref = string(e.Reference.Type) + ":" + e.Reference.ID
		if e.Reference.DocumentNo != "" {
			ref = string(e.Reference.Type) + ":" + e.Reference.DocumentNo
		}
	}
	return []string{
		e.Date.In(calendar.IST).Format("2006-01-02"),
		string(e.Type),
		e.Category,
		e.AccountingCategory,
		e.Amount.StringFixed(2),
		string(e.PaymentMode),
		e.Description,
		ref,
	}
}

func writeCSV(w io.Writer, entries []domain.LedgerEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return err
	}
	for i := range entries {
		if err := cw.Write(exportRow(&entries[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, entries []domain.LedgerEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, h)
	}

	for idx := range entries {
		e := &entries[idx]
		row := idx + 2
		values := exportRow(e)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if col == 4 {
				// Amount as a number so spreadsheets can sum it.
				f.SetCellValue(exportSheet, cell, e.Amount.InexactFloat64())
				continue
			}
			f.SetCellValue(exportSheet, cell, v)
		}
	}

	f.SetColWidth(exportSheet, "A", "B", 12)
	f.SetColWidth(exportSheet, "C", "D", 24)
	f.SetColWidth(exportSheet, "E", "F", 14)
	f.SetColWidth(exportSheet, "G", "G", 40)
	f.SetColWidth(exportSheet, "H", "H", 24)

	return f.Write(w)
}
