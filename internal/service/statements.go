package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/calendar"
	"github.com/boddenberg/backoffice-ledger/internal/domain"
	"github.com/boddenberg/backoffice-ledger/internal/infra/observability"
	"github.com/boddenberg/backoffice-ledger/internal/infra/resilience"
	"github.com/boddenberg/backoffice-ledger/internal/port"
	"github.com/boddenberg/backoffice-ledger/internal/statement"
	"github.com/boddenberg/backoffice-ledger/internal/taxonomy"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var statementTracer = otel.Tracer("service/statements")

// StatementService serves the P&L, the Balance Sheet and its manual items.
type StatementService struct {
	ledger   port.LedgerStore
	invoices port.InvoiceStore
	slips    port.SalarySlipStore
	items    port.BalanceSheetItemStore
	registry *taxonomy.Registry
	builder  *statement.Builder
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	now      port.Clock
	logger   *zap.Logger
}

// NewStatementService creates the statement service. The bulkhead bounds
// how many statements are built at once; both scan the ledger.
func NewStatementService(
	ledger port.LedgerStore,
	invoices port.InvoiceStore,
	slips port.SalarySlipStore,
	items port.BalanceSheetItemStore,
	registry *taxonomy.Registry,
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	now port.Clock,
	logger *zap.Logger,
) *StatementService {
	if now == nil {
		now = time.Now
	}
	return &StatementService{
		ledger:   ledger,
		invoices: invoices,
		slips:    slips,
		items:    items,
		registry: registry,
		builder:  statement.NewBuilder(registry, now),
		bulkhead: bulkhead,
		metrics:  metrics,
		now:      now,
		logger:   logger,
	}
}

// ============================================================
// Profit & Loss: GET /v1/pnl
// ============================================================

// ProfitAndLoss builds the P&L for the requested window. With no window
// at all it covers the current IST calendar year.
func (s *StatementService) ProfitAndLoss(ctx context.Context, w WindowQuery) (*domain.ProfitAndLoss, error) {
	ctx, span := statementTracer.Start(ctx, "StatementService.ProfitAndLoss")
	defer span.End()

	period, err := s.pnlPeriod(w)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("period", period.Label))

	var pnl *domain.ProfitAndLoss
	err = s.bulkhead.Run(ctx, func() error {
		start := time.Now()
		defer func() { s.metrics.ObserveStatement("pnl", time.Since(start)) }()

		entries, err := s.ledger.EntriesBetween(ctx, period)
		if err != nil {
			return fmt.Errorf("load entries: %w", err)
		}
		pnl = s.builder.ProfitAndLoss(period, entries)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pnl, nil
}

func (s *StatementService) pnlPeriod(w WindowQuery) (domain.Period, error) {
	switch {
	case w.From != "" || w.To != "":
		if w.From == "" || w.To == "" {
			return domain.Period{}, &domain.ErrValidation{Field: "from", Message: "from and to must be given together"}
		}
		return calendar.Range(w.From, w.To)
	case w.FiscalYear != 0:
		return calendar.FiscalYear(w.FiscalYear)
	}

	year := w.Year
	if year == 0 {
		year = s.now().In(calendar.IST).Year()
	}
	if w.Month != 0 {
		return calendar.Month(year, w.Month)
	}
	return calendar.Year(year)
}

// ============================================================
// Balance Sheet: GET /v1/balance-sheet
// ============================================================

// BalanceSheet builds the position as of asOf (zero means now). The four
// inputs are independent reads and are fetched concurrently.
func (s *StatementService) BalanceSheet(ctx context.Context, asOf time.Time) (*domain.BalanceSheet, error) {
	ctx, span := statementTracer.Start(ctx, "StatementService.BalanceSheet")
	defer span.End()

	var bs *domain.BalanceSheet
	err := s.bulkhead.Run(ctx, func() error {
		start := time.Now()
		defer func() { s.metrics.ObserveStatement("balance_sheet", time.Since(start)) }()

		in := statement.BalanceSheetInput{AsOf: asOf}
		g, gCtx := errgroup.WithContext(ctx)

		g.Go(func() error {
			entries, err := s.ledger.AllEntries(gCtx)
			if err != nil {
				return fmt.Errorf("load entries: %w", err)
			}
			in.Entries = entries
			return nil
		})
		g.Go(func() error {
			invoices, err := s.invoices.ListOutstandingInvoices(gCtx)
			if err != nil {
				return fmt.Errorf("load outstanding invoices: %w", err)
			}
			in.Invoices = invoices
			return nil
		})
		g.Go(func() error {
			slips, err := s.slips.ListPayableSlips(gCtx)
			if err != nil {
				return fmt.Errorf("load payable slips: %w", err)
			}
			in.Slips = slips
			return nil
		})
		g.Go(func() error {
			items, err := s.items.ListItems(gCtx)
			if err != nil {
				return fmt.Errorf("load balance sheet items: %w", err)
			}
			in.Items = items
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}

		var err error
		bs, err = s.builder.BalanceSheet(in)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !bs.Balanced {
		s.logger.Warn("balance sheet does not balance",
			zap.Time("as_of", bs.AsOf),
			zap.String("difference", bs.Difference.String()),
		)
	}
	return bs, nil
}

// ============================================================
// Manual items: POST/DELETE /v1/balance-sheet
// ============================================================

// CreateItem records a manual balance sheet adjustment.
func (s *StatementService) CreateItem(ctx context.Context, actor string, req *domain.CreateBalanceSheetItemRequest) (*domain.BalanceSheetItem, error) {
	ctx, span := statementTracer.Start(ctx, "StatementService.CreateItem")
	defer span.End()

	if req == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "is required"}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "is required"}
	}
	if !req.Category.Valid() {
		return nil, &domain.ErrValidation{Field: "category", Message: fmt.Sprintf("unknown balance sheet section %q", req.Category)}
	}
	amount, err := validItemAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	item := &domain.BalanceSheetItem{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  req.Category,
		Amount:    amount,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedBy: actor,
		CreatedAt: s.now(),
	}
	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create balance sheet item: %w", err)
	}

	s.logger.Info("balance sheet item created",
		zap.String("item_id", item.ID),
		zap.String("category", string(item.Category)),
		zap.String("actor", actor),
	)
	return item, nil
}

// DeleteItem removes a manual adjustment.
func (s *StatementService) DeleteItem(ctx context.Context, actor, id string) error {
	ctx, span := statementTracer.Start(ctx, "StatementService.DeleteItem")
	defer span.End()

	if strings.TrimSpace(id) == "" {
		return &domain.ErrValidation{Field: "id", Message: "is required"}
	}
	if err := s.items.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.logger.Info("balance sheet item deleted", zap.String("item_id", id), zap.String("actor", actor))
	return nil
}

// ListItems returns every manual adjustment.
func (s *StatementService) ListItems(ctx context.Context) ([]domain.BalanceSheetItem, error) {
	ctx, span := statementTracer.Start(ctx, "StatementService.ListItems")
	defer span.End()

	return s.items.ListItems(ctx)
}

// Categories lists the taxonomy, optionally restricted to one entry type.
func (s *StatementService) Categories(t string) ([]domain.Category, error) {
	if t == "" {
		return s.registry.All(), nil
	}
	typ := domain.EntryType(t)
	if !typ.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be Credit or Debit"}
	}
	return s.registry.CategoriesByType(typ), nil
}
