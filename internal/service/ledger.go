// Package service provides the business logic layer (use cases).
// LedgerService owns ledger mutations and the reconciliation that rides
// along with them; StatementService builds the financial statements.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/calendar"
	"github.com/boddenberg/backoffice-ledger/internal/domain"
	"github.com/boddenberg/backoffice-ledger/internal/infra/events"
	"github.com/boddenberg/backoffice-ledger/internal/infra/observability"
	"github.com/boddenberg/backoffice-ledger/internal/port"
	"github.com/boddenberg/backoffice-ledger/internal/reconcile"
	"github.com/boddenberg/backoffice-ledger/internal/taxonomy"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ledgerTracer = otel.Tracer("service/ledger")

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// LedgerService creates, lists, edits and deletes ledger entries.
type LedgerService struct {
	store       port.LedgerStore
	tx          port.TxRunner
	engine      *reconcile.Engine
	registry    *taxonomy.Registry
	publisher   port.EventPublisher
	idempotency port.Cache[string]
	metrics     *observability.Metrics
	now         port.Clock
	logger      *zap.Logger
}

// NewLedgerService creates the ledger service with all dependencies injected.
// idempotency may be nil, which disables Idempotency-Key handling.
func NewLedgerService(
	store port.LedgerStore,
	tx port.TxRunner,
	engine *reconcile.Engine,
	registry *taxonomy.Registry,
	publisher port.EventPublisher,
	idempotency port.Cache[string],
	metrics *observability.Metrics,
	now port.Clock,
	logger *zap.Logger,
) *LedgerService {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &LedgerService{
		store:       store,
		tx:          tx,
		engine:      engine,
		registry:    registry,
		publisher:   publisher,
		idempotency: idempotency,
		metrics:     metrics,
		now:         now,
		logger:      logger,
	}
}

// ============================================================
// Create: POST /v1/transactions
// ============================================================

// Create validates and records a new entry, then applies it to the
// referenced document in the same unit of work.
func (s *LedgerService) Create(ctx context.Context, actor, idempotencyKey string, req *domain.CreateEntryRequest) (*domain.MutationResult, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Create")
	defer span.End()

	key := ""
	if idempotencyKey != "" && s.idempotency != nil {
		key = "create:" + actor + ":" + idempotencyKey
		// Replays answer before the body is validated again.
		if existing, ok := s.idempotency.Get(key); ok {
			return nil, s.duplicate(idempotencyKey, existing)
		}
	}

	entry, err := s.newEntry(actor, req)
	if err != nil {
		s.metrics.RecordMutation(observability.OpCreate, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("transaction.id", entry.ID),
		attribute.String("reference.type", string(entry.Reference.Type)),
	)

	if key != "" {
		if existing, ok := s.idempotency.SetIfAbsent(key, entry.ID); !ok {
			return nil, s.duplicate(idempotencyKey, existing)
		}
		defer func() {
			if err != nil {
				s.idempotency.Delete(key)
			}
		}()
	}

	var outcome domain.ReconciliationOutcome
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateEntry(ctx, entry); err != nil {
			return fmt.Errorf("create entry: %w", err)
		}
		var rerr error
		outcome, rerr = s.engine.OnCreate(ctx, entry)
		return rerr
	})
	s.metrics.RecordMutation(observability.OpCreate, err)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReconciliation(outcome)

	s.logger.Info("transaction created",
		zap.String("transaction_id", entry.ID),
		zap.String("type", string(entry.Type)),
		zap.String("amount", entry.Amount.String()),
		zap.String("actor", actor),
	)
	s.publish(ctx, events.KindCreated, entry, outcome, actor)
	return &domain.MutationResult{Entry: entry, Reconciliation: outcome}, nil
}

func (s *LedgerService) newEntry(actor string, req *domain.CreateEntryRequest) (*domain.LedgerEntry, error) {
	if req == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "is required"}
	}
	if !req.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be Credit or Debit"}
	}
	amount, err := validAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "date", Message: err.Error()}
	}
	mode, err := validPaymentMode(req.PaymentMode)
	if err != nil {
		return nil, err
	}

	label := strings.TrimSpace(req.Category)
	accounting := strings.TrimSpace(req.AccountingCategory)
	if accounting != "" {
		c, err := s.categoryFor(accounting, req.Type)
		if err != nil {
			return nil, err
		}
		if label == "" {
			label = c.Label
		}
	}
	if label == "" {
		return nil, &domain.ErrValidation{Field: "category", Message: "is required"}
	}

	ref, err := validReference(req.Reference)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &domain.LedgerEntry{
		ID:                 uuid.NewString(),
		Date:               date,
		Type:               req.Type,
		AccountingCategory: accounting,
		Category:           label,
		Amount:             amount,
		Description:        strings.TrimSpace(req.Description),
		PaymentMode:        mode,
		Reference:          ref,
		CreatedBy:          actor,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// ============================================================
// List: GET /v1/transactions
// ============================================================

// ListQuery is the parsed query string of the listing endpoints.
type ListQuery struct {
	Type   string
	Search string
	Window WindowQuery
	Page   int
	Limit  int
	All    bool
}

// WindowQuery selects the date window. Zero values mean "not given".
type WindowQuery struct {
	Year       int
	Month      int
	FiscalYear int
	From       string
	To         string
}

// List returns one page of entries plus the unfiltered global balance.
func (s *LedgerService) List(ctx context.Context, q ListQuery) (*domain.ListResult, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.List")
	defer span.End()

	f, err := s.filter(q)
	if err != nil {
		return nil, err
	}

	entries, total, err := s.store.ListEntries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	balance, err := s.store.GlobalBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("global balance: %w", err)
	}

	res := &domain.ListResult{
		Entries:       entries,
		Total:         total,
		Page:          f.Page,
		Limit:         f.Limit,
		GlobalBalance: balance,
	}
	if f.All {
		res.Page, res.Limit, res.TotalPages = 1, total, 1
	} else {
		res.TotalPages = (total + f.Limit - 1) / f.Limit
	}
	if res.Entries == nil {
		res.Entries = []domain.LedgerEntry{}
	}
	return res, nil
}

// ExportRows returns every entry matching the filters, ignoring pagination.
func (s *LedgerService) ExportRows(ctx context.Context, q ListQuery) ([]domain.LedgerEntry, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ExportRows")
	defer span.End()

	q.All = true
	f, err := s.filter(q)
	if err != nil {
		return nil, err
	}
	entries, _, err := s.store.ListEntries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (s *LedgerService) filter(q ListQuery) (domain.ListFilter, error) {
	f := domain.ListFilter{
		Search: strings.TrimSpace(q.Search),
		Page:   q.Page,
		Limit:  q.Limit,
		All:    q.All,
	}
	if q.Type != "" {
		f.Type = domain.EntryType(q.Type)
		if !f.Type.Valid() {
			return f, &domain.ErrValidation{Field: "type", Message: "must be Credit or Debit"}
		}
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}

	period, err := s.resolveWindow(q.Window)
	if err != nil {
		return f, err
	}
	f.Period = period
	return f, nil
}

// resolveWindow picks, in order: explicit range, fiscal year, month of a
// year (current IST year when omitted), whole year.
func (s *LedgerService) resolveWindow(w WindowQuery) (*domain.Period, error) {
	var (
		p   domain.Period
		err error
	)
	switch {
	case w.From != "" || w.To != "":
		if w.From == "" || w.To == "" {
			return nil, &domain.ErrValidation{Field: "from", Message: "from and to must be given together"}
		}
		p, err = calendar.Range(w.From, w.To)
	case w.FiscalYear != 0:
		p, err = calendar.FiscalYear(w.FiscalYear)
	case w.Month != 0:
		year := w.Year
		if year == 0 {
			year = s.now().In(calendar.IST).Year()
		}
		p, err = calendar.Month(year, w.Month)
	case w.Year != 0:
		p, err = calendar.Year(w.Year)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ============================================================
// Update: PUT /v1/transactions
// ============================================================

// Update patches an entry and resyncs the referenced document by delta.
func (s *LedgerService) Update(ctx context.Context, actor string, req *domain.UpdateEntryRequest) (*domain.MutationResult, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Update")
	defer span.End()

	if req == nil || strings.TrimSpace(req.ID) == "" {
		err := &domain.ErrValidation{Field: "id", Message: "is required"}
		s.metrics.RecordMutation(observability.OpUpdate, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("transaction.id", req.ID))

	var (
		after   domain.LedgerEntry
		outcome domain.ReconciliationOutcome
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		before, err := s.store.GetEntry(ctx, req.ID)
		if err != nil {
			return err
		}
		after = *before
		if err := s.applyPatch(&after, req); err != nil {
			return err
		}
		after.UpdatedAt = s.now()

		if err := s.store.UpdateEntry(ctx, &after); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		outcome, err = s.engine.OnUpdate(ctx, before, &after)
		return err
	})
	s.metrics.RecordMutation(observability.OpUpdate, err)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReconciliation(outcome)

	s.logger.Info("transaction updated",
		zap.String("transaction_id", after.ID),
		zap.String("actor", actor),
	)
	s.publish(ctx, events.KindUpdated, &after, outcome, actor)
	return &domain.MutationResult{Entry: &after, Reconciliation: outcome}, nil
}

func (s *LedgerService) applyPatch(e *domain.LedgerEntry, req *domain.UpdateEntryRequest) error {
	recheckCategory := false

	if req.Type != nil {
		if !req.Type.Valid() {
			return &domain.ErrValidation{Field: "type", Message: "must be Credit or Debit"}
		}
		recheckCategory = *req.Type != e.Type
		e.Type = *req.Type
	}
	if req.Amount.Valid {
		amount, err := validAmount(req.Amount)
		if err != nil {
			return err
		}
		e.Amount = amount
	}
	if req.Date != nil {
		date, err := calendar.ParseDate(*req.Date)
		if err != nil {
			return &domain.ErrValidation{Field: "date", Message: err.Error()}
		}
		e.Date = date
	}
	if req.PaymentMode != nil {
		mode, err := validPaymentMode(*req.PaymentMode)
		if err != nil {
			return err
		}
		e.PaymentMode = mode
	}
	if req.Category != nil {
		label := strings.TrimSpace(*req.Category)
		if label == "" {
			return &domain.ErrValidation{Field: "category", Message: "must not be empty"}
		}
		e.Category = label
	}
	if req.Description != nil {
		e.Description = strings.TrimSpace(*req.Description)
	}
	if req.AccountingCategory != nil {
		e.AccountingCategory = strings.TrimSpace(*req.AccountingCategory)
		recheckCategory = true
	}

	if recheckCategory && !e.IsLegacy() {
		if _, err := s.categoryFor(e.AccountingCategory, e.Type); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================
// Delete: DELETE /v1/transactions
// ============================================================

// Delete reverses the entry's effect on its document, then removes it.
func (s *LedgerService) Delete(ctx context.Context, actor, id string) (*domain.MutationResult, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Delete")
	defer span.End()

	if strings.TrimSpace(id) == "" {
		err := &domain.ErrValidation{Field: "id", Message: "is required"}
		s.metrics.RecordMutation(observability.OpDelete, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("transaction.id", id))

	var (
		entry   *domain.LedgerEntry
		outcome domain.ReconciliationOutcome
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.store.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		outcome, err = s.engine.OnDelete(ctx, entry)
		if err != nil {
			return err
		}
		if err := s.store.DeleteEntry(ctx, id); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		return nil
	})
	s.metrics.RecordMutation(observability.OpDelete, err)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReconciliation(outcome)

	s.logger.Info("transaction deleted",
		zap.String("transaction_id", id),
		zap.String("actor", actor),
	)
	s.publish(ctx, events.KindDeleted, entry, outcome, actor)
	return &domain.MutationResult{Entry: entry, Reconciliation: outcome}, nil
}

// ============================================================
// Helpers
// ============================================================

func (s *LedgerService) categoryFor(id string, t domain.EntryType) (domain.Category, error) {
	c, ok := s.registry.CategoryByID(id)
	if !ok {
		return c, &domain.ErrValidation{Field: "accountingCategory", Message: fmt.Sprintf("unknown category %q", id)}
	}
	if !c.AppliesTo.Allows(t) {
		return c, &domain.ErrValidation{
			Field:   "accountingCategory",
			Message: fmt.Sprintf("category %q does not apply to %s entries", id, t),
		}
	}
	return c, nil
}

// duplicate counts a replayed create as a failed mutation.
func (s *LedgerService) duplicate(key, existingID string) error {
	err := &domain.ErrDuplicate{Key: key, ExistingID: existingID}
	s.metrics.RecordMutation(observability.OpCreate, err)
	return err
}

// publish is best effort: the mutation has already committed.
func (s *LedgerService) publish(ctx context.Context, kind string, entry *domain.LedgerEntry, outcome domain.ReconciliationOutcome, actor string) {
	event := domain.LedgerEvent{
		Kind:           kind,
		Entry:          *entry,
		Reconciliation: outcome,
		Actor:          actor,
		OccurredAt:     s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.IncrExternalError("amqp")
		s.logger.Error("failed to publish ledger event",
			zap.String("kind", kind),
			zap.String("transaction_id", entry.ID),
			zap.Error(err),
		)
	}
}

func validPaymentMode(m domain.PaymentMode) (domain.PaymentMode, error) {
	if m == "" {
		return domain.PaymentCash, nil
	}
	if !m.Valid() {
		return "", &domain.ErrValidation{Field: "paymentMode", Message: fmt.Sprintf("unknown payment mode %q", m)}
	}
	return m, nil
}

func validReference(ref *domain.Reference) (domain.Reference, error) {
	if ref == nil || ref.Type == "" || ref.Type == domain.RefNone {
		return domain.Reference{Type: domain.RefNone}, nil
	}
	if !ref.Type.Valid() {
		return domain.Reference{}, &domain.ErrValidation{Field: "reference.type", Message: "must be None, Invoice or SalarySlip"}
	}
	id := strings.TrimSpace(ref.ID)
	if id == "" {
		return domain.Reference{}, &domain.ErrValidation{Field: "reference.id", Message: "is required"}
	}
	return domain.Reference{Type: ref.Type, ID: id, DocumentNo: strings.TrimSpace(ref.DocumentNo)}, nil
}
