// Package client talks to the external invoicing and payroll system that
// owns Invoices and SalarySlips.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/boddenberg/backoffice-ledger/internal/domain"
	"github.com/boddenberg/backoffice-ledger/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("client")

// ErrorRecorder counts failed calls per service.
type ErrorRecorder interface {
	IncrExternalError(service string)
}

// DocumentsClient implements port.InvoiceStore and port.SalarySlipStore
// over the documents REST API.
type DocumentsClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	recorder   ErrorRecorder
	logger     *zap.Logger
}

// NewDocumentsClient creates a new DocumentsClient.
func NewDocumentsClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, errs ErrorRecorder, logger *zap.Logger) *DocumentsClient {
	return &DocumentsClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
		recorder:   errs,
		logger:     logger,
	}
}

// call runs one request through the breaker and the retry loop. A 404 is
// returned as *domain.ErrNotFound without retrying; other failures become
// ErrExternalService or ErrCircuitOpen.
func (c *DocumentsClient) call(ctx context.Context, service, method, path string, in, out any, notFound *domain.ErrNotFound) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			return c.do(ctx, method, path, in, out, notFound)
		})
	})
	if err == nil {
		return nil
	}

	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return nf
	}

	c.recorder.IncrExternalError(service)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: service}
	}
	c.logger.Error("documents: request failed",
		zap.String("service", service),
		zap.String("method", method),
		zap.String("path", path),
		zap.Error(err),
	)
	return &domain.ErrExternalService{Service: service, Err: err}
}

func (c *DocumentsClient) do(ctx context.Context, method, path string, in, out any, notFound *domain.ErrNotFound) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound && notFound != nil:
		return resilience.Permanent(notFound)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resilience.Permanent(fmt.Errorf("documents API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("documents API returned status %d", resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resilience.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// ============================================================
// Invoices
// ============================================================

func (c *DocumentsClient) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "DocumentsClient.GetInvoice")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.id", id))

	var inv domain.Invoice
	nf := &domain.ErrNotFound{Resource: "invoice", ID: id}
	if err := c.call(ctx, "documents/invoice", http.MethodGet, "/v1/invoices/"+url.PathEscape(id), nil, &inv, nf); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *DocumentsClient) SaveInvoice(ctx context.Context, inv *domain.Invoice) error {
	ctx, span := tracer.Start(ctx, "DocumentsClient.SaveInvoice")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.id", inv.ID))

	nf := &domain.ErrNotFound{Resource: "invoice", ID: inv.ID}
	return c.call(ctx, "documents/invoice", http.MethodPut, "/v1/invoices/"+url.PathEscape(inv.ID), inv, nil, nf)
}

func (c *DocumentsClient) ListOutstandingInvoices(ctx context.Context) ([]domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "DocumentsClient.ListOutstandingInvoices")
	defer span.End()

	var invoices []domain.Invoice
	if err := c.call(ctx, "documents/invoice", http.MethodGet, "/v1/invoices?outstanding=true", nil, &invoices, nil); err != nil {
		return nil, err
	}
	return invoices, nil
}

// ============================================================
// Salary slips
// ============================================================

func (c *DocumentsClient) GetSalarySlip(ctx context.Context, id string) (*domain.SalarySlip, error) {
	ctx, span := tracer.Start(ctx, "DocumentsClient.GetSalarySlip")
	defer span.End()
	span.SetAttributes(attribute.String("salary_slip.id", id))

	var slip domain.SalarySlip
	nf := &domain.ErrNotFound{Resource: "salary slip", ID: id}
	if err := c.call(ctx, "documents/salary-slip", http.MethodGet, "/v1/salary-slips/"+url.PathEscape(id), nil, &slip, nf); err != nil {
		return nil, err
	}
	return &slip, nil
}

func (c *DocumentsClient) SaveSalarySlip(ctx context.Context, slip *domain.SalarySlip) error {
	ctx, span := tracer.Start(ctx, "DocumentsClient.SaveSalarySlip")
	defer span.End()
	span.SetAttributes(attribute.String("salary_slip.id", slip.ID))

	nf := &domain.ErrNotFound{Resource: "salary slip", ID: slip.ID}
	return c.call(ctx, "documents/salary-slip", http.MethodPut, "/v1/salary-slips/"+url.PathEscape(slip.ID), slip, nil, nf)
}

func (c *DocumentsClient) ListPayableSlips(ctx context.Context) ([]domain.SalarySlip, error) {
	ctx, span := tracer.Start(ctx, "DocumentsClient.ListPayableSlips")
	defer span.End()

	var slips []domain.SalarySlip
	if err := c.call(ctx, "documents/salary-slip", http.MethodGet, "/v1/salary-slips?status=finalized&payroll=enabled", nil, &slips, nil); err != nil {
		return nil, err
	}
	return slips, nil
}
