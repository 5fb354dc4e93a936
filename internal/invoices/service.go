package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/exportpro/exportpro/internal/catalog/suppliers"
	"github.com/exportpro/exportpro/internal/inventory"
	"github.com/exportpro/exportpro/internal/plan"
	"github.com/exportpro/exportpro/internal/shared"
)

// TierSource resolves an owner's subscription tier.
type TierSource interface {
	Tier(ctx context.Context, owner uuid.UUID) (plan.Tier, error)
}

// SupplierResolver matches or creates suppliers for extraction submissions.
type SupplierResolver interface {
	FindSimilar(ctx context.Context, owner uuid.UUID, name string) (*suppliers.Supplier, error)
	Create(ctx context.Context, owner uuid.UUID, req suppliers.CreateSupplierRequest) (suppliers.Supplier, plan.Decision, error)
}

// LineReceiver absorbs invoice lines into the product ledger.
type LineReceiver interface {
	ReceiveLine(ctx context.Context, owner uuid.UUID, req inventory.ReceiveLineRequest) (inventory.ReceiveResult, plan.Decision, error)
}

// Service implements the invoice ledger.
type Service struct {
	logger    *slog.Logger
	repo      Repository
	gate      *plan.Gate
	tiers     TierSource
	suppliers SupplierResolver
	receiver  LineReceiver
	now       func() time.Time
}

// NewService builds Service.
func NewService(logger *slog.Logger, repo Repository, gate *plan.Gate, tiers TierSource, resolver SupplierResolver, receiver LineReceiver) *Service {
	return &Service{
		logger:    logger,
		repo:      repo,
		gate:      gate,
		tiers:     tiers,
		suppliers: resolver,
		receiver:  receiver,
		now:       time.Now,
	}
}

// Create persists an invoice, subject to the per-month quota. A second
// invoice with the same number for the same supplier is rejected with a
// confirmable warning; the request goes through once acknowledged.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, req CreateInvoiceRequest) (Invoice, plan.Decision, error) {
	tier, err := s.tiers.Tier(ctx, owner)
	if err != nil {
		return Invoice{}, plan.Decision{}, fmt.Errorf("resolve tier: %w", err)
	}
	decision, err := s.gate.Allow(ctx, tier, plan.ResourceInvoices, func(ctx context.Context) (int, error) {
		start, end := plan.MonthBounds(s.now())
		return s.repo.CountCreatedBetween(ctx, owner, start, end)
	})
	if err != nil {
		return Invoice{}, plan.Decision{}, err
	}
	if !decision.Allowed {
		return Invoice{}, decision, shared.ErrLimitExceeded
	}

	if !req.AcknowledgeDuplicate {
		existing, err := s.repo.FindByNumber(ctx, owner, req.SupplierID, req.InvoiceNumber)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return Invoice{}, decision, fmt.Errorf("check duplicate number: %w", err)
		}
		if err == nil {
			return Invoice{}, decision, fmt.Errorf("invoice %q already exists for this supplier (id %d): %w",
				existing.InvoiceNumber, existing.ID, shared.ErrDuplicateNumber)
		}
	}

	invoice := Invoice{
		OwnerID:       owner,
		SupplierID:    req.SupplierID,
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		Date:          req.Date,
		Amount:        req.Amount,
		Notes:         req.Notes,
	}
	id, err := s.repo.Create(ctx, invoice)
	if err != nil {
		return Invoice{}, decision, fmt.Errorf("create invoice: %w", err)
	}
	invoice.ID = id
	return invoice, decision, nil
}

// Detail returns an invoice with payments and derived status.
func (s *Service) Detail(ctx context.Context, owner uuid.UUID, id int64) (InvoiceDetail, error) {
	invoice, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return InvoiceDetail{}, fmt.Errorf("get invoice: %w", err)
	}
	payments, err := s.repo.ListPayments(ctx, owner, id)
	if err != nil {
		return InvoiceDetail{}, fmt.Errorf("list payments: %w", err)
	}
	paid, err := s.repo.SumPayments(ctx, owner, id)
	if err != nil {
		return InvoiceDetail{}, fmt.Errorf("sum payments: %w", err)
	}
	return InvoiceDetail{
		Invoice:    invoice,
		Payments:   payments,
		PaidAmount: paid,
		Status:     StatusFor(invoice.Amount, paid),
		Overpaid:   paid.GreaterThan(invoice.Amount),
	}, nil
}

// List returns the owner's invoices.
func (s *Service) List(ctx context.Context, owner uuid.UUID) ([]Invoice, error) {
	return s.repo.List(ctx, owner)
}

// RecordPayment adds a payment and returns the refreshed detail.
// Overpayment is allowed and reported, never blocked.
func (s *Service) RecordPayment(ctx context.Context, owner uuid.UUID, invoiceID int64, req RecordPaymentRequest) (InvoiceDetail, error) {
	date := req.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	_, err := s.repo.AddPayment(ctx, owner, Payment{
		InvoiceID: invoiceID,
		Amount:    req.Amount,
		Date:      date,
		Method:    req.Method,
		Notes:     req.Notes,
	})
	if err != nil {
		return InvoiceDetail{}, fmt.Errorf("add payment: %w", err)
	}
	detail, err := s.Detail(ctx, owner, invoiceID)
	if err != nil {
		return InvoiceDetail{}, err
	}
	if detail.Overpaid {
		s.logger.Warn("invoice overpaid",
			slog.Int64("invoice_id", invoiceID),
			slog.String("amount", detail.Invoice.Amount.String()),
			slog.String("paid", detail.PaidAmount.String()))
	}
	return detail, nil
}

// Delete removes an invoice. Payments and product-invoice links cascade in
// the store; product quantities already received stay received.
func (s *Service) Delete(ctx context.Context, owner uuid.UUID, id int64) error {
	return s.repo.Delete(ctx, owner, id)
}

// CreateFromExtraction turns a reviewed OCR result into an invoice and
// ledger receipts. The supplier is resolved in order: explicit id, fuzzy
// name match, then a newly created supplier.
func (s *Service) CreateFromExtraction(ctx context.Context, owner uuid.UUID, req CreateFromExtractionRequest) (ExtractionResult, plan.Decision, error) {
	var result ExtractionResult

	switch {
	case req.SupplierID != nil:
		result.SupplierID = *req.SupplierID
	case strings.TrimSpace(req.SupplierName) != "":
		match, err := s.suppliers.FindSimilar(ctx, owner, req.SupplierName)
		if err != nil {
			return ExtractionResult{}, plan.Decision{}, fmt.Errorf("match supplier: %w", err)
		}
		if match != nil {
			result.SupplierID = match.ID
		} else {
			created, decision, err := s.suppliers.Create(ctx, owner, suppliers.CreateSupplierRequest{Name: strings.TrimSpace(req.SupplierName)})
			if err != nil {
				return ExtractionResult{}, decision, fmt.Errorf("create supplier: %w", err)
			}
			result.SupplierID = created.ID
			result.SupplierCreated = true
		}
	default:
		return ExtractionResult{}, plan.Decision{}, fmt.Errorf("supplier_id or supplier_name required: %w", shared.ErrNotFound)
	}

	invoice, decision, err := s.Create(ctx, owner, CreateInvoiceRequest{
		SupplierID:           result.SupplierID,
		InvoiceNumber:        req.InvoiceNumber,
		Date:                 req.Date,
		Amount:               req.Amount,
		AcknowledgeDuplicate: req.AcknowledgeDuplicate,
	})
	if err != nil {
		return ExtractionResult{}, decision, err
	}
	result.Invoice = invoice

	for _, line := range req.Lines {
		received, _, err := s.receiver.ReceiveLine(ctx, owner, inventory.ReceiveLineRequest{
			InvoiceID: invoice.ID,
			Name:      line.Name,
			HSCode:    line.HSCode,
			Unit:      line.Unit,
			Quantity:  line.Quantity,
			Rate:      line.Rate,
		})
		if err != nil {
			return result, decision, fmt.Errorf("receive line %q: %w", line.Name, err)
		}
		result.LinesReceived++
		if received.Merged {
			result.LinesMerged++
		}
	}
	return result, decision, nil
}
