package invoices

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/exportpro/exportpro/internal/catalog/suppliers"
	"github.com/exportpro/exportpro/internal/inventory"
	"github.com/exportpro/exportpro/internal/plan"
	"github.com/exportpro/exportpro/internal/shared"
)

type memoryInvoiceRepo struct {
	invoices []Invoice
	payments []Payment
	nextID   int64
}

func (m *memoryInvoiceRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryInvoiceRepo) List(ctx context.Context, owner uuid.UUID) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.OwnerID == owner {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memoryInvoiceRepo) Get(ctx context.Context, owner uuid.UUID, id int64) (Invoice, error) {
	for _, inv := range m.invoices {
		if inv.OwnerID == owner && inv.ID == id {
			return inv, nil
		}
	}
	return Invoice{}, shared.ErrNotFound
}

func (m *memoryInvoiceRepo) Create(ctx context.Context, inv Invoice) (int64, error) {
	inv.ID = m.id()
	inv.CreatedAt = time.Now().UTC()
	m.invoices = append(m.invoices, inv)
	return inv.ID, nil
}

func (m *memoryInvoiceRepo) Delete(ctx context.Context, owner uuid.UUID, id int64) error {
	for i, inv := range m.invoices {
		if inv.OwnerID == owner && inv.ID == id {
			m.invoices = append(m.invoices[:i], m.invoices[i+1:]...)
			kept := m.payments[:0]
			for _, p := range m.payments {
				if p.InvoiceID != id {
					kept = append(kept, p)
				}
			}
			m.payments = kept
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryInvoiceRepo) CountCreatedBetween(ctx context.Context, owner uuid.UUID, start, end time.Time) (int, error) {
	count := 0
	for _, inv := range m.invoices {
		if inv.OwnerID == owner && !inv.CreatedAt.Before(start) && !inv.CreatedAt.After(end) {
			count++
		}
	}
	return count, nil
}

func (m *memoryInvoiceRepo) FindByNumber(ctx context.Context, owner uuid.UUID, supplierID int64, number string) (Invoice, error) {
	for _, inv := range m.invoices {
		if inv.OwnerID == owner && inv.SupplierID == supplierID && strings.EqualFold(inv.InvoiceNumber, number) {
			return inv, nil
		}
	}
	return Invoice{}, shared.ErrNotFound
}

func (m *memoryInvoiceRepo) AddPayment(ctx context.Context, owner uuid.UUID, p Payment) (int64, error) {
	if _, err := m.Get(ctx, owner, p.InvoiceID); err != nil {
		return 0, err
	}
	p.ID = m.id()
	m.payments = append(m.payments, p)
	return p.ID, nil
}

func (m *memoryInvoiceRepo) ListPayments(ctx context.Context, owner uuid.UUID, invoiceID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryInvoiceRepo) SumPayments(ctx context.Context, owner uuid.UUID, invoiceID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.InvoiceID == invoiceID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

type staticTiers struct{ tier plan.Tier }

func (t staticTiers) Tier(ctx context.Context, owner uuid.UUID) (plan.Tier, error) {
	return t.tier, nil
}

type fakeSuppliers struct {
	existing []suppliers.Supplier
	created  []string
	nextID   int64
}

func (f *fakeSuppliers) FindSimilar(ctx context.Context, owner uuid.UUID, name string) (*suppliers.Supplier, error) {
	return suppliers.FindSimilar(f.existing, name), nil
}

func (f *fakeSuppliers) Create(ctx context.Context, owner uuid.UUID, req suppliers.CreateSupplierRequest) (suppliers.Supplier, plan.Decision, error) {
	f.nextID++
	s := suppliers.Supplier{ID: f.nextID + 100, OwnerID: owner, Name: req.Name}
	f.existing = append(f.existing, s)
	f.created = append(f.created, req.Name)
	return s, plan.Decision{Allowed: true}, nil
}

type fakeReceiver struct {
	lines []inventory.ReceiveLineRequest
}

func (f *fakeReceiver) ReceiveLine(ctx context.Context, owner uuid.UUID, req inventory.ReceiveLineRequest) (inventory.ReceiveResult, plan.Decision, error) {
	f.lines = append(f.lines, req)
	merged := false
	for _, prev := range f.lines[:len(f.lines)-1] {
		if inventory.NameKey(prev.Name) == inventory.NameKey(req.Name) {
			merged = true
		}
	}
	return inventory.ReceiveResult{Merged: merged, Created: !merged}, plan.Decision{Allowed: true}, nil
}

var testLimits = plan.Limits{Suppliers: 10, Products: 50, ShipmentsPerMonth: 5, InvoicesPerMonth: 2}

func newTestService(repo *memoryInvoiceRepo, tier plan.Tier, sup *fakeSuppliers, recv *fakeReceiver) *Service {
	if sup == nil {
		sup = &fakeSuppliers{}
	}
	if recv == nil {
		recv = &fakeReceiver{}
	}
	return NewService(slog.Default(), repo, plan.NewGate(testLimits), staticTiers{tier}, sup, recv)
}

func TestStatusFor(t *testing.T) {
	amount := decimal.NewFromInt(100)
	require.Equal(t, StatusUnpaid, StatusFor(amount, decimal.Zero))
	require.Equal(t, StatusPartial, StatusFor(amount, decimal.NewFromInt(40)))
	require.Equal(t, StatusPaid, StatusFor(amount, decimal.NewFromInt(100)))
	require.Equal(t, StatusPaid, StatusFor(amount, decimal.NewFromInt(150)))
	require.Equal(t, StatusUnpaid, StatusFor(decimal.Zero, decimal.Zero))
}

func TestCreateDuplicateNumberWarnsAndAllows(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	repo := &memoryInvoiceRepo{}
	svc := newTestService(repo, plan.TierPaid, nil, nil)

	_, _, err := svc.Create(ctx, owner, CreateInvoiceRequest{SupplierID: 1, InvoiceNumber: "INV-001"})
	require.NoError(t, err)

	// Same number, same supplier, case-insensitive: rejected with warning.
	_, _, err = svc.Create(ctx, owner, CreateInvoiceRequest{SupplierID: 1, InvoiceNumber: "inv-001"})
	require.ErrorIs(t, err, shared.ErrDuplicateNumber)
	require.Len(t, repo.invoices, 1)

	// Acknowledged: allowed through.
	_, _, err = svc.Create(ctx, owner, CreateInvoiceRequest{SupplierID: 1, InvoiceNumber: "inv-001", AcknowledgeDuplicate: true})
	require.NoError(t, err)
	require.Len(t, repo.invoices, 2)

	// Same number for a different supplier is not a duplicate.
	_, _, err = svc.Create(ctx, owner, CreateInvoiceRequest{SupplierID: 2, InvoiceNumber: "INV-001"})
	require.NoError(t, err)
}

func TestCreateBlockedAtMonthQuota(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	repo := &memoryInvoiceRepo{}
	svc := newTestService(repo, plan.TierFree, nil, nil)

	_, _, err := svc.Create(ctx, owner, CreateInvoiceRequest{SupplierID: 1, InvoiceNumber: "A"})
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, owner, CreateInvoiceRequest{SupplierID: 1, InvoiceNumber: "B"})
	require.NoError(t, err)

	_, decision, err := svc.Create(ctx, owner, CreateInvoiceRequest{SupplierID: 1, InvoiceNumber: "C"})
	require.ErrorIs(t, err, shared.ErrLimitExceeded)
	require.Equal(t, 2, decision.Current)
	require.Equal(t, 2, decision.Limit)
}

func TestRecordPaymentDerivesStatus(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	repo := &memoryInvoiceRepo{}
	svc := newTestService(repo, plan.TierPaid, nil, nil)

	invoice, _, err := svc.Create(ctx, owner, CreateInvoiceRequest{
		SupplierID: 1, InvoiceNumber: "INV-001", Amount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	detail, err := svc.RecordPayment(ctx, owner, invoice.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(40)})
	require.NoError(t, err)
	require.Equal(t, StatusPartial, detail.Status)
	require.False(t, detail.Overpaid)

	detail, err = svc.RecordPayment(ctx, owner, invoice.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(60)})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, detail.Status)
	require.False(t, detail.Overpaid)

	// Overpayment is recorded and flagged, never rejected.
	detail, err = svc.RecordPayment(ctx, owner, invoice.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(25)})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, detail.Status)
	require.True(t, detail.Overpaid)
	require.True(t, detail.PaidAmount.Equal(decimal.NewFromInt(125)))
}

func TestCreateFromExtractionMatchesSupplier(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	repo := &memoryInvoiceRepo{}
	sup := &fakeSuppliers{existing: []suppliers.Supplier{{ID: 3, Name: "Acme Traders"}}}
	recv := &fakeReceiver{}
	svc := newTestService(repo, plan.TierPaid, sup, recv)

	result, _, err := svc.CreateFromExtraction(ctx, owner, CreateFromExtractionRequest{
		SupplierName:  "ACME TRADERS",
		InvoiceNumber: "INV-9",
		Lines: []ExtractionLine{
			{Name: "Brass Handle", Quantity: 10, Rate: decimal.NewFromInt(5)},
			{Name: "Iron Hinge", Quantity: 20, Rate: decimal.NewFromInt(2)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), result.SupplierID)
	require.False(t, result.SupplierCreated)
	require.Equal(t, 2, result.LinesReceived)
	require.Empty(t, sup.created)
	require.Len(t, recv.lines, 2)
	require.Equal(t, result.Invoice.ID, recv.lines[0].InvoiceID)
}

func TestCreateFromExtractionCreatesSupplier(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	repo := &memoryInvoiceRepo{}
	sup := &fakeSuppliers{}
	svc := newTestService(repo, plan.TierPaid, sup, nil)

	result, _, err := svc.CreateFromExtraction(ctx, owner, CreateFromExtractionRequest{
		SupplierName:  "Brand New Traders",
		InvoiceNumber: "INV-1",
		Lines:         []ExtractionLine{{Name: "Widget", Quantity: 1}},
	})
	require.NoError(t, err)
	require.True(t, result.SupplierCreated)
	require.Equal(t, []string{"Brand New Traders"}, sup.created)
}
