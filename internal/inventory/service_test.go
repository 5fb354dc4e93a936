package inventory

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/exportpro/exportpro/internal/plan"
	"github.com/exportpro/exportpro/internal/shared"
)

// memoryLedger backs both Repository and TxRepository. WithTx is not
// transactional here; service tests only exercise the call sequence.
type memoryLedger struct {
	products   []Product
	links      []InvoiceLink
	nextID     int64
	nextLinkID int64
}

func (m *memoryLedger) List(ctx context.Context, owner uuid.UUID) ([]Product, error) {
	var out []Product
	for i := len(m.products) - 1; i >= 0; i-- {
		if m.products[i].OwnerID == owner {
			out = append(out, m.products[i])
		}
	}
	return out, nil
}

func (m *memoryLedger) Get(ctx context.Context, owner uuid.UUID, id int64) (Product, error) {
	for _, p := range m.products {
		if p.OwnerID == owner && p.ID == id {
			return p, nil
		}
	}
	return Product{}, shared.ErrNotFound
}

func (m *memoryLedger) Update(ctx context.Context, p Product) error {
	for i := range m.products {
		if m.products[i].OwnerID == p.OwnerID && m.products[i].ID == p.ID {
			m.products[i] = p
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryLedger) Delete(ctx context.Context, owner uuid.UUID, id int64) error {
	for i := range m.products {
		if m.products[i].OwnerID == owner && m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			kept := m.links[:0]
			for _, l := range m.links {
				if l.ProductID != id {
					kept = append(kept, l)
				}
			}
			m.links = kept
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryLedger) Count(ctx context.Context, owner uuid.UUID) (int, error) {
	count := 0
	for _, p := range m.products {
		if p.OwnerID == owner {
			count++
		}
	}
	return count, nil
}

func (m *memoryLedger) Links(ctx context.Context, owner uuid.UUID, productID int64) ([]InvoiceLink, error) {
	var out []InvoiceLink
	for _, l := range m.links {
		if l.ProductID == productID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryLedger) WithTx(ctx context.Context, fn func(TxRepository) error) error {
	return fn(m)
}

func (m *memoryLedger) FindByIdentity(ctx context.Context, owner uuid.UUID, nameKey, hsCode string) (Product, error) {
	for _, p := range m.products {
		if p.OwnerID == owner && NameKey(p.Name) == nameKey && p.HSCode == hsCode {
			return p, nil
		}
	}
	return Product{}, shared.ErrNotFound
}

func (m *memoryLedger) Insert(ctx context.Context, p Product) (int64, error) {
	m.nextID++
	p.ID = m.nextID
	m.products = append(m.products, p)
	return p.ID, nil
}

func (m *memoryLedger) HasLink(ctx context.Context, productID, invoiceID int64) (bool, error) {
	for _, l := range m.links {
		if l.ProductID == productID && l.InvoiceID == invoiceID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryLedger) InsertLink(ctx context.Context, link InvoiceLink) error {
	for _, l := range m.links {
		if l.ProductID == link.ProductID && l.InvoiceID == link.InvoiceID {
			return errLinkExists
		}
	}
	m.nextLinkID++
	link.ID = m.nextLinkID
	m.links = append(m.links, link)
	return nil
}

func (m *memoryLedger) AddQuantities(ctx context.Context, owner uuid.UUID, productID, deltaTotal, deltaAvailable int64) error {
	for i := range m.products {
		if m.products[i].OwnerID == owner && m.products[i].ID == productID {
			m.products[i].Quantity += deltaTotal
			m.products[i].AvailableQuantity += deltaAvailable
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryLedger) AppendAlternateNames(ctx context.Context, owner uuid.UUID, productID int64, names []string) error {
	for i := range m.products {
		if m.products[i].OwnerID == owner && m.products[i].ID == productID {
			for _, n := range names {
				seen := false
				for _, have := range m.products[i].AlternateNames {
					if have == n {
						seen = true
						break
					}
				}
				if !seen {
					m.products[i].AlternateNames = append(m.products[i].AlternateNames, n)
				}
			}
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryLedger) GetForUpdate(ctx context.Context, owner uuid.UUID, productID int64) (Product, error) {
	return m.Get(ctx, owner, productID)
}

func (m *memoryLedger) SetAvailableQuantity(ctx context.Context, owner uuid.UUID, productID, qty int64) error {
	for i := range m.products {
		if m.products[i].OwnerID == owner && m.products[i].ID == productID {
			m.products[i].AvailableQuantity = qty
			return nil
		}
	}
	return shared.ErrNotFound
}

type staticTiers struct{ tier plan.Tier }

func (t staticTiers) Tier(ctx context.Context, owner uuid.UUID) (plan.Tier, error) {
	return t.tier, nil
}

var testLimits = plan.Limits{Suppliers: 10, Products: 3, ShipmentsPerMonth: 5, InvoicesPerMonth: 10}

func newTestService(ledger *memoryLedger, tier plan.Tier) *Service {
	return NewService(slog.Default(), ledger, plan.NewGate(testLimits), staticTiers{tier}, nil)
}

func TestReceiveLineCreatesProduct(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	ledger := &memoryLedger{}
	svc := newTestService(ledger, plan.TierFree)

	result, _, err := svc.ReceiveLine(ctx, owner, ReceiveLineRequest{
		InvoiceID: 1, Name: "Brass Handle", HSCode: "7418", Quantity: 100, Rate: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.True(t, result.Created)
	require.Equal(t, int64(100), result.Product.Quantity)
	require.Equal(t, int64(100), result.Product.AvailableQuantity)
}

func TestReceiveLineMergesByFoldedIdentity(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	ledger := &memoryLedger{}
	svc := newTestService(ledger, plan.TierFree)

	_, _, err := svc.ReceiveLine(ctx, owner, ReceiveLineRequest{
		InvoiceID: 1, Name: "Brass Handle", HSCode: "7418", Quantity: 100, Rate: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	// Same identity after folding and trimming, different invoice.
	result, _, err := svc.ReceiveLine(ctx, owner, ReceiveLineRequest{
		InvoiceID: 2, Name: "  BRASS handle ", HSCode: "7418", Quantity: 50, Rate: decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	require.True(t, result.Merged)
	require.Equal(t, int64(150), result.Product.Quantity)
	require.Equal(t, int64(150), result.Product.AvailableQuantity)
	require.Contains(t, result.Product.AlternateNames, "BRASS handle")

	count, _ := ledger.Count(ctx, owner)
	require.Equal(t, 1, count)
}

func TestReceiveLineDifferentHSCodeIsNewProduct(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	ledger := &memoryLedger{}
	svc := newTestService(ledger, plan.TierFree)

	_, _, err := svc.ReceiveLine(ctx, owner, ReceiveLineRequest{InvoiceID: 1, Name: "Brass Handle", HSCode: "7418", Quantity: 10})
	require.NoError(t, err)
	result, _, err := svc.ReceiveLine(ctx, owner, ReceiveLineRequest{InvoiceID: 1, Name: "Brass Handle", HSCode: "8302", Quantity: 10})
	require.NoError(t, err)
	require.True(t, result.Created)

	count, _ := ledger.Count(ctx, owner)
	require.Equal(t, 2, count)
}

func TestReceiveLineDuplicateInvoiceIsNoOp(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	ledger := &memoryLedger{}
	svc := newTestService(ledger, plan.TierFree)

	_, _, err := svc.ReceiveLine(ctx, owner, ReceiveLineRequest{InvoiceID: 7, Name: "Brass Handle", HSCode: "7418", Quantity: 100})
	require.NoError(t, err)

	// Re-submitting the same invoice line changes nothing.
	result, _, err := svc.ReceiveLine(ctx, owner, ReceiveLineRequest{InvoiceID: 7, Name: "Brass Handle", HSCode: "7418", Quantity: 100})
	require.NoError(t, err)
	require.True(t, result.Duplicate)
	require.False(t, result.Merged)
	require.Equal(t, int64(100), result.Product.Quantity)
	require.Equal(t, int64(100), result.Product.AvailableQuantity)
	require.Len(t, ledger.links, 1)
}

func TestReceiveLineGatedAtProductLimit(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	ledger := &memoryLedger{}
	svc := newTestService(ledger, plan.TierFree)

	for i := int64(1); i <= 3; i++ {
		_, _, err := svc.ReceiveLine(ctx, owner, ReceiveLineRequest{InvoiceID: i, Name: string(rune('A' + i)), Quantity: 1})
		require.NoError(t, err)
	}

	_, decision, err := svc.ReceiveLine(ctx, owner, ReceiveLineRequest{InvoiceID: 9, Name: "One Too Many", Quantity: 1})
	require.ErrorIs(t, err, shared.ErrLimitExceeded)
	require.Equal(t, 3, decision.Current)
	require.Equal(t, 3, decision.Limit)

	// Merging into an existing product is not gated.
	result, _, err := svc.ReceiveLine(ctx, owner, ReceiveLineRequest{InvoiceID: 9, Name: string(rune('A' + 1)), Quantity: 5})
	require.NoError(t, err)
	require.True(t, result.Merged)
}

func TestAverageRateUnweighted(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	ledger := &memoryLedger{}
	svc := newTestService(ledger, plan.TierFree)

	_, _, err := svc.ReceiveLine(ctx, owner, ReceiveLineRequest{InvoiceID: 1, Name: "Brass Handle", Quantity: 1, Rate: decimal.NewFromInt(10)})
	require.NoError(t, err)
	result, _, err := svc.ReceiveLine(ctx, owner, ReceiveLineRequest{InvoiceID: 2, Name: "Brass Handle", Quantity: 999, Rate: decimal.NewFromInt(20)})
	require.NoError(t, err)

	// Quantity does not weight the mean: (10+20)/2, not (10*1+20*999)/1000.
	rate, err := svc.AverageRate(ctx, owner, result.Product.ID)
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.NewFromInt(15)), "got %s", rate)
}

func TestAverageRateNoLinksIsZero(t *testing.T) {
	ledger := &memoryLedger{}
	svc := newTestService(ledger, plan.TierFree)
	rate, err := svc.AverageRate(context.Background(), uuid.New(), 42)
	require.NoError(t, err)
	require.True(t, rate.IsZero())
}

func TestApplyAvailabilityDeltaClampsAtZero(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	ledger := &memoryLedger{}
	svc := newTestService(ledger, plan.TierFree)

	result, _, err := svc.ReceiveLine(ctx, owner, ReceiveLineRequest{InvoiceID: 1, Name: "Brass Handle", Quantity: 10})
	require.NoError(t, err)
	id := result.Product.ID

	p, err := svc.ApplyAvailabilityDelta(ctx, owner, id, -4)
	require.NoError(t, err)
	require.Equal(t, int64(6), p.AvailableQuantity)

	// Over-withdrawal floors at zero instead of going negative.
	p, err = svc.ApplyAvailabilityDelta(ctx, owner, id, -100)
	require.NoError(t, err)
	require.Equal(t, int64(0), p.AvailableQuantity)
}

func TestClampDelta(t *testing.T) {
	next, clamped := ClampDelta(10, -4)
	require.Equal(t, int64(6), next)
	require.Equal(t, int64(0), clamped)

	next, clamped = ClampDelta(3, -10)
	require.Equal(t, int64(0), next)
	require.Equal(t, int64(7), clamped)

	next, clamped = ClampDelta(3, 5)
	require.Equal(t, int64(8), next)
	require.Equal(t, int64(0), clamped)
}
