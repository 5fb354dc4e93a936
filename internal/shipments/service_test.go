package shipments

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/exportpro/exportpro/internal/catalog/boxtypes"
	"github.com/exportpro/exportpro/internal/plan"
	"github.com/exportpro/exportpro/internal/shared"
)

type fakeProduct struct {
	total     int64
	available int64
}

// memoryStore backs both Repository and TxRepository. WithTx is not
// transactional; tests exercise the engine's call sequence and arithmetic.
type memoryStore struct {
	owner       uuid.UUID
	shipments   []Shipment
	boxes       []Box
	boxProducts []BoxProduct
	products    map[int64]*fakeProduct
	nextID      int64
}

func newMemoryStore(owner uuid.UUID) *memoryStore {
	return &memoryStore{owner: owner, products: map[int64]*fakeProduct{}}
}

func (m *memoryStore) addProduct(id, total int64) {
	m.products[id] = &fakeProduct{total: total, available: total}
}

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) ListShipments(ctx context.Context, owner uuid.UUID) ([]Shipment, error) {
	out := make([]Shipment, 0)
	for _, s := range m.shipments {
		if s.OwnerID == owner {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryStore) GetShipment(ctx context.Context, owner uuid.UUID, id int64) (Shipment, error) {
	for _, s := range m.shipments {
		if s.OwnerID == owner && s.ID == id {
			return s, nil
		}
	}
	return Shipment{}, shared.ErrNotFound
}

func (m *memoryStore) CreateShipment(ctx context.Context, s Shipment) (int64, error) {
	s.ID = m.id()
	s.CreatedAt = time.Now().UTC()
	m.shipments = append(m.shipments, s)
	return s.ID, nil
}

func (m *memoryStore) UpdateShipment(ctx context.Context, s Shipment) error {
	for i := range m.shipments {
		if m.shipments[i].OwnerID == s.OwnerID && m.shipments[i].ID == s.ID {
			m.shipments[i] = s
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryStore) CountCreatedBetween(ctx context.Context, owner uuid.UUID, start, end time.Time) (int, error) {
	count := 0
	for _, s := range m.shipments {
		if s.OwnerID == owner && !s.CreatedAt.Before(start) && !s.CreatedAt.After(end) {
			count++
		}
	}
	return count, nil
}

func (m *memoryStore) ListBoxes(ctx context.Context, owner uuid.UUID, shipmentID int64) ([]Box, error) {
	return m.boxesOf(shipmentID), nil
}

func (m *memoryStore) ListBoxesByShipments(ctx context.Context, owner uuid.UUID, shipmentIDs []int64) ([]Box, error) {
	var out []Box
	for _, id := range shipmentIDs {
		out = append(out, m.boxesOf(id)...)
	}
	return out, nil
}

func (m *memoryStore) ListBoxProducts(ctx context.Context, owner uuid.UUID, boxIDs []int64) ([]BoxProduct, error) {
	var out []BoxProduct
	for _, id := range boxIDs {
		for _, bp := range m.boxProducts {
			if bp.BoxID == id {
				out = append(out, bp)
			}
		}
	}
	return out, nil
}

// memoryTx adapts memoryStore to TxRepository, whose ListBoxes signature
// omits the owner parameter.
type memoryTx struct{ *memoryStore }

func (m memoryTx) ListBoxes(ctx context.Context, shipmentID int64) ([]Box, error) {
	return m.boxesOf(shipmentID), nil
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(TxRepository) error) error {
	return fn(memoryTx{m})
}

func (m *memoryStore) boxesOf(shipmentID int64) []Box {
	var out []Box
	for _, b := range m.boxes {
		if b.ShipmentID == shipmentID {
			out = append(out, b)
		}
	}
	return out
}

func (m *memoryStore) DeleteShipment(ctx context.Context, owner uuid.UUID, id int64) error {
	for i, s := range m.shipments {
		if s.OwnerID == owner && s.ID == id {
			m.shipments = append(m.shipments[:i], m.shipments[i+1:]...)
			for _, b := range m.boxesOf(id) {
				_ = m.DeleteBox(ctx, b.ID)
			}
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryStore) CountBoxes(ctx context.Context, shipmentID int64) (int, error) {
	return len(m.boxesOf(shipmentID)), nil
}

func (m *memoryStore) GetBox(ctx context.Context, owner uuid.UUID, boxID int64) (Box, error) {
	for _, b := range m.boxes {
		if b.ID == boxID {
			return b, nil
		}
	}
	return Box{}, shared.ErrNotFound
}

func (m *memoryStore) InsertBox(ctx context.Context, b Box) (int64, error) {
	b.ID = m.id()
	m.boxes = append(m.boxes, b)
	return b.ID, nil
}

func (m *memoryStore) DeleteBox(ctx context.Context, boxID int64) error {
	for i, b := range m.boxes {
		if b.ID == boxID {
			m.boxes = append(m.boxes[:i], m.boxes[i+1:]...)
			kept := m.boxProducts[:0]
			for _, bp := range m.boxProducts {
				if bp.BoxID != boxID {
					kept = append(kept, bp)
				}
			}
			m.boxProducts = kept
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryStore) GetBoxProducts(ctx context.Context, boxID int64) ([]BoxProduct, error) {
	var out []BoxProduct
	for _, bp := range m.boxProducts {
		if bp.BoxID == boxID {
			out = append(out, bp)
		}
	}
	return out, nil
}

func (m *memoryStore) ReplaceBoxProducts(ctx context.Context, boxID int64, products []BoxProduct) error {
	kept := m.boxProducts[:0]
	for _, bp := range m.boxProducts {
		if bp.BoxID != boxID {
			kept = append(kept, bp)
		}
	}
	m.boxProducts = kept
	for _, bp := range products {
		if bp.Quantity == 0 {
			continue
		}
		bp.ID = m.id()
		m.boxProducts = append(m.boxProducts, bp)
	}
	return nil
}

func (m *memoryStore) GetProductAvailabilityForUpdate(ctx context.Context, owner uuid.UUID, productID int64) (int64, error) {
	p, ok := m.products[productID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return p.available, nil
}

func (m *memoryStore) SetProductAvailability(ctx context.Context, owner uuid.UUID, productID, qty int64) error {
	p, ok := m.products[productID]
	if !ok {
		return shared.ErrNotFound
	}
	p.available = qty
	return nil
}

type staticTiers struct{ tier plan.Tier }

func (t staticTiers) Tier(ctx context.Context, owner uuid.UUID) (plan.Tier, error) {
	return t.tier, nil
}

type memoryBoxTypes struct {
	types map[int64]boxtypes.BoxType
}

func (m *memoryBoxTypes) Get(ctx context.Context, owner uuid.UUID, id int64) (boxtypes.BoxType, error) {
	bt, ok := m.types[id]
	if !ok {
		return boxtypes.BoxType{}, shared.ErrNotFound
	}
	return bt, nil
}

var testLimits = plan.Limits{Suppliers: 10, Products: 50, ShipmentsPerMonth: 2, InvoicesPerMonth: 10}

func newTestService(store *memoryStore, tier plan.Tier, types *memoryBoxTypes) *Service {
	if types == nil {
		types = &memoryBoxTypes{types: map[int64]boxtypes.BoxType{}}
	}
	return NewService(slog.Default(), store, plan.NewGate(testLimits), staticTiers{tier}, types, nil)
}

// requireConserved asserts that for every product, available plus the sum
// packed across all boxes equals the total ever received.
func requireConserved(t *testing.T, store *memoryStore) {
	t.Helper()
	packed := map[int64]int64{}
	for _, bp := range store.boxProducts {
		packed[bp.ProductID] += bp.Quantity
	}
	for id, p := range store.products {
		require.Equal(t, p.total, p.available+packed[id], "product %d out of balance", id)
	}
}

func TestPackTopUpRemoveConservation(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	store := newMemoryStore(owner)
	store.addProduct(1, 100)
	svc := newTestService(store, plan.TierPaid, nil)

	shipment, _, err := svc.CreateShipment(ctx, owner, CreateShipmentRequest{Name: "Lot 1"})
	require.NoError(t, err)

	box, err := svc.AddBox(ctx, owner, shipment.ID, AddBoxRequest{
		Products: []BoxProductInput{{ProductID: 1, Quantity: 60}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(40), store.products[1].available)
	requireConserved(t, store)

	// Topping up to 75 consumes 15 more.
	_, err = svc.SetBoxProducts(ctx, owner, box.ID, []BoxProductInput{{ProductID: 1, Quantity: 75}})
	require.NoError(t, err)
	require.Equal(t, int64(25), store.products[1].available)
	requireConserved(t, store)

	// Reducing to 10 returns 65.
	_, err = svc.SetBoxProducts(ctx, owner, box.ID, []BoxProductInput{{ProductID: 1, Quantity: 10}})
	require.NoError(t, err)
	require.Equal(t, int64(90), store.products[1].available)
	requireConserved(t, store)

	// Removing the box restores everything.
	require.NoError(t, svc.RemoveBox(ctx, owner, box.ID))
	require.Equal(t, int64(100), store.products[1].available)
	requireConserved(t, store)
}

func TestTopUpCeilingRejectedBeforeMutation(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	store := newMemoryStore(owner)
	store.addProduct(1, 100)
	svc := newTestService(store, plan.TierPaid, nil)

	shipment, _, err := svc.CreateShipment(ctx, owner, CreateShipmentRequest{Name: "Lot 1"})
	require.NoError(t, err)
	box, err := svc.AddBox(ctx, owner, shipment.ID, AddBoxRequest{
		Products: []BoxProductInput{{ProductID: 1, Quantity: 60}},
	})
	require.NoError(t, err)

	// Ceiling is available + already in box = 40 + 60. One over must fail
	// and leave both the box and availability untouched.
	_, err = svc.SetBoxProducts(ctx, owner, box.ID, []BoxProductInput{{ProductID: 1, Quantity: 101}})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Equal(t, int64(40), store.products[1].available)
	contents, _ := store.GetBoxProducts(ctx, box.ID)
	require.Len(t, contents, 1)
	require.Equal(t, int64(60), contents[0].Quantity)
	requireConserved(t, store)

	// Exactly at the ceiling succeeds.
	_, err = svc.SetBoxProducts(ctx, owner, box.ID, []BoxProductInput{{ProductID: 1, Quantity: 100}})
	require.NoError(t, err)
	require.Equal(t, int64(0), store.products[1].available)
	requireConserved(t, store)
}

func TestSetBoxProductsRejectionIsAtomic(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	store := newMemoryStore(owner)
	store.addProduct(1, 50)
	store.addProduct(2, 5)
	svc := newTestService(store, plan.TierPaid, nil)

	shipment, _, err := svc.CreateShipment(ctx, owner, CreateShipmentRequest{Name: "Lot 1"})
	require.NoError(t, err)
	box, err := svc.AddBox(ctx, owner, shipment.ID, AddBoxRequest{})
	require.NoError(t, err)

	// Product 1 alone would fit, but product 2 cannot; no delta may land.
	_, err = svc.SetBoxProducts(ctx, owner, box.ID, []BoxProductInput{
		{ProductID: 1, Quantity: 30},
		{ProductID: 2, Quantity: 6},
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Equal(t, int64(50), store.products[1].available)
	require.Equal(t, int64(5), store.products[2].available)
	requireConserved(t, store)
}

func TestDeleteShipmentRestoresAllBoxes(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	store := newMemoryStore(owner)
	store.addProduct(1, 100)
	store.addProduct(2, 30)
	svc := newTestService(store, plan.TierPaid, nil)

	shipment, _, err := svc.CreateShipment(ctx, owner, CreateShipmentRequest{Name: "Lot 1"})
	require.NoError(t, err)
	_, err = svc.AddBox(ctx, owner, shipment.ID, AddBoxRequest{
		Products: []BoxProductInput{{ProductID: 1, Quantity: 40}, {ProductID: 2, Quantity: 10}},
	})
	require.NoError(t, err)
	_, err = svc.AddBox(ctx, owner, shipment.ID, AddBoxRequest{
		Products: []BoxProductInput{{ProductID: 1, Quantity: 25}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(35), store.products[1].available)
	require.Equal(t, int64(20), store.products[2].available)

	require.NoError(t, svc.DeleteShipment(ctx, owner, shipment.ID))
	require.Equal(t, int64(100), store.products[1].available)
	require.Equal(t, int64(30), store.products[2].available)
	require.Empty(t, store.boxes)
	require.Empty(t, store.boxProducts)
	requireConserved(t, store)
}

func TestBoxNumberingFromLiveCount(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	store := newMemoryStore(owner)
	svc := newTestService(store, plan.TierPaid, nil)

	shipment, _, err := svc.CreateShipment(ctx, owner, CreateShipmentRequest{Name: "Lot 1"})
	require.NoError(t, err)

	b1, err := svc.AddBox(ctx, owner, shipment.ID, AddBoxRequest{})
	require.NoError(t, err)
	b2, err := svc.AddBox(ctx, owner, shipment.ID, AddBoxRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, b1.BoxNumber)
	require.Equal(t, 2, b2.BoxNumber)

	// Numbers derive from the live count, not the historical maximum:
	// deleting box 1 leaves [2], and the next box is numbered 2.
	require.NoError(t, svc.RemoveBox(ctx, owner, b1.ID))
	b3, err := svc.AddBox(ctx, owner, shipment.ID, AddBoxRequest{})
	require.NoError(t, err)
	require.Equal(t, 2, b3.BoxNumber)
}

func TestAddBoxSnapshotsBoxType(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	store := newMemoryStore(owner)
	types := &memoryBoxTypes{types: map[int64]boxtypes.BoxType{
		7: {ID: 7, Dimensions: "30x40x50", EmptyWeight: decimal.NewFromFloat(1.5)},
	}}
	svc := newTestService(store, plan.TierPaid, types)

	shipment, _, err := svc.CreateShipment(ctx, owner, CreateShipmentRequest{Name: "Lot 1"})
	require.NoError(t, err)
	typeID := int64(7)
	box, err := svc.AddBox(ctx, owner, shipment.ID, AddBoxRequest{BoxTypeID: &typeID})
	require.NoError(t, err)
	require.Equal(t, "30x40x50", box.Dimensions)
	require.True(t, box.Weight.Equal(decimal.NewFromFloat(1.5)))

	// Later template edits never reach the snapshot.
	types.types[7] = boxtypes.BoxType{ID: 7, Dimensions: "60x60x60", EmptyWeight: decimal.NewFromInt(9)}
	stored, err := store.GetBox(ctx, owner, box.ID)
	require.NoError(t, err)
	require.Equal(t, "30x40x50", stored.Dimensions)
}

func TestCreateShipmentMonthQuota(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	store := newMemoryStore(owner)
	svc := newTestService(store, plan.TierFree, nil)

	_, _, err := svc.CreateShipment(ctx, owner, CreateShipmentRequest{Name: "A"})
	require.NoError(t, err)
	_, _, err = svc.CreateShipment(ctx, owner, CreateShipmentRequest{Name: "B"})
	require.NoError(t, err)

	_, decision, err := svc.CreateShipment(ctx, owner, CreateShipmentRequest{Name: "C"})
	require.ErrorIs(t, err, shared.ErrLimitExceeded)
	require.Equal(t, 2, decision.Current)
	require.Equal(t, 2, decision.Limit)
}

func TestSummarizeFailSoftOnDimensions(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	store := newMemoryStore(owner)
	svc := newTestService(store, plan.TierPaid, nil)

	shipment, _, err := svc.CreateShipment(ctx, owner, CreateShipmentRequest{Name: "Lot 1"})
	require.NoError(t, err)

	good := "100x100x100"
	bad := "huge-ish"
	w1 := decimal.NewFromInt(12)
	w2 := decimal.NewFromInt(8)
	_, err = svc.AddBox(ctx, owner, shipment.ID, AddBoxRequest{Dimensions: &good, Weight: &w1})
	require.NoError(t, err)
	_, err = svc.AddBox(ctx, owner, shipment.ID, AddBoxRequest{Dimensions: &bad, Weight: &w2})
	require.NoError(t, err)

	summary, err := svc.Summarize(ctx, owner, shipment.ID)
	require.NoError(t, err)
	require.Equal(t, 2, summary.BoxCount)
	require.True(t, summary.TotalWeight.Equal(decimal.NewFromInt(20)))
	require.InDelta(t, 1.0, summary.TotalCBM, 1e-9)
}
