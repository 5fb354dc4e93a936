package state

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/exportpro/exportpro/internal/catalog/boxtypes"
	"github.com/exportpro/exportpro/internal/catalog/customers"
	"github.com/exportpro/exportpro/internal/catalog/suppliers"
	"github.com/exportpro/exportpro/internal/inventory"
	"github.com/exportpro/exportpro/internal/invoices"
	"github.com/exportpro/exportpro/internal/settings"
	"github.com/exportpro/exportpro/internal/shipments"
)

type fakeSources struct {
	shipments   []shipments.Shipment
	boxes       map[int64][]shipments.Box
	boxProducts map[int64][]shipments.BoxProduct
	settingsErr error
	calls       atomic.Int64
}

func (f *fakeSources) Get(ctx context.Context, owner uuid.UUID) (settings.UserSettings, error) {
	f.calls.Add(1)
	if f.settingsErr != nil {
		return settings.UserSettings{}, f.settingsErr
	}
	return settings.UserSettings{OwnerID: owner, Currency: "USD"}, nil
}

func (f *fakeSources) List(ctx context.Context, owner uuid.UUID) ([]suppliers.Supplier, error) {
	f.calls.Add(1)
	return []suppliers.Supplier{{ID: 1, Name: "Acme"}}, nil
}

type customerSrc struct{ f *fakeSources }

func (c customerSrc) List(ctx context.Context, owner uuid.UUID) ([]customers.Customer, error) {
	c.f.calls.Add(1)
	return []customers.Customer{{ID: 1, Name: "Buyer"}}, nil
}

type boxTypeSrc struct{ f *fakeSources }

func (b boxTypeSrc) List(ctx context.Context, owner uuid.UUID, activeOnly bool) ([]boxtypes.BoxType, error) {
	b.f.calls.Add(1)
	return nil, nil
}

type productSrc struct{ f *fakeSources }

func (p productSrc) List(ctx context.Context, owner uuid.UUID) ([]inventory.Product, error) {
	p.f.calls.Add(1)
	return []inventory.Product{{ID: 1, Name: "Brass Handle", Quantity: 100, AvailableQuantity: 40}}, nil
}

type invoiceSrc struct{ f *fakeSources }

func (i invoiceSrc) List(ctx context.Context, owner uuid.UUID) ([]invoices.Invoice, error) {
	i.f.calls.Add(1)
	return nil, nil
}

type shipmentSrc struct{ f *fakeSources }

func (s shipmentSrc) List(ctx context.Context, owner uuid.UUID) ([]shipments.Shipment, error) {
	s.f.calls.Add(1)
	return s.f.shipments, nil
}

func (s shipmentSrc) BoxesByShipments(ctx context.Context, owner uuid.UUID, shipmentIDs []int64) ([]shipments.Box, error) {
	var out []shipments.Box
	for _, id := range shipmentIDs {
		out = append(out, s.f.boxes[id]...)
	}
	return out, nil
}

func (s shipmentSrc) BoxContents(ctx context.Context, owner uuid.UUID, boxIDs []int64) ([]shipments.BoxProduct, error) {
	var out []shipments.BoxProduct
	for _, id := range boxIDs {
		out = append(out, s.f.boxProducts[id]...)
	}
	return out, nil
}

func sourcesFor(f *fakeSources) Sources {
	return Sources{
		Settings:  f,
		Suppliers: f,
		Customers: customerSrc{f},
		BoxTypes:  boxTypeSrc{f},
		Inventory: productSrc{f},
		Invoices:  invoiceSrc{f},
		Shipments: shipmentSrc{f},
	}
}

func TestRefreshLoadsAllCollections(t *testing.T) {
	f := &fakeSources{
		shipments: []shipments.Shipment{{ID: 10, Name: "Lot 1"}, {ID: 11, Name: "Lot 2"}},
		boxes: map[int64][]shipments.Box{
			10: {{ID: 100, ShipmentID: 10, BoxNumber: 1}},
			11: {{ID: 101, ShipmentID: 11, BoxNumber: 1}, {ID: 102, ShipmentID: 11, BoxNumber: 2}},
		},
		boxProducts: map[int64][]shipments.BoxProduct{
			100: {{ID: 1, BoxID: 100, ProductID: 1, Quantity: 30}},
			102: {{ID: 2, BoxID: 102, ProductID: 1, Quantity: 30}},
		},
	}
	mirror := NewMirror(uuid.New(), sourcesFor(f))

	snapshot, err := mirror.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, "USD", snapshot.Settings.Currency)
	require.Len(t, snapshot.Suppliers, 1)
	require.Len(t, snapshot.Shipments, 2)
	require.Len(t, snapshot.Boxes, 3)
	require.Len(t, snapshot.BoxProducts, 2)
	require.False(t, snapshot.RefreshedAt.IsZero())

	// Snapshot() returns the stored view.
	require.Equal(t, snapshot.RefreshedAt, mirror.Snapshot().RefreshedAt)
}

func TestRefreshFailureKeepsOldSnapshot(t *testing.T) {
	f := &fakeSources{}
	mirror := NewMirror(uuid.New(), sourcesFor(f))

	first, err := mirror.Refresh(context.Background())
	require.NoError(t, err)

	f.settingsErr = errors.New("store offline")
	_, err = mirror.Refresh(context.Background())
	require.Error(t, err)

	// The mirror still serves the last good view.
	require.Equal(t, first.RefreshedAt, mirror.Snapshot().RefreshedAt)
}

func TestManagerOneMirrorPerOwner(t *testing.T) {
	mgr := NewManager(sourcesFor(&fakeSources{}))
	ownerA := uuid.New()
	ownerB := uuid.New()

	m1 := mgr.Acquire(ownerA)
	m2 := mgr.Acquire(ownerA)
	require.Same(t, m1, m2)

	require.NotSame(t, m1, mgr.Acquire(ownerB))

	mgr.Release(ownerA)
	require.NotSame(t, m1, mgr.Acquire(ownerA))
}
