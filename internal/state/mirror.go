// Package state maintains a per-owner read mirror of the owner's data.
// Document generators and summary views read the mirror instead of issuing
// their own query fans. Each mirror belongs to exactly one owner; it is
// created on sign-in and torn down on sign-out.
package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/exportpro/exportpro/internal/catalog/boxtypes"
	"github.com/exportpro/exportpro/internal/catalog/customers"
	"github.com/exportpro/exportpro/internal/catalog/suppliers"
	"github.com/exportpro/exportpro/internal/inventory"
	"github.com/exportpro/exportpro/internal/invoices"
	"github.com/exportpro/exportpro/internal/settings"
	"github.com/exportpro/exportpro/internal/shipments"
)

// Snapshot is one consistent view of an owner's collections.
type Snapshot struct {
	Settings    settings.UserSettings  `json:"settings"`
	Suppliers   []suppliers.Supplier   `json:"suppliers"`
	Customers   []customers.Customer   `json:"customers"`
	BoxTypes    []boxtypes.BoxType     `json:"box_types"`
	Products    []inventory.Product    `json:"products"`
	Invoices    []invoices.Invoice     `json:"invoices"`
	Shipments   []shipments.Shipment   `json:"shipments"`
	Boxes       []shipments.Box        `json:"boxes"`
	BoxProducts []shipments.BoxProduct `json:"box_products"`
	RefreshedAt time.Time              `json:"refreshed_at"`
}

// SettingsSource reads the owner's settings row.
type SettingsSource interface {
	Get(ctx context.Context, owner uuid.UUID) (settings.UserSettings, error)
}

// SupplierSource lists suppliers.
type SupplierSource interface {
	List(ctx context.Context, owner uuid.UUID) ([]suppliers.Supplier, error)
}

// CustomerSource lists customers.
type CustomerSource interface {
	List(ctx context.Context, owner uuid.UUID) ([]customers.Customer, error)
}

// BoxTypeSource lists box types, active and retired.
type BoxTypeSource interface {
	List(ctx context.Context, owner uuid.UUID, activeOnly bool) ([]boxtypes.BoxType, error)
}

// ProductSource lists the product ledger.
type ProductSource interface {
	List(ctx context.Context, owner uuid.UUID) ([]inventory.Product, error)
}

// InvoiceSource lists invoices.
type InvoiceSource interface {
	List(ctx context.Context, owner uuid.UUID) ([]invoices.Invoice, error)
}

// ShipmentSource lists shipments and their packing structure.
type ShipmentSource interface {
	List(ctx context.Context, owner uuid.UUID) ([]shipments.Shipment, error)
	BoxesByShipments(ctx context.Context, owner uuid.UUID, shipmentIDs []int64) ([]shipments.Box, error)
	BoxContents(ctx context.Context, owner uuid.UUID, boxIDs []int64) ([]shipments.BoxProduct, error)
}

// Sources bundles the services the mirror reads from.
type Sources struct {
	Settings  SettingsSource
	Suppliers SupplierSource
	Customers CustomerSource
	BoxTypes  BoxTypeSource
	Inventory ProductSource
	Invoices  InvoiceSource
	Shipments ShipmentSource
}

// Mirror holds the latest snapshot for one owner.
type Mirror struct {
	owner   uuid.UUID
	sources Sources

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewMirror builds an empty mirror for the owner.
func NewMirror(owner uuid.UUID, sources Sources) *Mirror {
	return &Mirror{owner: owner, sources: sources}
}

// Snapshot returns the last refreshed view.
func (m *Mirror) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Refresh re-fetches every collection. Independent collections load
// concurrently; boxes load in two phases because they key off the shipment
// list, and box products off the box list.
func (m *Mirror) Refresh(ctx context.Context) (Snapshot, error) {
	var next Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		next.Settings, err = m.sources.Settings.Get(gctx, m.owner)
		return err
	})
	g.Go(func() error {
		var err error
		next.Suppliers, err = m.sources.Suppliers.List(gctx, m.owner)
		return err
	})
	g.Go(func() error {
		var err error
		next.Customers, err = m.sources.Customers.List(gctx, m.owner)
		return err
	})
	g.Go(func() error {
		var err error
		next.BoxTypes, err = m.sources.BoxTypes.List(gctx, m.owner, false)
		return err
	})
	g.Go(func() error {
		var err error
		next.Products, err = m.sources.Inventory.List(gctx, m.owner)
		return err
	})
	g.Go(func() error {
		var err error
		next.Invoices, err = m.sources.Invoices.List(gctx, m.owner)
		return err
	})
	g.Go(func() error {
		var err error
		next.Shipments, err = m.sources.Shipments.List(gctx, m.owner)
		if err != nil {
			return err
		}
		ids := make([]int64, len(next.Shipments))
		for i, s := range next.Shipments {
			ids[i] = s.ID
		}
		next.Boxes, err = m.sources.Shipments.BoxesByShipments(gctx, m.owner, ids)
		if err != nil {
			return err
		}
		boxIDs := make([]int64, len(next.Boxes))
		for i, b := range next.Boxes {
			boxIDs[i] = b.ID
		}
		next.BoxProducts, err = m.sources.Shipments.BoxContents(gctx, m.owner, boxIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("refresh mirror: %w", err)
	}
	next.RefreshedAt = time.Now().UTC()

	m.mu.Lock()
	m.snapshot = next
	m.mu.Unlock()
	return next, nil
}

// Manager tracks live mirrors by owner.
type Manager struct {
	sources Sources

	mu      sync.Mutex
	mirrors map[uuid.UUID]*Mirror
}

// NewManager builds the mirror manager.
func NewManager(sources Sources) *Manager {
	return &Manager{sources: sources, mirrors: make(map[uuid.UUID]*Mirror)}
}

// Acquire returns the owner's mirror, creating it on first use.
func (mgr *Manager) Acquire(owner uuid.UUID) *Mirror {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	m, ok := mgr.mirrors[owner]
	if !ok {
		m = NewMirror(owner, mgr.sources)
		mgr.mirrors[owner] = m
	}
	return m
}

// Release drops the owner's mirror, typically on sign-out.
func (mgr *Manager) Release(owner uuid.UUID) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	delete(mgr.mirrors, owner)
}
