package shipments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/exportpro/exportpro/internal/catalog/boxtypes"
	"github.com/exportpro/exportpro/internal/inventory"
	"github.com/exportpro/exportpro/internal/observability"
	"github.com/exportpro/exportpro/internal/plan"
	"github.com/exportpro/exportpro/internal/shared"
)

// TierSource resolves an owner's subscription tier.
type TierSource interface {
	Tier(ctx context.Context, owner uuid.UUID) (plan.Tier, error)
}

// BoxTypeSource resolves box type templates for snapshotting.
type BoxTypeSource interface {
	Get(ctx context.Context, owner uuid.UUID, id int64) (boxtypes.BoxType, error)
}

// Service implements the packing engine. Every operation that moves
// quantities runs inside one transaction: the box rows and the availability
// deltas they imply commit or roll back together.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	gate     *plan.Gate
	tiers    TierSource
	boxTypes BoxTypeSource
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewService builds Service. metrics may be nil.
func NewService(logger *slog.Logger, repo Repository, gate *plan.Gate, tiers TierSource, boxTypes BoxTypeSource, metrics *observability.Metrics) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		gate:     gate,
		tiers:    tiers,
		boxTypes: boxTypes,
		metrics:  metrics,
		now:      time.Now,
	}
}

// CreateShipment persists a shipment, subject to the per-month quota. The
// quota month is the UTC calendar month of the creation instant.
func (s *Service) CreateShipment(ctx context.Context, owner uuid.UUID, req CreateShipmentRequest) (Shipment, plan.Decision, error) {
	tier, err := s.tiers.Tier(ctx, owner)
	if err != nil {
		return Shipment{}, plan.Decision{}, fmt.Errorf("resolve tier: %w", err)
	}
	decision, err := s.gate.Allow(ctx, tier, plan.ResourceShipments, func(ctx context.Context) (int, error) {
		start, end := plan.MonthBounds(s.now())
		return s.repo.CountCreatedBetween(ctx, owner, start, end)
	})
	if err != nil {
		return Shipment{}, plan.Decision{}, err
	}
	if !decision.Allowed {
		return Shipment{}, decision, shared.ErrLimitExceeded
	}

	shipment := Shipment{
		OwnerID:     owner,
		Name:        req.Name,
		Destination: req.Destination,
		CustomerID:  req.CustomerID,
		LotNumber:   req.LotNumber,
	}
	id, err := s.repo.CreateShipment(ctx, shipment)
	if err != nil {
		return Shipment{}, decision, fmt.Errorf("create shipment: %w", err)
	}
	shipment.ID = id
	return shipment, decision, nil
}

// UpdateShipment applies partial edits. Box contents are untouched.
func (s *Service) UpdateShipment(ctx context.Context, owner uuid.UUID, id int64, req UpdateShipmentRequest) (Shipment, error) {
	shipment, err := s.repo.GetShipment(ctx, owner, id)
	if err != nil {
		return Shipment{}, fmt.Errorf("get shipment: %w", err)
	}
	if req.Name != nil {
		shipment.Name = *req.Name
	}
	if req.Destination != nil {
		shipment.Destination = *req.Destination
	}
	if req.CustomerID != nil {
		shipment.CustomerID = req.CustomerID
	}
	if req.LotNumber != nil {
		shipment.LotNumber = *req.LotNumber
	}
	if err := s.repo.UpdateShipment(ctx, shipment); err != nil {
		return Shipment{}, fmt.Errorf("update shipment: %w", err)
	}
	return shipment, nil
}

// Get returns one shipment.
func (s *Service) Get(ctx context.Context, owner uuid.UUID, id int64) (Shipment, error) {
	return s.repo.GetShipment(ctx, owner, id)
}

// List returns the owner's shipments, newest first.
func (s *Service) List(ctx context.Context, owner uuid.UUID) ([]Shipment, error) {
	return s.repo.ListShipments(ctx, owner)
}

// Boxes returns a shipment's boxes in box number order.
func (s *Service) Boxes(ctx context.Context, owner uuid.UUID, shipmentID int64) ([]Box, error) {
	return s.repo.ListBoxes(ctx, owner, shipmentID)
}

// BoxesByShipments returns the boxes of many shipments in one query.
func (s *Service) BoxesByShipments(ctx context.Context, owner uuid.UUID, shipmentIDs []int64) ([]Box, error) {
	return s.repo.ListBoxesByShipments(ctx, owner, shipmentIDs)
}

// BoxContents returns the packed products of the given boxes.
func (s *Service) BoxContents(ctx context.Context, owner uuid.UUID, boxIDs []int64) ([]BoxProduct, error) {
	return s.repo.ListBoxProducts(ctx, owner, boxIDs)
}

// Summarize derives packing totals for one shipment. Malformed box
// dimension strings contribute zero volume rather than failing the total.
func (s *Service) Summarize(ctx context.Context, owner uuid.UUID, shipmentID int64) (ShipmentSummary, error) {
	shipment, err := s.repo.GetShipment(ctx, owner, shipmentID)
	if err != nil {
		return ShipmentSummary{}, fmt.Errorf("get shipment: %w", err)
	}
	boxes, err := s.repo.ListBoxes(ctx, owner, shipmentID)
	if err != nil {
		return ShipmentSummary{}, fmt.Errorf("list boxes: %w", err)
	}
	summary := ShipmentSummary{Shipment: shipment, BoxCount: len(boxes), TotalWeight: decimal.Zero}
	for _, b := range boxes {
		summary.TotalWeight = summary.TotalWeight.Add(b.Weight)
		summary.TotalCBM += CBM(b.Dimensions)
	}
	return summary, nil
}

// AddBox appends a box to a shipment. The box number is the live box count
// plus one; numbers freed by deletions are never reissued, so gaps are
// normal. Dimensions and weight snapshot the box type at this instant.
// Initial contents consume availability like a SetBoxProducts call.
func (s *Service) AddBox(ctx context.Context, owner uuid.UUID, shipmentID int64, req AddBoxRequest) (Box, error) {
	dimensions := ""
	weight := decimal.Zero
	if req.BoxTypeID != nil {
		bt, err := s.boxTypes.Get(ctx, owner, *req.BoxTypeID)
		if err != nil {
			return Box{}, fmt.Errorf("get box type: %w", err)
		}
		dimensions = bt.Dimensions
		weight = bt.EmptyWeight
	}
	if req.Dimensions != nil {
		dimensions = *req.Dimensions
	}
	if req.Weight != nil {
		weight = *req.Weight
	}

	var box Box
	err := s.repo.WithTx(ctx, func(tx TxRepository) error {
		if _, err := tx.GetShipment(ctx, owner, shipmentID); err != nil {
			return fmt.Errorf("get shipment: %w", err)
		}
		count, err := tx.CountBoxes(ctx, shipmentID)
		if err != nil {
			return fmt.Errorf("count boxes: %w", err)
		}
		box = Box{
			ShipmentID: shipmentID,
			BoxTypeID:  req.BoxTypeID,
			BoxNumber:  count + 1,
			Weight:     weight,
			Dimensions: dimensions,
		}
		id, err := tx.InsertBox(ctx, box)
		if err != nil {
			return fmt.Errorf("insert box: %w", err)
		}
		box.ID = id
		if len(req.Products) > 0 {
			if err := s.reconcile(ctx, tx, owner, id, nil, req.Products); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Box{}, err
	}
	return box, nil
}

// SetBoxProducts replaces a box's contents with the desired list. Decreases
// return quantity to availability, increases consume it. The whole request
// is validated against the top-up ceiling before any quantity moves; on
// rejection nothing has changed.
func (s *Service) SetBoxProducts(ctx context.Context, owner uuid.UUID, boxID int64, desired []BoxProductInput) ([]BoxProduct, error) {
	var result []BoxProduct
	err := s.repo.WithTx(ctx, func(tx TxRepository) error {
		box, err := tx.GetBox(ctx, owner, boxID)
		if err != nil {
			return fmt.Errorf("get box: %w", err)
		}
		current, err := tx.GetBoxProducts(ctx, box.ID)
		if err != nil {
			return fmt.Errorf("get box contents: %w", err)
		}
		if err := s.reconcile(ctx, tx, owner, box.ID, current, desired); err != nil {
			return err
		}
		result, err = tx.GetBoxProducts(ctx, box.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveBox restores every packed quantity to availability, then deletes
// the box. Remaining box numbers keep their values.
func (s *Service) RemoveBox(ctx context.Context, owner uuid.UUID, boxID int64) error {
	return s.repo.WithTx(ctx, func(tx TxRepository) error {
		box, err := tx.GetBox(ctx, owner, boxID)
		if err != nil {
			return fmt.Errorf("get box: %w", err)
		}
		current, err := tx.GetBoxProducts(ctx, box.ID)
		if err != nil {
			return fmt.Errorf("get box contents: %w", err)
		}
		if err := s.restore(ctx, tx, owner, current); err != nil {
			return err
		}
		if err := tx.DeleteBox(ctx, box.ID); err != nil {
			return fmt.Errorf("delete box: %w", err)
		}
		return nil
	})
}

// DeleteShipment restores the contents of every box, then cascades the
// delete through boxes and box products.
func (s *Service) DeleteShipment(ctx context.Context, owner uuid.UUID, shipmentID int64) error {
	return s.repo.WithTx(ctx, func(tx TxRepository) error {
		if _, err := tx.GetShipment(ctx, owner, shipmentID); err != nil {
			return fmt.Errorf("get shipment: %w", err)
		}
		boxes, err := tx.ListBoxes(ctx, shipmentID)
		if err != nil {
			return fmt.Errorf("list boxes: %w", err)
		}
		var packed []BoxProduct
		for _, b := range boxes {
			contents, err := tx.GetBoxProducts(ctx, b.ID)
			if err != nil {
				return fmt.Errorf("get box contents: %w", err)
			}
			packed = append(packed, contents...)
		}
		if err := s.restore(ctx, tx, owner, packed); err != nil {
			return err
		}
		if err := tx.DeleteShipment(ctx, owner, shipmentID); err != nil {
			return fmt.Errorf("delete shipment: %w", err)
		}
		return nil
	})
}

// reconcile moves a box from its current contents to the desired list.
// Products are locked in ascending id order; the availability check runs
// for the entire union before the first delta is written.
func (s *Service) reconcile(ctx context.Context, tx TxRepository, owner uuid.UUID, boxID int64, current []BoxProduct, desired []BoxProductInput) error {
	currentQty := make(map[int64]int64, len(current))
	for _, bp := range current {
		currentQty[bp.ProductID] += bp.Quantity
	}
	desiredQty := make(map[int64]int64, len(desired))
	for _, in := range desired {
		desiredQty[in.ProductID] += in.Quantity
	}

	ids := make([]int64, 0, len(currentQty)+len(desiredQty))
	seen := make(map[int64]bool)
	for pid := range currentQty {
		if !seen[pid] {
			ids = append(ids, pid)
			seen[pid] = true
		}
	}
	for pid := range desiredQty {
		if !seen[pid] {
			ids = append(ids, pid)
			seen[pid] = true
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	available := make(map[int64]int64, len(ids))
	for _, pid := range ids {
		avail, err := tx.GetProductAvailabilityForUpdate(ctx, owner, pid)
		if err != nil {
			return fmt.Errorf("lock product %d: %w", pid, err)
		}
		// A top-up may re-consume what this box already holds, but no more.
		if desiredQty[pid] > avail+currentQty[pid] {
			return fmt.Errorf("product %d: want %d, have %d available plus %d in box: %w",
				pid, desiredQty[pid], avail, currentQty[pid], shared.ErrInsufficientStock)
		}
		available[pid] = avail
	}

	for _, pid := range ids {
		delta := currentQty[pid] - desiredQty[pid]
		if delta == 0 {
			continue
		}
		next, clamped := inventory.ClampDelta(available[pid], delta)
		if clamped > 0 {
			s.logger.Warn("availability delta clamped at zero",
				slog.Int64("product_id", pid),
				slog.Int64("delta", delta),
				slog.Int64("lost", clamped))
			s.metrics.CountClamp()
		}
		if err := tx.SetProductAvailability(ctx, owner, pid, next); err != nil {
			return fmt.Errorf("set availability for product %d: %w", pid, err)
		}
	}

	rows := make([]BoxProduct, 0, len(desired))
	for _, in := range desired {
		if in.Quantity > 0 {
			rows = append(rows, BoxProduct{BoxID: boxID, ProductID: in.ProductID, Quantity: in.Quantity})
		}
	}
	if err := tx.ReplaceBoxProducts(ctx, boxID, rows); err != nil {
		return fmt.Errorf("replace box contents: %w", err)
	}
	return nil
}

// restore returns packed quantities to availability. Restoration never hits
// the zero floor, but the shared clamp keeps the arithmetic in one place.
func (s *Service) restore(ctx context.Context, tx TxRepository, owner uuid.UUID, packed []BoxProduct) error {
	totals := make(map[int64]int64)
	var ids []int64
	for _, bp := range packed {
		if _, ok := totals[bp.ProductID]; !ok {
			ids = append(ids, bp.ProductID)
		}
		totals[bp.ProductID] += bp.Quantity
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, pid := range ids {
		avail, err := tx.GetProductAvailabilityForUpdate(ctx, owner, pid)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				// Product was hard-deleted while packed. Nothing to restore to.
				continue
			}
			return fmt.Errorf("lock product %d: %w", pid, err)
		}
		next, _ := inventory.ClampDelta(avail, totals[pid])
		if err := tx.SetProductAvailability(ctx, owner, pid, next); err != nil {
			return fmt.Errorf("set availability for product %d: %w", pid, err)
		}
	}
	return nil
}
