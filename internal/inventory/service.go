package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/exportpro/exportpro/internal/observability"
	"github.com/exportpro/exportpro/internal/plan"
	"github.com/exportpro/exportpro/internal/shared"
)

// TierSource resolves an owner's subscription tier.
type TierSource interface {
	Tier(ctx context.Context, owner uuid.UUID) (plan.Tier, error)
}

// Service implements the product inventory ledger.
type Service struct {
	logger  *slog.Logger
	repo    Repository
	gate    *plan.Gate
	tiers   TierSource
	metrics *observability.Metrics
}

// NewService builds Service. metrics may be nil.
func NewService(logger *slog.Logger, repo Repository, gate *plan.Gate, tiers TierSource, metrics *observability.Metrics) *Service {
	return &Service{logger: logger, repo: repo, gate: gate, tiers: tiers, metrics: metrics}
}

// ReceiveLine absorbs one invoice line into the ledger. A line matching an
// existing product identity merges into it; otherwise a new product is
// created, subject to the products quota. Submitting the same
// (product, invoice) pair twice is a no-op.
func (s *Service) ReceiveLine(ctx context.Context, owner uuid.UUID, req ReceiveLineRequest) (ReceiveResult, plan.Decision, error) {
	tier, err := s.tiers.Tier(ctx, owner)
	if err != nil {
		return ReceiveResult{}, plan.Decision{}, fmt.Errorf("resolve tier: %w", err)
	}

	var result ReceiveResult
	decision := plan.Decision{Allowed: true}

	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		product, err := tx.FindByIdentity(ctx, owner, NameKey(req.Name), req.HSCode)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("find product: %w", err)
		}

		if errors.Is(err, shared.ErrNotFound) {
			d, gateErr := s.gate.Allow(ctx, tier, plan.ResourceProducts, func(ctx context.Context) (int, error) {
				return tx.Count(ctx, owner)
			})
			if gateErr != nil {
				return gateErr
			}
			decision = d
			if !d.Allowed {
				return shared.ErrLimitExceeded
			}
			created := Product{
				OwnerID:           owner,
				Name:              strings.TrimSpace(req.Name),
				HSCode:            req.HSCode,
				Unit:              req.Unit,
				Quantity:          req.Quantity,
				AvailableQuantity: req.Quantity,
				AlternateNames:    req.AlternateNames,
			}
			id, insertErr := tx.Insert(ctx, created)
			if insertErr != nil {
				return fmt.Errorf("insert product: %w", insertErr)
			}
			created.ID = id
			if linkErr := tx.InsertLink(ctx, InvoiceLink{ProductID: id, InvoiceID: req.InvoiceID, Quantity: req.Quantity, Rate: req.Rate}); linkErr != nil {
				return fmt.Errorf("insert link: %w", linkErr)
			}
			result = ReceiveResult{Product: created, Created: true}
			return nil
		}

		linked, err := tx.HasLink(ctx, product.ID, req.InvoiceID)
		if err != nil {
			return fmt.Errorf("check link: %w", err)
		}
		if linked {
			result = ReceiveResult{Product: product, Duplicate: true}
			return nil
		}
		if err := tx.InsertLink(ctx, InvoiceLink{ProductID: product.ID, InvoiceID: req.InvoiceID, Quantity: req.Quantity, Rate: req.Rate}); err != nil {
			if errors.Is(err, errLinkExists) {
				result = ReceiveResult{Product: product, Duplicate: true}
				return nil
			}
			return fmt.Errorf("insert link: %w", err)
		}
		if err := tx.AddQuantities(ctx, owner, product.ID, req.Quantity, req.Quantity); err != nil {
			return fmt.Errorf("add quantities: %w", err)
		}

		variants := append([]string(nil), req.AlternateNames...)
		if incoming := strings.TrimSpace(req.Name); incoming != product.Name {
			variants = append(variants, incoming)
		}
		if err := tx.AppendAlternateNames(ctx, owner, product.ID, variants); err != nil {
			return fmt.Errorf("append alternate names: %w", err)
		}

		product.Quantity += req.Quantity
		product.AvailableQuantity += req.Quantity
		result = ReceiveResult{Product: product, Merged: true}
		return nil
	})
	if err != nil {
		return ReceiveResult{}, decision, err
	}
	return result, decision, nil
}

// ApplyAvailabilityDelta is the only mutation of availableQuantity outside
// of receipts. The result is floored at zero; a clamp is logged and counted
// because it means packed quantities no longer reconcile with the total.
func (s *Service) ApplyAvailabilityDelta(ctx context.Context, owner uuid.UUID, productID, delta int64) (Product, error) {
	var product Product
	err := s.repo.WithTx(ctx, func(tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, owner, productID)
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}
		next, clamped := ClampDelta(p.AvailableQuantity, delta)
		if clamped > 0 {
			s.logger.Warn("availability delta clamped at zero",
				slog.Int64("product_id", productID),
				slog.Int64("delta", delta),
				slog.Int64("lost", clamped))
			s.metrics.CountClamp()
		}
		if err := tx.SetAvailableQuantity(ctx, owner, productID, next); err != nil {
			return fmt.Errorf("set availability: %w", err)
		}
		p.AvailableQuantity = next
		product = p
		return nil
	})
	return product, err
}

// AverageRate returns the unweighted mean of the product's link rates.
// Quantities deliberately do not weight the mean.
func (s *Service) AverageRate(ctx context.Context, owner uuid.UUID, productID int64) (decimal.Decimal, error) {
	links, err := s.repo.Links(ctx, owner, productID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list links: %w", err)
	}
	if len(links) == 0 {
		return decimal.Zero, nil
	}
	sum := decimal.Zero
	for _, l := range links {
		sum = sum.Add(l.Rate)
	}
	return sum.Div(decimal.NewFromInt(int64(len(links)))), nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, owner uuid.UUID, id int64) (Product, error) {
	return s.repo.Get(ctx, owner, id)
}

// List returns all products for the owner, newest first.
func (s *Service) List(ctx context.Context, owner uuid.UUID) ([]Product, error) {
	return s.repo.List(ctx, owner)
}

// Links returns the product's invoice links.
func (s *Service) Links(ctx context.Context, owner uuid.UUID, productID int64) ([]InvoiceLink, error) {
	return s.repo.Links(ctx, owner, productID)
}

// Update applies descriptive edits. Identity fields recompute the match key.
func (s *Service) Update(ctx context.Context, owner uuid.UUID, id int64, req UpdateProductRequest) (Product, error) {
	product, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.HSCode != nil {
		product.HSCode = *req.HSCode
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}
	if req.AlternateNames != nil {
		product.AlternateNames = req.AlternateNames
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	return product, nil
}

// Delete hard-deletes a product and its links. Quantities packed into boxes
// are not restored; the row simply disappears from the ledger.
func (s *Service) Delete(ctx context.Context, owner uuid.UUID, id int64) error {
	return s.repo.Delete(ctx, owner, id)
}
