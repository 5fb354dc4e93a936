package suppliers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/exportpro/exportpro/internal/plan"
	"github.com/exportpro/exportpro/internal/shared"
)

// TierSource supplies the owner's subscription tier for admission checks.
type TierSource interface {
	Tier(ctx context.Context, owner uuid.UUID) (plan.Tier, error)
}

// Service coordinates supplier operations.
type Service struct {
	repo  Repository
	gate  *plan.Gate
	tiers TierSource
}

// NewService builds Service.
func NewService(repo Repository, gate *plan.Gate, tiers TierSource) *Service {
	return &Service{repo: repo, gate: gate, tiers: tiers}
}

// Create persists a new supplier after the plan-limit admission check.
// The similar-name heuristic is advisory only; creation is never blocked
// by a near-duplicate name.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, req CreateSupplierRequest) (Supplier, plan.Decision, error) {
	tier, err := s.tiers.Tier(ctx, owner)
	if err != nil {
		return Supplier{}, plan.Decision{}, fmt.Errorf("resolve tier: %w", err)
	}
	decision, err := s.gate.Allow(ctx, tier, plan.ResourceSuppliers, func(ctx context.Context) (int, error) {
		return s.repo.Count(ctx, owner)
	})
	if err != nil {
		return Supplier{}, plan.Decision{}, err
	}
	if !decision.Allowed {
		return Supplier{}, decision, shared.ErrLimitExceeded
	}

	supplier := Supplier{
		OwnerID:       owner,
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		Notes:         req.Notes,
	}
	id, err := s.repo.Create(ctx, supplier)
	if err != nil {
		return Supplier{}, decision, fmt.Errorf("create supplier: %w", err)
	}
	supplier.ID = id
	return supplier, decision, nil
}

// Update applies partial updates to an existing supplier.
func (s *Service) Update(ctx context.Context, owner uuid.UUID, id int64, req UpdateSupplierRequest) (Supplier, error) {
	supplier, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return Supplier{}, fmt.Errorf("get supplier: %w", err)
	}
	if req.Name != nil {
		supplier.Name = *req.Name
	}
	if req.ContactPerson != nil {
		supplier.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		supplier.Phone = *req.Phone
	}
	if req.Email != nil {
		supplier.Email = *req.Email
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}
	if req.Notes != nil {
		supplier.Notes = *req.Notes
	}
	if err := s.repo.Update(ctx, supplier); err != nil {
		return Supplier{}, fmt.Errorf("update supplier: %w", err)
	}
	return supplier, nil
}

// Get returns one supplier.
func (s *Service) Get(ctx context.Context, owner uuid.UUID, id int64) (Supplier, error) {
	return s.repo.Get(ctx, owner, id)
}

// List returns all suppliers for the owner, newest first.
func (s *Service) List(ctx context.Context, owner uuid.UUID) ([]Supplier, error) {
	return s.repo.List(ctx, owner)
}

// Delete removes a supplier.
func (s *Service) Delete(ctx context.Context, owner uuid.UUID, id int64) error {
	return s.repo.Delete(ctx, owner, id)
}

// FindSimilar returns the first supplier loosely matching the candidate
// name, or nil when none matches.
func (s *Service) FindSimilar(ctx context.Context, owner uuid.UUID, candidate string) (*Supplier, error) {
	list, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return FindSimilar(list, candidate), nil
}
