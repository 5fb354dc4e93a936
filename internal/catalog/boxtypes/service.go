package boxtypes

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service coordinates box type operations.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create persists a new box type, active by default.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, req CreateBoxTypeRequest) (BoxType, error) {
	bt := BoxType{
		OwnerID:     owner,
		Name:        req.Name,
		Dimensions:  req.Dimensions,
		MaxWeight:   req.MaxWeight,
		EmptyWeight: req.EmptyWeight,
		IsActive:    true,
	}
	id, err := s.repo.Create(ctx, bt)
	if err != nil {
		return BoxType{}, fmt.Errorf("create box type: %w", err)
	}
	bt.ID = id
	return bt, nil
}

// Update applies partial updates to a box type. Boxes already packed from
// this template carry their own dimension and weight snapshots, so edits
// here never rewrite shipment history.
func (s *Service) Update(ctx context.Context, owner uuid.UUID, id int64, req UpdateBoxTypeRequest) (BoxType, error) {
	bt, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return BoxType{}, fmt.Errorf("get box type: %w", err)
	}
	if req.Name != nil {
		bt.Name = *req.Name
	}
	if req.Dimensions != nil {
		bt.Dimensions = *req.Dimensions
	}
	if req.MaxWeight != nil {
		bt.MaxWeight = *req.MaxWeight
	}
	if req.EmptyWeight != nil {
		bt.EmptyWeight = *req.EmptyWeight
	}
	if req.IsActive != nil {
		bt.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, bt); err != nil {
		return BoxType{}, fmt.Errorf("update box type: %w", err)
	}
	return bt, nil
}

// Get returns one box type.
func (s *Service) Get(ctx context.Context, owner uuid.UUID, id int64) (BoxType, error) {
	return s.repo.Get(ctx, owner, id)
}

// List returns box types for the owner. When activeOnly is set, retired
// templates are filtered out.
func (s *Service) List(ctx context.Context, owner uuid.UUID, activeOnly bool) ([]BoxType, error) {
	return s.repo.List(ctx, owner, activeOnly)
}

// Deactivate retires a box type without touching existing boxes.
func (s *Service) Deactivate(ctx context.Context, owner uuid.UUID, id int64) error {
	bt, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("get box type: %w", err)
	}
	bt.IsActive = false
	if err := s.repo.Update(ctx, bt); err != nil {
		return fmt.Errorf("deactivate box type: %w", err)
	}
	return nil
}
