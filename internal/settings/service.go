package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/exportpro/exportpro/internal/plan"
	"github.com/exportpro/exportpro/internal/shared"
)

// Service coordinates settings operations and supplies the subscription
// tier to plan-limit gates across the application.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the owner's settings, falling back to FREE-tier defaults for
// owners who have not completed their profile yet.
func (s *Service) Get(ctx context.Context, owner uuid.UUID) (UserSettings, error) {
	settings, err := s.repo.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return UserSettings{OwnerID: owner, Currency: "USD", SubscriptionStatus: plan.TierFree}, nil
		}
		return UserSettings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// Update validates and persists the owner's settings.
func (s *Service) Update(ctx context.Context, owner uuid.UUID, req UpdateSettingsRequest) (UserSettings, error) {
	current, err := s.Get(ctx, owner)
	if err != nil {
		return UserSettings{}, err
	}
	if req.CompanyName != nil {
		current.CompanyName = *req.CompanyName
	}
	if req.Address != nil {
		current.Address = *req.Address
	}
	if req.Phone != nil {
		current.Phone = *req.Phone
	}
	if req.Email != nil {
		current.Email = *req.Email
	}
	if req.TaxID != nil {
		current.TaxID = *req.TaxID
	}
	if req.Currency != nil {
		current.Currency = *req.Currency
	}
	current.OwnerID = owner
	if err := s.repo.Upsert(ctx, current); err != nil {
		return UserSettings{}, fmt.Errorf("upsert settings: %w", err)
	}
	return current, nil
}

// Tier returns the owner's subscription tier.
func (s *Service) Tier(ctx context.Context, owner uuid.UUID) (plan.Tier, error) {
	settings, err := s.Get(ctx, owner)
	if err != nil {
		return "", err
	}
	if settings.SubscriptionStatus == "" {
		return plan.TierFree, nil
	}
	return settings.SubscriptionStatus, nil
}

// UpdateSettingsRequest carries partial settings updates.
type UpdateSettingsRequest struct {
	CompanyName *string `json:"company_name,omitempty" validate:"omitempty,max=200"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	TaxID       *string `json:"tax_id,omitempty" validate:"omitempty,max=50"`
	Currency    *string `json:"currency,omitempty" validate:"omitempty,len=3"`
}
