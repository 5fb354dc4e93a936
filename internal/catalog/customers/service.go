package customers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service coordinates customer operations. Customers are not plan-limited.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create persists a new customer.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, req CreateCustomerRequest) (Customer, error) {
	customer := Customer{
		OwnerID: owner,
		Name:    req.Name,
		Company: req.Company,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		Country: req.Country,
		Notes:   req.Notes,
	}
	id, err := s.repo.Create(ctx, customer)
	if err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}
	customer.ID = id
	return customer, nil
}

// Update applies partial updates to an existing customer.
func (s *Service) Update(ctx context.Context, owner uuid.UUID, id int64, req UpdateCustomerRequest) (Customer, error) {
	customer, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.Company != nil {
		customer.Company = *req.Company
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}
	if req.Email != nil {
		customer.Email = *req.Email
	}
	if req.Address != nil {
		customer.Address = *req.Address
	}
	if req.Country != nil {
		customer.Country = *req.Country
	}
	if req.Notes != nil {
		customer.Notes = *req.Notes
	}
	if err := s.repo.Update(ctx, customer); err != nil {
		return Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return customer, nil
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, owner uuid.UUID, id int64) (Customer, error) {
	return s.repo.Get(ctx, owner, id)
}

// List returns all customers for the owner, newest first.
func (s *Service) List(ctx context.Context, owner uuid.UUID) ([]Customer, error) {
	return s.repo.List(ctx, owner)
}

// Delete removes a customer. Shipments referencing it keep their snapshot
// destination text, so history is unaffected.
func (s *Service) Delete(ctx context.Context, owner uuid.UUID, id int64) error {
	return s.repo.Delete(ctx, owner, id)
}
