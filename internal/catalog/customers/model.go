package customers

import (
	"time"

	"github.com/google/uuid"
)

// Customer represents a buyer/consignee entity.
type Customer struct {
	ID        int64     `json:"id"`
	OwnerID   uuid.UUID `json:"-"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	Country   string    `json:"country"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCustomerRequest is the payload for creating a customer.
type CreateCustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Company string `json:"company" validate:"max=200"`
	Phone   string `json:"phone" validate:"max=50"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=500"`
	Country string `json:"country" validate:"max=100"`
	Notes   string `json:"notes"`
}

// UpdateCustomerRequest carries partial customer updates.
type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Country *string `json:"country,omitempty" validate:"omitempty,max=100"`
	Notes   *string `json:"notes,omitempty"`
}
