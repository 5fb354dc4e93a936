package suppliers

import (
	"time"

	"github.com/google/uuid"
)

// Supplier represents a supplier entity.
type Supplier struct {
	ID            int64     `json:"id"`
	OwnerID       uuid.UUID `json:"-"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateSupplierRequest is the payload for creating a supplier.
type CreateSupplierRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	ContactPerson string `json:"contact_person" validate:"max=200"`
	Phone         string `json:"phone" validate:"max=50"`
	Email         string `json:"email" validate:"omitempty,email"`
	Address       string `json:"address" validate:"max=500"`
	Notes         string `json:"notes"`
}

// UpdateSupplierRequest carries partial supplier updates.
type UpdateSupplierRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,max=200"`
	ContactPerson *string `json:"contact_person,omitempty" validate:"omitempty,max=200"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Address       *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Notes         *string `json:"notes,omitempty"`
}
