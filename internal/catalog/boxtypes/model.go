package boxtypes

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BoxType is a reusable carton template. Dimensions is a free-form
// "LxWxH" string in centimeters; volume is derived at pack time from
// whatever the string parses to.
type BoxType struct {
	ID          int64           `json:"id"`
	OwnerID     uuid.UUID       `json:"-"`
	Name        string          `json:"name"`
	Dimensions  string          `json:"dimensions"`
	MaxWeight   decimal.Decimal `json:"max_weight"`
	EmptyWeight decimal.Decimal `json:"empty_weight"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateBoxTypeRequest is the payload for creating a box type.
type CreateBoxTypeRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Dimensions  string          `json:"dimensions" validate:"max=50"`
	MaxWeight   decimal.Decimal `json:"max_weight"`
	EmptyWeight decimal.Decimal `json:"empty_weight"`
}

// UpdateBoxTypeRequest carries partial box type updates.
type UpdateBoxTypeRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=100"`
	Dimensions  *string          `json:"dimensions,omitempty" validate:"omitempty,max=50"`
	MaxWeight   *decimal.Decimal `json:"max_weight,omitempty"`
	EmptyWeight *decimal.Decimal `json:"empty_weight,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
}
