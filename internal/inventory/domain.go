package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Product is one line of owned inventory. Quantity is the total ever
// received; AvailableQuantity is what remains unpacked. The difference is
// always accounted for by box contents across shipments.
type Product struct {
	ID                int64     `json:"id"`
	OwnerID           uuid.UUID `json:"-"`
	Name              string    `json:"name"`
	HSCode            string    `json:"hs_code"`
	Unit              string    `json:"unit"`
	Quantity          int64     `json:"quantity"`
	AvailableQuantity int64     `json:"available_quantity"`
	AlternateNames    []string  `json:"alternate_names"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// InvoiceLink ties a product to the invoice line that received it. One link
// per (product, invoice) pair; a repeated submission of the same pair is a
// no-op.
type InvoiceLink struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	InvoiceID int64           `json:"invoice_id"`
	Quantity  int64           `json:"quantity"`
	Rate      decimal.Decimal `json:"rate"`
	CreatedAt time.Time       `json:"created_at"`
}

var folder = cases.Fold()

// NameKey normalizes a product name for identity matching. Two names with
// the same key and the same HS code refer to the same product.
func NameKey(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// ClampDelta applies delta to an availability counter, flooring the result
// at zero. The second return is the amount absorbed by the floor; any
// nonzero value means the caller's books no longer balance.
func ClampDelta(available, delta int64) (next int64, clamped int64) {
	next = available + delta
	if next < 0 {
		return 0, -next
	}
	return next, 0
}

// ReceiveLineRequest is one incoming invoice line.
type ReceiveLineRequest struct {
	InvoiceID      int64           `json:"invoice_id" validate:"required"`
	Name           string          `json:"name" validate:"required,max=300"`
	HSCode         string          `json:"hs_code" validate:"max=20"`
	Unit           string          `json:"unit" validate:"max=20"`
	Quantity       int64           `json:"quantity" validate:"required,gt=0"`
	Rate           decimal.Decimal `json:"rate"`
	AlternateNames []string        `json:"alternate_names"`
}

// ReceiveResult reports how a line was absorbed.
type ReceiveResult struct {
	Product   Product `json:"product"`
	Created   bool    `json:"created"`
	Merged    bool    `json:"merged"`
	Duplicate bool    `json:"duplicate"`
}

// UpdateProductRequest carries partial product edits. Quantities are not
// editable here; they move only through receipts and packing.
type UpdateProductRequest struct {
	Name           *string  `json:"name,omitempty" validate:"omitempty,max=300"`
	HSCode         *string  `json:"hs_code,omitempty" validate:"omitempty,max=20"`
	Unit           *string  `json:"unit,omitempty" validate:"omitempty,max=20"`
	AlternateNames []string `json:"alternate_names,omitempty"`
}
