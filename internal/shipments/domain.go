package shipments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shipment is an outbound consignment owning an ordered list of boxes.
type Shipment struct {
	ID          int64     `json:"id"`
	OwnerID     uuid.UUID `json:"-"`
	Name        string    `json:"name"`
	Destination string    `json:"destination"`
	CustomerID  *int64    `json:"customer_id,omitempty"`
	LotNumber   string    `json:"lot_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Box is one packed carton. Dimensions and weight are snapshots taken at
// creation; later edits to the source box type never reach them. BoxNumber
// is assigned once and keeps its value even when earlier boxes are deleted.
type Box struct {
	ID         int64           `json:"id"`
	ShipmentID int64           `json:"shipment_id"`
	BoxTypeID  *int64          `json:"box_type_id,omitempty"`
	BoxNumber  int             `json:"box_number"`
	Weight     decimal.Decimal `json:"weight"`
	Dimensions string          `json:"dimensions"`
	CreatedAt  time.Time       `json:"created_at"`
}

// BoxProduct is a quantity of one product packed into one box.
type BoxProduct struct {
	ID        int64 `json:"id"`
	BoxID     int64 `json:"box_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// CreateShipmentRequest is the payload for creating a shipment.
type CreateShipmentRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Destination string `json:"destination" validate:"max=300"`
	CustomerID  *int64 `json:"customer_id,omitempty"`
	LotNumber   string `json:"lot_number" validate:"max=50"`
}

// UpdateShipmentRequest carries partial shipment edits.
type UpdateShipmentRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Destination *string `json:"destination,omitempty" validate:"omitempty,max=300"`
	CustomerID  *int64  `json:"customer_id,omitempty"`
	LotNumber   *string `json:"lot_number,omitempty" validate:"omitempty,max=50"`
}

// BoxProductInput is the desired quantity of one product in a box.
type BoxProductInput struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int64 `json:"quantity" validate:"gte=0"`
}

// AddBoxRequest creates a box. When BoxTypeID is set, dimensions and weight
// default to the template's values; explicit fields win.
type AddBoxRequest struct {
	BoxTypeID  *int64            `json:"box_type_id,omitempty"`
	Weight     *decimal.Decimal  `json:"weight,omitempty"`
	Dimensions *string           `json:"dimensions,omitempty"`
	Products   []BoxProductInput `json:"products" validate:"dive"`
}

// ShipmentSummary is a shipment with derived packing totals.
type ShipmentSummary struct {
	Shipment    Shipment        `json:"shipment"`
	BoxCount    int             `json:"box_count"`
	TotalWeight decimal.Decimal `json:"total_weight"`
	TotalCBM    float64         `json:"total_cbm"`
}
