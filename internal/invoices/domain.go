package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is a purchase invoice from a supplier.
type Invoice struct {
	ID            int64           `json:"id"`
	OwnerID       uuid.UUID       `json:"-"`
	SupplierID    int64           `json:"supplier_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Payment is one payment recorded against an invoice.
type Payment struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Method    string          `json:"method"`
	Notes     string          `json:"notes"`
	CreatedAt time.Time       `json:"created_at"`
}

// Status values derived from the payment sum. Never stored.
const (
	StatusUnpaid  = "unpaid"
	StatusPartial = "partial"
	StatusPaid    = "paid"
)

// StatusFor derives the payment status. Overpayment reads as paid.
func StatusFor(amount, paid decimal.Decimal) string {
	switch {
	case paid.GreaterThanOrEqual(amount) && amount.IsPositive():
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusUnpaid
	}
}

// InvoiceDetail is an invoice with its payments and derived fields.
type InvoiceDetail struct {
	Invoice    Invoice         `json:"invoice"`
	Payments   []Payment       `json:"payments"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Status     string          `json:"status"`
	Overpaid   bool            `json:"overpaid"`
}

// CreateInvoiceRequest is the payload for creating an invoice.
type CreateInvoiceRequest struct {
	SupplierID           int64           `json:"supplier_id" validate:"required"`
	InvoiceNumber        string          `json:"invoice_number" validate:"required,max=100"`
	Date                 time.Time       `json:"date"`
	Amount               decimal.Decimal `json:"amount"`
	Notes                string          `json:"notes"`
	AcknowledgeDuplicate bool            `json:"acknowledge_duplicate"`
}

// RecordPaymentRequest records one payment.
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Date   time.Time       `json:"date"`
	Method string          `json:"method" validate:"max=50"`
	Notes  string          `json:"notes"`
}

// ExtractionLine is one reviewed product line from an OCR extraction.
type ExtractionLine struct {
	Name     string          `json:"name" validate:"required,max=300"`
	HSCode   string          `json:"hs_code" validate:"max=20"`
	Unit     string          `json:"unit" validate:"max=20"`
	Quantity int64           `json:"quantity" validate:"required,gt=0"`
	Rate     decimal.Decimal `json:"rate"`
}

// CreateFromExtractionRequest submits a reviewed OCR result. Either
// SupplierID or SupplierName must be set; a name is fuzzily matched against
// existing suppliers and a new one is created when nothing matches.
type CreateFromExtractionRequest struct {
	SupplierID           *int64           `json:"supplier_id,omitempty"`
	SupplierName         string           `json:"supplier_name" validate:"max=200"`
	InvoiceNumber        string           `json:"invoice_number" validate:"required,max=100"`
	Date                 time.Time        `json:"date"`
	Amount               decimal.Decimal  `json:"amount"`
	AcknowledgeDuplicate bool             `json:"acknowledge_duplicate"`
	Lines                []ExtractionLine `json:"lines" validate:"required,min=1,dive"`
}

// ExtractionResult reports what an extraction submission created.
type ExtractionResult struct {
	Invoice         Invoice `json:"invoice"`
	SupplierID      int64   `json:"supplier_id"`
	SupplierCreated bool    `json:"supplier_created"`
	LinesReceived   int     `json:"lines_received"`
	LinesMerged     int     `json:"lines_merged"`
}
