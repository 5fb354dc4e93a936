package settings

import (
	"time"

	"github.com/google/uuid"

	"github.com/exportpro/exportpro/internal/plan"
)

// UserSettings is the per-owner company profile and subscription record.
type UserSettings struct {
	OwnerID            uuid.UUID `json:"owner_id"`
	CompanyName        string    `json:"company_name"`
	Address            string    `json:"address"`
	Phone              string    `json:"phone"`
	Email              string    `json:"email"`
	TaxID              string    `json:"tax_id"`
	Currency           string    `json:"currency"`
	SubscriptionStatus plan.Tier `json:"subscription_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
