package settings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/exportpro/exportpro/internal/shared"
)

// Repository defines settings data access.
type Repository interface {
	Get(ctx context.Context, owner uuid.UUID) (UserSettings, error)
	Upsert(ctx context.Context, s UserSettings) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Get(ctx context.Context, owner uuid.UUID) (UserSettings, error) {
	const query = `
		SELECT owner_id, company_name, address, phone, email, tax_id,
		       currency, subscription_status, created_at, updated_at
		FROM user_settings
		WHERE owner_id = $1`
	var s UserSettings
	err := r.pool.QueryRow(ctx, query, owner).Scan(
		&s.OwnerID, &s.CompanyName, &s.Address, &s.Phone, &s.Email, &s.TaxID,
		&s.Currency, &s.SubscriptionStatus, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserSettings{}, shared.ErrNotFound
		}
		return UserSettings{}, err
	}
	return s, nil
}

func (r *pgRepository) Upsert(ctx context.Context, s UserSettings) error {
	const query = `
		INSERT INTO user_settings (owner_id, company_name, address, phone, email, tax_id, currency, subscription_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (owner_id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			tax_id = EXCLUDED.tax_id,
			currency = EXCLUDED.currency,
			subscription_status = EXCLUDED.subscription_status,
			updated_at = EXCLUDED.updated_at`
	_, err := r.pool.Exec(ctx, query,
		s.OwnerID, s.CompanyName, s.Address, s.Phone, s.Email, s.TaxID,
		s.Currency, s.SubscriptionStatus, time.Now().UTC(),
	)
	return err
}
