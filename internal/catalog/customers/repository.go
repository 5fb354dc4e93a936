package customers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/exportpro/exportpro/internal/shared"
)

// Repository defines customer data access. Every query is owner-scoped.
type Repository interface {
	List(ctx context.Context, owner uuid.UUID) ([]Customer, error)
	Get(ctx context.Context, owner uuid.UUID, id int64) (Customer, error)
	Create(ctx context.Context, c Customer) (int64, error)
	Update(ctx context.Context, c Customer) error
	Delete(ctx context.Context, owner uuid.UUID, id int64) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) List(ctx context.Context, owner uuid.UUID) ([]Customer, error) {
	const query = `
		SELECT id, owner_id, name, company, phone, email, address, country, notes, created_at, updated_at
		FROM customers
		WHERE owner_id = $1
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Company, &c.Phone, &c.Email, &c.Address, &c.Country, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, owner uuid.UUID, id int64) (Customer, error) {
	const query = `
		SELECT id, owner_id, name, company, phone, email, address, country, notes, created_at, updated_at
		FROM customers
		WHERE owner_id = $1 AND id = $2`
	var c Customer
	err := r.pool.QueryRow(ctx, query, owner, id).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Company, &c.Phone, &c.Email, &c.Address, &c.Country, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

func (r *pgRepository) Create(ctx context.Context, c Customer) (int64, error) {
	const query = `
		INSERT INTO customers (owner_id, name, company, phone, email, address, country, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, query, c.OwnerID, c.Name, c.Company, c.Phone, c.Email, c.Address, c.Country, c.Notes, time.Now().UTC()).Scan(&id)
	return id, err
}

func (r *pgRepository) Update(ctx context.Context, c Customer) error {
	const query = `
		UPDATE customers
		SET name = $3, company = $4, phone = $5, email = $6, address = $7, country = $8, notes = $9, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2`
	tag, err := r.pool.Exec(ctx, query, c.OwnerID, c.ID, c.Name, c.Company, c.Phone, c.Email, c.Address, c.Country, c.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, owner uuid.UUID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE owner_id = $1 AND id = $2`, owner, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
