package suppliers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/exportpro/exportpro/internal/shared"
)

// Repository defines supplier data access. Every query is owner-scoped.
type Repository interface {
	List(ctx context.Context, owner uuid.UUID) ([]Supplier, error)
	Get(ctx context.Context, owner uuid.UUID, id int64) (Supplier, error)
	Create(ctx context.Context, s Supplier) (int64, error)
	Update(ctx context.Context, s Supplier) error
	Delete(ctx context.Context, owner uuid.UUID, id int64) error
	Count(ctx context.Context, owner uuid.UUID) (int, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) List(ctx context.Context, owner uuid.UUID) ([]Supplier, error) {
	const query = `
		SELECT id, owner_id, name, contact_person, phone, email, address, notes, created_at, updated_at
		FROM suppliers
		WHERE owner_id = $1
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.Address, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, owner uuid.UUID, id int64) (Supplier, error) {
	const query = `
		SELECT id, owner_id, name, contact_person, phone, email, address, notes, created_at, updated_at
		FROM suppliers
		WHERE owner_id = $1 AND id = $2`
	var s Supplier
	err := r.pool.QueryRow(ctx, query, owner, id).Scan(&s.ID, &s.OwnerID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.Address, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, shared.ErrNotFound
		}
		return Supplier{}, err
	}
	return s, nil
}

func (r *pgRepository) Create(ctx context.Context, s Supplier) (int64, error) {
	const query = `
		INSERT INTO suppliers (owner_id, name, contact_person, phone, email, address, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, query, s.OwnerID, s.Name, s.ContactPerson, s.Phone, s.Email, s.Address, s.Notes, time.Now().UTC()).Scan(&id)
	return id, err
}

func (r *pgRepository) Update(ctx context.Context, s Supplier) error {
	const query = `
		UPDATE suppliers
		SET name = $3, contact_person = $4, phone = $5, email = $6, address = $7, notes = $8, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2`
	tag, err := r.pool.Exec(ctx, query, s.OwnerID, s.ID, s.Name, s.ContactPerson, s.Phone, s.Email, s.Address, s.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, owner uuid.UUID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE owner_id = $1 AND id = $2`, owner, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) Count(ctx context.Context, owner uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers WHERE owner_id = $1`, owner).Scan(&count)
	return count, err
}
