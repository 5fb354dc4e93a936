package boxtypes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/exportpro/exportpro/internal/shared"
)

// Repository defines box type data access.
type Repository interface {
	List(ctx context.Context, owner uuid.UUID, activeOnly bool) ([]BoxType, error)
	Get(ctx context.Context, owner uuid.UUID, id int64) (BoxType, error)
	Create(ctx context.Context, bt BoxType) (int64, error)
	Update(ctx context.Context, bt BoxType) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) List(ctx context.Context, owner uuid.UUID, activeOnly bool) ([]BoxType, error) {
	query := `
		SELECT id, owner_id, name, dimensions, max_weight, empty_weight, is_active, created_at, updated_at
		FROM box_types
		WHERE owner_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BoxType
	for rows.Next() {
		var bt BoxType
		if err := rows.Scan(&bt.ID, &bt.OwnerID, &bt.Name, &bt.Dimensions, &bt.MaxWeight, &bt.EmptyWeight, &bt.IsActive, &bt.CreatedAt, &bt.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, bt)
	}
	return out, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, owner uuid.UUID, id int64) (BoxType, error) {
	const query = `
		SELECT id, owner_id, name, dimensions, max_weight, empty_weight, is_active, created_at, updated_at
		FROM box_types
		WHERE owner_id = $1 AND id = $2`
	var bt BoxType
	err := r.pool.QueryRow(ctx, query, owner, id).Scan(&bt.ID, &bt.OwnerID, &bt.Name, &bt.Dimensions, &bt.MaxWeight, &bt.EmptyWeight, &bt.IsActive, &bt.CreatedAt, &bt.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BoxType{}, shared.ErrNotFound
		}
		return BoxType{}, err
	}
	return bt, nil
}

func (r *pgRepository) Create(ctx context.Context, bt BoxType) (int64, error) {
	const query = `
		INSERT INTO box_types (owner_id, name, dimensions, max_weight, empty_weight, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, query, bt.OwnerID, bt.Name, bt.Dimensions, bt.MaxWeight, bt.EmptyWeight, bt.IsActive, time.Now().UTC()).Scan(&id)
	return id, err
}

func (r *pgRepository) Update(ctx context.Context, bt BoxType) error {
	const query = `
		UPDATE box_types
		SET name = $3, dimensions = $4, max_weight = $5, empty_weight = $6, is_active = $7, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2`
	tag, err := r.pool.Exec(ctx, query, bt.OwnerID, bt.ID, bt.Name, bt.Dimensions, bt.MaxWeight, bt.EmptyWeight, bt.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
