package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/exportpro/exportpro/internal/shared"
)

// Repository defines product ledger data access.
type Repository interface {
	List(ctx context.Context, owner uuid.UUID) ([]Product, error)
	Get(ctx context.Context, owner uuid.UUID, id int64) (Product, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, owner uuid.UUID, id int64) error
	Count(ctx context.Context, owner uuid.UUID) (int, error)
	Links(ctx context.Context, owner uuid.UUID, productID int64) ([]InvoiceLink, error)
	WithTx(ctx context.Context, fn func(TxRepository) error) error
}

// TxRepository is the transactional surface used by receipts and
// availability updates. Every call runs on the same database transaction.
type TxRepository interface {
	FindByIdentity(ctx context.Context, owner uuid.UUID, nameKey, hsCode string) (Product, error)
	Insert(ctx context.Context, p Product) (int64, error)
	HasLink(ctx context.Context, productID, invoiceID int64) (bool, error)
	InsertLink(ctx context.Context, link InvoiceLink) error
	AddQuantities(ctx context.Context, owner uuid.UUID, productID, deltaTotal, deltaAvailable int64) error
	AppendAlternateNames(ctx context.Context, owner uuid.UUID, productID int64, names []string) error
	GetForUpdate(ctx context.Context, owner uuid.UUID, productID int64) (Product, error)
	SetAvailableQuantity(ctx context.Context, owner uuid.UUID, productID, qty int64) error
	Count(ctx context.Context, owner uuid.UUID) (int, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const productColumns = `id, owner_id, name, hs_code, unit, quantity, available_quantity, alternate_names, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.HSCode, &p.Unit, &p.Quantity, &p.AvailableQuantity, &p.AlternateNames, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *pgRepository) List(ctx context.Context, owner uuid.UUID) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE owner_id = $1 ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.HSCode, &p.Unit, &p.Quantity, &p.AvailableQuantity, &p.AlternateNames, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, owner uuid.UUID, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE owner_id = $1 AND id = $2`, owner, id)
	return scanProduct(row)
}

func (r *pgRepository) Update(ctx context.Context, p Product) error {
	const query = `
		UPDATE products
		SET name = $3, name_key = $4, hs_code = $5, unit = $6, alternate_names = $7, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2`
	tag, err := r.pool.Exec(ctx, query, p.OwnerID, p.ID, p.Name, NameKey(p.Name), p.HSCode, p.Unit, p.AlternateNames)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, owner uuid.UUID, id int64) error {
	// Links cascade via FK. No quantity reconciliation happens here.
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE owner_id = $1 AND id = $2`, owner, id)
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
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE owner_id = $1`, owner).Scan(&count)
	return count, err
}

func (r *pgRepository) Links(ctx context.Context, owner uuid.UUID, productID int64) ([]InvoiceLink, error) {
	const query = `
		SELECT l.id, l.product_id, l.invoice_id, l.quantity, l.rate, l.created_at
		FROM product_invoice_links l
		JOIN products p ON p.id = l.product_id
		WHERE p.owner_id = $1 AND l.product_id = $2
		ORDER BY l.created_at`
	rows, err := r.pool.Query(ctx, query, owner, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InvoiceLink
	for rows.Next() {
		var l InvoiceLink
		if err := rows.Scan(&l.ID, &l.ProductID, &l.InvoiceID, &l.Quantity, &l.Rate, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(TxRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txRepository{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) FindByIdentity(ctx context.Context, owner uuid.UUID, nameKey, hsCode string) (Product, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE owner_id = $1 AND name_key = $2 AND hs_code = $3`, owner, nameKey, hsCode)
	return scanProduct(row)
}

func (r *txRepository) Insert(ctx context.Context, p Product) (int64, error) {
	const query = `
		INSERT INTO products (owner_id, name, name_key, hs_code, unit, quantity, available_quantity, alternate_names, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id`
	var id int64
	err := r.tx.QueryRow(ctx, query, p.OwnerID, p.Name, NameKey(p.Name), p.HSCode, p.Unit, p.Quantity, p.AvailableQuantity, p.AlternateNames, time.Now().UTC()).Scan(&id)
	return id, err
}

func (r *txRepository) HasLink(ctx context.Context, productID, invoiceID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM product_invoice_links WHERE product_id = $1 AND invoice_id = $2)`, productID, invoiceID).Scan(&exists)
	return exists, err
}

func (r *txRepository) InsertLink(ctx context.Context, link InvoiceLink) error {
	const query = `
		INSERT INTO product_invoice_links (product_id, invoice_id, quantity, rate, created_at)
		VALUES ($1, $2, $3, $4, NOW())`
	_, err := r.tx.Exec(ctx, query, link.ProductID, link.InvoiceID, link.Quantity, link.Rate)
	if err != nil {
		// The unique (product_id, invoice_id) constraint is the real
		// duplicate guard; HasLink is only a fast path.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errLinkExists
		}
	}
	return err
}

// errLinkExists signals that the (product, invoice) pair is already linked.
// Callers treat it as a successful no-op.
var errLinkExists = errors.New("product already linked to invoice")

func (r *txRepository) AddQuantities(ctx context.Context, owner uuid.UUID, productID, deltaTotal, deltaAvailable int64) error {
	const query = `
		UPDATE products
		SET quantity = quantity + $3, available_quantity = available_quantity + $4, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2`
	tag, err := r.tx.Exec(ctx, query, owner, productID, deltaTotal, deltaAvailable)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) AppendAlternateNames(ctx context.Context, owner uuid.UUID, productID int64, names []string) error {
	if len(names) == 0 {
		return nil
	}
	const query = `
		UPDATE products
		SET alternate_names = (
			SELECT ARRAY(SELECT DISTINCT unnest(alternate_names || $3::text[]))
		), updated_at = NOW()
		WHERE owner_id = $1 AND id = $2`
	_, err := r.tx.Exec(ctx, query, owner, productID, names)
	return err
}

func (r *txRepository) GetForUpdate(ctx context.Context, owner uuid.UUID, productID int64) (Product, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE owner_id = $1 AND id = $2 FOR UPDATE`, owner, productID)
	return scanProduct(row)
}

func (r *txRepository) SetAvailableQuantity(ctx context.Context, owner uuid.UUID, productID, qty int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET available_quantity = $3, updated_at = NOW() WHERE owner_id = $1 AND id = $2`, owner, productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) Count(ctx context.Context, owner uuid.UUID) (int, error) {
	var count int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE owner_id = $1`, owner).Scan(&count)
	return count, err
}
