package invoices

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/exportpro/exportpro/internal/shared"
)

// Repository defines invoice data access.
type Repository interface {
	List(ctx context.Context, owner uuid.UUID) ([]Invoice, error)
	Get(ctx context.Context, owner uuid.UUID, id int64) (Invoice, error)
	Create(ctx context.Context, inv Invoice) (int64, error)
	Delete(ctx context.Context, owner uuid.UUID, id int64) error
	CountCreatedBetween(ctx context.Context, owner uuid.UUID, start, end time.Time) (int, error)
	FindByNumber(ctx context.Context, owner uuid.UUID, supplierID int64, number string) (Invoice, error)
	AddPayment(ctx context.Context, owner uuid.UUID, p Payment) (int64, error)
	ListPayments(ctx context.Context, owner uuid.UUID, invoiceID int64) ([]Payment, error)
	SumPayments(ctx context.Context, owner uuid.UUID, invoiceID int64) (decimal.Decimal, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const invoiceColumns = `id, owner_id, supplier_id, invoice_number, date, amount, notes, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.OwnerID, &inv.SupplierID, &inv.InvoiceNumber, &inv.Date, &inv.Amount, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, shared.ErrNotFound
	}
	return inv, err
}

func (r *pgRepository) List(ctx context.Context, owner uuid.UUID) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE owner_id = $1 ORDER BY date DESC, id DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.OwnerID, &inv.SupplierID, &inv.InvoiceNumber, &inv.Date, &inv.Amount, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, owner uuid.UUID, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE owner_id = $1 AND id = $2`, owner, id)
	return scanInvoice(row)
}

func (r *pgRepository) Create(ctx context.Context, inv Invoice) (int64, error) {
	const query = `
		INSERT INTO invoices (owner_id, supplier_id, invoice_number, date, amount, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, query, inv.OwnerID, inv.SupplierID, inv.InvoiceNumber, inv.Date, inv.Amount, inv.Notes, time.Now().UTC()).Scan(&id)
	return id, err
}

func (r *pgRepository) Delete(ctx context.Context, owner uuid.UUID, id int64) error {
	// Payments and product links cascade via FK.
	tag, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE owner_id = $1 AND id = $2`, owner, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) CountCreatedBetween(ctx context.Context, owner uuid.UUID, start, end time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE owner_id = $1 AND created_at BETWEEN $2 AND $3`, owner, start, end).Scan(&count)
	return count, err
}

func (r *pgRepository) FindByNumber(ctx context.Context, owner uuid.UUID, supplierID int64, number string) (Invoice, error) {
	const query = `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE owner_id = $1 AND supplier_id = $2 AND lower(invoice_number) = lower($3)
		LIMIT 1`
	row := r.pool.QueryRow(ctx, query, owner, supplierID, number)
	return scanInvoice(row)
}

func (r *pgRepository) AddPayment(ctx context.Context, owner uuid.UUID, p Payment) (int64, error) {
	const query = `
		INSERT INTO payments (invoice_id, amount, date, method, notes, created_at)
		SELECT $2, $3, $4, $5, $6, NOW()
		FROM invoices WHERE owner_id = $1 AND id = $2
		RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, query, owner, p.InvoiceID, p.Amount, p.Date, p.Method, p.Notes).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	return id, err
}

func (r *pgRepository) ListPayments(ctx context.Context, owner uuid.UUID, invoiceID int64) ([]Payment, error) {
	const query = `
		SELECT p.id, p.invoice_id, p.amount, p.date, p.method, p.notes, p.created_at
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE i.owner_id = $1 AND p.invoice_id = $2
		ORDER BY p.date, p.id`
	rows, err := r.pool.Query(ctx, query, owner, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Date, &p.Method, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgRepository) SumPayments(ctx context.Context, owner uuid.UUID, invoiceID int64) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(p.amount), 0)
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE i.owner_id = $1 AND p.invoice_id = $2`
	var sum decimal.Decimal
	err := r.pool.QueryRow(ctx, query, owner, invoiceID).Scan(&sum)
	return sum, err
}
