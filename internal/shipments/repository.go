package shipments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/exportpro/exportpro/internal/shared"
)

// Repository defines shipment data access.
type Repository interface {
	ListShipments(ctx context.Context, owner uuid.UUID) ([]Shipment, error)
	GetShipment(ctx context.Context, owner uuid.UUID, id int64) (Shipment, error)
	CreateShipment(ctx context.Context, s Shipment) (int64, error)
	UpdateShipment(ctx context.Context, s Shipment) error
	CountCreatedBetween(ctx context.Context, owner uuid.UUID, start, end time.Time) (int, error)
	ListBoxes(ctx context.Context, owner uuid.UUID, shipmentID int64) ([]Box, error)
	ListBoxesByShipments(ctx context.Context, owner uuid.UUID, shipmentIDs []int64) ([]Box, error)
	ListBoxProducts(ctx context.Context, owner uuid.UUID, boxIDs []int64) ([]BoxProduct, error)
	WithTx(ctx context.Context, fn func(TxRepository) error) error
}

// TxRepository is the transactional surface of the packing engine. Box
// mutations and the availability deltas they imply commit or roll back
// together.
type TxRepository interface {
	GetShipment(ctx context.Context, owner uuid.UUID, id int64) (Shipment, error)
	DeleteShipment(ctx context.Context, owner uuid.UUID, id int64) error
	CountBoxes(ctx context.Context, shipmentID int64) (int, error)
	ListBoxes(ctx context.Context, shipmentID int64) ([]Box, error)
	GetBox(ctx context.Context, owner uuid.UUID, boxID int64) (Box, error)
	InsertBox(ctx context.Context, b Box) (int64, error)
	DeleteBox(ctx context.Context, boxID int64) error
	GetBoxProducts(ctx context.Context, boxID int64) ([]BoxProduct, error)
	ReplaceBoxProducts(ctx context.Context, boxID int64, products []BoxProduct) error
	GetProductAvailabilityForUpdate(ctx context.Context, owner uuid.UUID, productID int64) (int64, error)
	SetProductAvailability(ctx context.Context, owner uuid.UUID, productID, qty int64) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const shipmentColumns = `id, owner_id, name, destination, customer_id, lot_number, created_at, updated_at`

func scanShipment(row pgx.Row) (Shipment, error) {
	var s Shipment
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Destination, &s.CustomerID, &s.LotNumber, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Shipment{}, shared.ErrNotFound
	}
	return s, err
}

func (r *pgRepository) ListShipments(ctx context.Context, owner uuid.UUID) ([]Shipment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE owner_id = $1 ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Shipment
	for rows.Next() {
		var s Shipment
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Destination, &s.CustomerID, &s.LotNumber, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *pgRepository) GetShipment(ctx context.Context, owner uuid.UUID, id int64) (Shipment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE owner_id = $1 AND id = $2`, owner, id)
	return scanShipment(row)
}

func (r *pgRepository) CreateShipment(ctx context.Context, s Shipment) (int64, error) {
	const query = `
		INSERT INTO shipments (owner_id, name, destination, customer_id, lot_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, query, s.OwnerID, s.Name, s.Destination, s.CustomerID, s.LotNumber, time.Now().UTC()).Scan(&id)
	return id, err
}

func (r *pgRepository) UpdateShipment(ctx context.Context, s Shipment) error {
	const query = `
		UPDATE shipments
		SET name = $3, destination = $4, customer_id = $5, lot_number = $6, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2`
	tag, err := r.pool.Exec(ctx, query, s.OwnerID, s.ID, s.Name, s.Destination, s.CustomerID, s.LotNumber)
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
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM shipments WHERE owner_id = $1 AND created_at BETWEEN $2 AND $3`, owner, start, end).Scan(&count)
	return count, err
}

const boxColumns = `b.id, b.shipment_id, b.box_type_id, b.box_number, b.weight, b.dimensions, b.created_at`

func (r *pgRepository) ListBoxes(ctx context.Context, owner uuid.UUID, shipmentID int64) ([]Box, error) {
	const query = `
		SELECT ` + boxColumns + `
		FROM boxes b
		JOIN shipments s ON s.id = b.shipment_id
		WHERE s.owner_id = $1 AND b.shipment_id = $2
		ORDER BY b.box_number`
	return r.queryBoxes(ctx, query, owner, shipmentID)
}

func (r *pgRepository) ListBoxesByShipments(ctx context.Context, owner uuid.UUID, shipmentIDs []int64) ([]Box, error) {
	if len(shipmentIDs) == 0 {
		return nil, nil
	}
	const query = `
		SELECT ` + boxColumns + `
		FROM boxes b
		JOIN shipments s ON s.id = b.shipment_id
		WHERE s.owner_id = $1 AND b.shipment_id = ANY($2)
		ORDER BY b.shipment_id, b.box_number`
	return r.queryBoxes(ctx, query, owner, shipmentIDs)
}

func (r *pgRepository) queryBoxes(ctx context.Context, query string, args ...any) ([]Box, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Box
	for rows.Next() {
		var b Box
		if err := rows.Scan(&b.ID, &b.ShipmentID, &b.BoxTypeID, &b.BoxNumber, &b.Weight, &b.Dimensions, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *pgRepository) ListBoxProducts(ctx context.Context, owner uuid.UUID, boxIDs []int64) ([]BoxProduct, error) {
	if len(boxIDs) == 0 {
		return nil, nil
	}
	const query = `
		SELECT bp.id, bp.box_id, bp.product_id, bp.quantity
		FROM box_products bp
		JOIN boxes b ON b.id = bp.box_id
		JOIN shipments s ON s.id = b.shipment_id
		WHERE s.owner_id = $1 AND bp.box_id = ANY($2)
		ORDER BY bp.box_id, bp.id`
	rows, err := r.pool.Query(ctx, query, owner, boxIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BoxProduct
	for rows.Next() {
		var bp BoxProduct
		if err := rows.Scan(&bp.ID, &bp.BoxID, &bp.ProductID, &bp.Quantity); err != nil {
			return nil, err
		}
		out = append(out, bp)
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

func (r *txRepository) GetShipment(ctx context.Context, owner uuid.UUID, id int64) (Shipment, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE owner_id = $1 AND id = $2 FOR UPDATE`, owner, id)
	return scanShipment(row)
}

func (r *txRepository) DeleteShipment(ctx context.Context, owner uuid.UUID, id int64) error {
	// Boxes and box products cascade via FK.
	tag, err := r.tx.Exec(ctx, `DELETE FROM shipments WHERE owner_id = $1 AND id = $2`, owner, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) CountBoxes(ctx context.Context, shipmentID int64) (int, error) {
	var count int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM boxes WHERE shipment_id = $1`, shipmentID).Scan(&count)
	return count, err
}

func (r *txRepository) ListBoxes(ctx context.Context, shipmentID int64) ([]Box, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, shipment_id, box_type_id, box_number, weight, dimensions, created_at FROM boxes WHERE shipment_id = $1 ORDER BY box_number`, shipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Box
	for rows.Next() {
		var b Box
		if err := rows.Scan(&b.ID, &b.ShipmentID, &b.BoxTypeID, &b.BoxNumber, &b.Weight, &b.Dimensions, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *txRepository) GetBox(ctx context.Context, owner uuid.UUID, boxID int64) (Box, error) {
	const query = `
		SELECT ` + boxColumns + `
		FROM boxes b
		JOIN shipments s ON s.id = b.shipment_id
		WHERE s.owner_id = $1 AND b.id = $2
		FOR UPDATE OF b`
	var b Box
	err := r.tx.QueryRow(ctx, query, owner, boxID).Scan(&b.ID, &b.ShipmentID, &b.BoxTypeID, &b.BoxNumber, &b.Weight, &b.Dimensions, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Box{}, shared.ErrNotFound
	}
	return b, err
}

func (r *txRepository) InsertBox(ctx context.Context, b Box) (int64, error) {
	const query = `
		INSERT INTO boxes (shipment_id, box_type_id, box_number, weight, dimensions, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id`
	var id int64
	err := r.tx.QueryRow(ctx, query, b.ShipmentID, b.BoxTypeID, b.BoxNumber, b.Weight, b.Dimensions).Scan(&id)
	return id, err
}

func (r *txRepository) DeleteBox(ctx context.Context, boxID int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM boxes WHERE id = $1`, boxID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) GetBoxProducts(ctx context.Context, boxID int64) ([]BoxProduct, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, box_id, product_id, quantity FROM box_products WHERE box_id = $1 ORDER BY id`, boxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BoxProduct
	for rows.Next() {
		var bp BoxProduct
		if err := rows.Scan(&bp.ID, &bp.BoxID, &bp.ProductID, &bp.Quantity); err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}

func (r *txRepository) ReplaceBoxProducts(ctx context.Context, boxID int64, products []BoxProduct) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM box_products WHERE box_id = $1`, boxID); err != nil {
		return err
	}
	for _, bp := range products {
		if bp.Quantity == 0 {
			continue
		}
		if _, err := r.tx.Exec(ctx, `INSERT INTO box_products (box_id, product_id, quantity) VALUES ($1, $2, $3)`, boxID, bp.ProductID, bp.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetProductAvailabilityForUpdate(ctx context.Context, owner uuid.UUID, productID int64) (int64, error) {
	var available int64
	err := r.tx.QueryRow(ctx, `SELECT available_quantity FROM products WHERE owner_id = $1 AND id = $2 FOR UPDATE`, owner, productID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	return available, err
}

func (r *txRepository) SetProductAvailability(ctx context.Context, owner uuid.UUID, productID, qty int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET available_quantity = $3, updated_at = NOW() WHERE owner_id = $1 AND id = $2`, owner, productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
