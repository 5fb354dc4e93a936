package documents

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/exportpro/exportpro/internal/state"
)

// RateSource supplies the unit price for a product line. Backed by the
// ledger's unweighted average purchase rate.
type RateSource interface {
	AverageRate(ctx context.Context, owner uuid.UUID, productID int64) (decimal.Decimal, error)
}

const invoiceSheet = "Commercial Invoice"

// BuildCommercialInvoice renders a shipment's commercial invoice. Packed
// quantities are aggregated per product across boxes; the unit price is the
// product's average purchase rate.
func BuildCommercialInvoice(ctx context.Context, snapshot state.Snapshot, owner uuid.UUID, shipmentID int64, rates RateSource) (*excelize.File, error) {
	shipment, ok := findShipment(snapshot, shipmentID)
	if !ok {
		return nil, fmt.Errorf("shipment %d not in snapshot", shipmentID)
	}

	boxIDs := make(map[int64]bool)
	for _, b := range snapshot.Boxes {
		if b.ShipmentID == shipmentID {
			boxIDs[b.ID] = true
		}
	}
	quantities := make(map[int64]int64)
	var productIDs []int64
	for _, bp := range snapshot.BoxProducts {
		if !boxIDs[bp.BoxID] {
			continue
		}
		if _, seen := quantities[bp.ProductID]; !seen {
			productIDs = append(productIDs, bp.ProductID)
		}
		quantities[bp.ProductID] += bp.Quantity
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", invoiceSheet)
	set := func(cell string, value any) {
		_ = f.SetCellValue(invoiceSheet, cell, value)
	}

	set("A1", "COMMERCIAL INVOICE")
	set("A2", snapshot.Settings.CompanyName)
	set("A3", snapshot.Settings.Address)
	set("A4", fmt.Sprintf("Shipment: %s", shipment.Name))
	set("A5", fmt.Sprintf("Destination: %s", shipment.Destination))
	if snapshot.Settings.TaxID != "" {
		set("A6", fmt.Sprintf("Tax ID: %s", snapshot.Settings.TaxID))
	}

	currency := snapshot.Settings.Currency
	headers := []string{"Product", "HS Code", "Qty", "Unit", fmt.Sprintf("Unit Price (%s)", currency), fmt.Sprintf("Amount (%s)", currency)}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 8)
		set(cell, h)
	}

	names := make(map[int64]string)
	hsCodes := make(map[int64]string)
	units := make(map[int64]string)
	for _, p := range snapshot.Products {
		names[p.ID] = p.Name
		hsCodes[p.ID] = p.HSCode
		units[p.ID] = p.Unit
	}

	row := 9
	total := decimal.Zero
	for _, pid := range productIDs {
		rate, err := rates.AverageRate(ctx, owner, pid)
		if err != nil {
			return nil, fmt.Errorf("average rate for product %d: %w", pid, err)
		}
		qty := quantities[pid]
		amount := rate.Mul(decimal.NewFromInt(qty))
		total = total.Add(amount)

		name := names[pid]
		if name == "" {
			name = fmt.Sprintf("product %d", pid)
		}
		set(fmt.Sprintf("A%d", row), name)
		set(fmt.Sprintf("B%d", row), hsCodes[pid])
		set(fmt.Sprintf("C%d", row), qty)
		set(fmt.Sprintf("D%d", row), units[pid])
		set(fmt.Sprintf("E%d", row), rate.InexactFloat64())
		set(fmt.Sprintf("F%d", row), amount.InexactFloat64())
		row++
	}

	row++
	set(fmt.Sprintf("E%d", row), "TOTAL")
	set(fmt.Sprintf("F%d", row), total.InexactFloat64())
	return f, nil
}
