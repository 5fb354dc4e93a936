package documents

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/exportpro/exportpro/internal/shipments"
	"github.com/exportpro/exportpro/internal/state"
)

const packingSheet = "Packing List"

// BuildPackingList renders a shipment's packing list workbook from the
// mirror snapshot. One row per packed product line, grouped by box, with
// weight and volume totals at the bottom.
func BuildPackingList(snapshot state.Snapshot, shipmentID int64) (*excelize.File, error) {
	shipment, ok := findShipment(snapshot, shipmentID)
	if !ok {
		return nil, fmt.Errorf("shipment %d not in snapshot", shipmentID)
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", packingSheet)

	set := func(cell string, value any) {
		_ = f.SetCellValue(packingSheet, cell, value)
	}

	set("A1", "PACKING LIST")
	set("A2", snapshot.Settings.CompanyName)
	set("A3", fmt.Sprintf("Shipment: %s", shipment.Name))
	set("A4", fmt.Sprintf("Destination: %s", shipment.Destination))
	if shipment.LotNumber != "" {
		set("A5", fmt.Sprintf("Lot: %s", shipment.LotNumber))
	}

	headers := []string{"Box No", "Product", "HS Code", "Qty", "Unit", "Dimensions (cm)", "Weight (kg)", "CBM"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 7)
		set(cell, h)
	}

	type productInfo struct {
		name   string
		hsCode string
		unit   string
	}
	products := make(map[int64]productInfo, len(snapshot.Products))
	for _, p := range snapshot.Products {
		products[p.ID] = productInfo{name: p.Name, hsCode: p.HSCode, unit: p.Unit}
	}

	row := 8
	totalWeight := decimal.Zero
	totalCBM := 0.0
	for _, b := range snapshot.Boxes {
		if b.ShipmentID != shipmentID {
			continue
		}
		cbm := shipments.CBM(b.Dimensions)
		totalWeight = totalWeight.Add(b.Weight)
		totalCBM += cbm

		wrote := false
		for _, bp := range snapshot.BoxProducts {
			if bp.BoxID != b.ID {
				continue
			}
			info := products[bp.ProductID]
			if info.name == "" {
				info.name = fmt.Sprintf("product %d", bp.ProductID)
			}
			set(fmt.Sprintf("A%d", row), b.BoxNumber)
			set(fmt.Sprintf("B%d", row), info.name)
			set(fmt.Sprintf("C%d", row), info.hsCode)
			set(fmt.Sprintf("D%d", row), bp.Quantity)
			set(fmt.Sprintf("E%d", row), info.unit)
			if !wrote {
				set(fmt.Sprintf("F%d", row), b.Dimensions)
				set(fmt.Sprintf("G%d", row), b.Weight.InexactFloat64())
				set(fmt.Sprintf("H%d", row), cbm)
				wrote = true
			}
			row++
		}
		if !wrote {
			// Empty box still appears with its physicals.
			set(fmt.Sprintf("A%d", row), b.BoxNumber)
			set(fmt.Sprintf("F%d", row), b.Dimensions)
			set(fmt.Sprintf("G%d", row), b.Weight.InexactFloat64())
			set(fmt.Sprintf("H%d", row), cbm)
			row++
		}
	}

	row++
	set(fmt.Sprintf("F%d", row), "TOTAL")
	set(fmt.Sprintf("G%d", row), totalWeight.InexactFloat64())
	set(fmt.Sprintf("H%d", row), totalCBM)
	return f, nil
}
