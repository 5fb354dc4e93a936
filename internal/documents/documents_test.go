package documents

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/exportpro/exportpro/internal/inventory"
	"github.com/exportpro/exportpro/internal/settings"
	"github.com/exportpro/exportpro/internal/shipments"
	"github.com/exportpro/exportpro/internal/state"
)

func testSnapshot() state.Snapshot {
	return state.Snapshot{
		Settings: settings.UserSettings{CompanyName: "Exports Ltd", Currency: "USD", Address: "12 Harbor Rd"},
		Products: []inventory.Product{
			{ID: 1, Name: "Brass Handle", HSCode: "7418", Unit: "pcs"},
			{ID: 2, Name: "Iron Hinge", HSCode: "8302", Unit: "pcs"},
		},
		Shipments: []shipments.Shipment{
			{ID: 10, Name: "Lot 1", Destination: "Hamburg", LotNumber: "L-10"},
		},
		Boxes: []shipments.Box{
			{ID: 100, ShipmentID: 10, BoxNumber: 1, Dimensions: "50x50x40", Weight: decimal.NewFromInt(12)},
			{ID: 101, ShipmentID: 10, BoxNumber: 2, Dimensions: "bad-dims", Weight: decimal.NewFromInt(8)},
		},
		BoxProducts: []shipments.BoxProduct{
			{ID: 1, BoxID: 100, ProductID: 1, Quantity: 30},
			{ID: 2, BoxID: 100, ProductID: 2, Quantity: 10},
			{ID: 3, BoxID: 101, ProductID: 1, Quantity: 20},
		},
	}
}

type staticRates struct {
	rates map[int64]decimal.Decimal
}

func (s staticRates) AverageRate(ctx context.Context, owner uuid.UUID, productID int64) (decimal.Decimal, error) {
	return s.rates[productID], nil
}

func TestBuildBoxLabelsHTML(t *testing.T) {
	html, err := BuildBoxLabelsHTML(testSnapshot(), 10)
	require.NoError(t, err)
	require.Contains(t, html, "BOX 1 / 2")
	require.Contains(t, html, "BOX 2 / 2")
	require.Contains(t, html, "Hamburg")
	require.Contains(t, html, "L-10")
	require.Contains(t, html, "Brass Handle x30")
	require.Contains(t, html, "Exports Ltd")
}

func TestBuildBoxLabelsUnknownShipment(t *testing.T) {
	_, err := BuildBoxLabelsHTML(testSnapshot(), 99)
	require.Error(t, err)
}

func TestBuildPackingList(t *testing.T) {
	f, err := BuildPackingList(testSnapshot(), 10)
	require.NoError(t, err)

	get := func(cell string) string {
		v, err := f.GetCellValue("Packing List", cell)
		require.NoError(t, err)
		return v
	}
	require.Equal(t, "PACKING LIST", get("A1"))
	require.Equal(t, "Brass Handle", get("B8"))
	require.Equal(t, "30", get("D8"))
	require.Equal(t, "50x50x40", get("F8"))

	// Second line of box 1 repeats the product columns only.
	require.Equal(t, "Iron Hinge", get("B9"))
	require.Equal(t, "", get("F9"))

	// Box 2 has malformed dimensions: weight counts, volume reads zero.
	require.Equal(t, "Brass Handle", get("B10"))
	require.Equal(t, "TOTAL", get("F12"))
	require.Equal(t, "20", get("G12"))
	require.Equal(t, "0.1", get("H12"))
}

func TestBuildCommercialInvoiceUsesAverageRate(t *testing.T) {
	rates := staticRates{rates: map[int64]decimal.Decimal{
		1: decimal.NewFromInt(5),
		2: decimal.RequireFromString("2.5"),
	}}
	f, err := BuildCommercialInvoice(context.Background(), testSnapshot(), uuid.New(), 10, rates)
	require.NoError(t, err)

	get := func(cell string) string {
		v, err := f.GetCellValue("Commercial Invoice", cell)
		require.NoError(t, err)
		return v
	}
	require.Equal(t, "COMMERCIAL INVOICE", get("A1"))

	// Product 1 aggregates across boxes: 30 + 20 at rate 5.
	require.Equal(t, "Brass Handle", get("A9"))
	require.Equal(t, "50", get("C9"))
	require.Equal(t, "5", get("E9"))
	require.Equal(t, "250", get("F9"))

	require.Equal(t, "Iron Hinge", get("A10"))
	require.Equal(t, "25", get("F10"))

	require.Equal(t, "TOTAL", get("E12"))
	require.Equal(t, "275", get("F12"))
}

func TestRendererSendsPageSize(t *testing.T) {
	var gotWidth, gotHeight string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotWidth = r.FormValue("paperWidth")
		gotHeight = r.FormValue("paperHeight")
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer server.Close()

	renderer := NewRenderer(server.URL)
	pdf, err := renderer.RenderHTML(context.Background(), "<html></html>", LabelPage)
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	require.Equal(t, "4", gotWidth)
	require.Equal(t, "6", gotHeight)
}
