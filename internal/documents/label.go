package documents

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/exportpro/exportpro/internal/shipments"
	"github.com/exportpro/exportpro/internal/state"
)

var labelTemplate = template.Must(template.New("label").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Helvetica, Arial, sans-serif; margin: 0; }
  .label { page-break-after: always; padding: 16px; }
  .label:last-child { page-break-after: auto; }
  .box-no { font-size: 42px; font-weight: bold; }
  .field { margin-top: 10px; font-size: 18px; }
  .field span { color: #555; font-size: 13px; display: block; }
</style>
</head>
<body>
{{range .Labels}}
<div class="label">
  <div class="box-no">BOX {{.BoxNumber}} / {{.BoxCount}}</div>
  <div class="field"><span>Shipment</span>{{.ShipmentName}}</div>
  <div class="field"><span>Destination</span>{{.Destination}}</div>
  {{if .LotNumber}}<div class="field"><span>Lot</span>{{.LotNumber}}</div>{{end}}
  {{if .Dimensions}}<div class="field"><span>Dimensions (cm)</span>{{.Dimensions}}</div>{{end}}
  <div class="field"><span>Weight (kg)</span>{{.Weight}}</div>
  {{if .Contents}}<div class="field"><span>Contents</span>{{.Contents}}</div>{{end}}
  {{if .Sender}}<div class="field"><span>From</span>{{.Sender}}</div>{{end}}
</div>
{{end}}
</body>
</html>`))

type boxLabel struct {
	BoxNumber    int
	BoxCount     int
	ShipmentName string
	Destination  string
	LotNumber    string
	Dimensions   string
	Weight       string
	Contents     string
	Sender       string
}

// BuildBoxLabelsHTML renders one label page per box of the shipment from
// the mirror snapshot. Pure projection; the snapshot is not modified.
func BuildBoxLabelsHTML(snapshot state.Snapshot, shipmentID int64) (string, error) {
	shipment, ok := findShipment(snapshot, shipmentID)
	if !ok {
		return "", fmt.Errorf("shipment %d not in snapshot", shipmentID)
	}

	productNames := make(map[int64]string, len(snapshot.Products))
	for _, p := range snapshot.Products {
		productNames[p.ID] = p.Name
	}

	var labels []boxLabel
	var count int
	for _, b := range snapshot.Boxes {
		if b.ShipmentID == shipmentID {
			count++
		}
	}
	for _, b := range snapshot.Boxes {
		if b.ShipmentID != shipmentID {
			continue
		}
		var contents []string
		for _, bp := range snapshot.BoxProducts {
			if bp.BoxID != b.ID {
				continue
			}
			name := productNames[bp.ProductID]
			if name == "" {
				name = fmt.Sprintf("product %d", bp.ProductID)
			}
			contents = append(contents, fmt.Sprintf("%s x%d", name, bp.Quantity))
		}
		labels = append(labels, boxLabel{
			BoxNumber:    b.BoxNumber,
			BoxCount:     count,
			ShipmentName: shipment.Name,
			Destination:  shipment.Destination,
			LotNumber:    shipment.LotNumber,
			Dimensions:   b.Dimensions,
			Weight:       b.Weight.String(),
			Contents:     strings.Join(contents, ", "),
			Sender:       snapshot.Settings.CompanyName,
		})
	}
	if len(labels) == 0 {
		return "", fmt.Errorf("shipment %d has no boxes", shipmentID)
	}

	var out strings.Builder
	if err := labelTemplate.Execute(&out, struct{ Labels []boxLabel }{labels}); err != nil {
		return "", err
	}
	return out.String(), nil
}

func findShipment(snapshot state.Snapshot, shipmentID int64) (shipments.Shipment, bool) {
	for _, sh := range snapshot.Shipments {
		if sh.ID == shipmentID {
			return sh, true
		}
	}
	return shipments.Shipment{}, false
}
