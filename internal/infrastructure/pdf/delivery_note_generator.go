// Package pdf genera la remisión (documento de despacho) de una transferencia entre la
// bodega central y una franquicia.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Emisor + NIT        │  N° Remisión + Fecha          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DESTINO: Franquicia + estado + fechas                      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | SKU | Producto | P.Unit | Total               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Unidades / Valor                                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  HISTORIAL + QR con el número de remisión                    │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Franquicias-api/internal/application/transfer"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var statusLabels = map[entity.TransferStatus]string{
	entity.TransferStatusRequested:  "Solicitada",
	entity.TransferStatusPending:    "Aprobada",
	entity.TransferStatusProcessing: "En preparación",
	entity.TransferStatusShipped:    "Despachada",
	entity.TransferStatusDelivered:  "Entregada",
	entity.TransferStatusRejected:   "Rechazada",
	entity.TransferStatusCancelled:  "Cancelada",
}

// ── Generator ─────────────────────────────────────────────────────────────────

var _ transfer.DeliveryNoteGenerator = (*MarotoDeliveryNoteGenerator)(nil)

// MarotoDeliveryNoteGenerator implementa transfer.DeliveryNoteGenerator usando Maroto v2.
type MarotoDeliveryNoteGenerator struct{}

// NewMarotoDeliveryNoteGenerator construye el generador.
func NewMarotoDeliveryNoteGenerator() *MarotoDeliveryNoteGenerator {
	return &MarotoDeliveryNoteGenerator{}
}

// Generate genera el PDF y devuelve sus bytes.
func (g *MarotoDeliveryNoteGenerator) Generate(note transfer.DeliveryNote) ([]byte, error) {
	t := note.Transfer
	if t == nil {
		return nil, fmt.Errorf("pdf: remisión sin transferencia")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Remisión "+t.TransferNumber, true).
		WithAuthor(note.IssuerName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(note))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(destinationRow(t))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(itemRows(t.Items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(t))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(historyRows(t.StatusHistory)...)
	m.AddRows(footerRow(t))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: emisor + NIT (izq) y número de remisión + fecha de emisión (der).
func headerRow(note transfer.DeliveryNote) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(nonEmpty(note.IssuerName, "Bodega Central"), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("NIT: "+nonEmpty(note.IssuerTaxID, "—"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("REMISIÓN DE TRANSFERENCIA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(note.Transfer.TransferNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Emitida: "+formatDate(note.IssuedAt), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// destinationRow: franquicia destino, estado y fechas del ciclo.
func destinationRow(t *entity.Transfer) core.Row {
	dates := fmt.Sprintf("Solicitada: %s   |   Despachada: %s   |   Entregada: %s",
		formatDate(t.RequestedAt), formatDatePtr(t.ShippedAt), formatDatePtr(t.DeliveredAt))
	return row.New(18).Add(
		col.New(12).Add(
			text.New("DESTINO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New("Franquicia: "+t.TenantID, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(fmt.Sprintf("Estado: %s   |   Solicitó: %s", statusLabel(t.Status), nonEmpty(t.RequestedBy, "—")),
				props.Text{Size: 8, Top: 11, Color: colorGray}),
			text.New(dates, props.Text{Size: 8, Top: 15, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).WithStyle(&props.Cell{BackgroundColor: colorPrimary}).Add(
		h("Cant.", 1, align.Center),
		h("SKU", 2, align.Left),
		h("Producto", 5, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("Total", 2, align.Right),
	)
}

// itemRows: una fila por línea de la transferencia.
func itemRows(items []entity.TransferItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(fmt.Sprintf("%d", it.Quantity), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(it.SKU, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(5).Add(text.New(it.ProductName, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New("$"+formatMoney(it.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New("$"+formatMoney(it.LineTotal), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

// totalsRow: unidades y valor total alineados a la derecha.
func totalsRow(t *entity.Transfer) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	grand := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 6})
	}
	return row.New(16).Add(
		col.New(6),
		col.New(3).Add(
			label("Unidades:"),
			text.New("VALOR TOTAL:", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 6}),
		),
		col.New(3).Add(
			text.New(fmt.Sprintf("%d", t.TotalQuantity()), props.Text{Size: 9, Align: align.Right, Right: 1}),
			grand("$"+formatMoney(t.TotalValue())),
		),
	)
}

// historyRows: historial de estados y notas.
func historyRows(history []entity.StatusEvent) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("HISTORIAL", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
		)),
	}
	for _, ev := range history {
		entry := fmt.Sprintf("%s  %s  (%s)", formatDate(ev.ChangedAt), statusLabel(ev.Status), nonEmpty(ev.ChangedBy, "—"))
		if ev.Note != "" {
			entry += ": " + ev.Note
		}
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New(entry, props.Text{Size: 7, Color: colorGray, Top: 0.5, Left: 2}),
		)))
	}
	return rows
}

// footerRow: QR con el número de remisión y espacio de firma de recibido.
func footerRow(t *entity.Transfer) core.Row {
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(t.TransferNumber, props.Rect{Percent: 90, Center: true})),
		col.New(9).Add(
			text.New("Recibido por: ________________________________", props.Text{Size: 9, Top: 12, Left: 3}),
			text.New("Fecha y firma: ______________________________", props.Text{Size: 9, Top: 22, Left: 3}),
			text.New("El stock local se actualiza al registrar la entrega en el sistema.",
				props.Text{Size: 6.5, Top: 32, Left: 3, Color: colorGray}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func statusLabel(s entity.TransferStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("02/01/2006 15:04")
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return "—"
	}
	return formatDate(*t)
}

// formatMoney separa miles con punto y decimales con coma.
// Ej: 25000 → "25.000,00", 1234567.5 → "1.234.567,50"
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf) + "," + frac
}
