package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus estado del ciclo de vida de una transferencia.
type TransferStatus string

const (
	TransferStatusRequested  TransferStatus = "requested"
	TransferStatusPending    TransferStatus = "pending"
	TransferStatusRejected   TransferStatus = "rejected"
	TransferStatusProcessing TransferStatus = "processing"
	TransferStatusShipped    TransferStatus = "shipped"
	TransferStatusDelivered  TransferStatus = "delivered"
	TransferStatusCancelled  TransferStatus = "cancelled"
)

// TransferStatuses todos los estados en orden de ciclo de vida.
var TransferStatuses = []TransferStatus{
	TransferStatusRequested,
	TransferStatusPending,
	TransferStatusRejected,
	TransferStatusProcessing,
	TransferStatusShipped,
	TransferStatusDelivered,
	TransferStatusCancelled,
}

// IsValid indica si el estado es conocido.
func (s TransferStatus) IsValid() bool {
	for _, st := range TransferStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// IsTerminal rejected, delivered y cancelled no admiten más transiciones.
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusRejected || s == TransferStatusDelivered || s == TransferStatusCancelled
}

// Transfer solicitud de envío de productos de la bodega central a una franquicia.
// Los campos de texto vacíos significan "no asignado".
type Transfer struct {
	ID              string
	TenantID        string
	TransferNumber  string // TRF-YYYYMMDD-NNNN
	Status          TransferStatus
	Items           []TransferItem
	StatusHistory   []StatusEvent
	RequestedBy     string
	ApprovedBy      string
	RejectedBy      string
	RejectionReason string
	DeliveredBy     string
	Notes           string
	RequestedAt     time.Time
	ApprovedAt      *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TransferItem línea de una transferencia. UnitPrice se congela al crear la transferencia.
type TransferItem struct {
	ID               string
	CentralProductID string
	LocalProductID   string
	ProductName      string
	SKU              string
	Quantity         int64
	UnitPrice        decimal.Decimal
	LineTotal        decimal.Decimal
}

// StatusEvent entrada del historial. Una nota repite el estado vigente con Note no vacío.
type StatusEvent struct {
	Status    TransferStatus
	Note      string
	ChangedBy string
	ChangedAt time.Time
}

// TotalQuantity suma de unidades de todas las líneas.
func (t *Transfer) TotalQuantity() int64 {
	var n int64
	for _, it := range t.Items {
		n += it.Quantity
	}
	return n
}

// TotalValue suma de LineTotal de todas las líneas.
func (t *Transfer) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, it := range t.Items {
		total = total.Add(it.LineTotal)
	}
	return total
}

// QuantitiesByCentralProduct agrega cantidades por producto central, en orden de primera aparición.
func (t *Transfer) QuantitiesByCentralProduct() ([]string, map[string]int64) {
	order := make([]string, 0, len(t.Items))
	sums := make(map[string]int64, len(t.Items))
	for _, it := range t.Items {
		if _, seen := sums[it.CentralProductID]; !seen {
			order = append(order, it.CentralProductID)
		}
		sums[it.CentralProductID] += it.Quantity
	}
	return order, sums
}

// TransferFilter criterios de listado. Campos vacíos no filtran.
type TransferFilter struct {
	TenantID string
	Status   TransferStatus
	Search   string // coincidencia parcial sobre TransferNumber
	From     time.Time
	To       time.Time
	Sort     string // created_at | -created_at | transfer_number | status
	Limit    int
	Offset   int
}

// StatusCount conteo de transferencias en un estado.
type StatusCount struct {
	Status TransferStatus
	Count  int64
}

// TransferTotals agregados de cantidades y valores.
type TransferTotals struct {
	RequestedQuantity int64
	DeliveredQuantity int64
	DeliveredValue    decimal.Decimal
}
