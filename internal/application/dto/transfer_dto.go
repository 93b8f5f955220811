package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Franquicias-api/internal/application/transfer"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

// TransferItemRequest línea de POST /api/transfers.
type TransferItemRequest struct {
	CentralProductID string `json:"central_product_id" validate:"required"`
	LocalProductID   string `json:"local_product_id" validate:"required"`
	Quantity         int64  `json:"quantity" validate:"gt=0"`
}

// CreateTransferRequest body para POST /api/transfers. tenant_id solo lo envía un admin;
// para una franquicia se toma del token.
type CreateTransferRequest struct {
	TenantID    string                `json:"tenant_id,omitempty"`
	Items       []TransferItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes       string                `json:"notes,omitempty" validate:"max=1000"`
	EntryStatus string                `json:"entry_status,omitempty" validate:"omitempty,oneof=requested pending"`
}

// ApproveTransferRequest body para POST /api/transfers/:id/approve.
type ApproveTransferRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=1000"`
}

// RejectTransferRequest body para POST /api/transfers/:id/reject.
type RejectTransferRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// AdvanceStatusRequest body para POST /api/transfers/:id/status.
type AdvanceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=processing shipped cancelled"`
	Notes  string `json:"notes,omitempty" validate:"max=1000"`
}

// AddNoteRequest body para POST /api/transfers/:id/notes.
type AddNoteRequest struct {
	Note string `json:"note" validate:"required,max=1000"`
}

// ListTransfersQuery filtros de GET /api/transfers. Fechas en formato YYYY-MM-DD.
type ListTransfersQuery struct {
	Page     int    `query:"page" json:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" json:"page_size" validate:"omitempty,min=1,max=100"`
	TenantID string `query:"tenant_id" json:"tenant_id"`
	Status   string `query:"status" json:"status" validate:"omitempty,oneof=requested pending rejected processing shipped delivered cancelled"`
	Search   string `query:"search" json:"search" validate:"max=50"`
	From     string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Sort     string `query:"sort" json:"sort" validate:"omitempty,oneof=created_at -created_at transfer_number status"`
}

// ToInput convierte la query al ListInput del servicio. To incluye el día completo.
func (q ListTransfersQuery) ToInput() transfer.ListInput {
	in := transfer.ListInput{
		TenantID: q.TenantID,
		Status:   entity.TransferStatus(q.Status),
		Search:   q.Search,
		Sort:     q.Sort,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if d, err := time.Parse(time.DateOnly, q.From); err == nil {
		in.From = d
	}
	if d, err := time.Parse(time.DateOnly, q.To); err == nil {
		in.To = d.Add(24*time.Hour - time.Nanosecond)
	}
	return in
}

// TransferItemResponse línea en respuestas.
type TransferItemResponse struct {
	ID               string          `json:"id"`
	CentralProductID string          `json:"central_product_id"`
	LocalProductID   string          `json:"local_product_id"`
	SKU              string          `json:"sku"`
	ProductName      string          `json:"product_name"`
	Quantity         int64           `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	LineTotal        decimal.Decimal `json:"line_total"`
}

// StatusEventResponse entrada del historial.
type StatusEventResponse struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

// TransferResponse transferencia completa.
type TransferResponse struct {
	ID              string                 `json:"id"`
	TenantID        string                 `json:"tenant_id"`
	TransferNumber  string                 `json:"transfer_number"`
	Status          string                 `json:"status"`
	Items           []TransferItemResponse `json:"items"`
	StatusHistory   []StatusEventResponse  `json:"status_history"`
	TotalQuantity   int64                  `json:"total_quantity"`
	TotalValue      decimal.Decimal        `json:"total_value"`
	RequestedBy     string                 `json:"requested_by"`
	ApprovedBy      string                 `json:"approved_by,omitempty"`
	RejectedBy      string                 `json:"rejected_by,omitempty"`
	RejectionReason string                 `json:"rejection_reason,omitempty"`
	DeliveredBy     string                 `json:"delivered_by,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
	RequestedAt     time.Time              `json:"requested_at"`
	ApprovedAt      *time.Time             `json:"approved_at,omitempty"`
	ShippedAt       *time.Time             `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time             `json:"delivered_at,omitempty"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// NewTransferResponse mapea la entidad.
func NewTransferResponse(t *entity.Transfer) TransferResponse {
	items := make([]TransferItemResponse, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, TransferItemResponse{
			ID:               it.ID,
			CentralProductID: it.CentralProductID,
			LocalProductID:   it.LocalProductID,
			SKU:              it.SKU,
			ProductName:      it.ProductName,
			Quantity:         it.Quantity,
			UnitPrice:        it.UnitPrice,
			LineTotal:        it.LineTotal,
		})
	}
	history := make([]StatusEventResponse, 0, len(t.StatusHistory))
	for _, ev := range t.StatusHistory {
		history = append(history, StatusEventResponse{
			Status:    string(ev.Status),
			Note:      ev.Note,
			ChangedBy: ev.ChangedBy,
			ChangedAt: ev.ChangedAt,
		})
	}
	return TransferResponse{
		ID:              t.ID,
		TenantID:        t.TenantID,
		TransferNumber:  t.TransferNumber,
		Status:          string(t.Status),
		Items:           items,
		StatusHistory:   history,
		TotalQuantity:   t.TotalQuantity(),
		TotalValue:      t.TotalValue(),
		RequestedBy:     t.RequestedBy,
		ApprovedBy:      t.ApprovedBy,
		RejectedBy:      t.RejectedBy,
		RejectionReason: t.RejectionReason,
		DeliveredBy:     t.DeliveredBy,
		Notes:           t.Notes,
		RequestedAt:     t.RequestedAt,
		ApprovedAt:      t.ApprovedAt,
		ShippedAt:       t.ShippedAt,
		DeliveredAt:     t.DeliveredAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// TransferListResponse página de transferencias.
type TransferListResponse struct {
	Items []TransferResponse `json:"items"`
	PageResponse
}

// NewTransferListResponse mapea la página del servicio.
func NewTransferListResponse(p *transfer.Page) TransferListResponse {
	items := make([]TransferResponse, 0, len(p.Items))
	for _, t := range p.Items {
		items = append(items, NewTransferResponse(t))
	}
	return TransferListResponse{
		Items: items,
		PageResponse: PageResponse{
			Page:       p.Page,
			PageSize:   p.PageSize,
			Total:      p.Total,
			TotalPages: p.TotalPages,
		},
	}
}

// TransferStatsResponse conteos por estado y totales.
type TransferStatsResponse struct {
	TenantID          string           `json:"tenant_id,omitempty"`
	Total             int64            `json:"total"`
	ByStatus          map[string]int64 `json:"by_status"`
	RequestedQuantity int64            `json:"requested_quantity"`
	DeliveredQuantity int64            `json:"delivered_quantity"`
	DeliveredValue    decimal.Decimal  `json:"delivered_value"`
}

// NewTransferStatsResponse mapea las estadísticas.
func NewTransferStatsResponse(s *transfer.Stats) TransferStatsResponse {
	by := make(map[string]int64, len(s.ByStatus))
	for st, n := range s.ByStatus {
		by[string(st)] = n
	}
	return TransferStatsResponse{
		TenantID:          s.TenantID,
		Total:             s.Total,
		ByStatus:          by,
		RequestedQuantity: s.Totals.RequestedQuantity,
		DeliveredQuantity: s.Totals.DeliveredQuantity,
		DeliveredValue:    s.Totals.DeliveredValue,
	}
}
