package dto

import (
	"encoding/json"
	"time"

	"github.com/jhoicas/Franquicias-api/internal/application/inventory"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

// StockAdjustmentRequest body para POST /api/stock/adjustments. Delta con signo.
type StockAdjustmentRequest struct {
	TenantID    string          `json:"tenant_id,omitempty"`
	Scope       string          `json:"scope" validate:"required,oneof=central local"`
	ProductID   string          `json:"product_id" validate:"required"`
	Delta       int64           `json:"delta" validate:"ne=0"`
	Type        string          `json:"type" validate:"required,oneof=purchase sale adjustment return damage expired initial_stock"`
	ReferenceID string          `json:"reference_id,omitempty"`
	Notes       string          `json:"notes,omitempty" validate:"max=1000"`
	Metadata    json.RawMessage `json:"metadata,omitempty" swaggertype:"object"`
}

// ToInput convierte el body al AdjustInput del coordinador.
func (r StockAdjustmentRequest) ToInput(performedBy string) inventory.AdjustInput {
	return inventory.AdjustInput{
		TenantID:    r.TenantID,
		Scope:       entity.StockScope(r.Scope),
		ProductID:   r.ProductID,
		Delta:       r.Delta,
		Type:        entity.StockTransactionType(r.Type),
		ReferenceID: r.ReferenceID,
		PerformedBy: performedBy,
		Notes:       r.Notes,
		Metadata:    r.Metadata,
	}
}

// LedgerQuery filtros de GET /api/stock/ledger. Fechas en formato YYYY-MM-DD.
type LedgerQuery struct {
	TenantID  string `query:"tenant_id" json:"tenant_id"`
	Scope     string `query:"scope" json:"scope" validate:"omitempty,oneof=central local"`
	ProductID string `query:"product_id" json:"product_id"`
	Type      string `query:"type" json:"type" validate:"omitempty,oneof=purchase sale adjustment return damage expired transfer_in transfer_out initial_stock"`
	From      string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Limit     int    `query:"limit" json:"limit" validate:"omitempty,min=1,max=500"`
}

// ToFilter convierte la query al filtro del libro. To incluye el día completo.
func (q LedgerQuery) ToFilter() entity.LedgerFilter {
	f := entity.LedgerFilter{
		TenantID:  q.TenantID,
		Scope:     entity.StockScope(q.Scope),
		ProductID: q.ProductID,
		Type:      entity.StockTransactionType(q.Type),
	}
	if d, err := time.Parse(time.DateOnly, q.From); err == nil {
		f.From = d
	}
	if d, err := time.Parse(time.DateOnly, q.To); err == nil {
		f.To = d.Add(24*time.Hour - time.Nanosecond)
	}
	return f
}

// LedgerEntryResponse entrada del libro de stock.
type LedgerEntryResponse struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id,omitempty"`
	Scope         string          `json:"scope"`
	ProductID     string          `json:"product_id"`
	Type          string          `json:"type"`
	Quantity      int64           `json:"quantity"`
	PreviousStock int64           `json:"previous_stock"`
	NewStock      int64           `json:"new_stock"`
	Sequence      int64           `json:"sequence"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	PerformedBy   string          `json:"performed_by"`
	Notes         string          `json:"notes,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty" swaggertype:"object"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewLedgerEntryResponse mapea la entidad.
func NewLedgerEntryResponse(e *entity.StockLedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:            e.ID,
		TenantID:      e.TenantID,
		Scope:         string(e.Scope),
		ProductID:     e.ProductID,
		Type:          string(e.Type),
		Quantity:      e.Quantity,
		PreviousStock: e.PreviousStock,
		NewStock:      e.NewStock,
		Sequence:      e.Sequence,
		ReferenceID:   e.ReferenceID,
		PerformedBy:   e.PerformedBy,
		Notes:         e.Notes,
		Metadata:      e.Metadata,
		CreatedAt:     e.CreatedAt,
	}
}

// ReplenishmentSuggestionDTO producto local por debajo de su punto de reorden.
type ReplenishmentSuggestionDTO struct {
	LocalProductID    string  `json:"local_product_id"`
	CentralProductID  string  `json:"central_product_id"`
	SKU               string  `json:"sku"`
	ProductName       string  `json:"product_name"`
	CurrentStock      int64   `json:"current_stock"`
	ReorderLevel      int64   `json:"reorder_level"`
	SuggestedQuantity int64   `json:"suggested_quantity"`
	CentralAvailable  int64   `json:"central_available"`
	Coverage          float64 `json:"coverage"` // CurrentStock / ReorderLevel
}

// NewReplenishmentList mapea las sugerencias del caso de uso.
func NewReplenishmentList(in []inventory.ReplenishmentSuggestion) []ReplenishmentSuggestionDTO {
	out := make([]ReplenishmentSuggestionDTO, 0, len(in))
	for _, s := range in {
		out = append(out, ReplenishmentSuggestionDTO{
			LocalProductID:    s.LocalProductID,
			CentralProductID:  s.CentralProductID,
			SKU:               s.SKU,
			ProductName:       s.ProductName,
			CurrentStock:      s.CurrentStock,
			ReorderLevel:      s.ReorderLevel,
			SuggestedQuantity: s.SuggestedQuantity,
			CentralAvailable:  s.CentralAvailable,
			Coverage:          s.Coverage,
		})
	}
	return out
}
