package entity

import "time"

// Tipos de evento del ciclo de vida de una transferencia.
const (
	TransferEventCreated       = "transfer.created"
	TransferEventApproved      = "transfer.approved"
	TransferEventRejected      = "transfer.rejected"
	TransferEventStatusChanged = "transfer.status_changed"
	TransferEventDelivered     = "transfer.delivered"
)

// TransferEvent notificación publicada tras una transición confirmada.
type TransferEvent struct {
	EventID        string         `json:"event_id"`
	Type           string         `json:"type"`
	TransferID     string         `json:"transfer_id"`
	TransferNumber string         `json:"transfer_number"`
	TenantID       string         `json:"tenant_id"`
	From           TransferStatus `json:"from,omitempty"`
	To             TransferStatus `json:"to"`
	Actor          string         `json:"actor"`
	OccurredAt     time.Time      `json:"occurred_at"`
}
