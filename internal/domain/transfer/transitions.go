package transfer

import "github.com/jhoicas/Franquicias-api/internal/domain/entity"

// Tabla de transiciones permitidas (servicio de dominio puro).
//
//	requested  -> pending | rejected
//	pending    -> processing | cancelled
//	processing -> shipped | cancelled
//	shipped    -> delivered
var transitions = map[entity.TransferStatus][]entity.TransferStatus{
	entity.TransferStatusRequested:  {entity.TransferStatusPending, entity.TransferStatusRejected},
	entity.TransferStatusPending:    {entity.TransferStatusProcessing, entity.TransferStatusCancelled},
	entity.TransferStatusProcessing: {entity.TransferStatusShipped, entity.TransferStatusCancelled},
	entity.TransferStatusShipped:    {entity.TransferStatusDelivered},
}

// genericTargets destinos alcanzables por AdvanceStatus; approve, reject y deliver tienen su propia operación.
var genericTargets = map[entity.TransferStatus]bool{
	entity.TransferStatusProcessing: true,
	entity.TransferStatusShipped:    true,
	entity.TransferStatusCancelled:  true,
}

// CanTransition indica si la tabla permite ir de from a to.
func CanTransition(from, to entity.TransferStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AllowedTargets destinos permitidos desde from (vacío para estados terminales).
func AllowedTargets(from entity.TransferStatus) []entity.TransferStatus {
	out := make([]entity.TransferStatus, len(transitions[from]))
	copy(out, transitions[from])
	return out
}

// CanAdvance indica si la transición es válida por la vía genérica (AdvanceStatus).
func CanAdvance(from, to entity.TransferStatus) bool {
	return genericTargets[to] && CanTransition(from, to)
}

// IsEntryStatus estados con los que se puede crear una transferencia.
func IsEntryStatus(s entity.TransferStatus) bool {
	return s == entity.TransferStatusRequested || s == entity.TransferStatusPending
}
