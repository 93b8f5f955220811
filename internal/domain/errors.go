package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrInvalidTransition      = errors.New("transición de estado inválida")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrReferentialMismatch    = errors.New("referencia de producto inconsistente")
	ErrConcurrentModification = errors.New("modificación concurrente detectada")
	ErrCompensationFailed     = errors.New("no se pudo compensar la operación")
)

// ValidationError entrada mal formada; Field vacío cuando el error no es de un campo concreto.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Message)
	}
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError atajo para construir un *ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError recurso inexistente (transferencia, producto central o local).
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q no encontrado", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// TransitionError intento de mover una transferencia a un estado no permitido desde el actual.
type TransitionError struct {
	TransferID string
	From       string
	To         string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: transferencia %s de %q a %q", ErrInvalidTransition, e.TransferID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// InsufficientStockError identifica el contador que no alcanza. Line es el índice (base 0) de la
// línea de la transferencia que falló, -1 si la operación no proviene de una transferencia.
type InsufficientStockError struct {
	TenantID  string
	Scope     string
	ProductID string
	Requested int64
	Available int64
	Line      int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: producto %s (%s, franquicia %s) solicitado %d, disponible %d",
		ErrInsufficientStock, e.ProductID, e.Scope, e.TenantID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ReferentialMismatchError producto local que no pertenece a la franquicia o no enlaza con el producto central.
type ReferentialMismatchError struct {
	TenantID         string
	LocalProductID   string
	CentralProductID string
	Reason           string
}

func (e *ReferentialMismatchError) Error() string {
	return fmt.Sprintf("%s: producto local %s / central %s (franquicia %s): %s",
		ErrReferentialMismatch, e.LocalProductID, e.CentralProductID, e.TenantID, e.Reason)
}

func (e *ReferentialMismatchError) Unwrap() error { return ErrReferentialMismatch }

// ConcurrentModificationError una guarda optimista (versión o previousStock) no coincidió. Reintentable.
type ConcurrentModificationError struct {
	Resource string
	Key      string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConcurrentModification, e.Resource, e.Key)
}

func (e *ConcurrentModificationError) Unwrap() error { return ErrConcurrentModification }

// IsRetryable indica si el llamador puede reintentar la operación completa.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
