package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

// TransferRepository puerto de persistencia de transferencias, líneas e historial.
type TransferRepository interface {
	Create(ctx context.Context, t *entity.Transfer) error
	GetByID(ctx context.Context, id string) (*entity.Transfer, error)
	// GetForUpdate igual que GetByID pero bloquea la transferencia hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error)
	// UpdateStatus persiste t (estado, actores, fechas) y agrega event al historial solo si el
	// estado almacenado sigue siendo from; si no devuelve *domain.TransitionError.
	UpdateStatus(ctx context.Context, t *entity.Transfer, from entity.TransferStatus, event entity.StatusEvent) error
	// AppendNote agrega una nota con el estado vigente al momento de escribir y devuelve la transferencia.
	AppendNote(ctx context.Context, id string, event entity.StatusEvent) (*entity.Transfer, error)
	List(ctx context.Context, filter entity.TransferFilter) ([]*entity.Transfer, int64, error)
	CountByStatus(ctx context.Context, tenantID string) ([]entity.StatusCount, error)
	Totals(ctx context.Context, tenantID string) (entity.TransferTotals, error)
}

// TransferSequence contador atómico de números de transferencia por día.
type TransferSequence interface {
	Next(ctx context.Context, day time.Time) (int64, error)
}
