package repository

import (
	"context"

	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

// StockLedgerRepository almacenamiento append-only del libro de stock.
type StockLedgerRepository interface {
	// Append inserta la entrada. Si ya existe otra con la misma cadena y Sequence devuelve
	// *domain.ConcurrentModificationError. Asigna Position.
	Append(ctx context.Context, entry *entity.StockLedgerEntry) error
	// Last última entrada de la cadena; nil, nil si la cadena está vacía.
	Last(ctx context.Context, key entity.StockKey) (*entity.StockLedgerEntry, error)
	// ListPage hasta limit entradas en orden (created_at, position) descendente, estrictamente
	// posteriores a after cuando no es nil.
	ListPage(ctx context.Context, filter entity.LedgerFilter, after *entity.LedgerCursor, limit int) ([]*entity.StockLedgerEntry, error)
}
