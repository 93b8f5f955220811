package repository

import (
	"context"

	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

// ProductRepository puerto de persistencia del catálogo central y su contador de stock.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetStock devuelve el contador central con su versión.
	GetStock(ctx context.Context, productID string) (entity.StockLevel, error)
	// SetStock escribe el contador solo si la versión actual es expectedVersion; si no,
	// devuelve *domain.ConcurrentModificationError. Retorna la nueva versión.
	SetStock(ctx context.Context, productID string, quantity, expectedVersion int64) (int64, error)
}
