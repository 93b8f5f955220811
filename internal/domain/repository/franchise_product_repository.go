package repository

import (
	"context"

	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

// FranchiseProductRepository puerto de persistencia del inventario local de cada franquicia.
type FranchiseProductRepository interface {
	Create(ctx context.Context, fp *entity.FranchiseProduct) error
	GetByID(ctx context.Context, id string) (*entity.FranchiseProduct, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*entity.FranchiseProduct, error)
	// GetStock devuelve el contador local; NotFound si el registro no pertenece a tenantID.
	GetStock(ctx context.Context, tenantID, id string) (entity.StockLevel, error)
	// SetStock escritura optimista igual que ProductRepository.SetStock.
	SetStock(ctx context.Context, tenantID, id string, quantity, expectedVersion int64) (int64, error)
}
