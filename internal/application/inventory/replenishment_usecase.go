package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
)

// ReplenishmentSuggestion producto local bajo su punto de reorden con la cantidad sugerida
// para solicitar a la bodega central.
type ReplenishmentSuggestion struct {
	LocalProductID    string
	CentralProductID  string
	ProductName       string
	SKU               string
	CurrentStock      int64
	ReorderLevel      int64
	SuggestedQuantity int64
	CentralAvailable  int64
	Coverage          float64 // CurrentStock / ReorderLevel; menor es más urgente
}

// ReplenishmentUseCase arma la lista de reposición de una franquicia, lista para convertirse
// en las líneas de una transferencia.
type ReplenishmentUseCase struct {
	products  repository.ProductRepository
	franchise repository.FranchiseProductRepository
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(products repository.ProductRepository, franchise repository.FranchiseProductRepository) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{products: products, franchise: franchise}
}

// Suggest devuelve los productos con stock local menor al punto de reorden. La cantidad
// sugerida lleva el stock a 1.5 veces el punto de reorden, limitada por el stock central.
func (uc *ReplenishmentUseCase) Suggest(ctx context.Context, tenantID string) ([]ReplenishmentSuggestion, error) {
	if tenantID == "" {
		return nil, domain.NewValidationError("tenant_id", "es requerido")
	}
	locals, err := uc.franchise.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := make([]ReplenishmentSuggestion, 0)
	for _, fp := range locals {
		if fp.ReorderLevel <= 0 || fp.Stock >= fp.ReorderLevel {
			continue
		}
		product, err := uc.products.GetByID(ctx, fp.ProductID)
		if err != nil {
			return nil, err
		}
		ideal := fp.ReorderLevel * 3 / 2
		suggested := ideal - fp.Stock
		if suggested > product.Stock {
			suggested = product.Stock
		}
		out = append(out, ReplenishmentSuggestion{
			LocalProductID:    fp.ID,
			CentralProductID:  fp.ProductID,
			ProductName:       product.Name,
			SKU:               product.SKU,
			CurrentStock:      fp.Stock,
			ReorderLevel:      fp.ReorderLevel,
			SuggestedQuantity: suggested,
			CentralAvailable:  product.Stock,
			Coverage:          float64(fp.Stock) / float64(fp.ReorderLevel),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Coverage != out[j].Coverage {
			return out[i].Coverage < out[j].Coverage
		}
		return out[i].SKU < out[j].SKU
	})
	return out, nil
}
