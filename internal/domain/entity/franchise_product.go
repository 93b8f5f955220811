package entity

import "time"

// FranchiseProduct registro de un producto central en el inventario local de una franquicia (tenant).
type FranchiseProduct struct {
	ID           string
	TenantID     string
	ProductID    string // producto central enlazado
	Stock        int64
	ReorderLevel int64
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BelongsTo indica si el registro local es de la franquicia y enlaza con el producto central dado.
func (fp *FranchiseProduct) BelongsTo(tenantID, centralProductID string) bool {
	return fp.TenantID == tenantID && fp.ProductID == centralProductID
}
