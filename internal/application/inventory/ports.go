package inventory

import (
	"context"

	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
)

// Stores repositorios atados a una misma unidad de trabajo.
type Stores struct {
	Products  repository.ProductRepository
	Franchise repository.FranchiseProductRepository
	Ledger    repository.StockLedgerRepository
	Transfers repository.TransferRepository
}

// TxRunner ejecuta fn con repositorios atados a una unidad de trabajo.
// Si Atomic() es true, un error devuelto por fn deshace todas sus escrituras (Rollback);
// si es false cada escritura es definitiva y el llamador debe compensar los fallos parciales.
type TxRunner interface {
	Run(ctx context.Context, fn func(s Stores) error) error
	Atomic() bool
}
