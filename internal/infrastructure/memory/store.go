package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/Franquicias-api/internal/application/inventory"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

// Store almacenamiento en memoria de todos los puertos. No es transaccional: cada escritura es
// definitiva y las guardas optimistas (versión, previousStock, estado) se evalúan bajo el mutex.
type Store struct {
	mu        sync.RWMutex
	products  map[string]*entity.Product
	franchise map[string]*entity.FranchiseProduct
	ledger    []*entity.StockLedgerEntry
	heads     map[entity.StockKey]*entity.StockLedgerEntry
	position  int64
	transfers map[string]*entity.Transfer
	numbers   map[string]string // transfer_number -> id
	sequences map[string]int64  // día (YYYYMMDD) -> último número
}

// NewStore crea un almacenamiento vacío.
func NewStore() *Store {
	return &Store{
		products:  make(map[string]*entity.Product),
		franchise: make(map[string]*entity.FranchiseProduct),
		heads:     make(map[entity.StockKey]*entity.StockLedgerEntry),
		transfers: make(map[string]*entity.Transfer),
		numbers:   make(map[string]string),
		sequences: make(map[string]int64),
	}
}

// Stores repositorios sobre este almacenamiento.
func (s *Store) Stores() inventory.Stores {
	return inventory.Stores{
		Products:  &ProductRepo{s: s},
		Franchise: &FranchiseProductRepo{s: s},
		Ledger:    &LedgerRepo{s: s},
		Transfers: &TransferRepo{s: s},
	}
}

// Run ejecuta fn sin transacción.
func (s *Store) Run(ctx context.Context, fn func(inventory.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s.Stores())
}

// Atomic siempre false.
func (s *Store) Atomic() bool { return false }
