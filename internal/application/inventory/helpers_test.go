package inventory_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Franquicias-api/internal/application/inventory"
	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
	"github.com/jhoicas/Franquicias-api/internal/infrastructure/memory"
)

const (
	tenantA   = "franquicia-a"
	tenantB   = "franquicia-b"
	centralP1 = "central-p1"
	localP1   = "local-a-p1"
	localBP1  = "local-b-p1"
	adminUser = "admin-1"
)

// stepClock reloj que avanza un segundo en cada lectura (seguro para goroutines).
func stepClock() func() time.Time {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var n atomic.Int64
	return func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

// seedStore crea un producto central con centralStock unidades y su registro local en dos franquicias.
func seedStore(t *testing.T, centralStock int64) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	s := store.Stores()
	require.NoError(t, s.Products.Create(ctx, &entity.Product{
		ID: centralP1, SKU: "SKU-001", Name: "Café molido 500g",
		Cost: decimal.RequireFromString("12.50"), Price: decimal.RequireFromString("18"),
		Stock: centralStock,
	}))
	require.NoError(t, s.Franchise.Create(ctx, &entity.FranchiseProduct{ID: localP1, TenantID: tenantA, ProductID: centralP1}))
	require.NoError(t, s.Franchise.Create(ctx, &entity.FranchiseProduct{ID: localBP1, TenantID: tenantB, ProductID: centralP1}))
	return store
}

func newCoordinator(runner inventory.TxRunner) *inventory.StockCoordinator {
	return inventory.NewStockCoordinator(runner, zerolog.Nop(), inventory.WithClock(stepClock()))
}

func centralStock(t *testing.T, store *memory.Store, id string) int64 {
	t.Helper()
	lvl, err := store.Stores().Products.GetStock(context.Background(), id)
	require.NoError(t, err)
	return lvl.Quantity
}

func localStock(t *testing.T, store *memory.Store, tenantID, id string) int64 {
	t.Helper()
	lvl, err := store.Stores().Franchise.GetStock(context.Background(), tenantID, id)
	require.NoError(t, err)
	return lvl.Quantity
}

func replay(t *testing.T, store *memory.Store, key entity.StockKey) int64 {
	t.Helper()
	n, err := inventory.NewStockLedger(store.Stores().Ledger, nil).Replay(context.Background(), key)
	require.NoError(t, err)
	return n
}

// failingFranchise rechaza toda escritura del contador local como si otro proceso la hubiera cambiado.
type failingFranchise struct {
	repository.FranchiseProductRepository
}

func (failingFranchise) SetStock(_ context.Context, _, id string, _, _ int64) (int64, error) {
	return 0, &domain.ConcurrentModificationError{Resource: "franchise_products", Key: id}
}

// faultyRunner runner no atómico cuyo contador local siempre falla al escribir.
type faultyRunner struct {
	*memory.Store
}

func (r faultyRunner) Run(ctx context.Context, fn func(inventory.Stores) error) error {
	s := r.Store.Stores()
	s.Franchise = failingFranchise{s.Franchise}
	return fn(s)
}
