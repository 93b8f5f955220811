package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Franquicias-api/internal/application/inventory"
	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
	"github.com/jhoicas/Franquicias-api/internal/infrastructure/memory"
)

func localEntry(qty, prev int64) *entity.StockLedgerEntry {
	return &entity.StockLedgerEntry{
		TenantID:      tenantA,
		Scope:         entity.StockScopeLocal,
		ProductID:     localP1,
		Type:          entity.TxTypePurchase,
		Quantity:      qty,
		PreviousStock: prev,
		PerformedBy:   adminUser,
	}
}

func TestRecord_CalculaNewStockYSecuencia(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewStockLedger(memory.NewStore().Stores().Ledger, stepClock())

	first := localEntry(10, 0)
	require.NoError(t, ledger.Record(ctx, first))
	assert.Equal(t, int64(10), first.NewStock)
	assert.Equal(t, int64(1), first.Sequence)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second := localEntry(-4, 10)
	second.Type = entity.TxTypeSale
	require.NoError(t, ledger.Record(ctx, second))
	assert.Equal(t, int64(6), second.NewStock)
	assert.Equal(t, int64(2), second.Sequence)
}

func TestRecord_PreviousStockDesactualizado(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewStockLedger(memory.NewStore().Stores().Ledger, stepClock())
	require.NoError(t, ledger.Record(ctx, localEntry(10, 0)))

	err := ledger.Record(ctx, localEntry(5, 7))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.True(t, domain.IsRetryable(err))
}

func TestRecord_RechazaStockNegativo(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewStockLedger(memory.NewStore().Stores().Ledger, stepClock())
	require.NoError(t, ledger.Record(ctx, localEntry(3, 0)))

	sale := localEntry(-5, 3)
	sale.Type = entity.TxTypeSale
	err := ledger.Record(ctx, sale)

	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, int64(5), stockErr.Requested)
	assert.Equal(t, int64(3), stockErr.Available)
	assert.Equal(t, localP1, stockErr.ProductID)
}

func TestRecord_Validaciones(t *testing.T) {
	ledger := inventory.NewStockLedger(memory.NewStore().Stores().Ledger, nil)
	cases := map[string]func(e *entity.StockLedgerEntry){
		"cantidad cero":    func(e *entity.StockLedgerEntry) { e.Quantity = 0 },
		"scope inválido":   func(e *entity.StockLedgerEntry) { e.Scope = "bodega" },
		"tipo inválido":    func(e *entity.StockLedgerEntry) { e.Type = "robo" },
		"sin producto":     func(e *entity.StockLedgerEntry) { e.ProductID = "" },
		"local sin tenant": func(e *entity.StockLedgerEntry) { e.TenantID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			e := localEntry(1, 0)
			mutate(e)
			assert.ErrorIs(t, ledger.Record(context.Background(), e), domain.ErrInvalidInput)
		})
	}
}

func TestRecord_CadenaCentralIgnoraFranquicia(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewStockLedger(memory.NewStore().Stores().Ledger, stepClock())
	require.NoError(t, ledger.Record(ctx, &entity.StockLedgerEntry{
		TenantID: tenantA, Scope: entity.StockScopeCentral, ProductID: centralP1,
		Type: entity.TxTypeInitialStock, Quantity: 10,
	}))
	// Otra franquicia debe ver el mismo último stock central.
	err := ledger.Record(ctx, &entity.StockLedgerEntry{
		TenantID: tenantB, Scope: entity.StockScopeCentral, ProductID: centralP1,
		Type: entity.TxTypeTransferOut, Quantity: -2, PreviousStock: 0,
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	require.NoError(t, ledger.Record(ctx, &entity.StockLedgerEntry{
		TenantID: tenantB, Scope: entity.StockScopeCentral, ProductID: centralP1,
		Type: entity.TxTypeTransferOut, Quantity: -2, PreviousStock: 10,
	}))
}

func TestRecord_EscriturasConcurrentesSoloUnaGana(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewStockLedger(memory.NewStore().Stores().Ledger, stepClock())
	require.NoError(t, ledger.Record(ctx, localEntry(10, 0)))

	const writers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sale := localEntry(-1, 10)
			sale.Type = entity.TxTypeSale
			err := ledger.Record(ctx, sale)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, domain.ErrConcurrentModification) {
				conflicts++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
	assert.Equal(t, writers-1, conflicts)
}

// countingLedgerRepo cuenta las páginas pedidas al repositorio.
type countingLedgerRepo struct {
	repository.StockLedgerRepository
	pages int
}

func (r *countingLedgerRepo) ListPage(ctx context.Context, f entity.LedgerFilter, after *entity.LedgerCursor, limit int) ([]*entity.StockLedgerEntry, error) {
	r.pages++
	return r.StockLedgerRepository.ListPage(ctx, f, after, limit)
}

func TestHistory_DescendenteYPerezoso(t *testing.T) {
	ctx := context.Background()
	repo := &countingLedgerRepo{StockLedgerRepository: memory.NewStore().Stores().Ledger}
	ledger := inventory.NewStockLedger(repo, stepClock()).WithPageSize(2)

	prev := int64(0)
	for i := 0; i < 5; i++ {
		e := localEntry(1, prev)
		require.NoError(t, ledger.Record(ctx, e))
		prev = e.NewStock
	}

	// Tomar solo la primera entrada lee una sola página.
	for e, err := range ledger.History(ctx, entity.LedgerFilter{TenantID: tenantA}) {
		require.NoError(t, err)
		assert.Equal(t, int64(5), e.NewStock, "la primera entrada es la más reciente")
		break
	}
	assert.Equal(t, 1, repo.pages)

	// Recorrido completo: 5 entradas, orden descendente, reinicia desde el principio.
	all, err := ledger.Collect(ctx, entity.LedgerFilter{TenantID: tenantA}, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].CreatedAt.After(all[i].CreatedAt))
		assert.Equal(t, all[i].NewStock, all[i-1].PreviousStock)
	}

	limited, err := ledger.Collect(ctx, entity.LedgerFilter{TenantID: tenantA}, 3)
	require.NoError(t, err)
	assert.Len(t, limited, 3)
	assert.Equal(t, all[:3], limited)
}

func TestHistory_Filtros(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ledger := inventory.NewStockLedger(store.Stores().Ledger, stepClock())
	require.NoError(t, ledger.Record(ctx, localEntry(4, 0)))
	require.NoError(t, ledger.Record(ctx, &entity.StockLedgerEntry{
		TenantID: tenantB, Scope: entity.StockScopeLocal, ProductID: localBP1,
		Type: entity.TxTypePurchase, Quantity: 2,
	}))

	onlyB, err := ledger.Collect(ctx, entity.LedgerFilter{TenantID: tenantB}, 0)
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, localBP1, onlyB[0].ProductID)

	purchases, err := ledger.Collect(ctx, entity.LedgerFilter{Type: entity.TxTypePurchase}, 0)
	require.NoError(t, err)
	assert.Len(t, purchases, 2)

	none, err := ledger.Collect(ctx, entity.LedgerFilter{Scope: entity.StockScopeCentral}, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
