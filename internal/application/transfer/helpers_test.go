package transfer_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Franquicias-api/internal/application/identity"
	"github.com/jhoicas/Franquicias-api/internal/application/inventory"
	"github.com/jhoicas/Franquicias-api/internal/application/transfer"
	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
	"github.com/jhoicas/Franquicias-api/internal/infrastructure/memory"
)

const (
	tenant1   = "franquicia-norte"
	tenant2   = "franquicia-sur"
	productA  = "central-a"
	productB  = "central-b"
	localA    = "norte-a"
	localB    = "norte-b"
	localSurA = "sur-a"
	adminID   = "admin-1"
	managerID = "gerente-norte"
)

func stepClock() func() time.Time {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var n atomic.Int64
	return func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.TransferEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev entity.TransferEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store      *memory.Store
	seeder     *inventory.StockCoordinator
	stock      *inventory.StockCoordinator
	uc         *transfer.UseCase
	query      *transfer.QueryService
	pub        *recordingPublisher
	adminCtx   context.Context
	managerCtx context.Context
}

// newFixture catálogo con dos productos centrales (stock inicial registrado en el libro) y sus
// registros locales en la franquicia norte; la franquicia sur solo tiene el producto A.
func newFixture(t *testing.T, stockA, stockB int64) *fixture {
	return newFixtureWithRunner(t, stockA, stockB, nil)
}

func newFixtureWithRunner(t *testing.T, stockA, stockB int64, wrap func(*memory.Store) inventory.TxRunner) *fixture {
	t.Helper()
	f, err := buildFixture(wrap, stepClock())
	require.NoError(t, err)
	require.NoError(t, f.seedCentral(productA, stockA))
	require.NoError(t, f.seedCentral(productB, stockB))
	return f
}

func buildFixture(wrap func(*memory.Store) inventory.TxRunner, clock func() time.Time) (*fixture, error) {
	ctx := context.Background()
	store := memory.NewStore()
	s := store.Stores()
	if err := s.Products.Create(ctx, &entity.Product{
		ID: productA, SKU: "CAF-500", Name: "Café molido 500g",
		Cost: decimal.RequireFromString("12.50"), Price: decimal.RequireFromString("18.00"),
	}); err != nil {
		return nil, err
	}
	if err := s.Products.Create(ctx, &entity.Product{
		ID: productB, SKU: "AZU-1K", Name: "Azúcar 1kg", Price: decimal.RequireFromString("4.20"),
	}); err != nil {
		return nil, err
	}
	for _, fp := range []*entity.FranchiseProduct{
		{ID: localA, TenantID: tenant1, ProductID: productA},
		{ID: localB, TenantID: tenant1, ProductID: productB},
		{ID: localSurA, TenantID: tenant2, ProductID: productA},
	} {
		if err := s.Franchise.Create(ctx, fp); err != nil {
			return nil, err
		}
	}

	var runner inventory.TxRunner = store
	if wrap != nil {
		runner = wrap(store)
	}
	stock := inventory.NewStockCoordinator(runner, zerolog.Nop(), inventory.WithClock(clock))
	pub := &recordingPublisher{}
	uc := transfer.NewUseCase(runner, stock, store, identity.ContextProvider{}, zerolog.Nop(), transfer.WithPublisher(pub))
	return &fixture{
		store:      store,
		seeder:     inventory.NewStockCoordinator(store, zerolog.Nop(), inventory.WithClock(clock)),
		stock:      stock,
		uc:         uc,
		query:      transfer.NewQueryService(s.Transfers),
		pub:        pub,
		adminCtx:   identity.WithPrincipal(ctx, entity.Principal{UserID: adminID, Role: entity.RoleAdmin}),
		managerCtx: identity.WithPrincipal(ctx, entity.Principal{UserID: managerID, TenantID: tenant1, Role: entity.RoleFranchise}),
	}, nil
}

// seedCentral registra stock inicial central fuera de cualquier transferencia.
func (f *fixture) seedCentral(productID string, qty int64) error {
	if qty == 0 {
		return nil
	}
	_, err := f.seeder.AdjustDirect(context.Background(), inventory.AdjustInput{
		Scope: entity.StockScopeCentral, ProductID: productID, Delta: qty,
		Type: entity.TxTypeInitialStock, PerformedBy: adminID,
	})
	return err
}

func (f *fixture) create(t *testing.T, items ...transfer.CreateItemInput) *entity.Transfer {
	t.Helper()
	tr, err := f.uc.Create(f.managerCtx, transfer.CreateInput{TenantID: tenant1, Items: items, Notes: "pedido semanal"})
	require.NoError(t, err)
	return tr
}

// ship lleva una transferencia requested hasta shipped.
func (f *fixture) ship(t *testing.T, id string) {
	t.Helper()
	_, err := f.uc.Approve(f.adminCtx, id, adminID, "")
	require.NoError(t, err)
	_, err = f.uc.AdvanceStatus(f.adminCtx, id, entity.TransferStatusProcessing, "preparando")
	require.NoError(t, err)
	_, err = f.uc.AdvanceStatus(f.adminCtx, id, entity.TransferStatusShipped, "en camino")
	require.NoError(t, err)
}

func (f *fixture) central(t *testing.T, id string) int64 {
	t.Helper()
	lvl, err := f.store.Stores().Products.GetStock(context.Background(), id)
	require.NoError(t, err)
	return lvl.Quantity
}

func (f *fixture) local(t *testing.T, tenantID, id string) int64 {
	t.Helper()
	lvl, err := f.store.Stores().Franchise.GetStock(context.Background(), tenantID, id)
	require.NoError(t, err)
	return lvl.Quantity
}

func (f *fixture) status(t *testing.T, id string) entity.TransferStatus {
	t.Helper()
	tr, err := f.query.Get(context.Background(), id)
	require.NoError(t, err)
	return tr.Status
}

// entriesFor entradas del libro cuya referencia es la transferencia.
func (f *fixture) entriesFor(t *testing.T, transferID string) []*entity.StockLedgerEntry {
	t.Helper()
	all, err := inventory.NewStockLedger(f.store.Stores().Ledger, nil).Collect(context.Background(), entity.LedgerFilter{}, 0)
	require.NoError(t, err)
	out := make([]*entity.StockLedgerEntry, 0)
	for _, e := range all {
		if e.ReferenceID == transferID {
			out = append(out, e)
		}
	}
	return out
}

func (f *fixture) replay(t *testing.T, key entity.StockKey) int64 {
	t.Helper()
	n, err := inventory.NewStockLedger(f.store.Stores().Ledger, nil).Replay(context.Background(), key)
	require.NoError(t, err)
	return n
}

func item(central, local string, qty int64) transfer.CreateItemInput {
	return transfer.CreateItemInput{CentralProductID: central, LocalProductID: local, Quantity: qty}
}

// failOnLocal rechaza la escritura del contador de un producto local concreto.
type failOnLocal struct {
	repository.FranchiseProductRepository
	id string
}

func (r failOnLocal) SetStock(ctx context.Context, tenantID, id string, q, v int64) (int64, error) {
	if id == r.id {
		return 0, &domain.ConcurrentModificationError{Resource: "franchise_products", Key: id}
	}
	return r.FranchiseProductRepository.SetStock(ctx, tenantID, id, q, v)
}

type failingLocalRunner struct {
	*memory.Store
	id string
}

func (r failingLocalRunner) Run(ctx context.Context, fn func(inventory.Stores) error) error {
	s := r.Store.Stores()
	s.Franchise = failOnLocal{FranchiseProductRepository: s.Franchise, id: r.id}
	return fn(s)
}

var errBroker = errors.New("broker caído")

func nopLogger() zerolog.Logger { return zerolog.Nop() }

func transferCreate(items ...transfer.CreateItemInput) transfer.CreateInput {
	return transfer.CreateInput{TenantID: tenant1, Items: items, Notes: "pedido semanal"}
}
