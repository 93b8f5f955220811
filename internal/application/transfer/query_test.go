package transfer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Franquicias-api/internal/application/transfer"
	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

// seedTransfers 3 transferencias de la franquicia norte (una entregada, una rechazada, una
// solicitada) y 1 de la franquicia sur.
func seedTransfers(t *testing.T, f *fixture) (delivered, rejected, requested *entity.Transfer) {
	t.Helper()
	delivered = f.create(t, item(productA, localA, 2), item(productB, localB, 1))
	f.ship(t, delivered.ID)
	_, err := f.uc.Deliver(f.managerCtx, delivered.ID, "")
	require.NoError(t, err)

	rejected = f.create(t, item(productA, localA, 7))
	_, err = f.uc.Reject(f.adminCtx, rejected.ID, "", "sin cupo")
	require.NoError(t, err)

	requested = f.create(t, item(productB, localB, 4))

	_, err = f.uc.Create(f.adminCtx, transfer.CreateInput{
		TenantID: tenant2, Items: []transfer.CreateItemInput{item(productA, localSurA, 1)},
	})
	require.NoError(t, err)
	return delivered, rejected, requested
}

func TestList_FiltraPorTenantYEstado(t *testing.T) {
	f := newFixture(t, 100, 100)
	delivered, _, requested := seedTransfers(t, f)

	page, err := f.query.List(context.Background(), transfer.ListInput{TenantID: tenant1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	require.Len(t, page.Items, 3)
	assert.Equal(t, requested.ID, page.Items[0].ID, "más recientes primero")

	page, err = f.query.List(context.Background(), transfer.ListInput{TenantID: tenant1, Status: entity.TransferStatusDelivered})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, delivered.ID, page.Items[0].ID)

	all, err := f.query.List(context.Background(), transfer.ListInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Total)
}

func TestList_PaginacionYOrden(t *testing.T) {
	f := newFixture(t, 100, 100)
	seedTransfers(t, f)

	page, err := f.query.List(context.Background(), transfer.ListInput{
		TenantID: tenant1, Sort: "transfer_number", Page: 2, PageSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "TRF-20260301-0003", page.Items[0].TransferNumber)

	page, err = f.query.List(context.Background(), transfer.ListInput{PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, page.PageSize, "se limita al máximo")

	page, err = f.query.List(context.Background(), transfer.ListInput{Search: "0002"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "TRF-20260301-0002", page.Items[0].TransferNumber)
}

func TestList_Validaciones(t *testing.T) {
	f := newFixture(t, 1, 1)
	cases := map[string]transfer.ListInput{
		"estado desconocido": {Status: "perdida"},
		"orden no soportado": {Sort: "tenant_id"},
		"rango invertido":    {From: stepClock()().AddDate(0, 0, 1), To: stepClock()()},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.query.List(context.Background(), in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, 100, 100)
	seedTransfers(t, f)

	st, err := f.query.Stats(context.Background(), tenant1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Total)
	assert.Len(t, st.ByStatus, len(entity.TransferStatuses), "todos los estados presentes")
	assert.Equal(t, int64(1), st.ByStatus[entity.TransferStatusDelivered])
	assert.Equal(t, int64(1), st.ByStatus[entity.TransferStatusRejected])
	assert.Equal(t, int64(1), st.ByStatus[entity.TransferStatusRequested])
	assert.Equal(t, int64(0), st.ByStatus[entity.TransferStatusShipped])
	assert.Equal(t, int64(14), st.Totals.RequestedQuantity)
	assert.Equal(t, int64(3), st.Totals.DeliveredQuantity)
	assert.Equal(t, "29.2", st.Totals.DeliveredValue.String())

	network, err := f.query.Stats(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), network.Total)
}

func TestGet_NoEncontrada(t *testing.T) {
	f := newFixture(t, 1, 1)

	_, err := f.query.Get(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.query.Get(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
