package transfer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Franquicias-api/internal/application/transfer"
	"github.com/jhoicas/Franquicias-api/internal/domain"
)

type fakeGenerator struct {
	got transfer.DeliveryNote
	err error
}

func (g *fakeGenerator) Generate(note transfer.DeliveryNote) ([]byte, error) {
	g.got = note
	if g.err != nil {
		return nil, g.err
	}
	return []byte("%PDF-1.7"), nil
}

func TestDeliveryNote_Download(t *testing.T) {
	f := newFixture(t, 10, 10)
	tr := f.create(t, item(productA, localA, 2))
	gen := &fakeGenerator{}
	uc := transfer.NewDeliveryNoteUseCase(f.store.Stores().Transfers, gen, "Bodega Central S.A.S.", "900123456-7")

	_, _, err := uc.Download(context.Background(), tenant1, tr.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "aún no despachada")

	f.ship(t, tr.ID)

	pdf, name, err := uc.Download(context.Background(), tenant1, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(pdf))
	assert.Equal(t, "remision-TRF-20260301-0001.pdf", name)
	assert.Equal(t, "Bodega Central S.A.S.", gen.got.IssuerName)
	assert.Equal(t, tr.ID, gen.got.Transfer.ID)

	_, _, err = uc.Download(context.Background(), tenant2, tr.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, _, err = uc.Download(context.Background(), "", tr.ID)
	assert.NoError(t, err, "el administrador no filtra por franquicia")
}

func TestDeliveryNote_ErrorDelGenerador(t *testing.T) {
	f := newFixture(t, 10, 10)
	tr := f.create(t, item(productA, localA, 2))
	f.ship(t, tr.ID)
	boom := errors.New("fuente no disponible")
	uc := transfer.NewDeliveryNoteUseCase(f.store.Stores().Transfers, &fakeGenerator{err: boom}, "x", "y")

	_, _, err := uc.Download(context.Background(), tenant1, tr.ID)

	assert.ErrorIs(t, err, boom)
}
