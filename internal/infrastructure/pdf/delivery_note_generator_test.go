package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Franquicias-api/internal/application/transfer"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

func TestGenerate_ProducePDF(t *testing.T) {
	shipped := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	tr := &entity.Transfer{
		ID:             "t-1",
		TenantID:       "franquicia-norte",
		TransferNumber: "TRF-20260301-0001",
		Status:         entity.TransferStatusShipped,
		RequestedBy:    "gerente-norte",
		RequestedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		ShippedAt:      &shipped,
		Items: []entity.TransferItem{
			{SKU: "CAF-500", ProductName: "Café molido 500g", Quantity: 5,
				UnitPrice: decimal.RequireFromString("12.50"), LineTotal: decimal.RequireFromString("62.50")},
		},
		StatusHistory: []entity.StatusEvent{
			{Status: entity.TransferStatusRequested, ChangedBy: "gerente-norte", ChangedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
			{Status: entity.TransferStatusShipped, Note: "camión 3", ChangedBy: "admin-1", ChangedAt: shipped},
		},
	}

	out, err := NewMarotoDeliveryNoteGenerator().Generate(transfer.DeliveryNote{
		Transfer: tr, IssuedAt: shipped, IssuerName: "Bodega Central S.A.S.", IssuerTaxID: "900123456-7",
	})

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestGenerate_SinTransferencia(t *testing.T) {
	_, err := NewMarotoDeliveryNoteGenerator().Generate(transfer.DeliveryNote{})
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":          "0,00",
		"999":        "999,00",
		"25000":      "25.000,00",
		"1234567.5":  "1.234.567,50",
		"-1500.25":   "-1.500,25",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Despachada", statusLabel(entity.TransferStatusShipped))
	assert.Equal(t, "archivada", statusLabel("archivada"))
}
