package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product producto del catálogo central (bodega de la franquiciadora).
// Stock es el contador central; Version se incrementa en cada escritura del contador.
type Product struct {
	ID          string
	SKU         string // código único en el catálogo central
	Name        string
	Description string
	Price       decimal.Decimal // precio de venta sugerido
	Cost        decimal.Decimal // costo al que se despacha a las franquicias
	UnitMeasure string
	Stock       int64
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TransferPrice precio unitario que se congela en una línea de transferencia:
// el costo si está definido, si no el precio de venta.
func (p *Product) TransferPrice() decimal.Decimal {
	if p.Cost.GreaterThan(decimal.Zero) {
		return p.Cost
	}
	return p.Price
}
