package entity

import (
	"encoding/json"
	"time"
)

// StockScope contador al que aplica un movimiento.
type StockScope string

const (
	StockScopeCentral StockScope = "central"
	StockScopeLocal   StockScope = "local"
)

// IsValid indica si el scope es conocido.
func (s StockScope) IsValid() bool {
	return s == StockScopeCentral || s == StockScopeLocal
}

// StockTransactionType tipo de movimiento del libro de stock.
type StockTransactionType string

const (
	TxTypePurchase     StockTransactionType = "purchase"
	TxTypeSale         StockTransactionType = "sale"
	TxTypeAdjustment   StockTransactionType = "adjustment"
	TxTypeReturn       StockTransactionType = "return"
	TxTypeDamage       StockTransactionType = "damage"
	TxTypeExpired      StockTransactionType = "expired"
	TxTypeTransferIn   StockTransactionType = "transfer_in"
	TxTypeTransferOut  StockTransactionType = "transfer_out"
	TxTypeInitialStock StockTransactionType = "initial_stock"
)

var stockTransactionTypes = map[StockTransactionType]struct{}{
	TxTypePurchase: {}, TxTypeSale: {}, TxTypeAdjustment: {}, TxTypeReturn: {}, TxTypeDamage: {},
	TxTypeExpired: {}, TxTypeTransferIn: {}, TxTypeTransferOut: {}, TxTypeInitialStock: {},
}

// IsValid indica si el tipo es conocido.
func (t StockTransactionType) IsValid() bool {
	_, ok := stockTransactionTypes[t]
	return ok
}

// StockKey identifica una cadena del libro. El contador central es global, por eso su cadena
// ignora la franquicia; la cadena local es por (franquicia, producto local).
type StockKey struct {
	Scope     StockScope
	TenantID  string
	ProductID string
}

// Chain devuelve la clave normalizada de la cadena (TenantID vacío para el scope central).
func (k StockKey) Chain() StockKey {
	if k.Scope == StockScopeCentral {
		return StockKey{Scope: k.Scope, ProductID: k.ProductID}
	}
	return k
}

// String representación estable, útil para logs y claves de mapa.
func (k StockKey) String() string {
	c := k.Chain()
	if c.TenantID == "" {
		return string(c.Scope) + ":" + c.ProductID
	}
	return string(c.Scope) + ":" + c.TenantID + ":" + c.ProductID
}

// StockLedgerEntry registro inmutable de un movimiento. Quantity es con signo; NewStock = PreviousStock + Quantity.
// TenantID siempre se guarda para atribución, incluso en el scope central.
type StockLedgerEntry struct {
	ID            string
	TenantID      string
	Scope         StockScope
	ProductID     string
	Type          StockTransactionType
	Quantity      int64
	PreviousStock int64
	NewStock      int64
	Sequence      int64 // posición en la cadena, desde 1
	Position      int64 // orden global de inserción, lo asigna el almacenamiento
	ReferenceID   string
	PerformedBy   string
	Notes         string
	Metadata      json.RawMessage
	CreatedAt     time.Time
}

// Key cadena a la que pertenece la entrada.
func (e *StockLedgerEntry) Key() StockKey {
	return StockKey{Scope: e.Scope, TenantID: e.TenantID, ProductID: e.ProductID}
}

// LedgerFilter criterios de consulta del historial. Los campos vacíos no filtran.
type LedgerFilter struct {
	TenantID  string
	Scope     StockScope
	ProductID string
	Type      StockTransactionType
	From      time.Time
	To        time.Time
}

// LedgerCursor posición (exclusiva) desde la que continuar un recorrido descendente.
type LedgerCursor struct {
	CreatedAt time.Time
	Position  int64
}

// Before indica si la entrada va después del cursor en orden descendente (created_at, position).
func (c LedgerCursor) Before(e *StockLedgerEntry) bool {
	if e.CreatedAt.Equal(c.CreatedAt) {
		return e.Position < c.Position
	}
	return e.CreatedAt.Before(c.CreatedAt)
}
