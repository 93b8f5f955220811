package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/pkg/metrics"
)

var tracer = otel.Tracer("franquicias/inventory")

const defaultCompensationAttempts = 5

// StockCoordinator mueve stock entre el contador central y los contadores locales de las
// franquicias. Cada cambio de contador va acompañado de su entrada en el libro.
type StockCoordinator struct {
	tx       TxRunner
	now      func() time.Time
	log      zerolog.Logger
	metrics  *metrics.StockMetrics
	attempts int
}

// CoordinatorOption configura opciones del coordinador.
type CoordinatorOption func(*StockCoordinator)

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *StockCoordinator) { c.now = now }
}

// WithStockMetrics registra métricas de movimientos.
func WithStockMetrics(m *metrics.StockMetrics) CoordinatorOption {
	return func(c *StockCoordinator) { c.metrics = m }
}

// WithCompensationAttempts reintentos de cada acción compensatoria ante conflictos.
func WithCompensationAttempts(n int) CoordinatorOption {
	return func(c *StockCoordinator) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// NewStockCoordinator construye el coordinador.
func NewStockCoordinator(tx TxRunner, log zerolog.Logger, opts ...CoordinatorOption) *StockCoordinator {
	c := &StockCoordinator{
		tx:       tx,
		now:      time.Now,
		log:      log,
		attempts: defaultCompensationAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now reloj del coordinador (compartido con los casos de uso de transferencias).
func (c *StockCoordinator) Now() time.Time { return c.now() }

// Atomic indica si el runner subyacente deshace escrituras ante error.
func (c *StockCoordinator) Atomic() bool { return c.tx.Atomic() }

// Ledger libro sobre los repositorios de la unidad de trabajo s.
func (c *StockCoordinator) Ledger(s Stores) *StockLedger {
	return NewStockLedger(s.Ledger, c.now)
}

// MoveInput movimiento de Quantity unidades del producto central al producto local de TenantID.
type MoveInput struct {
	TenantID         string
	CentralProductID string
	LocalProductID   string
	Quantity         int64
	ReferenceID      string
	PerformedBy      string
	Notes            string
	Line             int // índice de línea de la transferencia, -1 si no aplica
}

// MoveResult entradas del libro escritas por un Move.
type MoveResult struct {
	Input  MoveInput
	Debit  *entity.StockLedgerEntry // central, transfer_out
	Credit *entity.StockLedgerEntry // local, transfer_in
}

// AdjustInput ajuste directo de un contador. Delta es con signo.
type AdjustInput struct {
	TenantID    string
	Scope       entity.StockScope
	ProductID   string
	Delta       int64
	Type        entity.StockTransactionType
	ReferenceID string
	PerformedBy string
	Notes       string
	Metadata    json.RawMessage
}

func (in MoveInput) validate() error {
	switch {
	case in.TenantID == "":
		return domain.NewValidationError("tenant_id", "es requerido")
	case in.CentralProductID == "":
		return domain.NewValidationError("central_product_id", "es requerido")
	case in.LocalProductID == "":
		return domain.NewValidationError("local_product_id", "es requerido")
	case in.Quantity <= 0:
		return domain.NewValidationError("quantity", "debe ser mayor que cero")
	}
	return nil
}

func (in AdjustInput) validate() error {
	switch {
	case !in.Scope.IsValid():
		return domain.NewValidationError("scope", "debe ser central o local")
	case in.ProductID == "":
		return domain.NewValidationError("product_id", "es requerido")
	case in.Scope == entity.StockScopeLocal && in.TenantID == "":
		return domain.NewValidationError("tenant_id", "es requerido para stock local")
	case !in.Type.IsValid():
		return domain.NewValidationError("type", "tipo de movimiento desconocido")
	case in.Type == entity.TxTypeTransferIn || in.Type == entity.TxTypeTransferOut:
		return domain.NewValidationError("type", "los movimientos de transferencia solo se generan al entregar")
	case in.Delta == 0:
		return domain.NewValidationError("delta", "no puede ser cero")
	}
	return nil
}

// Move descuenta del contador central y suma al local en su propia unidad de trabajo.
func (c *StockCoordinator) Move(ctx context.Context, in MoveInput) (*MoveResult, error) {
	ctx, span := tracer.Start(ctx, "stock.Move", trace.WithAttributes(
		attribute.String("tenant.id", in.TenantID),
		attribute.String("product.central_id", in.CentralProductID),
		attribute.String("product.local_id", in.LocalProductID),
		attribute.Int64("stock.quantity", in.Quantity),
	))
	defer span.End()

	var res *MoveResult
	err := c.tx.Run(ctx, func(s Stores) error {
		r, err := c.MoveInTx(ctx, s, in)
		res = r
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res, nil
}

// MoveInTx ejecuta el movimiento con los repositorios de la unidad de trabajo del llamador.
// Verifica ambos contadores antes de escribir. Si el crédito local falla y el runner no es
// atómico, el débito central se revierte con una entrada de ajuste.
func (c *StockCoordinator) MoveInTx(ctx context.Context, s Stores, in MoveInput) (*MoveResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	centralKey := entity.StockKey{Scope: entity.StockScopeCentral, TenantID: in.TenantID, ProductID: in.CentralProductID}
	localKey := entity.StockKey{Scope: entity.StockScopeLocal, TenantID: in.TenantID, ProductID: in.LocalProductID}

	central, err := s.Products.GetStock(ctx, in.CentralProductID)
	if err != nil {
		return nil, err
	}
	if central.Quantity < in.Quantity {
		return nil, &domain.InsufficientStockError{
			TenantID:  in.TenantID,
			Scope:     string(entity.StockScopeCentral),
			ProductID: in.CentralProductID,
			Requested: in.Quantity,
			Available: central.Quantity,
			Line:      in.Line,
		}
	}
	if _, err := s.Franchise.GetStock(ctx, in.TenantID, in.LocalProductID); err != nil {
		return nil, err
	}

	w := mutation{ref: in.ReferenceID, by: in.PerformedBy, notes: in.Notes, line: in.Line}
	debit, err := c.apply(ctx, s, centralKey, -in.Quantity, entity.TxTypeTransferOut, w)
	if err != nil {
		c.countConflict(err, "move")
		return nil, err
	}
	credit, err := c.apply(ctx, s, localKey, in.Quantity, entity.TxTypeTransferIn, w)
	if err != nil {
		c.countConflict(err, "move")
		if !c.tx.Atomic() {
			if cerr := c.compensate(ctx, s, debit); cerr != nil {
				return nil, fmt.Errorf("%w (error original: %v)", cerr, err)
			}
		}
		return nil, err
	}
	return &MoveResult{Input: in, Debit: debit, Credit: credit}, nil
}

// ReverseInTx deshace un Move ya aplicado (crédito local primero, luego débito central).
// Solo tiene sentido con runners no atómicos.
func (c *StockCoordinator) ReverseInTx(ctx context.Context, s Stores, res *MoveResult) error {
	if res == nil {
		return nil
	}
	var errs []error
	if res.Credit != nil {
		if err := c.compensate(ctx, s, res.Credit); err != nil {
			errs = append(errs, err)
		}
	}
	if res.Debit != nil {
		if err := c.compensate(ctx, s, res.Debit); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AdjustDirect aplica un delta con signo a un contador fuera de una transferencia
// (compras, ventas, mermas, stock inicial).
func (c *StockCoordinator) AdjustDirect(ctx context.Context, in AdjustInput) (*entity.StockLedgerEntry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "stock.AdjustDirect", trace.WithAttributes(
		attribute.String("tenant.id", in.TenantID),
		attribute.String("stock.scope", string(in.Scope)),
		attribute.String("product.id", in.ProductID),
		attribute.Int64("stock.delta", in.Delta),
	))
	defer span.End()

	key := entity.StockKey{Scope: in.Scope, TenantID: in.TenantID, ProductID: in.ProductID}
	var entry *entity.StockLedgerEntry
	err := c.tx.Run(ctx, func(s Stores) error {
		e, err := c.apply(ctx, s, key, in.Delta, in.Type, mutation{
			ref: in.ReferenceID, by: in.PerformedBy, notes: in.Notes, meta: in.Metadata, line: -1,
		})
		entry = e
		return err
	})
	if err != nil {
		c.countConflict(err, "adjust")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return entry, nil
}

// CheckAvailability verifica, sin escribir, que el stock central alcance para todas las líneas
// (agregando líneas del mismo producto) y que cada producto local sea legible para tenantID.
// Devuelve el error de la primera línea que no alcanza.
func (c *StockCoordinator) CheckAvailability(ctx context.Context, s Stores, tenantID string, items []entity.TransferItem) error {
	required := make(map[string]int64, len(items))
	for _, it := range items {
		required[it.CentralProductID] += it.Quantity
	}
	checked := make(map[string]bool, len(items))
	for i, it := range items {
		if checked[it.CentralProductID] {
			continue
		}
		checked[it.CentralProductID] = true
		lvl, err := s.Products.GetStock(ctx, it.CentralProductID)
		if err != nil {
			return err
		}
		if need := required[it.CentralProductID]; lvl.Quantity < need {
			return &domain.InsufficientStockError{
				TenantID:  tenantID,
				Scope:     string(entity.StockScopeCentral),
				ProductID: it.CentralProductID,
				Requested: need,
				Available: lvl.Quantity,
				Line:      i,
			}
		}
	}
	return nil
}

// ── internos ────────────────────────────────────────────────────────────────

type mutation struct {
	ref   string
	by    string
	notes string
	meta  json.RawMessage
	line  int
}

type stockCounter struct {
	get func(ctx context.Context) (entity.StockLevel, error)
	set func(ctx context.Context, quantity, expectedVersion int64) (int64, error)
}

func counterFor(s Stores, key entity.StockKey) stockCounter {
	if key.Scope == entity.StockScopeCentral {
		return stockCounter{
			get: func(ctx context.Context) (entity.StockLevel, error) { return s.Products.GetStock(ctx, key.ProductID) },
			set: func(ctx context.Context, q, v int64) (int64, error) {
				return s.Products.SetStock(ctx, key.ProductID, q, v)
			},
		}
	}
	return stockCounter{
		get: func(ctx context.Context) (entity.StockLevel, error) {
			return s.Franchise.GetStock(ctx, key.TenantID, key.ProductID)
		},
		set: func(ctx context.Context, q, v int64) (int64, error) {
			return s.Franchise.SetStock(ctx, key.TenantID, key.ProductID, q, v)
		},
	}
}

// apply lee el contador, escribe la entrada del libro (guarda previousStock) y luego el
// contador (guarda de versión). Si el contador falla con un runner no atómico, la entrada
// se revierte para que libro y contador vuelvan a coincidir.
func (c *StockCoordinator) apply(
	ctx context.Context,
	s Stores,
	key entity.StockKey,
	delta int64,
	txType entity.StockTransactionType,
	m mutation,
) (*entity.StockLedgerEntry, error) {
	cnt := counterFor(s, key)
	lvl, err := cnt.get(ctx)
	if err != nil {
		return nil, err
	}
	if lvl.Quantity+delta < 0 {
		return nil, &domain.InsufficientStockError{
			TenantID:  key.TenantID,
			Scope:     string(key.Scope),
			ProductID: key.ProductID,
			Requested: -delta,
			Available: lvl.Quantity,
			Line:      m.line,
		}
	}
	ledger := c.Ledger(s)
	if err := c.ensureOpening(ctx, s, ledger, key, lvl.Quantity, m.by); err != nil {
		return nil, err
	}
	entry := &entity.StockLedgerEntry{
		TenantID:      key.TenantID,
		Scope:         key.Scope,
		ProductID:     key.ProductID,
		Type:          txType,
		Quantity:      delta,
		PreviousStock: lvl.Quantity,
		ReferenceID:   m.ref,
		PerformedBy:   m.by,
		Notes:         m.notes,
		Metadata:      m.meta,
	}
	if err := ledger.Record(ctx, entry); err != nil {
		return nil, err
	}
	if _, err := cnt.set(ctx, entry.NewStock, lvl.Version); err != nil {
		if !c.tx.Atomic() {
			c.revertEntry(ctx, ledger, entry)
		}
		return nil, err
	}
	c.metrics.IncMovement(string(key.Scope), string(txType))
	c.log.Debug().
		Str("scope", string(key.Scope)).
		Str("tenant_id", key.TenantID).
		Str("product_id", key.ProductID).
		Str("type", string(txType)).
		Int64("quantity", delta).
		Int64("new_stock", entry.NewStock).
		Msg("movimiento de stock registrado")
	return entry, nil
}

// ensureOpening escribe un initial_stock cuando el contador tiene stock pero su cadena está vacía.
func (c *StockCoordinator) ensureOpening(ctx context.Context, s Stores, ledger *StockLedger, key entity.StockKey, current int64, by string) error {
	if current == 0 {
		return nil
	}
	last, err := s.Ledger.Last(ctx, key)
	if err != nil {
		return fmt.Errorf("ledger: última entrada: %w", err)
	}
	if last != nil {
		return nil
	}
	opening := &entity.StockLedgerEntry{
		TenantID:      key.TenantID,
		Scope:         key.Scope,
		ProductID:     key.ProductID,
		Type:          entity.TxTypeInitialStock,
		Quantity:      current,
		PreviousStock: 0,
		PerformedBy:   by,
		Notes:         "saldo de apertura",
	}
	if err := ledger.Record(ctx, opening); err != nil {
		return err
	}
	c.log.Info().Str("chain", key.String()).Int64("stock", current).Msg("saldo de apertura registrado")
	return nil
}

// revertEntry anula en el libro una entrada cuyo contador no llegó a escribirse.
func (c *StockCoordinator) revertEntry(ctx context.Context, ledger *StockLedger, e *entity.StockLedgerEntry) {
	rev := &entity.StockLedgerEntry{
		TenantID:      e.TenantID,
		Scope:         e.Scope,
		ProductID:     e.ProductID,
		Type:          entity.TxTypeAdjustment,
		Quantity:      -e.Quantity,
		PreviousStock: e.NewStock,
		ReferenceID:   e.ReferenceID,
		PerformedBy:   e.PerformedBy,
		Notes:         "reverso: el contador no aceptó la escritura",
		Metadata:      compensationMeta(e.ID),
	}
	if err := ledger.Record(ctx, rev); err != nil {
		c.metrics.IncCompensation("failed")
		c.log.Error().Err(err).Str("entry_id", e.ID).Str("chain", e.Key().String()).
			Msg("no se pudo revertir la entrada del libro")
		return
	}
	c.metrics.IncCompensation("ok")
}

// compensate aplica el movimiento opuesto a e como ajuste, reintentando ante conflictos.
func (c *StockCoordinator) compensate(ctx context.Context, s Stores, e *entity.StockLedgerEntry) error {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		_, err := c.apply(ctx, s, e.Key(), -e.Quantity, entity.TxTypeAdjustment, mutation{
			ref:   e.ReferenceID,
			by:    e.PerformedBy,
			notes: "compensación de movimiento fallido",
			meta:  compensationMeta(e.ID),
			line:  -1,
		})
		if err == nil {
			c.metrics.IncCompensation("ok")
			c.log.Warn().Str("entry_id", e.ID).Str("chain", e.Key().String()).Int64("quantity", -e.Quantity).
				Msg("movimiento compensado")
			return nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrConcurrentModification) {
			break
		}
		time.Sleep(time.Duration(attempt) * time.Millisecond)
	}
	c.metrics.IncCompensation("failed")
	c.log.Error().Err(lastErr).Str("entry_id", e.ID).Str("chain", e.Key().String()).
		Msg("compensación fallida; libro y contador requieren revisión")
	return fmt.Errorf("%w: entrada %s: %v", domain.ErrCompensationFailed, e.ID, lastErr)
}

func (c *StockCoordinator) countConflict(err error, op string) {
	if errors.Is(err, domain.ErrConcurrentModification) {
		c.metrics.IncConflict(op)
	}
}

func compensationMeta(entryID string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"compensates": entryID})
	return b
}
