package inventory

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
)

const defaultHistoryPage = 100

// StockLedger libro append-only de movimientos de stock. Cada Record está protegido por
// compare-and-set sobre PreviousStock contra la última entrada de la cadena.
type StockLedger struct {
	repo     repository.StockLedgerRepository
	now      func() time.Time
	pageSize int
}

// NewStockLedger construye el libro sobre repo. now nil usa time.Now.
func NewStockLedger(repo repository.StockLedgerRepository, now func() time.Time) *StockLedger {
	if now == nil {
		now = time.Now
	}
	return &StockLedger{repo: repo, now: now, pageSize: defaultHistoryPage}
}

// WithPageSize tamaño de página que usa History al leer del repositorio.
func (l *StockLedger) WithPageSize(n int) *StockLedger {
	if n > 0 {
		l.pageSize = n
	}
	return l
}

// Record valida la entrada, calcula NewStock y Sequence y la agrega al libro.
// Falla con ConcurrentModification si PreviousStock no coincide con el último stock conocido
// de la cadena, y con InsufficientStock si el resultado sería negativo.
func (l *StockLedger) Record(ctx context.Context, entry *entity.StockLedgerEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	last, err := l.repo.Last(ctx, entry.Key())
	if err != nil {
		return fmt.Errorf("ledger: última entrada: %w", err)
	}
	var lastStock, lastSeq int64
	if last != nil {
		lastStock, lastSeq = last.NewStock, last.Sequence
	}
	if entry.PreviousStock != lastStock {
		return &domain.ConcurrentModificationError{Resource: "stock_ledger", Key: entry.Key().String()}
	}
	newStock := entry.PreviousStock + entry.Quantity
	if newStock < 0 {
		return &domain.InsufficientStockError{
			TenantID:  entry.TenantID,
			Scope:     string(entry.Scope),
			ProductID: entry.ProductID,
			Requested: -entry.Quantity,
			Available: entry.PreviousStock,
			Line:      -1,
		}
	}
	entry.NewStock = newStock
	entry.Sequence = lastSeq + 1
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now()
	}
	return l.repo.Append(ctx, entry)
}

func validateEntry(e *entity.StockLedgerEntry) error {
	switch {
	case e == nil:
		return domain.NewValidationError("entry", "es requerida")
	case !e.Scope.IsValid():
		return domain.NewValidationError("scope", "debe ser central o local")
	case !e.Type.IsValid():
		return domain.NewValidationError("type", "tipo de movimiento desconocido")
	case e.ProductID == "":
		return domain.NewValidationError("product_id", "es requerido")
	case e.Scope == entity.StockScopeLocal && e.TenantID == "":
		return domain.NewValidationError("tenant_id", "es requerido para stock local")
	case e.Quantity == 0:
		return domain.NewValidationError("quantity", "no puede ser cero")
	case e.PreviousStock < 0:
		return domain.NewValidationError("previous_stock", "no puede ser negativo")
	}
	return nil
}

// History recorre el libro en orden descendente (más reciente primero) leyendo páginas bajo
// demanda. Cada llamada a History reinicia el recorrido desde el principio.
func (l *StockLedger) History(ctx context.Context, filter entity.LedgerFilter) iter.Seq2[*entity.StockLedgerEntry, error] {
	return func(yield func(*entity.StockLedgerEntry, error) bool) {
		var cursor *entity.LedgerCursor
		for {
			page, err := l.repo.ListPage(ctx, filter, cursor, l.pageSize)
			if err != nil {
				yield(nil, fmt.Errorf("ledger: historial: %w", err))
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
			}
			if len(page) < l.pageSize {
				return
			}
			tail := page[len(page)-1]
			cursor = &entity.LedgerCursor{CreatedAt: tail.CreatedAt, Position: tail.Position}
		}
	}
}

// Collect toma hasta limit entradas de History (limit <= 0 toma todas).
func (l *StockLedger) Collect(ctx context.Context, filter entity.LedgerFilter, limit int) ([]*entity.StockLedgerEntry, error) {
	out := make([]*entity.StockLedgerEntry, 0)
	for e, err := range l.History(ctx, filter) {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Replay reconstruye el stock de una cadena sumando sus cantidades y verifica que cada
// PreviousStock coincida con el NewStock de la entrada anterior.
func (l *StockLedger) Replay(ctx context.Context, key entity.StockKey) (int64, error) {
	chain := key.Chain()
	filter := entity.LedgerFilter{Scope: chain.Scope, TenantID: chain.TenantID, ProductID: chain.ProductID}
	var (
		total    int64
		expected *int64 // PreviousStock de la entrada más nueva ya vista
	)
	for e, err := range l.History(ctx, filter) {
		if err != nil {
			return 0, err
		}
		if expected != nil && e.NewStock != *expected {
			return 0, fmt.Errorf("ledger: cadena %s rota en la secuencia %d", chain, e.Sequence)
		}
		prev := e.PreviousStock
		expected = &prev
		total += e.Quantity
	}
	if expected != nil && *expected != 0 {
		return 0, fmt.Errorf("ledger: cadena %s no inicia en cero", chain)
	}
	return total, nil
}
