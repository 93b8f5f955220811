package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
)

var _ repository.StockLedgerRepository = (*StockLedgerRepo)(nil)

const ledgerChainConstraint = "stock_ledger_chain_sequence_uq"

// StockLedgerRepo libro de stock append-only sobre PostgreSQL. La unicidad (cadena, sequence)
// la garantiza el constraint stock_ledger_chain_sequence_uq.
type StockLedgerRepo struct {
	q Querier
}

// NewStockLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLedgerRepository(q Querier) *StockLedgerRepo {
	return &StockLedgerRepo{q: q}
}

const ledgerColumns = `position, id, tenant_id, scope, product_id, type, quantity, previous_stock, new_stock,
	sequence, reference_id, performed_by, notes, metadata, created_at`

func scanLedgerEntry(row pgx.Row) (*entity.StockLedgerEntry, error) {
	var (
		e    entity.StockLedgerEntry
		meta []byte
	)
	err := row.Scan(&e.Position, &e.ID, &e.TenantID, &e.Scope, &e.ProductID, &e.Type, &e.Quantity,
		&e.PreviousStock, &e.NewStock, &e.Sequence, &e.ReferenceID, &e.PerformedBy, &e.Notes, &meta, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		e.Metadata = meta
	}
	return &e, nil
}

// Append inserta la entrada y asigna Position.
func (r *StockLedgerRepo) Append(ctx context.Context, e *entity.StockLedgerEntry) error {
	chain := e.Key().Chain()
	var meta any
	if len(e.Metadata) > 0 {
		meta = []byte(e.Metadata)
	}
	query := `
		INSERT INTO stock_ledger (id, tenant_id, chain_tenant, scope, product_id, type, quantity, previous_stock,
			new_stock, sequence, reference_id, performed_by, notes, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING position`
	err := r.q.QueryRow(ctx, query,
		e.ID, e.TenantID, chain.TenantID, e.Scope, e.ProductID, e.Type, e.Quantity, e.PreviousStock,
		e.NewStock, e.Sequence, e.ReferenceID, e.PerformedBy, e.Notes, meta, e.CreatedAt,
	).Scan(&e.Position)
	if err != nil {
		if isUniqueViolation(err) && constraintName(err) == ledgerChainConstraint {
			return &domain.ConcurrentModificationError{Resource: "stock_ledger", Key: chain.String()}
		}
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert stock ledger entry: %w", err)
	}
	return nil
}

// Last última entrada de la cadena.
func (r *StockLedgerRepo) Last(ctx context.Context, key entity.StockKey) (*entity.StockLedgerEntry, error) {
	chain := key.Chain()
	query := `SELECT ` + ledgerColumns + ` FROM stock_ledger
		WHERE scope = $1 AND chain_tenant = $2 AND product_id = $3
		ORDER BY sequence DESC LIMIT 1`
	e, err := scanLedgerEntry(r.q.QueryRow(ctx, query, chain.Scope, chain.TenantID, chain.ProductID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last stock ledger entry: %w", err)
	}
	return e, nil
}

// ListPage página descendente por (created_at, position) con cursor exclusivo.
func (r *StockLedgerRepo) ListPage(ctx context.Context, f entity.LedgerFilter, after *entity.LedgerCursor, limit int) ([]*entity.StockLedgerEntry, error) {
	where, args := ledgerWhere(f)
	if after != nil {
		args = append(args, after.CreatedAt, after.Position)
		where = append(where, fmt.Sprintf("(created_at, position) < ($%d, $%d)", len(args)-1, len(args)))
	}
	query := `SELECT ` + ledgerColumns + ` FROM stock_ledger`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC, position DESC LIMIT $%d`, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock ledger: %w", err)
	}
	defer rows.Close()
	out := make([]*entity.StockLedgerEntry, 0, limit)
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func ledgerWhere(f entity.LedgerFilter) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.TenantID != "" {
		add("tenant_id = $%d", f.TenantID)
	}
	if f.Scope != "" {
		add("scope = $%d", f.Scope)
	}
	if f.ProductID != "" {
		add("product_id = $%d", f.ProductID)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at < $%d", f.To)
	}
	return where, args
}
