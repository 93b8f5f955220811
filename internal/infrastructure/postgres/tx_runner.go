package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Franquicias-api/internal/application/inventory"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Stores repositorios sobre el pool, fuera de transacción (lecturas).
func (r *TxRunner) Stores() inventory.Stores {
	return storesFor(r.pool)
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(s inventory.Stores) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(storesFor(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Atomic un error dentro de Run deshace todas las escrituras.
func (r *TxRunner) Atomic() bool { return true }

func storesFor(q Querier) inventory.Stores {
	return inventory.Stores{
		Products:  NewProductRepository(q),
		Franchise: NewFranchiseProductRepository(q),
		Ledger:    NewStockLedgerRepository(q),
		Transfers: NewTransferRepository(q),
	}
}
