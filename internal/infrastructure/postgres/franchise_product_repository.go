package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
)

var _ repository.FranchiseProductRepository = (*FranchiseProductRepo)(nil)

// FranchiseProductRepo inventario local de las franquicias sobre PostgreSQL.
type FranchiseProductRepo struct {
	q Querier
}

// NewFranchiseProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFranchiseProductRepository(q Querier) *FranchiseProductRepo {
	return &FranchiseProductRepo{q: q}
}

const franchiseProductColumns = `id, tenant_id, product_id, stock, reorder_level, version, created_at, updated_at`

func scanFranchiseProduct(row pgx.Row) (*entity.FranchiseProduct, error) {
	var fp entity.FranchiseProduct
	err := row.Scan(&fp.ID, &fp.TenantID, &fp.ProductID, &fp.Stock, &fp.ReorderLevel, &fp.Version, &fp.CreatedAt, &fp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &fp, nil
}

func (r *FranchiseProductRepo) Create(ctx context.Context, fp *entity.FranchiseProduct) error {
	query := `INSERT INTO franchise_products (` + franchiseProductColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		fp.ID, fp.TenantID, fp.ProductID, fp.Stock, fp.ReorderLevel, fp.Version, fp.CreatedAt, fp.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert franchise product: %w", err)
	}
	return nil
}

func (r *FranchiseProductRepo) GetByID(ctx context.Context, id string) (*entity.FranchiseProduct, error) {
	fp, err := scanFranchiseProduct(r.q.QueryRow(ctx,
		`SELECT `+franchiseProductColumns+` FROM franchise_products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "producto local", ID: id}
		}
		return nil, fmt.Errorf("get franchise product: %w", err)
	}
	return fp, nil
}

func (r *FranchiseProductRepo) ListByTenant(ctx context.Context, tenantID string) ([]*entity.FranchiseProduct, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+franchiseProductColumns+` FROM franchise_products WHERE tenant_id = $1 ORDER BY created_at, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list franchise products: %w", err)
	}
	defer rows.Close()
	out := make([]*entity.FranchiseProduct, 0)
	for rows.Next() {
		fp, err := scanFranchiseProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan franchise product: %w", err)
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

// GetStock el filtro por tenant hace invisible el inventario de otras franquicias.
func (r *FranchiseProductRepo) GetStock(ctx context.Context, tenantID, id string) (entity.StockLevel, error) {
	var lvl entity.StockLevel
	err := r.q.QueryRow(ctx,
		`SELECT stock, version FROM franchise_products WHERE id = $1 AND tenant_id = $2`, id, tenantID).
		Scan(&lvl.Quantity, &lvl.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.StockLevel{}, &domain.NotFoundError{Resource: "producto local", ID: id}
		}
		return entity.StockLevel{}, fmt.Errorf("get franchise stock: %w", err)
	}
	return lvl, nil
}

func (r *FranchiseProductRepo) SetStock(ctx context.Context, tenantID, id string, quantity, expectedVersion int64) (int64, error) {
	query := `
		UPDATE franchise_products SET stock = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND version = $4
		RETURNING version`
	var version int64
	err := r.q.QueryRow(ctx, query, id, tenantID, quantity, expectedVersion).Scan(&version)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("set franchise stock: %w", err)
	}
	if _, gerr := r.GetStock(ctx, tenantID, id); gerr != nil {
		return 0, gerr
	}
	return 0, &domain.ConcurrentModificationError{Resource: "franchise_products", Key: tenantID + ":" + id}
}
