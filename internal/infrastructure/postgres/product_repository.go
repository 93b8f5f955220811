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

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo catálogo central sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un nuevo producto con su stock y versión iniciales.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (id, sku, name, description, price, cost, unit_measure, stock, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.SKU, p.Name, p.Description, p.Price, p.Cost, p.UnitMeasure,
		p.Stock, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `
		SELECT id, sku, name, description, price, cost, unit_measure, stock, version, created_at, updated_at
		FROM products WHERE id = $1`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.Cost, &p.UnitMeasure,
		&p.Stock, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "producto central", ID: id}
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetStock lee el contador central con su versión.
func (r *ProductRepo) GetStock(ctx context.Context, productID string) (entity.StockLevel, error) {
	var lvl entity.StockLevel
	err := r.q.QueryRow(ctx, `SELECT stock, version FROM products WHERE id = $1`, productID).
		Scan(&lvl.Quantity, &lvl.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.StockLevel{}, &domain.NotFoundError{Resource: "producto central", ID: productID}
		}
		return entity.StockLevel{}, fmt.Errorf("get product stock: %w", err)
	}
	return lvl, nil
}

// SetStock escritura compare-and-set sobre la versión.
func (r *ProductRepo) SetStock(ctx context.Context, productID string, quantity, expectedVersion int64) (int64, error) {
	query := `
		UPDATE products SET stock = $2, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $3
		RETURNING version`
	var version int64
	err := r.q.QueryRow(ctx, query, productID, quantity, expectedVersion).Scan(&version)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("set product stock: %w", err)
	}
	if _, gerr := r.GetStock(ctx, productID); gerr != nil {
		return 0, gerr
	}
	return 0, &domain.ConcurrentModificationError{Resource: "products", Key: productID}
}
