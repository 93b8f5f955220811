package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
)

var (
	_ repository.ProductRepository          = (*ProductRepo)(nil)
	_ repository.FranchiseProductRepository = (*FranchiseProductRepo)(nil)
)

// ProductRepo catálogo central en memoria.
type ProductRepo struct {
	s *Store
}

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, existing := range r.s.products {
		if p.SKU != "" && existing.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	cp := *p
	r.s.products[p.ID] = &cp
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "producto central", ID: id}
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepo) GetStock(_ context.Context, productID string) (entity.StockLevel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[productID]
	if !ok {
		return entity.StockLevel{}, &domain.NotFoundError{Resource: "producto central", ID: productID}
	}
	return entity.StockLevel{Quantity: p.Stock, Version: p.Version}, nil
}

func (r *ProductRepo) SetStock(_ context.Context, productID string, quantity, expectedVersion int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return 0, &domain.NotFoundError{Resource: "producto central", ID: productID}
	}
	if p.Version != expectedVersion {
		return 0, &domain.ConcurrentModificationError{Resource: "products", Key: productID}
	}
	p.Stock = quantity
	p.Version++
	return p.Version, nil
}

// FranchiseProductRepo inventario local en memoria.
type FranchiseProductRepo struct {
	s *Store
}

func (r *FranchiseProductRepo) Create(_ context.Context, fp *entity.FranchiseProduct) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.franchise[fp.ID]; ok {
		return domain.ErrDuplicate
	}
	cp := *fp
	r.s.franchise[fp.ID] = &cp
	return nil
}

func (r *FranchiseProductRepo) GetByID(_ context.Context, id string) (*entity.FranchiseProduct, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	fp, ok := r.s.franchise[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "producto local", ID: id}
	}
	cp := *fp
	return &cp, nil
}

func (r *FranchiseProductRepo) ListByTenant(_ context.Context, tenantID string) ([]*entity.FranchiseProduct, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.FranchiseProduct, 0)
	for _, fp := range r.s.franchise {
		if fp.TenantID == tenantID {
			cp := *fp
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *FranchiseProductRepo) GetStock(_ context.Context, tenantID, id string) (entity.StockLevel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	fp, ok := r.s.franchise[id]
	if !ok || fp.TenantID != tenantID {
		return entity.StockLevel{}, &domain.NotFoundError{Resource: "producto local", ID: id}
	}
	return entity.StockLevel{Quantity: fp.Stock, Version: fp.Version}, nil
}

func (r *FranchiseProductRepo) SetStock(_ context.Context, tenantID, id string, quantity, expectedVersion int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	fp, ok := r.s.franchise[id]
	if !ok || fp.TenantID != tenantID {
		return 0, &domain.NotFoundError{Resource: "producto local", ID: id}
	}
	if fp.Version != expectedVersion {
		return 0, &domain.ConcurrentModificationError{Resource: "franchise_products", Key: id}
	}
	fp.Stock = quantity
	fp.Version++
	return fp.Version, nil
}
