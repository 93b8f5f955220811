package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
)

var _ repository.StockLedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo libro de stock en memoria.
type LedgerRepo struct {
	s *Store
}

func (r *LedgerRepo) Append(_ context.Context, e *entity.StockLedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := e.Key().Chain()
	var headSeq int64
	if head := r.s.heads[key]; head != nil {
		headSeq = head.Sequence
	}
	if e.Sequence != headSeq+1 {
		return &domain.ConcurrentModificationError{Resource: "stock_ledger", Key: key.String()}
	}
	r.s.position++
	e.Position = r.s.position
	cp := *e
	r.s.ledger = append(r.s.ledger, &cp)
	r.s.heads[key] = &cp
	return nil
}

func (r *LedgerRepo) Last(_ context.Context, key entity.StockKey) (*entity.StockLedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	head := r.s.heads[key.Chain()]
	if head == nil {
		return nil, nil
	}
	cp := *head
	return &cp, nil
}

// ListPage ordena por (created_at, position) descendente antes de aplicar cursor y límite;
// escritores concurrentes pueden insertar fuera del orden de created_at.
func (r *LedgerRepo) ListPage(_ context.Context, f entity.LedgerFilter, after *entity.LedgerCursor, limit int) ([]*entity.StockLedgerEntry, error) {
	r.s.mu.RLock()
	out := make([]*entity.StockLedgerEntry, 0, limit)
	for _, e := range r.s.ledger {
		if after != nil && !after.Before(e) {
			continue
		}
		if !matches(f, e) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Position > out[j].Position
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matches(f entity.LedgerFilter, e *entity.StockLedgerEntry) bool {
	switch {
	case f.TenantID != "" && e.TenantID != f.TenantID:
		return false
	case f.Scope != "" && e.Scope != f.Scope:
		return false
	case f.ProductID != "" && e.ProductID != f.ProductID:
		return false
	case f.Type != "" && e.Type != f.Type:
		return false
	case !f.From.IsZero() && e.CreatedAt.Before(f.From):
		return false
	case !f.To.IsZero() && !e.CreatedAt.Before(f.To):
		return false
	}
	return true
}
