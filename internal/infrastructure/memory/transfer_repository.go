package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
)

var (
	_ repository.TransferRepository = (*TransferRepo)(nil)
	_ repository.TransferSequence   = (*Store)(nil)
)

// TransferRepo transferencias en memoria.
type TransferRepo struct {
	s *Store
}

func cloneTransfer(t *entity.Transfer) *entity.Transfer {
	cp := *t
	cp.Items = append([]entity.TransferItem(nil), t.Items...)
	cp.StatusHistory = append([]entity.StatusEvent(nil), t.StatusHistory...)
	cp.ApprovedAt = cloneTime(t.ApprovedAt)
	cp.ShippedAt = cloneTime(t.ShippedAt)
	cp.DeliveredAt = cloneTime(t.DeliveredAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (r *TransferRepo) Create(_ context.Context, t *entity.Transfer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.transfers[t.ID]; ok {
		return domain.ErrDuplicate
	}
	if _, ok := r.s.numbers[t.TransferNumber]; ok {
		return fmt.Errorf("%w: número %s", domain.ErrDuplicate, t.TransferNumber)
	}
	r.s.transfers[t.ID] = cloneTransfer(t)
	r.s.numbers[t.TransferNumber] = t.ID
	return nil
}

func (r *TransferRepo) GetByID(_ context.Context, id string) (*entity.Transfer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.transfers[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "transferencia", ID: id}
	}
	return cloneTransfer(t), nil
}

// GetForUpdate sin bloqueo: la guarda de estado de UpdateStatus resuelve las carreras.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.GetByID(ctx, id)
}

func (r *TransferRepo) UpdateStatus(_ context.Context, t *entity.Transfer, from entity.TransferStatus, ev entity.StatusEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.transfers[t.ID]
	if !ok {
		return &domain.NotFoundError{Resource: "transferencia", ID: t.ID}
	}
	if cur.Status != from {
		return &domain.TransitionError{TransferID: t.ID, From: string(cur.Status), To: string(t.Status)}
	}
	next := cloneTransfer(t)
	next.Items = cur.Items
	next.StatusHistory = append(append([]entity.StatusEvent(nil), cur.StatusHistory...), ev)
	r.s.transfers[t.ID] = next
	t.StatusHistory = append([]entity.StatusEvent(nil), next.StatusHistory...)
	return nil
}

func (r *TransferRepo) AppendNote(_ context.Context, id string, ev entity.StatusEvent) (*entity.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.transfers[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "transferencia", ID: id}
	}
	ev.Status = cur.Status
	cur.StatusHistory = append(cur.StatusHistory, ev)
	cur.UpdatedAt = ev.ChangedAt
	return cloneTransfer(cur), nil
}

func (r *TransferRepo) List(_ context.Context, f entity.TransferFilter) ([]*entity.Transfer, int64, error) {
	r.s.mu.RLock()
	matched := make([]*entity.Transfer, 0)
	for _, t := range r.s.transfers {
		if matchTransfer(f, t) {
			matched = append(matched, cloneTransfer(t))
		}
	}
	r.s.mu.RUnlock()

	sortTransfers(matched, f.Sort)
	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []*entity.Transfer{}, total, nil
	}
	end := len(matched)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func matchTransfer(f entity.TransferFilter, t *entity.Transfer) bool {
	switch {
	case f.TenantID != "" && t.TenantID != f.TenantID:
		return false
	case f.Status != "" && t.Status != f.Status:
		return false
	case f.Search != "" && !strings.Contains(strings.ToUpper(t.TransferNumber), strings.ToUpper(f.Search)):
		return false
	case !f.From.IsZero() && t.CreatedAt.Before(f.From):
		return false
	case !f.To.IsZero() && !t.CreatedAt.Before(f.To):
		return false
	}
	return true
}

func sortTransfers(ts []*entity.Transfer, by string) {
	var less func(a, b *entity.Transfer) bool
	switch by {
	case "created_at":
		less = func(a, b *entity.Transfer) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "transfer_number":
		less = func(a, b *entity.Transfer) bool { return a.TransferNumber < b.TransferNumber }
	case "status":
		less = func(a, b *entity.Transfer) bool { return a.Status < b.Status }
	default:
		less = func(a, b *entity.Transfer) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(ts, func(i, j int) bool {
		if less(ts[i], ts[j]) {
			return true
		}
		if less(ts[j], ts[i]) {
			return false
		}
		return ts[i].TransferNumber > ts[j].TransferNumber
	})
}

func (r *TransferRepo) CountByStatus(_ context.Context, tenantID string) ([]entity.StatusCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[entity.TransferStatus]int64)
	for _, t := range r.s.transfers {
		if tenantID == "" || t.TenantID == tenantID {
			counts[t.Status]++
		}
	}
	out := make([]entity.StatusCount, 0, len(counts))
	for _, st := range entity.TransferStatuses {
		if n, ok := counts[st]; ok {
			out = append(out, entity.StatusCount{Status: st, Count: n})
		}
	}
	return out, nil
}

func (r *TransferRepo) Totals(_ context.Context, tenantID string) (entity.TransferTotals, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	totals := entity.TransferTotals{DeliveredValue: decimal.Zero}
	for _, t := range r.s.transfers {
		if tenantID != "" && t.TenantID != tenantID {
			continue
		}
		qty := t.TotalQuantity()
		totals.RequestedQuantity += qty
		if t.Status == entity.TransferStatusDelivered {
			totals.DeliveredQuantity += qty
			totals.DeliveredValue = totals.DeliveredValue.Add(t.TotalValue())
		}
	}
	return totals, nil
}

// Next contador diario de números de transferencia.
func (s *Store) Next(_ context.Context, day time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := day.UTC().Format("20060102")
	s.sequences[key]++
	return s.sequences[key], nil
}
