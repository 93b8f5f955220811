package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo transferencias, líneas e historial de estados sobre PostgreSQL.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

const transferColumns = `id, tenant_id, transfer_number, status, requested_by, approved_by, rejected_by,
	rejection_reason, delivered_by, notes, requested_at, approved_at, shipped_at, delivered_at, created_at, updated_at`

var transferSortColumns = map[string]string{
	"":                "created_at DESC, transfer_number DESC",
	"-created_at":     "created_at DESC, transfer_number DESC",
	"created_at":      "created_at ASC, transfer_number DESC",
	"transfer_number": "transfer_number ASC",
	"status":          "status ASC, transfer_number DESC",
}

func scanTransfer(row pgx.Row) (*entity.Transfer, error) {
	var t entity.Transfer
	err := row.Scan(&t.ID, &t.TenantID, &t.TransferNumber, &t.Status, &t.RequestedBy, &t.ApprovedBy, &t.RejectedBy,
		&t.RejectionReason, &t.DeliveredBy, &t.Notes, &t.RequestedAt, &t.ApprovedAt, &t.ShippedAt, &t.DeliveredAt,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserta cabecera, líneas y el primer evento del historial.
func (r *TransferRepo) Create(ctx context.Context, t *entity.Transfer) error {
	query := `INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.TenantID, t.TransferNumber, t.Status, t.RequestedBy, t.ApprovedBy, t.RejectedBy,
		t.RejectionReason, t.DeliveredBy, t.Notes, t.RequestedAt, t.ApprovedAt, t.ShippedAt, t.DeliveredAt,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: transferencia %s", domain.ErrDuplicate, t.TransferNumber)
		}
		return fmt.Errorf("insert transfer: %w", err)
	}

	itemQuery := `
		INSERT INTO transfer_items (id, transfer_id, line_no, central_product_id, local_product_id, product_name, sku,
			quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for i, it := range t.Items {
		if _, err := r.q.Exec(ctx, itemQuery,
			it.ID, t.ID, i, it.CentralProductID, it.LocalProductID, it.ProductName, it.SKU,
			it.Quantity, it.UnitPrice, it.LineTotal,
		); err != nil {
			return fmt.Errorf("insert transfer item: %w", err)
		}
	}
	for _, ev := range t.StatusHistory {
		if err := r.insertEvent(ctx, t.ID, ev); err != nil {
			return err
		}
	}
	return nil
}

func (r *TransferRepo) insertEvent(ctx context.Context, transferID string, ev entity.StatusEvent) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO transfer_status_events (transfer_id, status, note, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		transferID, ev.Status, ev.Note, ev.ChangedBy, ev.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transfer status event: %w", err)
	}
	return nil
}

func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate bloquea la fila (SELECT FOR UPDATE) hasta el fin de la transacción.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.get(ctx, id, true)
}

func (r *TransferRepo) get(ctx context.Context, id string, lock bool) (*entity.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	t, err := scanTransfer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "transferencia", ID: id}
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	if err := r.loadDetails(ctx, []*entity.Transfer{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// loadDetails carga líneas e historial de varias transferencias con dos consultas.
func (r *TransferRepo) loadDetails(ctx context.Context, ts []*entity.Transfer) error {
	if len(ts) == 0 {
		return nil
	}
	byID := make(map[string]*entity.Transfer, len(ts))
	ids := make([]string, 0, len(ts))
	for _, t := range ts {
		byID[t.ID] = t
		ids = append(ids, t.ID)
		t.Items = make([]entity.TransferItem, 0)
		t.StatusHistory = make([]entity.StatusEvent, 0)
	}

	rows, err := r.q.Query(ctx, `
		SELECT transfer_id, id, central_product_id, local_product_id, product_name, sku, quantity, unit_price, line_total
		FROM transfer_items WHERE transfer_id = ANY($1) ORDER BY transfer_id, line_no`, ids)
	if err != nil {
		return fmt.Errorf("list transfer items: %w", err)
	}
	for rows.Next() {
		var (
			transferID string
			it         entity.TransferItem
		)
		if err := rows.Scan(&transferID, &it.ID, &it.CentralProductID, &it.LocalProductID, &it.ProductName, &it.SKU,
			&it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			rows.Close()
			return fmt.Errorf("scan transfer item: %w", err)
		}
		byID[transferID].Items = append(byID[transferID].Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.q.Query(ctx, `
		SELECT transfer_id, status, note, changed_by, changed_at
		FROM transfer_status_events WHERE transfer_id = ANY($1) ORDER BY transfer_id, id`, ids)
	if err != nil {
		return fmt.Errorf("list transfer status events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			transferID string
			ev         entity.StatusEvent
		)
		if err := rows.Scan(&transferID, &ev.Status, &ev.Note, &ev.ChangedBy, &ev.ChangedAt); err != nil {
			return fmt.Errorf("scan transfer status event: %w", err)
		}
		byID[transferID].StatusHistory = append(byID[transferID].StatusHistory, ev)
	}
	return rows.Err()
}

// UpdateStatus actualiza la cabecera solo si el estado almacenado sigue siendo from.
func (r *TransferRepo) UpdateStatus(ctx context.Context, t *entity.Transfer, from entity.TransferStatus, ev entity.StatusEvent) error {
	query := `
		UPDATE transfers SET status = $3, approved_by = $4, rejected_by = $5, rejection_reason = $6, delivered_by = $7,
			approved_at = $8, shipped_at = $9, delivered_at = $10, updated_at = $11
		WHERE id = $1 AND status = $2`
	tag, err := r.q.Exec(ctx, query,
		t.ID, from, t.Status, t.ApprovedBy, t.RejectedBy, t.RejectionReason, t.DeliveredBy,
		t.ApprovedAt, t.ShippedAt, t.DeliveredAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update transfer status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var current entity.TransferStatus
		err := r.q.QueryRow(ctx, `SELECT status FROM transfers WHERE id = $1`, t.ID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.NotFoundError{Resource: "transferencia", ID: t.ID}
		}
		if err != nil {
			return fmt.Errorf("read transfer status: %w", err)
		}
		return &domain.TransitionError{TransferID: t.ID, From: string(current), To: string(t.Status)}
	}
	if err := r.insertEvent(ctx, t.ID, ev); err != nil {
		return err
	}
	t.StatusHistory = append(t.StatusHistory, ev)
	return nil
}

// AppendNote registra la nota con el estado vigente leído bajo bloqueo.
func (r *TransferRepo) AppendNote(ctx context.Context, id string, ev entity.StatusEvent) (*entity.Transfer, error) {
	var status entity.TransferStatus
	err := r.q.QueryRow(ctx, `
		UPDATE transfers SET updated_at = $2 WHERE id = $1 RETURNING status`, id, ev.ChangedAt).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "transferencia", ID: id}
		}
		return nil, fmt.Errorf("touch transfer: %w", err)
	}
	ev.Status = status
	if err := r.insertEvent(ctx, id, ev); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func transferWhere(f entity.TransferFilter) (string, []any) {
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
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Search != "" {
		add("transfer_number ILIKE $%d", "%"+f.Search+"%")
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at < $%d", f.To)
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (r *TransferRepo) List(ctx context.Context, f entity.TransferFilter) ([]*entity.Transfer, int64, error) {
	where, args := transferWhere(f)
	var total int64
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM transfers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transfers: %w", err)
	}

	order, ok := transferSortColumns[f.Sort]
	if !ok {
		return nil, 0, domain.NewValidationError("sort", "campo de orden no soportado")
	}
	query := `SELECT ` + transferColumns + ` FROM transfers` + where + ` ORDER BY ` + order
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transfers: %w", err)
	}
	out := make([]*entity.Transfer, 0)
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadDetails(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *TransferRepo) CountByStatus(ctx context.Context, tenantID string) ([]entity.StatusCount, error) {
	rows, err := r.q.Query(ctx, `
		SELECT status, count(*) FROM transfers
		WHERE ($1 = '' OR tenant_id = $1)
		GROUP BY status`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("count transfers by status: %w", err)
	}
	defer rows.Close()
	out := make([]entity.StatusCount, 0)
	for rows.Next() {
		var c entity.StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *TransferRepo) Totals(ctx context.Context, tenantID string) (entity.TransferTotals, error) {
	totals := entity.TransferTotals{DeliveredValue: decimal.Zero}
	err := r.q.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(i.quantity), 0),
			COALESCE(SUM(i.quantity) FILTER (WHERE t.status = 'delivered'), 0),
			COALESCE(SUM(i.line_total) FILTER (WHERE t.status = 'delivered'), 0)
		FROM transfers t
		JOIN transfer_items i ON i.transfer_id = t.id
		WHERE ($1 = '' OR t.tenant_id = $1)`, tenantID,
	).Scan(&totals.RequestedQuantity, &totals.DeliveredQuantity, &totals.DeliveredValue)
	if err != nil {
		return entity.TransferTotals{}, fmt.Errorf("transfer totals: %w", err)
	}
	return totals, nil
}

var _ repository.TransferSequence = (*TransferSequence)(nil)

// TransferSequence contador diario en la tabla transfer_sequences (upsert atómico).
type TransferSequence struct {
	q Querier
}

// NewTransferSequence construye el contador. Usar el pool: el número no se revierte con la transacción.
func NewTransferSequence(q Querier) *TransferSequence {
	return &TransferSequence{q: q}
}

func (s *TransferSequence) Next(ctx context.Context, day time.Time) (int64, error) {
	var n int64
	err := s.q.QueryRow(ctx, `
		INSERT INTO transfer_sequences (day, last_value) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET last_value = transfer_sequences.last_value + 1
		RETURNING last_value`, day.UTC().Format("2006-01-02"),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next transfer number: %w", err)
	}
	return n, nil
}
