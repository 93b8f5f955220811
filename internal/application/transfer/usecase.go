package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Franquicias-api/internal/application/identity"
	"github.com/jhoicas/Franquicias-api/internal/application/inventory"
	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
	domaintransfer "github.com/jhoicas/Franquicias-api/internal/domain/transfer"
	"github.com/jhoicas/Franquicias-api/pkg/metrics"
)

var tracer = otel.Tracer("franquicias/transfer")

const (
	defaultNumberPrefix = "TRF"
	defaultMaxItems     = 200
)

// UseCase máquina de estados de transferencias: creación, aprobación, rechazo, avance
// genérico, entrega (mueve stock) y notas.
type UseCase struct {
	tx        inventory.TxRunner
	stock     *inventory.StockCoordinator
	seq       repository.TransferSequence
	ids       identity.Provider
	log       zerolog.Logger
	publisher EventPublisher
	metrics   *metrics.TransferMetrics
	prefix    string
	maxItems  int
}

// Option configura opciones del caso de uso.
type Option func(*UseCase)

// WithPublisher publica eventos del ciclo de vida.
func WithPublisher(p EventPublisher) Option {
	return func(uc *UseCase) {
		if p != nil {
			uc.publisher = p
		}
	}
}

// WithMetrics registra métricas de transiciones.
func WithMetrics(m *metrics.TransferMetrics) Option {
	return func(uc *UseCase) { uc.metrics = m }
}

// WithNumberPrefix prefijo del número de transferencia.
func WithNumberPrefix(prefix string) Option {
	return func(uc *UseCase) {
		if prefix != "" {
			uc.prefix = prefix
		}
	}
}

// WithMaxItems máximo de líneas por transferencia.
func WithMaxItems(n int) Option {
	return func(uc *UseCase) {
		if n > 0 {
			uc.maxItems = n
		}
	}
}

// NewUseCase construye el caso de uso.
func NewUseCase(
	tx inventory.TxRunner,
	stock *inventory.StockCoordinator,
	seq repository.TransferSequence,
	ids identity.Provider,
	log zerolog.Logger,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		tx:        tx,
		stock:     stock,
		seq:       seq,
		ids:       ids,
		log:       log,
		publisher: NoopPublisher{},
		prefix:    defaultNumberPrefix,
		maxItems:  defaultMaxItems,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// CreateItemInput línea solicitada.
type CreateItemInput struct {
	CentralProductID string
	LocalProductID   string
	Quantity         int64
}

// CreateInput entrada de Create. EntryStatus vacío equivale a requested.
type CreateInput struct {
	TenantID    string
	Items       []CreateItemInput
	RequestedBy string
	Notes       string
	EntryStatus entity.TransferStatus
}

func (uc *UseCase) validateCreate(in *CreateInput) error {
	if in.EntryStatus == "" {
		in.EntryStatus = entity.TransferStatusRequested
	}
	switch {
	case strings.TrimSpace(in.TenantID) == "":
		return domain.NewValidationError("tenant_id", "es requerido")
	case len(in.Items) == 0:
		return domain.NewValidationError("items", "debe contener al menos una línea")
	case len(in.Items) > uc.maxItems:
		return domain.NewValidationError("items", fmt.Sprintf("máximo %d líneas", uc.maxItems))
	case !domaintransfer.IsEntryStatus(in.EntryStatus):
		return domain.NewValidationError("entry_status", "debe ser requested o pending")
	}
	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case it.CentralProductID == "":
			return domain.NewValidationError(field+".central_product_id", "es requerido")
		case it.LocalProductID == "":
			return domain.NewValidationError(field+".local_product_id", "es requerido")
		case it.Quantity <= 0:
			return domain.NewValidationError(field+".quantity", "debe ser mayor que cero")
		}
	}
	return nil
}

// Create valida las líneas contra el catálogo central y el inventario local de la franquicia,
// congela el precio unitario y registra la transferencia con un número único.
func (uc *UseCase) Create(ctx context.Context, in CreateInput) (*entity.Transfer, error) {
	if err := uc.validateCreate(&in); err != nil {
		return nil, err
	}
	requestedBy, err := uc.actor(ctx, in.RequestedBy, "requested_by")
	if err != nil {
		return nil, err
	}
	now := uc.stock.Now()
	// el consecutivo y la fecha impresa usan el mismo día UTC
	day := now.UTC()

	var created *entity.Transfer
	err = uc.tx.Run(ctx, func(s inventory.Stores) error {
		items := make([]entity.TransferItem, 0, len(in.Items))
		for _, it := range in.Items {
			product, err := s.Products.GetByID(ctx, it.CentralProductID)
			if err != nil {
				return err
			}
			local, err := s.Franchise.GetByID(ctx, it.LocalProductID)
			if err != nil {
				return err
			}
			if err := checkReference(in.TenantID, it, local); err != nil {
				return err
			}
			price := product.TransferPrice()
			items = append(items, entity.TransferItem{
				ID:               uuid.New().String(),
				CentralProductID: it.CentralProductID,
				LocalProductID:   it.LocalProductID,
				ProductName:      product.Name,
				SKU:              product.SKU,
				Quantity:         it.Quantity,
				UnitPrice:        price,
				LineTotal:        price.Mul(decimal.NewFromInt(it.Quantity)),
			})
		}

		n, err := uc.seq.Next(ctx, day)
		if err != nil {
			return fmt.Errorf("número de transferencia: %w", err)
		}
		t := &entity.Transfer{
			ID:             uuid.New().String(),
			TenantID:       in.TenantID,
			TransferNumber: FormatTransferNumber(uc.prefix, day, n),
			Status:         in.EntryStatus,
			Items:          items,
			RequestedBy:    requestedBy,
			Notes:          strings.TrimSpace(in.Notes),
			RequestedAt:    now,
			CreatedAt:      now,
			UpdatedAt:      now,
			StatusHistory: []entity.StatusEvent{{
				Status:    in.EntryStatus,
				Note:      strings.TrimSpace(in.Notes),
				ChangedBy: requestedBy,
				ChangedAt: now,
			}},
		}
		if in.EntryStatus == entity.TransferStatusPending {
			t.ApprovedBy = requestedBy
			t.ApprovedAt = &now
		}
		if err := s.Transfers.Create(ctx, t); err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.IncCreated(string(created.Status))
	uc.log.Info().
		Str("transfer_id", created.ID).
		Str("transfer_number", created.TransferNumber).
		Str("tenant_id", created.TenantID).
		Str("status", string(created.Status)).
		Int("items", len(created.Items)).
		Msg("transferencia creada")
	uc.publish(ctx, created, entity.TransferEventCreated, "", requestedBy)
	return created, nil
}

func checkReference(tenantID string, it CreateItemInput, local *entity.FranchiseProduct) error {
	if local.BelongsTo(tenantID, it.CentralProductID) {
		return nil
	}
	reason := "el producto local no enlaza con el producto central"
	if local.TenantID != tenantID {
		reason = "el producto local pertenece a otra franquicia"
	}
	return &domain.ReferentialMismatchError{
		TenantID:         tenantID,
		LocalProductID:   it.LocalProductID,
		CentralProductID: it.CentralProductID,
		Reason:           reason,
	}
}

// Approve requested -> pending, previa verificación de stock central para todas las líneas.
func (uc *UseCase) Approve(ctx context.Context, transferID, adminID, notes string) (*entity.Transfer, error) {
	adminID, err := uc.actor(ctx, adminID, "admin_id")
	if err != nil {
		return nil, err
	}
	now := uc.stock.Now()
	t, err := uc.transition(ctx, transferID, entity.TransferStatusPending, adminID, notes,
		func(s inventory.Stores, t *entity.Transfer) error {
			if t.Status != entity.TransferStatusRequested {
				return nil
			}
			if err := uc.stock.CheckAvailability(ctx, s, t.TenantID, t.Items); err != nil {
				return err
			}
			t.ApprovedBy = adminID
			t.ApprovedAt = &now
			return nil
		})
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, t, entity.TransferEventApproved, entity.TransferStatusRequested, adminID)
	return t, nil
}

// Reject requested -> rejected con motivo obligatorio.
func (uc *UseCase) Reject(ctx context.Context, transferID, adminID, reason string) (*entity.Transfer, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "es requerido")
	}
	adminID, err := uc.actor(ctx, adminID, "admin_id")
	if err != nil {
		return nil, err
	}
	t, err := uc.transition(ctx, transferID, entity.TransferStatusRejected, adminID, reason,
		func(_ inventory.Stores, t *entity.Transfer) error {
			t.RejectedBy = adminID
			t.RejectionReason = reason
			return nil
		})
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, t, entity.TransferEventRejected, entity.TransferStatusRequested, adminID)
	return t, nil
}

// AdvanceStatus transición genérica (pending -> processing, processing -> shipped,
// pending|processing -> cancelled). La entrega solo ocurre por Deliver.
func (uc *UseCase) AdvanceStatus(ctx context.Context, transferID string, target entity.TransferStatus, notes string) (*entity.Transfer, error) {
	if !target.IsValid() {
		return nil, domain.NewValidationError("status", "estado desconocido")
	}
	p, ok := uc.ids.Principal(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	now := uc.stock.Now()
	var from entity.TransferStatus
	t, err := uc.transition(ctx, transferID, target, p.UserID, notes,
		func(_ inventory.Stores, t *entity.Transfer) error {
			from = t.Status
			if !domaintransfer.CanAdvance(t.Status, target) {
				return &domain.TransitionError{TransferID: t.ID, From: string(t.Status), To: string(target)}
			}
			if target == entity.TransferStatusShipped {
				t.ShippedAt = &now
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, t, entity.TransferEventStatusChanged, from, p.UserID)
	return t, nil
}

// Deliver shipped -> delivered moviendo el stock de todas las líneas. Todo o nada: con un
// runner atómico la transacción se deshace; si no, los movimientos aplicados se compensan.
func (uc *UseCase) Deliver(ctx context.Context, transferID, receivedBy string) (*entity.Transfer, error) {
	receivedBy, err := uc.actor(ctx, receivedBy, "received_by")
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "transfer.Deliver", trace.WithAttributes(
		attribute.String("transfer.id", transferID),
	))
	defer span.End()

	start := time.Now()
	now := uc.stock.Now()
	var (
		moved     []*inventory.MoveResult
		delivered *entity.Transfer
	)
	err = uc.tx.Run(ctx, func(s inventory.Stores) error {
		t, err := s.Transfers.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if t.Status != entity.TransferStatusShipped {
			return &domain.TransitionError{TransferID: t.ID, From: string(t.Status), To: string(entity.TransferStatusDelivered)}
		}
		span.SetAttributes(attribute.String("tenant.id", t.TenantID), attribute.Int("transfer.items", len(t.Items)))

		// ── 1. Pre-validación: ninguna línea se mueve si alguna no alcanza ──────────
		if err := uc.stock.CheckAvailability(ctx, s, t.TenantID, t.Items); err != nil {
			return err
		}
		for _, it := range t.Items {
			if _, err := s.Franchise.GetStock(ctx, t.TenantID, it.LocalProductID); err != nil {
				return err
			}
		}

		// ── 2. Movimientos central -> local ──────────────────────────────────────────
		for i, it := range t.Items {
			res, err := uc.stock.MoveInTx(ctx, s, inventory.MoveInput{
				TenantID:         t.TenantID,
				CentralProductID: it.CentralProductID,
				LocalProductID:   it.LocalProductID,
				Quantity:         it.Quantity,
				ReferenceID:      t.ID,
				PerformedBy:      receivedBy,
				Notes:            "transferencia " + t.TransferNumber,
				Line:             i,
			})
			if err != nil {
				return err
			}
			moved = append(moved, res)
		}

		// ── 3. Transición (guarda de estado) ────────────────────────────────────────
		t.Status = entity.TransferStatusDelivered
		t.DeliveredBy = receivedBy
		t.DeliveredAt = &now
		t.UpdatedAt = now
		ev := entity.StatusEvent{Status: t.Status, ChangedBy: receivedBy, ChangedAt: now}
		if err := s.Transfers.UpdateStatus(ctx, t, entity.TransferStatusShipped, ev); err != nil {
			return err
		}
		delivered = t
		return nil
	})
	if err != nil {
		if !uc.tx.Atomic() && len(moved) > 0 {
			uc.rollbackMoves(ctx, transferID, moved)
		}
		uc.metrics.ObserveDelivery("error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	uc.metrics.ObserveDelivery("ok", time.Since(start))
	uc.metrics.IncTransition(string(entity.TransferStatusShipped), string(entity.TransferStatusDelivered))
	uc.log.Info().
		Str("transfer_id", delivered.ID).
		Str("tenant_id", delivered.TenantID).
		Int64("quantity", delivered.TotalQuantity()).
		Msg("transferencia entregada")
	uc.publish(ctx, delivered, entity.TransferEventDelivered, entity.TransferStatusShipped, receivedBy)
	return delivered, nil
}

// rollbackMoves compensa, en orden inverso, los movimientos ya aplicados por un Deliver fallido.
func (uc *UseCase) rollbackMoves(ctx context.Context, transferID string, moved []*inventory.MoveResult) {
	ctx = context.WithoutCancel(ctx)
	err := uc.tx.Run(ctx, func(s inventory.Stores) error {
		var errs []error
		for i := len(moved) - 1; i >= 0; i-- {
			if err := uc.stock.ReverseInTx(ctx, s, moved[i]); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
	if err != nil {
		uc.log.Error().Err(err).Str("transfer_id", transferID).Int("lines", len(moved)).
			Msg("no se pudieron compensar todos los movimientos de la entrega")
		return
	}
	uc.log.Warn().Str("transfer_id", transferID).Int("lines", len(moved)).
		Msg("movimientos de la entrega compensados")
}

// AddNote agrega una nota al historial sin cambiar el estado.
func (uc *UseCase) AddNote(ctx context.Context, transferID, text string) (*entity.Transfer, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("note", "es requerida")
	}
	p, ok := uc.ids.Principal(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	var t *entity.Transfer
	err := uc.tx.Run(ctx, func(s inventory.Stores) error {
		var err error
		t, err = s.Transfers.AppendNote(ctx, transferID, entity.StatusEvent{
			Note:      text,
			ChangedBy: p.UserID,
			ChangedAt: uc.stock.Now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// transition carga la transferencia, verifica la tabla, aplica mutate y persiste con guarda
// de estado. mutate puede devolver error para abortar.
func (uc *UseCase) transition(
	ctx context.Context,
	transferID string,
	target entity.TransferStatus,
	actor, note string,
	mutate func(s inventory.Stores, t *entity.Transfer) error,
) (*entity.Transfer, error) {
	now := uc.stock.Now()
	var (
		out  *entity.Transfer
		from entity.TransferStatus
	)
	err := uc.tx.Run(ctx, func(s inventory.Stores) error {
		t, err := s.Transfers.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		from = t.Status
		if err := mutate(s, t); err != nil {
			return err
		}
		if !domaintransfer.CanTransition(from, target) {
			return &domain.TransitionError{TransferID: t.ID, From: string(from), To: string(target)}
		}
		t.Status = target
		t.UpdatedAt = now
		ev := entity.StatusEvent{Status: target, Note: strings.TrimSpace(note), ChangedBy: actor, ChangedAt: now}
		if err := s.Transfers.UpdateStatus(ctx, t, from, ev); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.IncTransition(string(from), string(target))
	uc.log.Info().
		Str("transfer_id", out.ID).
		Str("tenant_id", out.TenantID).
		Str("from", string(from)).
		Str("to", string(target)).
		Str("actor", actor).
		Msg("transición de transferencia")
	return out, nil
}

// actor usa el id explícito o, si falta, el del actor autenticado.
func (uc *UseCase) actor(ctx context.Context, explicit, field string) (string, error) {
	if s := strings.TrimSpace(explicit); s != "" {
		return s, nil
	}
	if p, ok := uc.ids.Principal(ctx); ok {
		return p.UserID, nil
	}
	return "", domain.NewValidationError(field, "es requerido")
}

func (uc *UseCase) publish(ctx context.Context, t *entity.Transfer, eventType string, from entity.TransferStatus, actor string) {
	ev := entity.TransferEvent{
		EventID:        uuid.New().String(),
		Type:           eventType,
		TransferID:     t.ID,
		TransferNumber: t.TransferNumber,
		TenantID:       t.TenantID,
		From:           from,
		To:             t.Status,
		Actor:          actor,
		OccurredAt:     t.UpdatedAt,
	}
	if err := uc.publisher.Publish(ctx, ev); err != nil {
		uc.log.Warn().Err(err).Str("transfer_id", t.ID).Str("event", eventType).Msg("no se pudo publicar el evento")
	}
}
