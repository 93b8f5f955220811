package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
)

// DeliveryNote datos que necesita el generador para la remisión.
type DeliveryNote struct {
	Transfer    *entity.Transfer
	IssuedAt    time.Time
	IssuerName  string
	IssuerTaxID string
}

// DeliveryNoteUseCase genera la remisión (PDF) de una transferencia despachada o entregada.
type DeliveryNoteUseCase struct {
	repo        repository.TransferRepository
	generator   DeliveryNoteGenerator
	issuerName  string
	issuerTaxID string
	now         func() time.Time
}

// NewDeliveryNoteUseCase construye el caso de uso.
func NewDeliveryNoteUseCase(repo repository.TransferRepository, generator DeliveryNoteGenerator, issuerName, issuerTaxID string) *DeliveryNoteUseCase {
	return &DeliveryNoteUseCase{
		repo:        repo,
		generator:   generator,
		issuerName:  issuerName,
		issuerTaxID: issuerTaxID,
		now:         time.Now,
	}
}

// Download devuelve el PDF y el nombre de archivo.
//
// Retorna:
//   - domain.ErrNotFound      si la transferencia no existe.
//   - domain.ErrForbidden     si tenantID no vacío no es el dueño de la transferencia.
//   - domain.ErrInvalidInput  si la transferencia aún no fue despachada.
func (uc *DeliveryNoteUseCase) Download(ctx context.Context, tenantID, transferID string) ([]byte, string, error) {
	t, err := uc.repo.GetByID(ctx, transferID)
	if err != nil {
		return nil, "", err
	}
	if tenantID != "" && t.TenantID != tenantID {
		return nil, "", domain.ErrForbidden
	}
	if t.Status != entity.TransferStatusShipped && t.Status != entity.TransferStatusDelivered {
		return nil, "", domain.NewValidationError("status", "la remisión solo existe para transferencias despachadas o entregadas")
	}
	pdf, err := uc.generator.Generate(DeliveryNote{
		Transfer:    t,
		IssuedAt:    uc.now(),
		IssuerName:  uc.issuerName,
		IssuerTaxID: uc.issuerTaxID,
	})
	if err != nil {
		return nil, "", fmt.Errorf("remisión: generar pdf: %w", err)
	}
	return pdf, fmt.Sprintf("remision-%s.pdf", t.TransferNumber), nil
}
