package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

// EventPublisher publica eventos del ciclo de vida después de confirmar la transición.
type EventPublisher interface {
	Publish(ctx context.Context, event entity.TransferEvent) error
}

// NoopPublisher descarta los eventos (sin broker configurado).
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, entity.TransferEvent) error { return nil }

// DeliveryNoteGenerator genera la remisión (PDF) de una transferencia.
type DeliveryNoteGenerator interface {
	Generate(note DeliveryNote) ([]byte, error)
}

// FormatTransferNumber PREFIJO-YYYYMMDD-NNNN con la fecha en UTC, igual que los contadores
// diarios; el consecutivo crece en dígitos si supera 9999.
func FormatTransferNumber(prefix string, day time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.UTC().Format("20060102"), n)
}
