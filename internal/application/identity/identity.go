package identity

import (
	"context"

	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

type ctxKey struct{}

// Provider entrega el actor autenticado de la operación en curso.
type Provider interface {
	Principal(ctx context.Context) (entity.Principal, bool)
}

// WithPrincipal adjunta el actor al contexto (lo hace el middleware HTTP).
func WithPrincipal(ctx context.Context, p entity.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext lee el actor adjuntado con WithPrincipal.
func FromContext(ctx context.Context) (entity.Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(entity.Principal)
	if !ok || p.UserID == "" {
		return entity.Principal{}, false
	}
	return p, true
}

// ContextProvider Provider que lee el actor del contexto.
type ContextProvider struct{}

func (ContextProvider) Principal(ctx context.Context) (entity.Principal, bool) {
	return FromContext(ctx)
}
