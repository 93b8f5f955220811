package transfer

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var sortFields = map[string]bool{
	"":                true,
	"created_at":      true,
	"-created_at":     true,
	"transfer_number": true,
	"status":          true,
}

// QueryService lecturas paginadas y estadísticas de transferencias.
type QueryService struct {
	repo repository.TransferRepository
}

// NewQueryService construye el servicio de consultas.
func NewQueryService(repo repository.TransferRepository) *QueryService {
	return &QueryService{repo: repo}
}

// ListInput filtros y paginación (Page desde 1).
type ListInput struct {
	TenantID string
	Status   entity.TransferStatus
	Search   string
	From     time.Time
	To       time.Time
	Sort     string
	Page     int
	PageSize int
}

// Page página de transferencias.
type Page struct {
	Items      []*entity.Transfer
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// Stats conteos por estado y totales de una franquicia (o de toda la red con tenant vacío).
type Stats struct {
	TenantID string
	ByStatus map[entity.TransferStatus]int64
	Total    int64
	Totals   entity.TransferTotals
}

// Get devuelve una transferencia por id.
func (q *QueryService) Get(ctx context.Context, id string) (*entity.Transfer, error) {
	if id == "" {
		return nil, domain.NewValidationError("id", "es requerido")
	}
	return q.repo.GetByID(ctx, id)
}

// List filtra, ordena y pagina. Orden por defecto: más recientes primero.
func (q *QueryService) List(ctx context.Context, in ListInput) (*Page, error) {
	if in.Status != "" && !in.Status.IsValid() {
		return nil, domain.NewValidationError("status", "estado desconocido")
	}
	if !sortFields[in.Sort] {
		return nil, domain.NewValidationError("sort", "campo de orden no soportado")
	}
	if !in.From.IsZero() && !in.To.IsZero() && in.To.Before(in.From) {
		return nil, domain.NewValidationError("to", "debe ser posterior a from")
	}
	if in.Page <= 0 {
		in.Page = 1
	}
	if in.PageSize <= 0 {
		in.PageSize = defaultPageSize
	}
	if in.PageSize > maxPageSize {
		in.PageSize = maxPageSize
	}

	items, total, err := q.repo.List(ctx, entity.TransferFilter{
		TenantID: in.TenantID,
		Status:   in.Status,
		Search:   in.Search,
		From:     in.From,
		To:       in.To,
		Sort:     in.Sort,
		Limit:    in.PageSize,
		Offset:   (in.Page - 1) * in.PageSize,
	})
	if err != nil {
		return nil, err
	}
	pages := int((total + int64(in.PageSize) - 1) / int64(in.PageSize))
	return &Page{Items: items, Total: total, Page: in.Page, PageSize: in.PageSize, TotalPages: pages}, nil
}

// Stats consulta conteos y totales en paralelo.
func (q *QueryService) Stats(ctx context.Context, tenantID string) (*Stats, error) {
	var (
		counts []entity.StatusCount
		totals entity.TransferTotals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = q.repo.CountByStatus(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = q.repo.Totals(gctx, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	st := &Stats{TenantID: tenantID, ByStatus: make(map[entity.TransferStatus]int64, len(entity.TransferStatuses)), Totals: totals}
	for _, s := range entity.TransferStatuses {
		st.ByStatus[s] = 0
	}
	for _, c := range counts {
		st.ByStatus[c.Status] = c.Count
		st.Total += c.Count
	}
	return st, nil
}
