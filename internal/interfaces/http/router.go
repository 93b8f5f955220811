package http

import (
	"context"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Franquicias-api/internal/application/inventory"
	"github.com/jhoicas/Franquicias-api/internal/application/transfer"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ServiceName   string
	Transfers     *transfer.UseCase
	Query         *transfer.QueryService
	DeliveryNotes *transfer.DeliveryNoteUseCase
	Coordinator   *inventory.StockCoordinator
	Ledger        *inventory.StockLedger
	Replenishment *inventory.ReplenishmentUseCase
	JWTSecret     string
	Logger        zerolog.Logger
	// Gatherer expone /metrics cuando no es nil.
	Gatherer prometheus.Gatherer
	// HealthCheck verifica dependencias (DB, Redis) en /health cuando no es nil.
	HealthCheck func(ctx context.Context) error
	// SwaggerFile habilita /docs con el archivo indicado.
	SwaggerFile string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(requestLogger(deps.Logger))

	if deps.SwaggerFile != "" {
		// Swagger UI: http://localhost:<port>/docs
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: deps.SwaggerFile,
			Path:     "docs",
			Title:    "Franquicias API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.HealthCheck != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := deps.HealthCheck(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": deps.ServiceName, "error": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	adminOnly := RequireRole(entity.RoleAdmin)
	anyRole := RequireRole(entity.RoleAdmin, entity.RoleFranchise)

	// Transfers
	transfers := api.Group("/transfers")
	th := NewTransferHandler(deps.Transfers, deps.Query, deps.DeliveryNotes)
	transfers.Post("/", anyRole, th.Create)
	transfers.Get("/", anyRole, th.List)
	transfers.Get("/stats", anyRole, th.Stats)
	transfers.Get("/:id", anyRole, th.GetByID)
	transfers.Post("/:id/approve", adminOnly, th.Approve)
	transfers.Post("/:id/reject", adminOnly, th.Reject)
	transfers.Post("/:id/status", adminOnly, th.AdvanceStatus)
	transfers.Post("/:id/deliver", anyRole, th.Deliver)
	transfers.Post("/:id/notes", anyRole, th.AddNote)
	transfers.Get("/:id/delivery-note", anyRole, th.DeliveryNote)

	// Stock
	stock := api.Group("/stock")
	sh := NewStockHandler(deps.Coordinator, deps.Ledger, deps.Replenishment)
	stock.Post("/adjustments", adminOnly, sh.Adjust)
	stock.Get("/ledger", anyRole, sh.Ledger)
	stock.Get("/replenishment", anyRole, sh.Replenishment)
}

// requestLogger adjunta el logger al contexto de usuario y registra cada petición.
func requestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		c.SetUserContext(log.WithContext(c.UserContext()))
		err := c.Next()
		log.Debug().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("http")
		return err
	}
}
