package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Franquicias-api/internal/application/dto"
	"github.com/jhoicas/Franquicias-api/internal/application/inventory"
)

const defaultLedgerLimit = 100

// StockHandler ajustes directos, historial del libro y lista de reposición (protegido).
type StockHandler struct {
	coordinator   *inventory.StockCoordinator
	ledger        *inventory.StockLedger
	replenishment *inventory.ReplenishmentUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(coordinator *inventory.StockCoordinator, ledger *inventory.StockLedger, replenishment *inventory.ReplenishmentUseCase) *StockHandler {
	return &StockHandler{coordinator: coordinator, ledger: ledger, replenishment: replenishment}
}

// Adjust godoc
// @Summary      Ajuste directo de stock (admin)
// @Description  Compras, ventas, mermas o stock inicial sobre el contador central o el local de una franquicia.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockAdjustmentRequest  true  "scope, product_id, delta con signo, type"
// @Success      201   {object}  dto.LedgerEntryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/adjustments [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var in dto.StockAdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, err)
	}
	entry, err := h.coordinator.AdjustDirect(c.UserContext(), in.ToInput(GetUserID(c)))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewLedgerEntryResponse(entry))
}

// Ledger godoc
// @Summary      Historial del libro de stock (más reciente primero)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        tenant_id   query  string  false  "Franquicia (solo admin)"
// @Param        scope       query  string  false  "central | local"
// @Param        product_id  query  string  false  "Producto"
// @Param        type        query  string  false  "Tipo de movimiento"
// @Param        from        query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to          query  string  false  "Hasta (YYYY-MM-DD)"
// @Param        limit       query  int     false  "Máximo de entradas (por defecto 100, máx. 500)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/ledger [get]
func (h *StockHandler) Ledger(c *fiber.Ctx) error {
	var q dto.LedgerQuery
	if err := c.QueryParser(&q); err != nil {
		return invalidBody(c)
	}
	if err := dto.Validate(q); err != nil {
		return writeError(c, err)
	}
	tenantID, ok := scopedTenant(c, q.TenantID)
	if !ok {
		return forbidden(c)
	}
	q.TenantID = tenantID
	if q.Limit == 0 {
		q.Limit = defaultLedgerLimit
	}
	entries, err := h.ledger.Collect(c.UserContext(), q.ToFilter(), q.Limit)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.NewLedgerEntryResponse(e))
	}
	return c.JSON(fiber.Map{
		"total":   len(out),
		"entries": out,
	})
}

// Replenishment godoc
// @Summary      Lista de reposición de una franquicia
// @Description  Productos locales por debajo del punto de reorden con la cantidad sugerida a solicitar.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        tenant_id  query  string  false  "Franquicia (requerido para admin)"
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/replenishment [get]
func (h *StockHandler) Replenishment(c *fiber.Ctx) error {
	tenantID, ok := scopedTenant(c, c.Query("tenant_id"))
	if !ok {
		return forbidden(c)
	}
	list, err := h.replenishment.Suggest(c.UserContext(), tenantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": dto.NewReplenishmentList(list),
	})
}
