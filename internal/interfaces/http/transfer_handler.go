package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Franquicias-api/internal/application/dto"
	"github.com/jhoicas/Franquicias-api/internal/application/transfer"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

// TransferHandler maneja las peticiones HTTP de transferencias (protegido).
type TransferHandler struct {
	uc    *transfer.UseCase
	query *transfer.QueryService
	notes *transfer.DeliveryNoteUseCase
}

// NewTransferHandler construye el handler.
func NewTransferHandler(uc *transfer.UseCase, query *transfer.QueryService, notes *transfer.DeliveryNoteUseCase) *TransferHandler {
	return &TransferHandler{uc: uc, query: query, notes: notes}
}

// Create godoc
// @Summary      Crear transferencia
// @Description  Una franquicia solicita para sí misma (requested). Un admin puede indicar tenant_id y entry_status=pending.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTransferRequest  true  "Líneas de la transferencia"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, err)
	}
	tenantID, ok := scopedTenant(c, in.TenantID)
	if !ok {
		return forbidden(c)
	}
	entry := entity.TransferStatus(in.EntryStatus)
	if entry == entity.TransferStatusPending && !isAdmin(c) {
		return forbidden(c)
	}
	items := make([]transfer.CreateItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, transfer.CreateItemInput{
			CentralProductID: it.CentralProductID,
			LocalProductID:   it.LocalProductID,
			Quantity:         it.Quantity,
		})
	}
	t, err := h.uc.Create(c.UserContext(), transfer.CreateInput{
		TenantID:    tenantID,
		Items:       items,
		RequestedBy: GetUserID(c),
		Notes:       in.Notes,
		EntryStatus: entry,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTransferResponse(t))
}

// List godoc
// @Summary      Listar transferencias
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        tenant_id  query  string  false  "Franquicia (solo admin)"
// @Param        status     query  string  false  "Estado"
// @Param        search     query  string  false  "Número de transferencia (parcial)"
// @Param        from       query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to         query  string  false  "Hasta (YYYY-MM-DD)"
// @Param        sort       query  string  false  "created_at | -created_at | transfer_number | status"
// @Param        page       query  int     false  "Página (desde 1)"
// @Param        page_size  query  int     false  "Tamaño de página (máx. 100)"
// @Success      200  {object}  dto.TransferListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/transfers [get]
func (h *TransferHandler) List(c *fiber.Ctx) error {
	var q dto.ListTransfersQuery
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
	page, err := h.query.List(c.UserContext(), q.ToInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewTransferListResponse(page))
}

// Stats godoc
// @Summary      Estadísticas de transferencias
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        tenant_id  query  string  false  "Franquicia (solo admin; vacío = toda la red)"
// @Success      200  {object}  dto.TransferStatsResponse
// @Router       /api/transfers/stats [get]
func (h *TransferHandler) Stats(c *fiber.Ctx) error {
	tenantID, ok := scopedTenant(c, c.Query("tenant_id"))
	if !ok {
		return forbidden(c)
	}
	st, err := h.query.Stats(c.UserContext(), tenantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewTransferStatsResponse(st))
}

// GetByID godoc
// @Summary      Obtener transferencia
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	t, err := h.owned(c)
	if t == nil {
		return err
	}
	return c.JSON(dto.NewTransferResponse(t))
}

// Approve godoc
// @Summary      Aprobar transferencia (admin)
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true   "ID de la transferencia"
// @Param        body  body  dto.ApproveTransferRequest  false  "Notas"
// @Success      200  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/approve [post]
func (h *TransferHandler) Approve(c *fiber.Ctx) error {
	var in dto.ApproveTransferRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, err)
	}
	t, err := h.uc.Approve(c.UserContext(), c.Params("id"), GetUserID(c), in.Notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewTransferResponse(t))
}

// Reject godoc
// @Summary      Rechazar transferencia (admin)
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID de la transferencia"
// @Param        body  body  dto.RejectTransferRequest  true  "Motivo"
// @Success      200  {object}  dto.TransferResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/reject [post]
func (h *TransferHandler) Reject(c *fiber.Ctx) error {
	var in dto.RejectTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, err)
	}
	t, err := h.uc.Reject(c.UserContext(), c.Params("id"), GetUserID(c), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewTransferResponse(t))
}

// AdvanceStatus godoc
// @Summary      Avanzar estado (admin): processing, shipped o cancelled
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID de la transferencia"
// @Param        body  body  dto.AdvanceStatusRequest  true  "Estado destino"
// @Success      200  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/status [post]
func (h *TransferHandler) AdvanceStatus(c *fiber.Ctx) error {
	var in dto.AdvanceStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, err)
	}
	t, err := h.uc.AdvanceStatus(c.UserContext(), c.Params("id"), entity.TransferStatus(in.Status), in.Notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewTransferResponse(t))
}

// Deliver godoc
// @Summary      Registrar la recepción (mueve el stock)
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/deliver [post]
func (h *TransferHandler) Deliver(c *fiber.Ctx) error {
	if owned, err := h.owned(c); owned == nil {
		return err
	}
	t, err := h.uc.Deliver(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewTransferResponse(t))
}

// AddNote godoc
// @Summary      Agregar nota al historial
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID de la transferencia"
// @Param        body  body  dto.AddNoteRequest  true  "Nota"
// @Success      200  {object}  dto.TransferResponse
// @Router       /api/transfers/{id}/notes [post]
func (h *TransferHandler) AddNote(c *fiber.Ctx) error {
	var in dto.AddNoteRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, err)
	}
	if owned, err := h.owned(c); owned == nil {
		return err
	}
	t, err := h.uc.AddNote(c.UserContext(), c.Params("id"), in.Note)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewTransferResponse(t))
}

// DeliveryNote godoc
// @Summary      Descargar la remisión en PDF
// @Tags         transfers
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la transferencia"
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/delivery-note [get]
func (h *TransferHandler) DeliveryNote(c *fiber.Ctx) error {
	tenantID := ""
	if !isAdmin(c) {
		tenantID = GetTenantID(c)
		if tenantID == "" {
			return forbidden(c)
		}
	}
	pdf, filename, err := h.notes.Download(c.UserContext(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}

// owned carga la transferencia :id y verifica que una franquicia solo acceda a las suyas.
// Si devuelve nil, la respuesta de error ya fue escrita.
func (h *TransferHandler) owned(c *fiber.Ctx) (*entity.Transfer, error) {
	t, err := h.query.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, writeError(c, err)
	}
	if !isAdmin(c) && t.TenantID != GetTenantID(c) {
		return nil, forbidden(c)
	}
	return t, nil
}
