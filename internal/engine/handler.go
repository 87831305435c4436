package engine

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Handler serves the generated per-table CRUD endpoints.
type Handler struct {
	exec *Executor
}

func NewHandler(exec *Executor) *Handler {
	return &Handler{exec: exec}
}

// List handles GET /api/tables/:table/rows
func (h *Handler) List(c *fiber.Ctx) error {
	table := c.Params("table")

	limit := c.QueryInt("limit", DefaultLimit)
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := c.QueryInt("offset", DefaultOffset)
	if offset < 0 {
		offset = DefaultOffset
	}

	rows, total, err := h.exec.List(c.Context(), table, limit, offset)
	if err != nil {
		return err
	}
	return RespondList(c, rows, NewPagination(limit, offset, total))
}

// GetByID handles GET /api/tables/:table/rows/:id
func (h *Handler) GetByID(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	row, err := h.exec.GetByID(c.Context(), c.Params("table"), id)
	if err != nil {
		return err
	}
	return RespondData(c, row)
}

// Create handles POST /api/tables/:table/rows
func (h *Handler) Create(c *fiber.Ctx) error {
	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return InvalidPayloadError("Invalid JSON body")
	}

	row, err := h.exec.Insert(c.Context(), c.Params("table"), body)
	if err != nil {
		return err
	}
	return c.Status(201).JSON(Envelope{Data: row})
}

// Update handles PUT/PATCH /api/tables/:table/rows/:id
func (h *Handler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return InvalidPayloadError("Invalid JSON body")
	}

	row, err := h.exec.Update(c.Context(), c.Params("table"), id, body)
	if err != nil {
		return err
	}
	return RespondData(c, row)
}

// Delete handles DELETE /api/tables/:table/rows/:id
func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.exec.Delete(c.Context(), c.Params("table"), id); err != nil {
		return err
	}
	return RespondData(c, fiber.Map{"deleted": true})
}

// RegisterDataRoutes mounts the per-table CRUD endpoints behind the gate.
func RegisterDataRoutes(app *fiber.App, h *Handler, gate fiber.Handler) {
	g := app.Group("/api/tables/:table/rows", gate)
	g.Get("/", h.List)
	g.Post("/", h.Create)
	g.Get("/:id", h.GetByID)
	g.Put("/:id", h.Update)
	g.Patch("/:id", h.Update)
	g.Delete("/:id", h.Delete)
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, InvalidPayloadError("Invalid record id")
	}
	return id, nil
}
