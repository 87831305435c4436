package admin

import (
	"github.com/gofiber/fiber/v2"

	"gridbase/internal/engine"
)

// Handler serves the schema-management endpoints and the raw-SQL escape
// hatch. Everything here assumes an authenticated admin.
type Handler struct {
	exec *engine.Executor
}

func NewHandler(exec *engine.Executor) *Handler {
	return &Handler{exec: exec}
}

// ListTables handles GET /api/tables
func (h *Handler) ListTables(c *fiber.Ctx) error {
	names, err := h.exec.Catalog().ListTables(c.Context())
	if err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}
	return engine.RespondData(c, names)
}

// TableColumns handles GET /api/tables/:table/columns
func (h *Handler) TableColumns(c *fiber.Ctx) error {
	name := c.Params("table")
	table, err := h.exec.Catalog().DescribeTable(c.Context(), name)
	if err != nil {
		return err
	}
	if table == nil {
		return engine.TableNotFoundError(name)
	}
	return engine.RespondData(c, table)
}

// TableCount handles GET /api/tables/:table/count
func (h *Handler) TableCount(c *fiber.Ctx) error {
	name := c.Params("table")
	count, err := h.exec.Count(c.Context(), name)
	if err != nil {
		return err
	}
	return engine.RespondData(c, fiber.Map{"table": name, "count": count})
}

// CreateTable handles POST /api/tables
func (h *Handler) CreateTable(c *fiber.Ctx) error {
	var body struct {
		Name    string             `json:"name"`
		Columns []engine.ColumnDef `json:"columns"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("Invalid JSON body")
	}

	if err := h.exec.CreateTable(c.Context(), body.Name, body.Columns); err != nil {
		return err
	}
	return c.Status(201).JSON(engine.Envelope{Data: fiber.Map{"name": body.Name}})
}

// DropTable handles DELETE /api/tables/:table
func (h *Handler) DropTable(c *fiber.Ctx) error {
	name := c.Params("table")
	if err := h.exec.DropTable(c.Context(), name); err != nil {
		return err
	}
	return engine.RespondData(c, fiber.Map{"dropped": true})
}

// RawQuery handles POST /api/query. It bypasses identifier validation and
// the protection policy entirely; the gate is the only guard.
func (h *Handler) RawQuery(c *fiber.Ctx) error {
	var body struct {
		SQL    string `json:"sql"`
		Params []any  `json:"params"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("Invalid JSON body")
	}
	if body.SQL == "" {
		return engine.InvalidPayloadError("SQL statement is required")
	}

	result, err := h.exec.RawQuery(c.Context(), body.SQL, body.Params)
	if err != nil {
		return err
	}
	return engine.RespondData(c, result)
}

// RegisterAdminRoutes mounts the schema and raw-query endpoints behind
// the gate.
func RegisterAdminRoutes(app *fiber.App, h *Handler, gate fiber.Handler) {
	g := app.Group("/api", gate)
	g.Get("/tables", h.ListTables)
	g.Post("/tables", h.CreateTable)
	g.Delete("/tables/:table", h.DropTable)
	g.Get("/tables/:table/columns", h.TableColumns)
	g.Get("/tables/:table/count", h.TableCount)
	g.Post("/query", h.RawQuery)
}
