package auth

import (
	"github.com/gofiber/fiber/v2"

	"gridbase/internal/engine"
)

// Handler serves the authentication endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("Invalid request body")
	}
	if body.Username == "" || body.Password == "" {
		return engine.AuthFailedError()
	}

	token, ident, err := h.svc.Login(c.Context(), body.Username, body.Password)
	if err != nil {
		return err
	}

	return engine.RespondData(c, fiber.Map{
		"token": token,
		"admin": ident,
	})
}

// Verify handles GET /api/auth/verify. The gate has already validated the
// token; this just echoes the identity it asserted.
func (h *Handler) Verify(c *fiber.Ctx) error {
	return engine.RespondData(c, GetIdentity(c))
}

// CreateAccount handles POST /api/auth/admins.
func (h *Handler) CreateAccount(c *fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("Invalid request body")
	}

	account, err := h.svc.CreateAccount(c.Context(), body.Username, body.Password)
	if err != nil {
		return err
	}

	return c.Status(201).JSON(engine.Envelope{Data: account})
}

// RegisterAuthRoutes registers auth routes; login is the only route not
// behind the gate.
func RegisterAuthRoutes(app *fiber.App, h *Handler, gate fiber.Handler) {
	g := app.Group("/api/auth")
	g.Post("/login", h.Login)
	g.Get("/verify", gate, h.Verify)
	g.Post("/admins", gate, h.CreateAccount)
}
