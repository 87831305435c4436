package engine

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// Envelope is the uniform response shape: {data, error: null} on success,
// {data: null, error: "<message>"} on failure. Paginated lists also carry
// pagination metadata. Clients depend on this shape bit-for-bit.
type Envelope struct {
	Data       any         `json:"data"`
	Error      *string     `json:"error"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"hasMore"`
}

// NewPagination computes list metadata; hasMore is offset+limit < total.
func NewPagination(limit, offset int, total int64) *Pagination {
	return &Pagination{
		Limit:   limit,
		Offset:  offset,
		Total:   total,
		HasMore: int64(offset+limit) < total,
	}
}

// RespondData writes a success envelope.
func RespondData(c *fiber.Ctx, data any) error {
	return c.JSON(Envelope{Data: data})
}

// RespondList writes a success envelope with pagination metadata.
func RespondList(c *fiber.Ctx, data any, p *Pagination) error {
	return c.JSON(Envelope{Data: data, Pagination: p})
}

// ErrorHandler converts errors into the wire envelope. AppErrors keep
// their status and message; anything else is logged with full detail and
// surfaced as a generic storage failure.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(Envelope{Error: &appErr.Message})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(Envelope{Error: &fiberErr.Message})
	}

	log.Printf("ERROR: %s %s: %v", c.Method(), c.Path(), err)
	storageErr := StorageError()
	return c.Status(storageErr.Status).JSON(Envelope{Error: &storageErr.Message})
}
