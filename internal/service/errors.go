package service

import (
	"github.com/gofiber/fiber/v2"
)

// APIError is the service's wire error: a status code and a detail string,
// serialized as {"detail": "..."} the way console clients expect.
type APIError struct {
	Status int    `json:"-"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string { return e.Detail }

func NotFound(detail string) *APIError {
	return &APIError{Status: fiber.StatusNotFound, Detail: detail}
}

func BadRequest(detail string) *APIError {
	return &APIError{Status: fiber.StatusBadRequest, Detail: detail}
}

// respondError writes an APIError as its JSON body.
func respondError(c *fiber.Ctx, err *APIError) error {
	return c.Status(err.Status).JSON(err)
}
