package response

import (
	"errors"

	"findonlu-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

var statusMap = []struct {
	err  error
	code int
}{
	{domain.ErrDomain, fiber.StatusBadRequest},
	{domain.ErrWeakPassword, fiber.StatusBadRequest},
	{domain.ErrPasswordMismatch, fiber.StatusBadRequest},
	{domain.ErrAuthRequired, fiber.StatusUnauthorized},
	{domain.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{domain.ErrProviderRejected, fiber.StatusBadRequest},
	{domain.ErrForbidden, fiber.StatusForbidden},
	{domain.ErrNotFound, fiber.StatusNotFound},
}

// statusCoder is an error that carries an upstream HTTP status.
type statusCoder interface {
	StatusCode() int
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return fiber.StatusBadRequest
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code < 500 {
			return code
		}
	}
	for _, m := range statusMap {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	var fe *domain.FetchError
	var ue *domain.UploadError
	if errors.As(err, &fe) || errors.As(err, &ue) {
		return fiber.StatusBadGateway
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

// FromError writes err in the standard error format. Messages of unexpected errors are
// not sent to the client.
func FromError(c *fiber.Ctx, err error) error {
	code := StatusFor(err)
	var details interface{}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		details = verr.Fields
	}
	message := err.Error()
	if code == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		message = "Internal Server Error"
	}
	return Error(c, message, code, details)
}
