package middleware

import (
	"errors"

	"github.com/bilgisen/contentpipe/internal/logger"
	"github.com/bilgisen/contentpipe/internal/models"
	"github.com/gofiber/fiber/v2"
)

// statusFor maps an error returned by a handler to an HTTP status
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, models.ErrJobNotFound), errors.Is(err, models.ErrSiteNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrJobExists), errors.Is(err, models.ErrLeaseHeld), errors.Is(err, models.ErrVersionConflict):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrInvalidID):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders handler errors as {"error": message}. Internal errors
// are logged and their message is not exposed.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	msg := err.Error()

	if code >= fiber.StatusInternalServerError {
		logger.Get().Error().
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", code).
			Msg("HTTP error")
		msg = "Internal Server Error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error": msg,
	})
}
