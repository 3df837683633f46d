package middleware

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const (
	bodyKey  = "validated"
	queryKey = "queryParams"
)

// validate is safe for concurrent use and caches struct metadata
var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldErrors maps each failing field to the tag it failed
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}

// ValidateBody parses the request body into a fresh T, validates it and
// stores it for Body
func ValidateBody[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := new(T)
		if err := c.BodyParser(s); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
				"msg":   err.Error(),
			})
		}

		if err := validate.Struct(s); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Validation failed",
				"fields": fieldErrors(err),
			})
		}

		c.Locals(bodyKey, s)
		return c.Next()
	}
}

// Body returns the value stored by ValidateBody
func Body[T any](c *fiber.Ctx) *T {
	s, _ := c.Locals(bodyKey).(*T)
	return s
}

// ValidateQuery parses and validates query parameters into a fresh T
func ValidateQuery[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := new(T)
		if err := c.QueryParser(s); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid query parameters",
				"msg":   err.Error(),
			})
		}

		if err := validate.Struct(s); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Invalid query parameters",
				"fields": fieldErrors(err),
			})
		}

		c.Locals(queryKey, s)
		return c.Next()
	}
}

// Query returns the value stored by ValidateQuery
func Query[T any](c *fiber.Ctx) *T {
	s, _ := c.Locals(queryKey).(*T)
	return s
}
