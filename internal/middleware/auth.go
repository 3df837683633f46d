package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/bilgisen/contentpipe/internal/logger"
	"github.com/gofiber/fiber/v2"
)

// AuthConfig defines the config for the auth middleware
type AuthConfig struct {
	// Next defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Validator is a function to validate the API key.
	// Required.
	Validator func(key string) (bool, error)

	// ErrorHandler defines a function which is executed for an invalid API key.
	// Optional. Default: 401 Invalid or missing API Key
	ErrorHandler fiber.ErrorHandler

	// ContextKey is the key used to store the API key in the context.
	// Optional. Default: "apiKey"
	ContextKey string

	// Header is the header key where to get the API key from.
	// Optional. Default: "X-API-Key"
	Header string
}

// ConfigDefault is the default config
var ConfigDefault = AuthConfig{
	Next: nil,
	ErrorHandler: func(c *fiber.Ctx, err error) error {
		logger.Get().Warn().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Err(err).
			Msg("Authentication failed")

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or missing API Key",
		})
	},
	ContextKey: "apiKey",
	Header:     "X-API-Key",
}

// NewAuth creates a new API key middleware
func NewAuth(config AuthConfig) fiber.Handler {
	cfg := config
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = ConfigDefault.ErrorHandler
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = ConfigDefault.ContextKey
	}
	if cfg.Header == "" {
		cfg.Header = ConfigDefault.Header
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		authHeader := c.Get(cfg.Header)
		if authHeader == "" {
			return cfg.ErrorHandler(c, errors.New("missing API key"))
		}

		// For "Bearer " prefixed tokens
		token := strings.TrimPrefix(authHeader, "Bearer ")

		valid, err := cfg.Validator(token)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}
		if !valid {
			return cfg.ErrorHandler(c, errors.New("invalid API key"))
		}

		c.Locals(cfg.ContextKey, token)
		return c.Next()
	}
}

// AdminOnly requires X-API-Key to equal adminKey. An empty adminKey leaves
// the routes open, which is how local development runs.
func AdminOnly(adminKey string) fiber.Handler {
	if adminKey == "" {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return NewAuth(AuthConfig{
		Validator: func(key string) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1, nil
		},
	})
}
