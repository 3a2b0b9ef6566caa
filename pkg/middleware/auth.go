package middleware

import (
	"errors"

	"github.com/amirasaad/householdledger/pkg/config"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// JwtProtected verifies the HS256 bearer token and stores it in
// c.Locals("user").
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{Key: []byte(cfg.Secret)},
		ContextKey:   "user",
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		return problem(c, fiber.StatusBadRequest, "Missing or malformed JWT")
	}
	return problem(c, fiber.StatusUnauthorized, "Invalid or expired JWT")
}

func problem(c *fiber.Ctx, status int, title string) error {
	if err := c.Status(status).JSON(fiber.Map{
		"type":     "about:blank",
		"title":    title,
		"status":   status,
		"instance": c.OriginalURL(),
	}); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return nil
}
