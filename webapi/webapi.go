// Package webapi exposes the ledger over HTTP. It is organized into
// sub-packages:
// - auth: registration and login
// - account: accounts, transactions and the activity feed
package webapi

import (
	"errors"
	"strings"

	"github.com/amirasaad/householdledger/pkg/app"
	accountweb "github.com/amirasaad/householdledger/webapi/account"
	authweb "github.com/amirasaad/householdledger/webapi/auth"
	"github.com/amirasaad/householdledger/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(app *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Request failed", err)
		},
	})

	// Configure rate limiting middleware
	// Uses X-Forwarded-For header when behind a proxy
	fiberApp.Use(limiter.New(limiter.Config{
		Max:        app.Config.RateLimit.MaxRequests,
		Expiration: app.Config.RateLimit.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
				// Take the first IP in the chain
				if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
					return strings.TrimSpace(forwardedFor[:commaIndex])
				}
				return strings.TrimSpace(forwardedFor)
			}
			if realIP := c.Get("X-Real-IP"); realIP != "" {
				return realIP
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(
				c,
				"Too Many Requests",
				errors.New("rate limit exceeded"),
				fiber.StatusTooManyRequests,
			)
		},
	}))
	fiberApp.Use(recover.New())

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Household ledger is running")
	})

	authweb.Routes(fiberApp, app.AuthService)
	accountweb.Routes(fiberApp, app.AccountService, app.TransactionService, app.AuthService, app.Config)
	return fiberApp
}
