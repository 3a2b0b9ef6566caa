package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirasaad/householdledger/pkg/config"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cfg = &config.Jwt{Secret: "testsecret", Expiry: time.Hour}

func protectedApp() *fiber.App {
	app := fiber.New()
	app.Use(JwtProtected(cfg))
	app.Get("/", func(c *fiber.Ctx) error {
		token := c.Locals("user").(*jwt.Token)
		return c.SendString(token.Claims.(jwt.MapClaims)["username"].(string))
	})
	return app
}

func sign(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "alice",
		"exp":      exp.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestProtected_MissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := protectedApp().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestProtected_ValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, cfg.Secret, time.Now().Add(time.Hour)))
	resp, err := protectedApp().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestProtected_RejectsBadTokens(t *testing.T) {
	tests := map[string]string{
		"wrong secret": sign(t, "other", time.Now().Add(time.Hour)),
		"expired":      sign(t, cfg.Secret, time.Now().Add(-time.Hour)),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := protectedApp().Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
		})
	}
}

func TestJwtError_Malformed(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		return jwtError(c, jwtware.ErrJWTMissingOrMalformed)
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestJwtError_Invalid(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		return jwtError(c, errors.New("any other error"))
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
