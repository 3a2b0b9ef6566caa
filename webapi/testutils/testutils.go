// Package testutils builds an in-memory ledger behind the HTTP API for
// handler tests.
package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	infraeventbus "github.com/amirasaad/householdledger/infra/eventbus"
	infrarepo "github.com/amirasaad/householdledger/infra/repository"
	"github.com/amirasaad/householdledger/internal/database"
	"github.com/amirasaad/householdledger/pkg/app"
	"github.com/amirasaad/householdledger/pkg/config"
	"github.com/amirasaad/householdledger/webapi"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// TestConfig is an HTTP configuration with a generous rate limit.
func TestConfig() *config.App {
	return &config.App{
		Env:       "test",
		Auth:      &config.Auth{Strategy: "jwt", Jwt: &config.Jwt{Secret: "test-secret", Expiry: time.Hour}},
		RateLimit: &config.RateLimit{MaxRequests: 10000, Window: time.Minute},
		Ledger:    &config.Ledger{ActivityLimit: 10},
	}
}

// NewApp returns the Fiber app backed by a fresh sqlite database. Callers
// usually lower utils.PasswordCost in TestMain.
func NewApp(t testing.TB, cfg *config.App) (*fiber.App, *app.App) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := &app.Deps{
		Uow:      infrarepo.NewUoW(database.NewTestDB(t)),
		EventBus: infraeventbus.NewWithMemory(logger),
		Logger:   logger,
	}
	a := app.New(deps, cfg)
	return webapi.SetupApp(a), a
}

func MakeRequestWithApp(app *fiber.App, method, path, body, token string) *http.Response {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		panic(err) // For standalone tests, panic on error
	}
	return resp
}

// Decode reads the response body into v and closes it.
func Decode(t testing.TB, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close() //nolint: errcheck
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// RegisterAndLogin creates username and returns a bearer token for it.
func RegisterAndLogin(t testing.TB, app *fiber.App, username string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"password123"}`, username)
	resp := MakeRequestWithApp(app, fiber.MethodPost, "/auth/register", body, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = MakeRequestWithApp(app, fiber.MethodPost, "/auth/login", body, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	Decode(t, resp, &out)
	require.NotEmpty(t, out.Data.Token)
	return out.Data.Token
}
