package server

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warhorse/internal/config"
	"warhorse/internal/store"
)

// One app for the whole test: the prometheus middleware registers collectors
// globally and must not be set up twice in a binary.
func TestHTTPSurface(t *testing.T) {
	cfg := &config.Config{StoreBackend: config.StoreMemory}
	srv := NewServerWithDeps(cfg, store.NewMemory(), nil)
	t.Cleanup(srv.presence.Stop)

	app := fiber.New()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)

	t.Run("liveness", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, livenessBody, string(body))
	})

	t.Run("socket endpoint requires upgrade", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/ws", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
	})

	t.Run("metrics endpoint mounted", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/nope", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestNewServerRejectsUnknownBackend(t *testing.T) {
	_, err := NewServer(&config.Config{StoreBackend: "etcd"})
	assert.Error(t, err)
}
