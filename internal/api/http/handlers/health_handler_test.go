package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDependency struct {
	enabled bool
	err     error
}

func (d fakeDependency) Enabled() bool { return d.enabled }
func (d fakeDependency) Ping(context.Context) error { return d.err }

func readyStatus(t *testing.T, deps map[string]Dependency) (int, map[string]any) {
	t.Helper()
	app := fiber.New()
	app.Get("/ready", NewHealthHandler("order-tagger", "test", deps).Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestReadySkipsDisabledDependencies(t *testing.T) {
	status, body := readyStatus(t, map[string]Dependency{
		"postgres": fakeDependency{enabled: false},
		"redis":    fakeDependency{enabled: true},
	})

	assert.Equal(t, http.StatusOK, status)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])
	assert.Equal(t, "ok", deps["redis"])
}

func TestReadyFailsOnUnreachableDependency(t *testing.T) {
	status, body := readyStatus(t, map[string]Dependency{
		"redis": fakeDependency{enabled: true, err: errors.New("dial tcp: refused")},
	})

	assert.Equal(t, http.StatusServiceUnavailable, status)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "unavailable", details["redis"])
}
