package fiber_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffgate/staffgate/internal/logger"
	adapter "github.com/staffgate/staffgate/internal/logger/adapter/fiber"
)

type accessLine struct {
	Status int    `json:"status"`
	URI    string `json:"URI"`
	Method string `json:"method"`
	Error  string `json:"error"`
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		cfg        logger.Log
		target     string
		wantStatus int
		wantLogged bool
		wantError  bool
	}{
		{name: "ok request", target: "/ok?x=1", wantStatus: http.StatusOK, wantLogged: true},
		{name: "handler error", target: "/fail", wantStatus: http.StatusTeapot, wantLogged: true, wantError: true},
		{name: "checkalive logged", target: "/checkalive", wantStatus: http.StatusOK, wantLogged: true},
		{
			name:       "checkalive skipped",
			cfg:        logger.Log{DisableCheckAlive: true},
			target:     "/checkalive",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			app := fiber.New()
			app.Use(adapter.New(adapter.Config{Config: tt.cfg, CheckAliveURI: "/checkalive", Output: &out}))
			app.Get("/ok", func(c fiber.Ctx) error { return c.SendString("ok") })
			app.Get("/checkalive", func(c fiber.Ctx) error { return c.SendString("alive") })
			app.Get("/fail", func(_ fiber.Ctx) error { return fiber.NewError(http.StatusTeapot, "short and stout") })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Performance"))

			if !tt.wantLogged {
				assert.Empty(t, out.String())
				return
			}

			var line accessLine
			require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out.String())), &line))
			assert.Equal(t, tt.wantStatus, line.Status)
			assert.Equal(t, tt.target, line.URI)
			assert.Equal(t, http.MethodGet, line.Method)
			assert.Equal(t, tt.wantError, line.Error != "")
		})
	}
}
