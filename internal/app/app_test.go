package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipmaster/config"
	"clipmaster/models"
)

const jwtSecret = "test-secret"

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ClipStore.Backend = "sqlite"
	cfg.ClipStore.DSN = ":memory:"
	cfg.ClipStore.Migrate = true
	cfg.ObjectStore.Backend = "s3"
	cfg.ObjectStore.Region = "us-east-1"
	cfg.ObjectStore.PublicBaseURL = "https://cdn.example.com"
	cfg.Supabase.JWTSecret = jwtSecret
	cfg.Server.WorkerServiceKey = "svc"
	cfg.Realtime.PollInterval = 0
	return cfg
}

func sessionToken(t *testing.T, user uuid.UUID) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestHTTPWiring(t *testing.T) {
	a := newTestApp(t, testConfig())
	app, err := a.HTTP()
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/clips", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	user := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clips/import", strings.NewReader(`{"url":"https://www.twitch.tv/videos/99"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, user))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	clips, err := a.Clips.ListByOwner(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, "99", clips[0].Title)
	assert.Equal(t, models.StatusProcessing, clips[0].Status)
}

func TestErrorEnvelope(t *testing.T) {
	cfg := testConfig()
	cfg.Server.BodyLimitMB = 1
	a := newTestApp(t, cfg)
	app, err := a.HTTP()
	require.NoError(t, err)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{
			name:   "unknown route",
			req:    httptest.NewRequest(http.MethodGet, "/nope", nil),
			status: http.StatusNotFound,
		},
		{
			name:   "body over limit",
			req:    httptest.NewRequest(http.MethodPost, "/api/v1/clips/import", strings.NewReader(strings.Repeat("x", 2<<20))),
			status: http.StatusRequestEntityTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(tt.req, 5000)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"))

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "error", body["status"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestHTTPNeedsIdentity(t *testing.T) {
	cfg := testConfig()
	cfg.Supabase.JWTSecret = ""
	a := newTestApp(t, cfg)

	_, err := a.HTTP()
	assert.Error(t, err)
}

func TestUnknownBackends(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := testConfig()
	cfg.ObjectStore.Backend = "supabase"
	_, err := New(context.Background(), cfg, logger)
	assert.ErrorContains(t, err, "supabase object store")

	cfg = testConfig()
	cfg.ClipStore.Backend = "mongo"
	_, err = New(context.Background(), cfg, logger)
	assert.ErrorContains(t, err, "unknown clip store backend")
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = 0
	cfg.Server.HealthPort = 0
	cfg.Realtime.PollInterval = 10 * time.Millisecond
	a := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Serve did not return")
	}
}
