package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/localpros/api/internal/auth"
	"github.com/octobees/localpros/api/internal/config"
	"github.com/octobees/localpros/api/internal/handler"
	"github.com/octobees/localpros/api/internal/metrics"
	"github.com/octobees/localpros/api/internal/service"
)

// Only requests rejected before reaching a handler are exercised, so nil services are fine.
func newTestServer(t *testing.T) (*echo.Echo, *auth.JWTManager) {
	t.Helper()
	reg := prometheus.NewRegistry()
	manager := auth.NewJWTManager("secret", 0)
	handlers := Handlers{
		Auth:      handler.NewAuthHandler(service.NewAuthService("", "", manager)),
		Search:    handler.NewSearchHandler(nil),
		Companies: handler.NewCompaniesHandler(nil),
		Locations: handler.NewLocationsHandler(nil),
		Import:    handler.NewImportHandler(nil, 50<<20),
	}
	return New(&config.Config{}, manager, handlers, metrics.New(reg), reg), manager
}

func serve(e *echo.Echo, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutesRegistered(t *testing.T) {
	e, _ := newTestServer(t)

	routes := map[string]bool{}
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /metrics",
		"GET /api/v1/companies/search",
		"GET /api/v1/companies/:id",
		"GET /api/v1/companies/:id/reviews",
		"GET /api/v1/companies/:id/gallery_images",
		"GET /api/v1/service_categories",
		"GET /api/v1/countries",
		"GET /api/v1/countries/:id/states",
		"GET /api/v1/states/:id/cities",
		"GET /api/v1/states/:state_slug/companies",
		"GET /api/v1/cities/:id/companies",
		"GET /api/v1/locations/autocomplete",
		"POST /api/v1/locations/geocode",
		"POST /api/backoffice/v1/auth/login",
		"POST /api/backoffice/v1/import_companies",
		"POST /api/backoffice/v1/import_reviews",
		"POST /api/backoffice/v1/import_galleries",
		"DELETE /api/backoffice/v1/reviews/:id",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	e, _ := newTestServer(t)

	rec := serve(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = serve(e, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `http_requests_total{method="GET",route="/healthz",status="200"} 1`))
}

func TestBackofficeRequiresAdminToken(t *testing.T) {
	e, manager := newTestServer(t)

	rec := serve(e, http.MethodPost, "/api/backoffice/v1/import_companies", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodDelete, "/api/backoffice/v1/reviews/1", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	viewer, err := manager.GenerateToken("someone", "someone@example.com", "viewer")
	require.NoError(t, err)
	rec = serve(e, http.MethodDelete, "/api/backoffice/v1/reviews/1", viewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// an admin reaches the handler, which rejects the empty upload itself
	admin, err := manager.GenerateToken("ops@example.com", "ops@example.com", auth.RoleAdmin)
	require.NoError(t, err)
	rec = serve(e, http.MethodPost, "/api/backoffice/v1/import_reviews", admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_FILE")
}

func TestLoginRejectsUnconfiguredOperator(t *testing.T) {
	e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/backoffice/v1/auth/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
