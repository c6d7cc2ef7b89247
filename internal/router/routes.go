package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/octobees/localpros/api/internal/auth"
	"github.com/octobees/localpros/api/internal/config"
	"github.com/octobees/localpros/api/internal/handler"
	"github.com/octobees/localpros/api/internal/metrics"
	middlewarepkg "github.com/octobees/localpros/api/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Auth      *handler.AuthHandler
	Search    *handler.SearchHandler
	Companies *handler.CompaniesHandler
	Locations *handler.LocationsHandler
	Import    *handler.ImportHandler
}

// New builds the echo instance with the shared middleware stack and every route.
func New(cfg *config.Config, jwtManager *auth.JWTManager, handlers Handlers, m *metrics.AppMetrics, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging())
	e.Use(middlewarepkg.Metrics(m))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	Register(e, cfg, jwtManager, handlers)
	return e
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, jwtManager *auth.JWTManager, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})

	v1 := e.Group("/api/v1")
	v1.GET("/companies/search", handlers.Search.Search)
	v1.GET("/companies/:id", handlers.Companies.Show)
	v1.GET("/companies/:id/reviews", handlers.Companies.Reviews)
	v1.GET("/companies/:id/gallery_images", handlers.Companies.Gallery)
	v1.GET("/service_categories", handlers.Companies.ServiceCategories)

	v1.GET("/countries", handlers.Locations.Countries)
	v1.GET("/countries/:id/states", handlers.Locations.States)
	v1.GET("/states/:id/cities", handlers.Locations.Cities)
	v1.GET("/states/:state_slug/companies", handlers.Search.StateCompanies)
	v1.GET("/cities/:id/companies", handlers.Locations.CityCompanies)
	v1.GET("/locations/autocomplete", handlers.Locations.Autocomplete)
	v1.POST("/locations/geocode", handlers.Locations.Geocode)

	backoffice := e.Group("/api/backoffice/v1")
	backoffice.POST("/auth/login", handlers.Auth.Login)

	admin := backoffice.Group("", middlewarepkg.JWT(jwtManager), middlewarepkg.RequireRole(auth.RoleAdmin))
	limited := middlewarepkg.RateLimiter(cfg.RateLimitImport)
	admin.POST("/import_companies", handlers.Import.ImportCompanies, limited)
	admin.POST("/import_reviews", handlers.Import.ImportReviews, limited)
	admin.POST("/import_galleries", handlers.Import.ImportGalleries, limited)
	admin.DELETE("/reviews/:id", handlers.Companies.DeleteReview)
}
