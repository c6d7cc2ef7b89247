package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/localpros/api/internal/dto"
	"github.com/octobees/localpros/api/internal/entity"
	"github.com/octobees/localpros/api/internal/geo"
	"github.com/octobees/localpros/api/internal/middleware"
	"github.com/octobees/localpros/api/internal/service"
)

// Searcher runs company searches.
type Searcher interface {
	Search(ctx context.Context, p dto.SearchParams) (service.SearchResult, error)
	StateCompanies(ctx context.Context, p dto.StateListingParams) (service.StateListing, error)
}

// SearchHandler exposes company search and state listings.
type SearchHandler struct {
	search Searcher
}

// NewSearchHandler creates a new handler instance.
func NewSearchHandler(search Searcher) *SearchHandler {
	return &SearchHandler{search: search}
}

// StateMeta accompanies a state company listing.
type StateMeta struct {
	State          entity.State   `json:"state"`
	TotalCompanies int            `json:"total_companies"`
	TotalCities    int            `json:"total_cities"`
	Pagination     dto.Pagination `json:"pagination"`
}

// Search handles GET /api/v1/companies/search requests.
func (h *SearchHandler) Search(c echo.Context) error {
	params := dto.SearchParams{
		City:            strings.TrimSpace(c.QueryParam("city")),
		State:           strings.TrimSpace(c.QueryParam("state")),
		Country:         strings.TrimSpace(c.QueryParam("country")),
		ServiceCategory: strings.TrimSpace(c.QueryParam("service_category")),
		VerifiedOnly:    parseBoolParam(c, "verified_only"),
		Address:         strings.TrimSpace(c.QueryParam("address")),
		Sort:            strings.TrimSpace(c.QueryParam("sort")),
		Page:            parseIntDefault(c.QueryParam("page"), dto.DefaultPage),
		PerPage:         parseIntDefault(c.QueryParam("per_page"), dto.DefaultPerPage),
	}

	var err error
	for _, p := range []struct {
		name string
		dst  **float64
	}{
		{"min_rating", &params.MinRating},
		{"lat", &params.Lat},
		{"lng", &params.Lng},
		{"radius", &params.Radius},
	} {
		if *p.dst, err = parseFloatParam(c, p.name); err != nil {
			return Error(c, http.StatusBadRequest, "invalid "+p.name)
		}
	}
	if params.Unit, err = geo.ParseUnit(c.QueryParam("unit")); err != nil {
		return Error(c, http.StatusBadRequest, "unit must be mi or km")
	}

	result, err := h.search.Search(c.Request().Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGeocodeFailed):
			return Fail(c, http.StatusUnprocessableEntity, APIError{
				Code:    "geocode_failed",
				Title:   "Geocoding Failed",
				Message: "Could not find coordinates for the provided address",
			})
		case errors.Is(err, service.ErrInvalidCoordinates):
			return Error(c, http.StatusBadRequest, "lat must be within [-90, 90] and lng within [-180, 180]")
		default:
			middleware.Logger(c).Error("search companies", zap.Error(err))
			return Error(c, http.StatusInternalServerError, "failed to search companies")
		}
	}

	if result.NoResults {
		return Fail(c, http.StatusNotFound, APIError{
			Code:        "no_results",
			Title:       "No Results Found",
			Message:     "No companies found matching your criteria",
			Suggestions: result.Suggestions,
		})
	}
	return SuccessWithMeta(c, http.StatusOK, "companies retrieved", result.Companies, result.Meta)
}

// StateCompanies handles GET /api/v1/states/:state_slug/companies requests.
func (h *SearchHandler) StateCompanies(c echo.Context) error {
	params := dto.StateListingParams{
		StateSlug:       strings.TrimSpace(c.Param("state_slug")),
		City:            strings.TrimSpace(c.QueryParam("city")),
		ServiceCategory: strings.TrimSpace(c.QueryParam("service_category")),
		VerifiedOnly:    parseBoolParam(c, "verified_only"),
		Sort:            strings.TrimSpace(c.QueryParam("sort")),
		Page:            parseIntDefault(c.QueryParam("page"), dto.DefaultPage),
		PerPage:         parseIntDefault(c.QueryParam("per_page"), dto.DefaultPerPage),
	}
	minRating, err := parseFloatParam(c, "min_rating")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid min_rating")
	}
	params.MinRating = minRating

	listing, err := h.search.StateCompanies(c.Request().Context(), params)
	if err != nil {
		return lookupError(c, err, "State not found", "failed to list state companies")
	}
	return SuccessWithMeta(c, http.StatusOK, "companies retrieved", listing.Companies, StateMeta{
		State:          listing.State,
		TotalCompanies: listing.TotalCompanies,
		TotalCities:    listing.TotalCities,
		Pagination:     listing.Pagination,
	})
}
