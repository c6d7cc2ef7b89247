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

// Locations serves the geographic hierarchy.
type Locations interface {
	Countries(ctx context.Context) ([]entity.Country, error)
	States(ctx context.Context, countryID int64) ([]entity.State, error)
	Cities(ctx context.Context, stateID int64) ([]entity.City, error)
	CityCompanies(ctx context.Context, cityID int64, sort string, page dto.PageRequest) (service.CityListing, error)
	Autocomplete(ctx context.Context, q, kind string, limit int) (service.Autocomplete, error)
	GeocodeAddress(ctx context.Context, address string) (service.AddressMatch, error)
}

// LocationsHandler exposes hierarchy browsing, autocomplete and geocoding.
type LocationsHandler struct {
	service Locations
}

// NewLocationsHandler creates a new handler instance.
func NewLocationsHandler(service Locations) *LocationsHandler {
	return &LocationsHandler{service: service}
}

var geocodeSuggestions = []string{"Check address format", "Include city and state", "Try a more specific address"}

// AutocompleteItem is one suggestion shown while typing a location.
type AutocompleteItem struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	FullName    string     `json:"full_name"`
	StateCode   string     `json:"state_code,omitempty"`
	CountryCode string     `json:"country_code,omitempty"`
	Coordinates *geo.Point `json:"coordinates,omitempty"`
}

// AutocompleteMeta describes an autocomplete response.
type AutocompleteMeta struct {
	Query        string `json:"query"`
	TotalResults int    `json:"total_results"`
}

// GeocodeResponse is the body of a successful address lookup.
type GeocodeResponse struct {
	Address          string       `json:"address"`
	FormattedAddress string       `json:"formatted_address,omitempty"`
	Coordinates      geo.Point    `json:"coordinates"`
	City             string       `json:"city,omitempty"`
	State            string       `json:"state,omitempty"`
	Country          string       `json:"country,omitempty"`
	PostalCode       string       `json:"postal_code,omitempty"`
	NearestCity      *NearestCity `json:"nearest_city"`
}

// NearestCity is the known city closest to a geocoded address.
type NearestCity struct {
	entity.CityPlacement
	FullName        string  `json:"full_name"`
	DistanceMiles   float64 `json:"distance_miles"`
	NearbyCompanies int     `json:"nearby_companies"`
}

type geocodeRequest struct {
	Address string `json:"address" form:"address" query:"address"`
}

// Countries handles GET /api/v1/countries requests.
func (h *LocationsHandler) Countries(c echo.Context) error {
	countries, err := h.service.Countries(c.Request().Context())
	if err != nil {
		middleware.Logger(c).Error("list countries", zap.Error(err))
		return Error(c, http.StatusInternalServerError, "failed to list countries")
	}
	if countries == nil {
		countries = []entity.Country{}
	}
	return Success(c, http.StatusOK, "countries retrieved", countries)
}

// States handles GET /api/v1/countries/:id/states requests.
func (h *LocationsHandler) States(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "invalid country id")
	}
	states, err := h.service.States(c.Request().Context(), id)
	if err != nil {
		return lookupError(c, err, "Country not found", "failed to list states")
	}
	if states == nil {
		states = []entity.State{}
	}
	return Success(c, http.StatusOK, "states retrieved", states)
}

// Cities handles GET /api/v1/states/:id/cities requests.
func (h *LocationsHandler) Cities(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "invalid state id")
	}
	cities, err := h.service.Cities(c.Request().Context(), id)
	if err != nil {
		return lookupError(c, err, "State not found", "failed to list cities")
	}
	if cities == nil {
		cities = []entity.City{}
	}
	return Success(c, http.StatusOK, "cities retrieved", cities)
}

// CityCompanies handles GET /api/v1/cities/:id/companies requests.
func (h *LocationsHandler) CityCompanies(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "invalid city id")
	}
	page := dto.ClampPage(parseIntDefault(c.QueryParam("page"), dto.DefaultPage), parseIntDefault(c.QueryParam("per_page"), dto.DefaultPerPage))

	listing, err := h.service.CityCompanies(c.Request().Context(), id, c.QueryParam("sort"), page)
	if err != nil {
		return lookupError(c, err, "City not found", "failed to list city companies")
	}
	return SuccessWithMeta(c, http.StatusOK, "companies retrieved", listing.Companies, struct {
		City       entity.City    `json:"city"`
		Pagination dto.Pagination `json:"pagination"`
	}{listing.City, listing.Pagination})
}

// Autocomplete handles GET /api/v1/locations/autocomplete requests.
func (h *LocationsHandler) Autocomplete(c echo.Context) error {
	limit := parseIntDefault(c.QueryParam("limit"), 0)
	result, err := h.service.Autocomplete(c.Request().Context(), c.QueryParam("q"), c.QueryParam("type"), limit)
	if err != nil {
		if errors.Is(err, service.ErrQueryTooShort) {
			return Fail(c, http.StatusBadRequest, APIError{
				Code:    "invalid_parameter",
				Title:   "Invalid Parameter",
				Message: "Query must be at least 2 characters",
			})
		}
		middleware.Logger(c).Error("autocomplete locations", zap.Error(err))
		return Error(c, http.StatusInternalServerError, "failed to autocomplete locations")
	}

	items := make([]AutocompleteItem, 0, result.Total())
	for _, p := range result.Cities {
		items = append(items, AutocompleteItem{
			ID:          p.City.ID,
			Type:        "city",
			Name:        p.City.Name,
			Slug:        p.City.Slug,
			FullName:    p.FullName(),
			StateCode:   p.State.Code,
			CountryCode: p.Country.Code,
			Coordinates: p.City.Point(),
		})
	}
	for _, s := range result.States {
		items = append(items, AutocompleteItem{
			ID:          s.State.ID,
			Type:        "state",
			Name:        s.State.Name,
			Slug:        s.State.Slug,
			FullName:    s.State.Name + ", " + s.Country.Name,
			StateCode:   s.State.Code,
			CountryCode: s.Country.Code,
		})
	}
	for _, co := range result.Countries {
		items = append(items, AutocompleteItem{
			ID:          co.ID,
			Type:        "country",
			Name:        co.Name,
			Slug:        co.Slug,
			FullName:    co.Name,
			CountryCode: co.Code,
		})
	}
	return SuccessWithMeta(c, http.StatusOK, "locations retrieved", items, AutocompleteMeta{Query: result.Query, TotalResults: len(items)})
}

// Geocode handles POST /api/v1/locations/geocode requests.
func (h *LocationsHandler) Geocode(c echo.Context) error {
	var req geocodeRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}
	req.Address = strings.TrimSpace(req.Address)

	match, err := h.service.GeocodeAddress(c.Request().Context(), req.Address)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAddressRequired):
			return Fail(c, http.StatusUnprocessableEntity, APIError{
				Code:    "validation_error",
				Title:   "Validation Error",
				Message: "Address is required",
			})
		case errors.Is(err, service.ErrGeocodeFailed):
			return Fail(c, http.StatusUnprocessableEntity, APIError{
				Code:        "geocoding_failed",
				Title:       "Geocoding Failed",
				Message:     "Could not find coordinates for the provided address",
				Suggestions: geocodeSuggestions,
			})
		default:
			middleware.Logger(c).Error("geocode address", zap.Error(err))
			return Error(c, http.StatusInternalServerError, "failed to geocode address")
		}
	}

	resp := GeocodeResponse{
		Address:          req.Address,
		FormattedAddress: match.Result.FormattedAddress,
		Coordinates:      geo.Point{Lat: match.Result.Latitude, Lng: match.Result.Longitude},
		City:             match.Result.City,
		State:            match.Result.State,
		Country:          match.Result.Country,
		PostalCode:       match.Result.PostalCode,
	}
	if match.City != nil {
		resp.NearestCity = &NearestCity{
			CityPlacement:   *match.City,
			FullName:        match.City.FullName(),
			DistanceMiles:   match.DistanceMiles,
			NearbyCompanies: match.NearbyCompanies,
		}
	}
	return Success(c, http.StatusOK, "address geocoded", resp)
}
