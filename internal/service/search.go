package service

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/localpros/api/internal/dto"
	"github.com/octobees/localpros/api/internal/entity"
	"github.com/octobees/localpros/api/internal/geo"
	"github.com/octobees/localpros/api/internal/geocode"
	"github.com/octobees/localpros/api/internal/metrics"
)

var (
	// ErrGeocodeFailed is returned when a search address cannot be resolved to coordinates.
	ErrGeocodeFailed = eris.New("geocode failed")
	// ErrInvalidCoordinates is returned for lat/lng outside [-90,90] x [-180,180].
	ErrInvalidCoordinates = eris.New("invalid coordinates")
)

// Search query types reported in the search context.
const (
	QueryCoordinate = "coordinate_search"
	QueryAddress    = "address_search"
	QueryCity       = "city_search"
	QueryState      = "state_search"
	QueryGeneral    = "general_search"
)

// Suggestions offered when a search matches nothing.
const (
	SuggestIncreaseRadius = "Try increasing the search radius"
	SuggestRemoveFilters  = "Remove some filters"
	SuggestNearbyCities   = "Try searching nearby cities"
)

// CompanySearcher runs a filter against the company table.
type CompanySearcher interface {
	Search(ctx context.Context, f dto.CompanyFilter, page dto.PageRequest) ([]entity.CompanyListing, int, error)
}

// StateLookup resolves states for state listings.
type StateLookup interface {
	FindStateBySlugOrCode(ctx context.Context, value string) (entity.State, error)
	StateTotals(ctx context.Context, stateID int64) (companies, cities int, err error)
}

// SearchResult is either a page of companies or a no-results outcome with suggestions.
type SearchResult struct {
	Companies   []entity.CompanyListing
	Meta        dto.SearchMeta
	NoResults   bool
	Suggestions []string
}

// SearchService orchestrates company searches.
type SearchService struct {
	companies CompanySearcher
	states    StateLookup
	geocoder  geocode.Client
	metrics   *metrics.AppMetrics
}

// NewSearchService wires the orchestrator. A nil geocoder fails every address search.
func NewSearchService(companies CompanySearcher, states StateLookup, geocoder geocode.Client, m *metrics.AppMetrics) *SearchService {
	if m == nil {
		m = metrics.New(nil)
	}
	return &SearchService{companies: companies, states: states, geocoder: geocoder, metrics: m}
}

// Search resolves the location, filters, sorts and paginates companies.
func (s *SearchService) Search(ctx context.Context, p dto.SearchParams) (SearchResult, error) {
	unit := p.Unit
	if unit == "" {
		unit = geo.Miles
	}
	radius := dto.DefaultRadius
	if p.Radius != nil && *p.Radius > 0 {
		radius = *p.Radius
	}
	page := dto.ClampPage(p.Page, p.PerPage)
	sort := dto.ParseSort(p.Sort)

	filter := dto.CompanyFilter{
		City:            strings.TrimSpace(p.City),
		State:           strings.TrimSpace(p.State),
		Country:         strings.TrimSpace(p.Country),
		ServiceCategory: strings.TrimSpace(p.ServiceCategory),
		VerifiedOnly:    p.VerifiedOnly,
		MinRating:       p.MinRating,
		Sort:            sort,
	}
	sc := dto.SearchContext{
		Radius: radius,
		Unit:   unit,
		Sort:   sort.String(),
		FiltersApplied: dto.FiltersApplied{
			City:            filter.City,
			State:           filter.State,
			Country:         filter.Country,
			ServiceCategory: filter.ServiceCategory,
			VerifiedOnly:    filter.VerifiedOnly,
			MinRating:       filter.MinRating,
		},
	}

	switch {
	case p.HasCoordinates():
		center := geo.Point{Lat: *p.Lat, Lng: *p.Lng}
		if !center.Valid() {
			return SearchResult{}, eris.Wrapf(ErrInvalidCoordinates, "lat %v lng %v", center.Lat, center.Lng)
		}
		filter.Proximity = &dto.Proximity{Center: center, Radius: radius, Unit: unit}
		sc.QueryType = QueryCoordinate
		sc.Coordinates = &center
	case strings.TrimSpace(p.Address) != "":
		address := strings.TrimSpace(p.Address)
		center, err := s.geocode(ctx, address)
		if err != nil {
			s.metrics.SearchesTotal.WithLabelValues(QueryAddress, "geocode_failed").Inc()
			return SearchResult{}, err
		}
		filter.Proximity = &dto.Proximity{Center: center, Radius: radius, Unit: unit}
		sc.QueryType = QueryAddress
		sc.Location = address
		sc.Coordinates = &center
	case filter.City != "":
		sc.QueryType = QueryCity
		sc.Location = filter.City
	case filter.State != "":
		sc.QueryType = QueryState
		sc.Location = filter.State
	default:
		sc.QueryType = QueryGeneral
	}

	listings, total, err := s.companies.Search(ctx, filter, page)
	if err != nil {
		return SearchResult{}, eris.Wrap(err, "service: search companies")
	}

	result := SearchResult{
		Meta: dto.SearchMeta{SearchContext: sc, Pagination: dto.NewPagination(page, total)},
	}
	if total == 0 {
		s.metrics.SearchesTotal.WithLabelValues(sc.QueryType, "no_results").Inc()
		result.NoResults = true
		result.Suggestions = suggestionsFor(filter)
		result.Companies = []entity.CompanyListing{}
		return result, nil
	}

	if filter.Proximity != nil {
		annotateDistances(listings, filter.Proximity.Center)
	}
	s.metrics.SearchesTotal.WithLabelValues(sc.QueryType, "results").Inc()
	result.Companies = listings
	return result, nil
}

func (s *SearchService) geocode(ctx context.Context, address string) (geo.Point, error) {
	if s.geocoder == nil {
		return geo.Point{}, eris.Wrap(ErrGeocodeFailed, "no geocoder configured")
	}
	res, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		zap.L().Info("search: geocode address", zap.String("address", address), zap.Error(err))
		s.metrics.GeocodeRequests.WithLabelValues("failed").Inc()
		return geo.Point{}, eris.Wrapf(ErrGeocodeFailed, "address %q: %v", address, err)
	}
	s.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return geo.Point{Lat: res.Latitude, Lng: res.Longitude}, nil
}

// annotateDistances sets distance_miles and distance_km, rounded to one decimal.
func annotateDistances(listings []entity.CompanyListing, center geo.Point) {
	for i := range listings {
		p := listings[i].Point()
		if p == nil {
			continue
		}
		mi := geo.Round(geo.Distance(center, *p, geo.Miles), 1)
		km := geo.Round(geo.Distance(center, *p, geo.Kilometers), 1)
		listings[i].DistanceMiles = &mi
		listings[i].DistanceKm = &km
	}
}

func suggestionsFor(f dto.CompanyFilter) []string {
	var out []string
	if f.Proximity != nil || f.City != "" || f.State != "" || f.Country != "" {
		out = append(out, SuggestIncreaseRadius)
	}
	if f.MinRating != nil || f.VerifiedOnly || f.ServiceCategory != "" {
		out = append(out, SuggestRemoveFilters)
	}
	return append(out, SuggestNearbyCities)
}

// StateListing is a page of companies within one state.
type StateListing struct {
	State          entity.State
	Companies      []entity.CompanyListing
	Pagination     dto.Pagination
	TotalCompanies int
	TotalCities    int
}

// StateCompanies lists companies of the state identified by slug or code.
func (s *SearchService) StateCompanies(ctx context.Context, p dto.StateListingParams) (StateListing, error) {
	state, err := s.states.FindStateBySlugOrCode(ctx, p.StateSlug)
	if err != nil {
		return StateListing{}, eris.Wrap(err, "service: find state")
	}

	sort := dto.ParseSort(p.Sort)
	if sort.Key == dto.SortByDistance {
		sort = dto.Sort{Key: dto.SortByName}
	}
	page := dto.ClampPage(p.Page, p.PerPage)
	filter := dto.CompanyFilter{
		City:            strings.TrimSpace(p.City),
		ServiceCategory: strings.TrimSpace(p.ServiceCategory),
		StateID:         &state.ID,
		VerifiedOnly:    p.VerifiedOnly,
		MinRating:       p.MinRating,
		Sort:            sort,
	}

	listings, total, err := s.companies.Search(ctx, filter, page)
	if err != nil {
		return StateListing{}, eris.Wrap(err, "service: search state companies")
	}
	companies, cities, err := s.states.StateTotals(ctx, state.ID)
	if err != nil {
		return StateListing{}, eris.Wrap(err, "service: state totals")
	}
	if listings == nil {
		listings = []entity.CompanyListing{}
	}

	return StateListing{
		State:          state,
		Companies:      listings,
		Pagination:     dto.NewPagination(page, total),
		TotalCompanies: companies,
		TotalCities:    cities,
	}, nil
}
