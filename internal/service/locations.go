package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/localpros/api/internal/dto"
	"github.com/octobees/localpros/api/internal/entity"
	"github.com/octobees/localpros/api/internal/geo"
	"github.com/octobees/localpros/api/internal/geocode"
	"github.com/octobees/localpros/api/internal/repository"
)

const (
	autocompleteMinQuery   = 2
	autocompleteMaxResults = 10
	// nearestCityRadiusMiles bounds the city match for a geocoded address.
	nearestCityRadiusMiles = 50.0
)

var (
	// ErrQueryTooShort is returned by Autocomplete for queries under two characters.
	ErrQueryTooShort = eris.New("query must be at least 2 characters")
	// ErrAddressRequired is returned by GeocodeAddress for a blank address.
	ErrAddressRequired = eris.New("address is required")
)

// LocationReader is the read side of the geographic hierarchy.
type LocationReader interface {
	ListCountries(ctx context.Context) ([]entity.Country, error)
	GetCountry(ctx context.Context, id int64) (entity.Country, error)
	ListStates(ctx context.Context, countryID int64) ([]entity.State, error)
	GetState(ctx context.Context, id int64) (entity.State, error)
	ListCities(ctx context.Context, stateID int64) ([]entity.City, error)
	GetCity(ctx context.Context, id int64) (entity.City, error)
	SearchCities(ctx context.Context, term string, limit int) ([]entity.CityPlacement, error)
	SearchStates(ctx context.Context, term string, limit int) ([]repository.StateWithCountry, error)
	SearchCountries(ctx context.Context, term string, limit int) ([]entity.Country, error)
	CitiesInBox(ctx context.Context, box geo.Box) ([]entity.CityPlacement, error)
	CountCompaniesInCity(ctx context.Context, cityID int64) (int, error)
}

// LocationService serves hierarchy browsing, autocomplete and address lookup.
type LocationService struct {
	locations LocationReader
	companies CompanySearcher
	geocoder  geocode.Client
}

// NewLocationService wires the service. geocoder may be nil.
func NewLocationService(locations LocationReader, companies CompanySearcher, geocoder geocode.Client) *LocationService {
	return &LocationService{locations: locations, companies: companies, geocoder: geocoder}
}

// Countries lists every country.
func (s *LocationService) Countries(ctx context.Context) ([]entity.Country, error) {
	return s.locations.ListCountries(ctx)
}

// States lists the states of a country, or ErrNotFound when it does not exist.
func (s *LocationService) States(ctx context.Context, countryID int64) ([]entity.State, error) {
	if _, err := s.locations.GetCountry(ctx, countryID); err != nil {
		return nil, err
	}
	return s.locations.ListStates(ctx, countryID)
}

// Cities lists the cities of a state, or ErrNotFound when it does not exist.
func (s *LocationService) Cities(ctx context.Context, stateID int64) ([]entity.City, error) {
	if _, err := s.locations.GetState(ctx, stateID); err != nil {
		return nil, err
	}
	return s.locations.ListCities(ctx, stateID)
}

// CityListing is a page of companies in one city.
type CityListing struct {
	City       entity.City
	Companies  []entity.CompanyListing
	Pagination dto.Pagination
}

// CityCompanies pages the companies of a city sorted by name or rating.
func (s *LocationService) CityCompanies(ctx context.Context, cityID int64, sortRaw string, page dto.PageRequest) (CityListing, error) {
	city, err := s.locations.GetCity(ctx, cityID)
	if err != nil {
		return CityListing{}, err
	}
	sort := dto.ParseSort(sortRaw)
	if sort.Key == dto.SortByDistance {
		sort = dto.Sort{Key: dto.SortByName}
	}
	listings, total, err := s.companies.Search(ctx, dto.CompanyFilter{CityID: &city.ID, Sort: sort}, page)
	if err != nil {
		return CityListing{}, eris.Wrap(err, "service: city companies")
	}
	if listings == nil {
		listings = []entity.CompanyListing{}
	}
	return CityListing{City: city, Companies: listings, Pagination: dto.NewPagination(page, total)}, nil
}

// Autocomplete holds location matches for a query.
type Autocomplete struct {
	Query     string
	Cities    []entity.CityPlacement
	States    []repository.StateWithCountry
	Countries []entity.Country
}

// Total counts every match.
func (a Autocomplete) Total() int {
	return len(a.Cities) + len(a.States) + len(a.Countries)
}

// AutocompleteLimit clamps the requested result count to 1..10; anything else yields 10.
func AutocompleteLimit(requested int) int {
	if requested < 1 || requested > autocompleteMaxResults {
		return autocompleteMaxResults
	}
	return requested
}

// Autocomplete matches q against city, state or country names. An empty kind searches
// cities and states, limit/2 each.
func (s *LocationService) Autocomplete(ctx context.Context, q, kind string, limit int) (Autocomplete, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < autocompleteMinQuery {
		return Autocomplete{}, ErrQueryTooShort
	}
	limit = AutocompleteLimit(limit)

	out := Autocomplete{
		Query:     q,
		Cities:    []entity.CityPlacement{},
		States:    []repository.StateWithCountry{},
		Countries: []entity.Country{},
	}
	var err error
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "city":
		out.Cities, err = s.locations.SearchCities(ctx, q, limit)
	case "state":
		out.States, err = s.locations.SearchStates(ctx, q, limit)
	case "country":
		out.Countries, err = s.locations.SearchCountries(ctx, q, limit)
	default:
		if out.Cities, err = s.locations.SearchCities(ctx, q, limit/2); err == nil {
			out.States, err = s.locations.SearchStates(ctx, q, limit/2)
		}
	}
	if err != nil {
		return Autocomplete{}, eris.Wrap(err, "service: autocomplete")
	}
	return out, nil
}

// AddressMatch is a geocoded address with the nearest known city, if any lies within 50 miles.
type AddressMatch struct {
	Result          geocode.Result
	City            *entity.CityPlacement
	DistanceMiles   float64
	NearbyCompanies int
}

// GeocodeAddress resolves address and matches it to the nearest city.
func (s *LocationService) GeocodeAddress(ctx context.Context, address string) (AddressMatch, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return AddressMatch{}, ErrAddressRequired
	}
	if s.geocoder == nil {
		return AddressMatch{}, eris.Wrap(ErrGeocodeFailed, "no geocoder configured")
	}
	res, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		zap.L().Info("locations: geocode address", zap.String("address", address), zap.Error(err))
		return AddressMatch{}, eris.Wrapf(ErrGeocodeFailed, "address %q: %v", address, err)
	}

	match := AddressMatch{Result: *res}
	center := geo.Point{Lat: res.Latitude, Lng: res.Longitude}
	candidates, err := s.locations.CitiesInBox(ctx, geo.BoundingBox(center, nearestCityRadiusMiles, geo.Miles))
	if err != nil {
		return AddressMatch{}, eris.Wrap(err, "service: nearest city")
	}

	for i := range candidates {
		p := candidates[i].City.Point()
		if !geo.WithinRadius(&center, p, nearestCityRadiusMiles) {
			continue
		}
		d := geo.Distance(center, *p, geo.Miles)
		if match.City == nil || d < match.DistanceMiles {
			match.City = &candidates[i]
			match.DistanceMiles = d
		}
	}
	if match.City == nil {
		return match, nil
	}

	match.DistanceMiles = geo.Round(match.DistanceMiles, 1)
	match.NearbyCompanies, err = s.locations.CountCompaniesInCity(ctx, match.City.City.ID)
	if err != nil {
		return AddressMatch{}, eris.Wrap(err, "service: count nearby companies")
	}
	return match, nil
}
