package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/octobees/localpros/api/internal/entity"
	"github.com/octobees/localpros/api/internal/geo"
)

// LocationsRepository reads the country/state/city hierarchy.
type LocationsRepository struct {
	db Querier
}

// NewLocationsRepository wires a read repository over db.
func NewLocationsRepository(db Querier) *LocationsRepository {
	return &LocationsRepository{db: db}
}

const (
	countryColumns = "co.id, co.code, co.name, co.slug, co.created_at, co.updated_at"
	stateColumns   = "st.id, st.country_id, st.name, st.code, st.slug, st.created_at, st.updated_at"
	cityColumns    = "ci.id, ci.state_id, ci.name, ci.slug, ci.latitude, ci.longitude, ci.created_at, ci.updated_at"
)

func countryDest(c *entity.Country) []any {
	return []any{&c.ID, &c.Code, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt}
}

func stateDest(s *entity.State) []any {
	return []any{&s.ID, &s.CountryID, &s.Name, &s.Code, &s.Slug, &s.CreatedAt, &s.UpdatedAt}
}

func cityDest(c *entity.City) []any {
	return []any{&c.ID, &c.StateID, &c.Name, &c.Slug, &c.Latitude, &c.Longitude, &c.CreatedAt, &c.UpdatedAt}
}

// ListCountries returns every country ordered by name.
func (r *LocationsRepository) ListCountries(ctx context.Context) ([]entity.Country, error) {
	rows, err := r.db.Query(ctx, "SELECT "+countryColumns+" FROM countries co ORDER BY co.name")
	if err != nil {
		return nil, eris.Wrap(err, "repository: list countries")
	}
	defer rows.Close()

	countries := []entity.Country{}
	for rows.Next() {
		var c entity.Country
		if err := rows.Scan(countryDest(&c)...); err != nil {
			return nil, eris.Wrap(err, "repository: scan country")
		}
		countries = append(countries, c)
	}
	return countries, eris.Wrap(rows.Err(), "repository: iterate countries")
}

// GetCountry loads one country by id.
func (r *LocationsRepository) GetCountry(ctx context.Context, id int64) (entity.Country, error) {
	var c entity.Country
	err := r.db.QueryRow(ctx, "SELECT "+countryColumns+" FROM countries co WHERE co.id = $1", id).Scan(countryDest(&c)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, eris.Wrap(err, "repository: get country")
}

// ListStates returns the states of a country ordered by name.
func (r *LocationsRepository) ListStates(ctx context.Context, countryID int64) ([]entity.State, error) {
	rows, err := r.db.Query(ctx, "SELECT "+stateColumns+" FROM states st WHERE st.country_id = $1 ORDER BY st.name", countryID)
	if err != nil {
		return nil, eris.Wrap(err, "repository: list states")
	}
	defer rows.Close()

	states := []entity.State{}
	for rows.Next() {
		var s entity.State
		if err := rows.Scan(stateDest(&s)...); err != nil {
			return nil, eris.Wrap(err, "repository: scan state")
		}
		states = append(states, s)
	}
	return states, eris.Wrap(rows.Err(), "repository: iterate states")
}

// GetState loads one state by id.
func (r *LocationsRepository) GetState(ctx context.Context, id int64) (entity.State, error) {
	var s entity.State
	err := r.db.QueryRow(ctx, "SELECT "+stateColumns+" FROM states st WHERE st.id = $1", id).Scan(stateDest(&s)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, eris.Wrap(err, "repository: get state")
}

// FindStateBySlugOrCode matches a state slug (case-insensitive) or its code.
func (r *LocationsRepository) FindStateBySlugOrCode(ctx context.Context, value string) (entity.State, error) {
	var s entity.State
	value = strings.TrimSpace(value)
	if value == "" {
		return s, ErrNotFound
	}
	err := r.db.QueryRow(ctx,
		"SELECT "+stateColumns+" FROM states st WHERE st.slug = LOWER($1) OR UPPER(st.code) = UPPER($1) ORDER BY st.id LIMIT 1",
		value,
	).Scan(stateDest(&s)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, eris.Wrap(err, "repository: find state")
}

// ListCities returns the cities of a state ordered by name.
func (r *LocationsRepository) ListCities(ctx context.Context, stateID int64) ([]entity.City, error) {
	rows, err := r.db.Query(ctx, "SELECT "+cityColumns+" FROM cities ci WHERE ci.state_id = $1 ORDER BY ci.name", stateID)
	if err != nil {
		return nil, eris.Wrap(err, "repository: list cities")
	}
	defer rows.Close()

	cities := []entity.City{}
	for rows.Next() {
		var c entity.City
		if err := rows.Scan(cityDest(&c)...); err != nil {
			return nil, eris.Wrap(err, "repository: scan city")
		}
		cities = append(cities, c)
	}
	return cities, eris.Wrap(rows.Err(), "repository: iterate cities")
}

// GetCity loads one city by id.
func (r *LocationsRepository) GetCity(ctx context.Context, id int64) (entity.City, error) {
	var c entity.City
	err := r.db.QueryRow(ctx, "SELECT "+cityColumns+" FROM cities ci WHERE ci.id = $1", id).Scan(cityDest(&c)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, eris.Wrap(err, "repository: get city")
}

const placementFrom = ` FROM cities ci
        JOIN states st ON st.id = ci.state_id
        JOIN countries co ON co.id = st.country_id`

func scanPlacements(rows pgx.Rows) ([]entity.CityPlacement, error) {
	defer rows.Close()
	placements := []entity.CityPlacement{}
	for rows.Next() {
		var p entity.CityPlacement
		dest := append(cityDest(&p.City), stateDest(&p.State)...)
		dest = append(dest, countryDest(&p.Country)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, eris.Wrap(err, "repository: scan city placement")
		}
		placements = append(placements, p)
	}
	return placements, eris.Wrap(rows.Err(), "repository: iterate city placements")
}

// SearchCities returns up to limit cities whose name contains term.
func (r *LocationsRepository) SearchCities(ctx context.Context, term string, limit int) ([]entity.CityPlacement, error) {
	if limit <= 0 {
		return []entity.CityPlacement{}, nil
	}
	rows, err := r.db.Query(ctx,
		"SELECT "+cityColumns+", "+stateColumns+", "+countryColumns+placementFrom+
			" WHERE ci.name ILIKE $1 ORDER BY ci.name LIMIT $2",
		likeContains(term), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "repository: search cities")
	}
	return scanPlacements(rows)
}

// StateWithCountry is a state joined with its country.
type StateWithCountry struct {
	State   entity.State
	Country entity.Country
}

// SearchStates returns up to limit states whose name or code contains term.
func (r *LocationsRepository) SearchStates(ctx context.Context, term string, limit int) ([]StateWithCountry, error) {
	out := []StateWithCountry{}
	if limit <= 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx,
		"SELECT "+stateColumns+", "+countryColumns+" FROM states st JOIN countries co ON co.id = st.country_id"+
			" WHERE st.name ILIKE $1 OR st.code ILIKE $1 ORDER BY st.name LIMIT $2",
		likeContains(term), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "repository: search states")
	}
	defer rows.Close()

	for rows.Next() {
		var item StateWithCountry
		if err := rows.Scan(append(stateDest(&item.State), countryDest(&item.Country)...)...); err != nil {
			return nil, eris.Wrap(err, "repository: scan state")
		}
		out = append(out, item)
	}
	return out, eris.Wrap(rows.Err(), "repository: iterate states")
}

// SearchCountries returns up to limit countries whose name or code contains term.
func (r *LocationsRepository) SearchCountries(ctx context.Context, term string, limit int) ([]entity.Country, error) {
	out := []entity.Country{}
	if limit <= 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx,
		"SELECT "+countryColumns+" FROM countries co WHERE co.name ILIKE $1 OR co.code ILIKE $1 ORDER BY co.name LIMIT $2",
		likeContains(term), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "repository: search countries")
	}
	defer rows.Close()

	for rows.Next() {
		var c entity.Country
		if err := rows.Scan(countryDest(&c)...); err != nil {
			return nil, eris.Wrap(err, "repository: scan country")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "repository: iterate countries")
}

// CitiesInBox returns cities with coordinates inside box.
func (r *LocationsRepository) CitiesInBox(ctx context.Context, box geo.Box) ([]entity.CityPlacement, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+cityColumns+", "+stateColumns+", "+countryColumns+placementFrom+
			` WHERE ci.latitude IS NOT NULL AND ci.longitude IS NOT NULL
              AND ci.latitude BETWEEN $1 AND $2
              AND ci.longitude BETWEEN $3 AND $4`,
		box.MinLat, box.MaxLat, box.MinLng, box.MaxLng,
	)
	if err != nil {
		return nil, eris.Wrap(err, "repository: cities in box")
	}
	return scanPlacements(rows)
}

// CountCompaniesInCity counts the companies located in a city.
func (r *LocationsRepository) CountCompaniesInCity(ctx context.Context, cityID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM companies WHERE city_id = $1", cityID).Scan(&n)
	return n, eris.Wrap(err, "repository: count city companies")
}

// StateTotals counts the companies and cities of a state.
func (r *LocationsRepository) StateTotals(ctx context.Context, stateID int64) (companies, cities int, err error) {
	err = r.db.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM companies c JOIN cities ci ON ci.id = c.city_id WHERE ci.state_id = $1),
            (SELECT COUNT(*) FROM cities WHERE state_id = $1)`,
		stateID,
	).Scan(&companies, &cities)
	return companies, cities, eris.Wrap(err, "repository: state totals")
}
