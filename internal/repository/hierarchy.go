package repository

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/octobees/localpros/api/internal/entity"
	"github.com/octobees/localpros/api/internal/slug"
)

// HierarchyStore resolves the country -> state -> city -> company chain, creating
// missing levels. Bind it to a transaction to keep a row's writes atomic.
type HierarchyStore struct {
	db Querier
}

// NewHierarchyStore binds a store to db (a pool or a transaction).
func NewHierarchyStore(db Querier) *HierarchyStore {
	return &HierarchyStore{db: db}
}

const (
	selectCountryByCode = `SELECT id, code, name, slug, created_at, updated_at FROM countries WHERE code = $1`
	updateCountryName   = `UPDATE countries SET name = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`
	insertCountry       = `INSERT INTO countries (code, name, slug) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`

	selectStateByName = `SELECT id, country_id, name, code, slug, created_at, updated_at FROM states
        WHERE country_id = $1 AND LOWER(name) = LOWER($2)`
	insertState = `INSERT INTO states (country_id, name, code, slug) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`

	selectCityByName = `SELECT id, state_id, name, slug, latitude, longitude, created_at, updated_at FROM cities
        WHERE state_id = $1 AND LOWER(name) = LOWER($2)`
	insertCity = `INSERT INTO cities (state_id, name, slug) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
)

// ResolveCountry finds a country by code, renaming it when name changed, or creates it.
func (s *HierarchyStore) ResolveCountry(ctx context.Context, code, name string) (entity.Country, bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return entity.Country{}, false, eris.Wrap(ErrBlankInput, "country code and name")
	}

	var c entity.Country
	err := s.db.QueryRow(ctx, selectCountryByCode, code).Scan(&c.ID, &c.Code, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
	switch {
	case err == nil:
		if c.Name != name {
			if err := s.db.QueryRow(ctx, updateCountryName, c.ID, name).Scan(&c.UpdatedAt); err != nil {
				return entity.Country{}, false, translateWriteError(err, "repository: rename country")
			}
			c.Name = name
		}
		return c, false, nil
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return entity.Country{}, false, eris.Wrap(err, "repository: find country")
	}

	c = entity.Country{Code: code, Name: name, Slug: slug.Make(name)}
	if err := s.db.QueryRow(ctx, insertCountry, c.Code, c.Name, c.Slug).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return entity.Country{}, false, translateWriteError(err, "repository: create country")
	}
	return c, true, nil
}

// StateCode derives a state code from its name: the first two letters, upper-cased.
// Different names sharing a prefix (Alabama, Alaska) produce the same code.
func StateCode(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= 2 {
		return strings.ToUpper(name)
	}
	runes := []rune(name)
	return strings.ToUpper(string(runes[:2]))
}

// ResolveState finds a state by name within countryID or creates it.
func (s *HierarchyStore) ResolveState(ctx context.Context, name string, countryID int64) (entity.State, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" || countryID == 0 {
		return entity.State{}, false, eris.Wrap(ErrBlankInput, "state name")
	}

	var st entity.State
	err := s.db.QueryRow(ctx, selectStateByName, countryID, name).
		Scan(&st.ID, &st.CountryID, &st.Name, &st.Code, &st.Slug, &st.CreatedAt, &st.UpdatedAt)
	switch {
	case err == nil:
		return st, false, nil
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return entity.State{}, false, eris.Wrap(err, "repository: find state")
	}

	st = entity.State{CountryID: countryID, Name: name, Code: StateCode(name), Slug: slug.Make(name)}
	if err := s.db.QueryRow(ctx, insertState, st.CountryID, st.Name, st.Code, st.Slug).Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return entity.State{}, false, translateWriteError(err, "repository: create state")
	}
	return st, true, nil
}

// ResolveCity finds a city by name within stateID or creates it.
func (s *HierarchyStore) ResolveCity(ctx context.Context, name string, stateID int64) (entity.City, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" || stateID == 0 {
		return entity.City{}, false, eris.Wrap(ErrBlankInput, "city name")
	}

	var ci entity.City
	err := s.db.QueryRow(ctx, selectCityByName, stateID, name).
		Scan(&ci.ID, &ci.StateID, &ci.Name, &ci.Slug, &ci.Latitude, &ci.Longitude, &ci.CreatedAt, &ci.UpdatedAt)
	switch {
	case err == nil:
		return ci, false, nil
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return entity.City{}, false, eris.Wrap(err, "repository: find city")
	}

	ci = entity.City{StateID: stateID, Name: name, Slug: slug.Make(name)}
	if err := s.db.QueryRow(ctx, insertCity, ci.StateID, ci.Name, ci.Slug).Scan(&ci.ID, &ci.CreatedAt, &ci.UpdatedAt); err != nil {
		return entity.City{}, false, translateWriteError(err, "repository: create city")
	}
	return ci, true, nil
}

const upsertCompanySQL = `
        INSERT INTO companies (
            id, city_id, name, slug, phone, email, site, full_address, street_address, borough, postal_code,
            latitude, longitude, timezone, average_rating, total_reviews, verified_professional,
            about, working_hours, subtypes, logo_url, booking_appointment_link, location_link, street_view_url,
            updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
            $12, $13, $14, $15, $16, $17,
            $18::jsonb, $19::jsonb, $20, $21, $22, $23, $24,
            NOW()
        )
        ON CONFLICT (id) DO UPDATE SET
            city_id = EXCLUDED.city_id,
            name = EXCLUDED.name,
            phone = EXCLUDED.phone,
            email = EXCLUDED.email,
            site = EXCLUDED.site,
            full_address = EXCLUDED.full_address,
            street_address = EXCLUDED.street_address,
            borough = EXCLUDED.borough,
            postal_code = EXCLUDED.postal_code,
            latitude = EXCLUDED.latitude,
            longitude = EXCLUDED.longitude,
            timezone = EXCLUDED.timezone,
            average_rating = CASE WHEN EXISTS (SELECT 1 FROM reviews WHERE company_id = EXCLUDED.id)
                THEN companies.average_rating ELSE EXCLUDED.average_rating END,
            total_reviews = CASE WHEN EXISTS (SELECT 1 FROM reviews WHERE company_id = EXCLUDED.id)
                THEN companies.total_reviews ELSE EXCLUDED.total_reviews END,
            verified_professional = EXCLUDED.verified_professional,
            about = EXCLUDED.about,
            working_hours = EXCLUDED.working_hours,
            subtypes = EXCLUDED.subtypes,
            logo_url = EXCLUDED.logo_url,
            booking_appointment_link = EXCLUDED.booking_appointment_link,
            location_link = EXCLUDED.location_link,
            street_view_url = EXCLUDED.street_view_url,
            updated_at = NOW()
        RETURNING slug, created_at, updated_at, (xmax = 0) AS inserted
    `

// ResolveCompanyByExternalID upserts company keyed by its external identifier, overwriting
// every mapped attribute. An existing company keeps its slug, and keeps its rating aggregates
// once it has reviews. Reports whether a row was created.
func (s *HierarchyStore) ResolveCompanyByExternalID(ctx context.Context, company *entity.Company) (bool, error) {
	if company == nil {
		return false, eris.New("repository: company payload is nil")
	}
	company.ID = strings.TrimSpace(company.ID)
	company.Name = strings.TrimSpace(company.Name)
	if company.ID == "" || company.Name == "" || company.CityID == 0 {
		return false, eris.Wrap(ErrBlankInput, "company id, name and city")
	}
	if company.Slug == "" {
		company.Slug = slug.Make(company.Name)
	}
	if company.Timezone == "" {
		company.Timezone = "UTC"
	}
	if len(company.About) == 0 {
		company.About = []byte("{}")
	}
	if len(company.WorkingHours) == 0 {
		company.WorkingHours = []byte("{}")
	}
	if company.Subtypes == nil {
		company.Subtypes = []string{}
	}

	var inserted bool
	err := s.db.QueryRow(ctx, upsertCompanySQL,
		company.ID,
		company.CityID,
		company.Name,
		company.Slug,
		stringOrNil(company.Phone),
		stringOrNil(company.Email),
		stringOrNil(company.Site),
		stringOrNil(company.FullAddress),
		stringOrNil(company.StreetAddress),
		stringOrNil(company.Borough),
		stringOrNil(company.PostalCode),
		floatOrNil(company.Latitude),
		floatOrNil(company.Longitude),
		company.Timezone,
		company.AverageRating,
		company.TotalReviews,
		company.VerifiedProfessional,
		string(company.About),
		string(company.WorkingHours),
		company.Subtypes,
		stringOrNil(company.LogoURL),
		stringOrNil(company.BookingAppointmentLink),
		stringOrNil(company.LocationLink),
		stringOrNil(company.StreetViewURL),
	).Scan(&company.Slug, &company.CreatedAt, &company.UpdatedAt, &inserted)
	if err != nil {
		return false, translateWriteError(err, "repository: upsert company")
	}
	return inserted, nil
}

const (
	upsertCategorySQL = `
        INSERT INTO service_categories (name, slug) VALUES ($1, $2)
        ON CONFLICT (slug) DO UPDATE SET updated_at = service_categories.updated_at
        RETURNING id`
	linkCategorySQL = `
        INSERT INTO company_services (company_id, service_category_id) VALUES ($1, $2)
        ON CONFLICT (company_id, service_category_id) DO NOTHING`
)

// LinkServiceCategories find-or-creates a category per name and links it to companyID.
func (s *HierarchyStore) LinkServiceCategories(ctx context.Context, companyID string, names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := slug.Make(name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		var categoryID int64
		if err := s.db.QueryRow(ctx, upsertCategorySQL, name, key).Scan(&categoryID); err != nil {
			return translateWriteError(err, "repository: upsert service category")
		}
		if _, err := s.db.Exec(ctx, linkCategorySQL, companyID, categoryID); err != nil {
			return translateWriteError(err, "repository: link service category")
		}
	}
	return nil
}
