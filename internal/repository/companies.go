package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/octobees/localpros/api/internal/dto"
	"github.com/octobees/localpros/api/internal/entity"
	"github.com/octobees/localpros/api/internal/geo"
)

// CompaniesRepository reads companies and their related records.
type CompaniesRepository struct {
	db Querier
}

// NewCompaniesRepository wires a repository over db.
func NewCompaniesRepository(db Querier) *CompaniesRepository {
	return &CompaniesRepository{db: db}
}

var companyColumns = []string{
	"c.id", "c.city_id", "c.name", "c.slug", "c.phone", "c.email", "c.site", "c.full_address",
	"c.street_address", "c.borough", "c.postal_code", "c.latitude", "c.longitude", "c.timezone",
	"c.average_rating", "c.total_reviews", "c.verified_professional", "c.about", "c.working_hours",
	"c.subtypes", "c.logo_url", "c.booking_appointment_link", "c.location_link", "c.street_view_url",
	"c.created_at", "c.updated_at",
}

func companyDest(c *entity.Company) []any {
	return []any{
		&c.ID, &c.CityID, &c.Name, &c.Slug, &c.Phone, &c.Email, &c.Site, &c.FullAddress,
		&c.StreetAddress, &c.Borough, &c.PostalCode, &c.Latitude, &c.Longitude, &c.Timezone,
		&c.AverageRating, &c.TotalReviews, &c.VerifiedProfessional, &c.About, &c.WorkingHours,
		&c.Subtypes, &c.LogoURL, &c.BookingAppointmentLink, &c.LocationLink, &c.StreetViewURL,
		&c.CreatedAt, &c.UpdatedAt,
	}
}

func listingDest(l *entity.CompanyListing) []any {
	dest := companyDest(&l.Company)
	dest = append(dest, cityDest(&l.City)...)
	dest = append(dest, stateDest(&l.State)...)
	return append(dest, countryDest(&l.Country)...)
}

func listingColumns() []string {
	cols := append([]string{}, companyColumns...)
	cols = append(cols, strings.Split(cityColumns, ", ")...)
	cols = append(cols, strings.Split(stateColumns, ", ")...)
	return append(cols, strings.Split(countryColumns, ", ")...)
}

// distanceSQL is the haversine great-circle distance from (?, ?) to the company, in units of
// earthRadius. It takes the centre latitude twice followed by the centre longitude.
func distanceSQL(earthRadius float64) string {
	return fmt.Sprintf("(2 * %g * ASIN(LEAST(1, SQRT("+
		"POWER(SIN(RADIANS(c.latitude - ?) / 2), 2) + "+
		"COS(RADIANS(?)) * COS(RADIANS(c.latitude)) * POWER(SIN(RADIANS(c.longitude - ?) / 2), 2)))))",
		earthRadius)
}

// BuildCompanySearch composes the filtered and sorted company query for f. Criteria are ANDed.
func BuildCompanySearch(f dto.CompanyFilter) sq.SelectBuilder {
	q := psql.Select(listingColumns()...).
		From("companies c").
		Join("cities ci ON ci.id = c.city_id").
		Join("states st ON st.id = ci.state_id").
		Join("countries co ON co.id = st.country_id")

	if city := strings.TrimSpace(f.City); city != "" {
		lowered := strings.ToLower(city)
		q = q.Where(sq.Or{
			sq.Eq{"ci.slug": lowered},
			sq.ILike{"ci.slug": likeContains(lowered)},
			sq.ILike{"ci.name": likeContains(city)},
		})
	}
	if state := strings.TrimSpace(f.State); state != "" {
		q = q.Where(sq.Or{
			sq.Eq{"st.slug": strings.ToLower(state)},
			sq.Eq{"UPPER(st.code)": strings.ToUpper(state)},
			sq.Eq{"LOWER(st.name)": strings.ToLower(state)},
		})
	}
	if country := strings.TrimSpace(f.Country); country != "" {
		q = q.Where(sq.Or{
			sq.Eq{"co.slug": strings.ToLower(country)},
			sq.Eq{"UPPER(co.code)": strings.ToUpper(country)},
			sq.Eq{"LOWER(co.name)": strings.ToLower(country)},
		})
	}
	if f.StateID != nil {
		q = q.Where(sq.Eq{"st.id": *f.StateID})
	}
	if f.CityID != nil {
		q = q.Where(sq.Eq{"ci.id": *f.CityID})
	}
	if category := strings.TrimSpace(f.ServiceCategory); category != "" {
		q = q.Where(sq.Expr(`EXISTS (
            SELECT 1 FROM company_services cs
            JOIN service_categories sc ON sc.id = cs.service_category_id
            WHERE cs.company_id = c.id AND (sc.slug = ? OR LOWER(sc.name) = ?))`,
			strings.ToLower(category), strings.ToLower(category)))
	}
	if f.VerifiedOnly {
		q = q.Where(sq.Eq{"c.verified_professional": true})
	}
	if f.MinRating != nil {
		switch minRating := *f.MinRating; {
		case minRating > 5:
			q = q.Where(sq.Expr("FALSE"))
		case minRating > 0:
			q = q.Where(sq.GtOrEq{"c.average_rating": minRating})
		}
	}

	var distance string
	var center geo.Point
	if p := f.Proximity; p != nil {
		center = p.Center
		distance = distanceSQL(geo.EarthRadius(p.Unit))
		q = q.Where("c.latitude IS NOT NULL AND c.longitude IS NOT NULL").
			Where(sq.Expr(distance+" <= ?", center.Lat, center.Lat, center.Lng, p.Radius))
	}

	dir := "ASC"
	if f.Sort.Descending {
		dir = "DESC"
	}
	switch {
	case f.Sort.Key == dto.SortByRating:
		q = q.OrderBy("c.average_rating "+dir, "c.name ASC")
	case f.Sort.Key == dto.SortByDistance && distance != "":
		q = q.OrderByClause(distance+" "+dir, center.Lat, center.Lat, center.Lng).OrderBy("c.name ASC")
	case f.Sort.Key == dto.SortByName:
		q = q.OrderBy("c.name " + dir)
	default:
		// distance without a proximity filter
		q = q.OrderBy("c.name ASC")
	}
	return q.OrderBy("c.id ASC")
}

// Search runs the query built for f and returns one page of listings with the total match count.
func (r *CompaniesRepository) Search(ctx context.Context, f dto.CompanyFilter, page dto.PageRequest) ([]entity.CompanyListing, int, error) {
	base := BuildCompanySearch(f)

	countSQL, countArgs, err := psql.Select("COUNT(*)").FromSelect(base, "matched").ToSql()
	if err != nil {
		return nil, 0, eris.Wrap(err, "repository: build company count")
	}
	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "repository: count companies")
	}
	if total == 0 {
		return []entity.CompanyListing{}, 0, nil
	}

	pageSQL, pageArgs, err := base.Limit(uint64(page.PerPage)).Offset(uint64(page.Offset())).ToSql()
	if err != nil {
		return nil, 0, eris.Wrap(err, "repository: build company search")
	}
	rows, err := r.db.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "repository: search companies")
	}
	listings, err := scanListings(rows)
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func scanListings(rows pgx.Rows) ([]entity.CompanyListing, error) {
	defer rows.Close()
	listings := []entity.CompanyListing{}
	for rows.Next() {
		var l entity.CompanyListing
		if err := rows.Scan(listingDest(&l)...); err != nil {
			return nil, eris.Wrap(err, "repository: scan company")
		}
		l.URLPath = entity.URLPath(l.Country.Slug, l.State.Slug, l.City.Slug, l.Slug)
		listings = append(listings, l)
	}
	return listings, eris.Wrap(rows.Err(), "repository: iterate companies")
}

// GetListing loads one company with its geography.
func (r *CompaniesRepository) GetListing(ctx context.Context, id string) (entity.CompanyListing, error) {
	query, args, err := BuildCompanySearch(dto.CompanyFilter{}).Where(sq.Eq{"c.id": id}).ToSql()
	if err != nil {
		return entity.CompanyListing{}, eris.Wrap(err, "repository: build company lookup")
	}
	var l entity.CompanyListing
	err = r.db.QueryRow(ctx, query, args...).Scan(listingDest(&l)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return l, ErrNotFound
	}
	if err != nil {
		return l, eris.Wrap(err, "repository: get company")
	}
	l.URLPath = entity.URLPath(l.Country.Slug, l.State.Slug, l.City.Slug, l.Slug)
	return l, nil
}

// Exists reports whether a company with id is stored.
func (r *CompaniesRepository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1)", id).Scan(&ok)
	return ok, eris.Wrap(err, "repository: company exists")
}

// GetName returns the company name, or ErrNotFound.
func (r *CompaniesRepository) GetName(ctx context.Context, id string) (string, error) {
	var name string
	err := r.db.QueryRow(ctx, "SELECT name FROM companies WHERE id = $1", id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return name, eris.Wrap(err, "repository: company name")
}

// ListCertifications returns the certifications held by a company.
func (r *CompaniesRepository) ListCertifications(ctx context.Context, companyID string) ([]entity.Certification, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, company_id, certification_name, issuing_organization, issue_date, expiry_date,
               certificate_number, certificate_url
        FROM certifications WHERE company_id = $1 ORDER BY certification_name, id`, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "repository: list certifications")
	}
	defer rows.Close()

	certs := []entity.Certification{}
	for rows.Next() {
		var c entity.Certification
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.CertificationName, &c.IssuingOrganization,
			&c.IssueDate, &c.ExpiryDate, &c.CertificateNumber, &c.CertificateURL); err != nil {
			return nil, eris.Wrap(err, "repository: scan certification")
		}
		certs = append(certs, c)
	}
	return certs, eris.Wrap(rows.Err(), "repository: iterate certifications")
}

// ListServiceCategories returns the categories linked to a company.
func (r *CompaniesRepository) ListServiceCategories(ctx context.Context, companyID string) ([]entity.ServiceCategory, error) {
	rows, err := r.db.Query(ctx, `
        SELECT sc.id, sc.name, sc.slug, sc.description
        FROM service_categories sc
        JOIN company_services cs ON cs.service_category_id = sc.id
        WHERE cs.company_id = $1 ORDER BY sc.name`, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "repository: list company categories")
	}
	return scanCategories(rows)
}

// ListAllServiceCategories returns the category catalogue ordered by name.
func (r *CompaniesRepository) ListAllServiceCategories(ctx context.Context) ([]entity.ServiceCategory, error) {
	rows, err := r.db.Query(ctx, "SELECT id, name, slug, description FROM service_categories ORDER BY name")
	if err != nil {
		return nil, eris.Wrap(err, "repository: list service categories")
	}
	return scanCategories(rows)
}

func scanCategories(rows pgx.Rows) ([]entity.ServiceCategory, error) {
	defer rows.Close()
	categories := []entity.ServiceCategory{}
	for rows.Next() {
		var sc entity.ServiceCategory
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.Slug, &sc.Description); err != nil {
			return nil, eris.Wrap(err, "repository: scan service category")
		}
		categories = append(categories, sc)
	}
	return categories, eris.Wrap(rows.Err(), "repository: iterate service categories")
}

// ListServiceAreas returns the cities a company covers.
func (r *CompaniesRepository) ListServiceAreas(ctx context.Context, companyID string) ([]entity.City, error) {
	rows, err := r.db.Query(ctx, "SELECT "+cityColumns+` FROM cities ci
        JOIN company_service_areas csa ON csa.city_id = ci.id
        WHERE csa.company_id = $1 ORDER BY ci.name`, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "repository: list service areas")
	}
	defer rows.Close()

	cities := []entity.City{}
	for rows.Next() {
		var c entity.City
		if err := rows.Scan(cityDest(&c)...); err != nil {
			return nil, eris.Wrap(err, "repository: scan service area")
		}
		cities = append(cities, c)
	}
	return cities, eris.Wrap(rows.Err(), "repository: iterate service areas")
}
