package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/localpros/api/internal/entity"
	"github.com/octobees/localpros/api/internal/geocode"
	"github.com/octobees/localpros/api/internal/metrics"
	"github.com/octobees/localpros/api/internal/rowsource"
)

// ImportKind selects the row mapping of an import.
type ImportKind string

const (
	ImportCompanies ImportKind = "companies"
	ImportReviews   ImportKind = "reviews"
	ImportGalleries ImportKind = "galleries"
)

// ParseImportKind validates raw.
func ParseImportKind(raw string) (ImportKind, error) {
	switch k := ImportKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case ImportCompanies, ImportReviews, ImportGalleries:
		return k, nil
	default:
		return "", eris.Errorf("unknown import kind %q", raw)
	}
}

// ServiceName is the error-body service tag, e.g. import_companies.
func (k ImportKind) ServiceName() string {
	return "import_" + string(k)
}

// Entities lists the counters reported for k.
func (k ImportKind) Entities() []string {
	switch k {
	case ImportCompanies:
		return []string{"country", "state", "city", "company"}
	case ImportReviews:
		return []string{"review"}
	case ImportGalleries:
		return []string{"gallery"}
	default:
		return nil
	}
}

// ErrInvalidFileFormat marks uploads whose structure could not be read.
var ErrInvalidFileFormat = eris.New("invalid file format")

// FormatError carries the parser failure behind ErrInvalidFileFormat.
type FormatError struct {
	Cause error
}

func (e *FormatError) Error() string {
	return "Invalid CSV format: " + e.Cause.Error()
}

// Is matches ErrInvalidFileFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidFileFormat
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}

// ImportError is the error body attached to a failed row.
type ImportError struct {
	Code    string `json:"code"`
	Service string `json:"service"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// RowError reports one rejected row. Row is the 1-based data row index.
type RowError struct {
	Row         int         `json:"row"`
	PlaceID     string      `json:"place_id"`
	CompanyName string      `json:"company_name"`
	Error       ImportError `json:"error"`
}

// ImportSummary counts the outcome of an import.
type ImportSummary struct {
	TotalRows  int            `json:"total_rows"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Created    map[string]int `json:"created"`
	Updated    map[string]int `json:"updated"`
}

// ImportResult is returned for every import that could read its file.
type ImportResult struct {
	Message string        `json:"message"`
	Summary ImportSummary `json:"summary"`
	Errors  []RowError    `json:"errors"`
}

// Outcome message, as shown to backoffice operators.
func importMessage(s ImportSummary) string {
	if s.Successful > 0 {
		return fmt.Sprintf("Import completed successfully. %d out of %d rows processed successfully.", s.Successful, s.TotalRows)
	}
	return fmt.Sprintf("Import completed with errors. 0 out of %d rows processed successfully. Please check the error file for details.", s.TotalRows)
}

// rowInvalid is a row rejection with an operator-facing message.
type rowInvalid string

func (e rowInvalid) Error() string { return string(e) }

func invalidf(format string, args ...any) error {
	return rowInvalid(fmt.Sprintf(format, args...))
}

// Importer reconciles tabular rows into the directory, one transaction per row.
type Importer struct {
	rows     RowRunner
	geocoder geocode.Client
	contacts *ContactNormalizer
	metrics  *metrics.AppMetrics
}

// NewImporter wires an importer. geocoder may be nil, in which case companies without
// coordinates stay without them.
func NewImporter(rows RowRunner, geocoder geocode.Client, contacts *ContactNormalizer, m *metrics.AppMetrics) *Importer {
	if contacts == nil {
		contacts = NewContactNormalizer("")
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Importer{rows: rows, geocoder: geocoder, contacts: contacts, metrics: m}
}

// ImportFile opens r in format and imports it.
func (im *Importer) ImportFile(ctx context.Context, kind ImportKind, format rowsource.Format, r io.Reader, onRow func(row int)) (ImportResult, error) {
	src, err := rowsource.Open(format, r)
	if err != nil {
		if errors.Is(err, rowsource.ErrMalformed) {
			return ImportResult{}, &FormatError{Cause: err}
		}
		return ImportResult{}, eris.Wrap(err, "service: open import file")
	}
	return im.Import(ctx, kind, src, onRow)
}

// rowOutcome collects what a row did; it is applied only once the row committed.
type rowOutcome struct {
	created []string
	updated []string
	memo    map[string]any
}

func (o *rowOutcome) count(entityName string, created bool) {
	if created {
		o.created = append(o.created, entityName)
	} else {
		o.updated = append(o.updated, entityName)
	}
}

func (o *rowOutcome) remember(key string, value any) {
	if o.memo == nil {
		o.memo = make(map[string]any)
	}
	o.memo[key] = value
}

// Import processes src in file order. A row failure is recorded and never aborts the
// batch; a malformed source fails the whole import with ErrInvalidFileFormat.
func (im *Importer) Import(ctx context.Context, kind ImportKind, src rowsource.Source, onRow func(row int)) (ImportResult, error) {
	if kind.Entities() == nil {
		return ImportResult{}, eris.Errorf("service: unknown import kind %q", kind)
	}

	summary := ImportSummary{Created: map[string]int{}, Updated: map[string]int{}}
	for _, name := range kind.Entities() {
		summary.Created[name] = 0
		summary.Updated[name] = 0
	}
	errs := make([]RowError, 0)
	// lookups resolved by committed rows; scoped to this invocation
	memo := cache.New(cache.NoExpiration, 0)

	for rowNum := 1; ; rowNum++ {
		if err := ctx.Err(); err != nil {
			return ImportResult{}, eris.Wrap(err, "service: import cancelled")
		}
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ImportResult{}, &FormatError{Cause: err}
		}
		summary.TotalRows++

		out, err := im.processRow(ctx, kind, row, rowNum, memo)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ImportResult{}, eris.Wrap(ctxErr, "service: import cancelled")
			}
			summary.Failed++
			errs = append(errs, im.rowError(kind, rowNum, row, err))
			im.metrics.ImportRowsTotal.WithLabelValues(string(kind), "failed").Inc()
		} else {
			summary.Successful++
			for _, name := range out.created {
				summary.Created[name]++
			}
			for _, name := range out.updated {
				summary.Updated[name]++
			}
			for key, value := range out.memo {
				memo.Set(key, value, cache.NoExpiration)
			}
			im.metrics.ImportRowsTotal.WithLabelValues(string(kind), "success").Inc()
		}
		if onRow != nil {
			onRow(rowNum)
		}
	}

	result := ImportResult{Message: importMessage(summary), Summary: summary, Errors: errs}
	zap.L().Info("import finished",
		zap.String("kind", string(kind)),
		zap.Int("total", summary.TotalRows),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed),
	)
	return result, nil
}

func (im *Importer) rowError(kind ImportKind, rowNum int, row rowsource.Row, err error) RowError {
	var invalid rowInvalid
	message := err.Error()
	if errors.As(err, &invalid) {
		message = string(invalid)
	}
	zap.L().Debug("import row rejected",
		zap.String("kind", string(kind)),
		zap.Int("row", rowNum),
		zap.String("place_id", row.Get("place_id")),
		zap.Error(err),
	)
	return RowError{
		Row:         rowNum,
		PlaceID:     row.Get("place_id"),
		CompanyName: row.Get("name"),
		Error: ImportError{
			Code:    "VALIDATION_ERROR",
			Service: kind.ServiceName(),
			Title:   "Import Error",
			Message: message,
		},
	}
}

func (im *Importer) processRow(ctx context.Context, kind ImportKind, row rowsource.Row, rowNum int, memo *cache.Cache) (*rowOutcome, error) {
	switch kind {
	case ImportCompanies:
		return im.importCompany(ctx, row, rowNum, memo)
	case ImportReviews:
		return im.importReview(ctx, row, memo)
	default:
		return im.importGallery(ctx, row, memo)
	}
}

func missingFields(row rowsource.Row, keys ...string) error {
	var missing []string
	for _, key := range keys {
		if row.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return invalidf("Missing required fields: %s", strings.Join(missing, ", "))
}

func isLetters(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func (im *Importer) importCompany(ctx context.Context, row rowsource.Row, rowNum int, memo *cache.Cache) (*rowOutcome, error) {
	if err := missingFields(row, "place_id", "name", "country_code", "country", "state", "city"); err != nil {
		return nil, err
	}
	countryCode := strings.ToUpper(row.Get("country_code"))
	if len(countryCode) != 2 || !isLetters(countryCode) {
		return nil, invalidf("Invalid country code: %s. Expected a 2-letter code", row.Get("country_code"))
	}

	company := im.mapCompany(row, rowNum, countryCode)
	im.geocodeCompany(ctx, company)
	categories := company.Subtypes

	out := &rowOutcome{}
	err := im.rows.RunRow(ctx, func(store ImportStore) error {
		*out = rowOutcome{}

		// keyed by code alone; a renamed country still goes through ResolveCountry
		countryKey := "country:" + countryCode
		country, ok := memoGet[entity.Country](memo, countryKey)
		if !ok || country.Name != row.Get("country") {
			c, created, err := store.ResolveCountry(ctx, countryCode, row.Get("country"))
			if err != nil {
				return err
			}
			country = c
			out.count("country", created)
			out.remember(countryKey, c)
		}

		stateKey := fmt.Sprintf("state:%d:%s", country.ID, strings.ToLower(row.Get("state")))
		state, ok := memoGet[entity.State](memo, stateKey)
		if !ok {
			st, created, err := store.ResolveState(ctx, row.Get("state"), country.ID)
			if err != nil {
				return err
			}
			state = st
			out.count("state", created)
			out.remember(stateKey, st)
		}

		cityKey := fmt.Sprintf("city:%d:%s", state.ID, strings.ToLower(row.Get("city")))
		city, ok := memoGet[entity.City](memo, cityKey)
		if !ok {
			ci, created, err := store.ResolveCity(ctx, row.Get("city"), state.ID)
			if err != nil {
				return err
			}
			city = ci
			out.count("city", created)
			out.remember(cityKey, ci)
		}

		company.CityID = city.ID
		created, err := store.ResolveCompanyByExternalID(ctx, company)
		if err != nil {
			return err
		}
		out.count("company", created)
		out.remember("company:"+company.ID, true)

		return store.LinkServiceCategories(ctx, company.ID, categories)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func memoGet[T any](memo *cache.Cache, key string) (T, bool) {
	var zero T
	v, ok := memo.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

func (im *Importer) floatColumn(row rowsource.Row, rowNum int, column string) *float64 {
	value, ok := coerceFloat(row.Get(column))
	if !ok {
		zap.L().Warn("import: non-numeric value read as 0",
			zap.Int("row", rowNum),
			zap.String("column", column),
			zap.String("value", row.Get(column)),
		)
	}
	return value
}

func (im *Importer) mapCompany(row rowsource.Row, rowNum int, countryCode string) *entity.Company {
	c := &entity.Company{
		ID:                     row.Get("place_id"),
		Name:                   row.Get("name"),
		Phone:                  im.contacts.Phone(row.Get("phone"), countryCode),
		Site:                   im.contacts.Site(row.Get("site")),
		FullAddress:            optionalString(row.Get("full_address")),
		StreetAddress:          optionalString(row.Get("street")),
		Borough:                optionalString(row.Get("borough")),
		PostalCode:             optionalString(row.Get("postal_code")),
		Latitude:               im.floatColumn(row, rowNum, "latitude"),
		Longitude:              im.floatColumn(row, rowNum, "longitude"),
		Timezone:               row.Get("time_zone"),
		TotalReviews:           leadingInt(row.Get("reviews")),
		VerifiedProfessional:   coerceBool(row.Get("verified")),
		About:                  coerceJSONObject(row.Get("about")),
		WorkingHours:           coerceJSONObject(row.Get("working_hours")),
		Subtypes:               coerceArray(row.Get("subtypes")),
		LogoURL:                optionalString(row.Get("logo")),
		BookingAppointmentLink: optionalString(row.Get("booking_appointment_link")),
		LocationLink:           optionalString(row.Get("location_link")),
		StreetViewURL:          optionalString(row.Get("street_view")),
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if rating := im.floatColumn(row, rowNum, "rating"); rating != nil {
		c.AverageRating = *rating
	}
	return c
}

// geocodeCompany fills missing coordinates from the full address. Failures leave them empty.
func (im *Importer) geocodeCompany(ctx context.Context, c *entity.Company) {
	if im.geocoder == nil || c.FullAddress == nil || (c.Latitude != nil && c.Longitude != nil) {
		return
	}
	res, err := im.geocoder.Geocode(ctx, *c.FullAddress)
	if err != nil {
		im.metrics.GeocodeRequests.WithLabelValues("failed").Inc()
		zap.L().Warn("import: geocode company address", zap.String("place_id", c.ID), zap.Error(err))
		return
	}
	im.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	lat, lng := res.Latitude, res.Longitude
	c.Latitude, c.Longitude = &lat, &lng
}

func companyExists(ctx context.Context, store ImportStore, memo *cache.Cache, out *rowOutcome, placeID string) error {
	key := "company:" + placeID
	if _, ok := memo.Get(key); ok {
		return nil
	}
	exists, err := store.CompanyExists(ctx, placeID)
	if err != nil {
		return err
	}
	if !exists {
		return invalidf("Company with place_id '%s' not found", placeID)
	}
	out.remember(key, true)
	return nil
}

func (im *Importer) importReview(ctx context.Context, row rowsource.Row, memo *cache.Cache) (*rowOutcome, error) {
	if err := missingFields(row, "place_id"); err != nil {
		return nil, err
	}
	placeID := row.Get("place_id")
	rating := leadingInt(row.Get("review_rating"))
	if rating < entity.MinReviewRating || rating > entity.MaxReviewRating {
		return nil, invalidf("Invalid rating value. Expected 1-5, got: %d", rating)
	}

	link := row.Get("review_link")
	if link == "" {
		link = placeID + "_" + row.Get("review_datetime_utc") + "_" + row.Get("author_title")
	}
	review := &entity.Review{
		CompanyID:                       placeID,
		ReviewLink:                      link,
		AuthorTitle:                     optionalString(row.Get("author_title")),
		AuthorImage:                     optionalString(row.Get("author_image")),
		ReviewText:                      optionalString(row.Get("review_text")),
		ReviewImgURLs:                   coerceArray(row.Get("review_img_urls")),
		OwnerAnswer:                     optionalString(row.Get("owner_answer")),
		OwnerAnswerTimestampDatetimeUTC: coerceDatetime(row.Get("owner_answer_timestamp_datetime_utc")),
		ReviewRating:                    rating,
		ReviewDatetimeUTC:               coerceDatetime(row.Get("review_datetime_utc")),
	}

	out := &rowOutcome{}
	err := im.rows.RunRow(ctx, func(store ImportStore) error {
		*out = rowOutcome{}
		if err := companyExists(ctx, store, memo, out, placeID); err != nil {
			return err
		}
		created, err := store.UpsertReview(ctx, review)
		if err != nil {
			return err
		}
		out.count("review", created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

const (
	galleryPhotoURL  = "google_maps_photos.photo_url"
	galleryVideoURL  = "google_maps_photos.photo_source_video"
	galleryPhotoDate = "google_maps_photos.photo_date"
	galleryImageType = "image_type"
)

func (im *Importer) importGallery(ctx context.Context, row rowsource.Row, memo *cache.Cache) (*rowOutcome, error) {
	if err := missingFields(row, "place_id", galleryPhotoURL); err != nil {
		return nil, err
	}
	imageType := optionalString(strings.ToLower(row.Get(galleryImageType)))
	if imageType != nil && !entity.ValidImageType(*imageType) {
		return nil, invalidf("Image type is not included in the list")
	}

	placeID := row.Get("place_id")
	image := &entity.GalleryImage{
		CompanyID:        placeID,
		ImageURL:         row.Get(galleryPhotoURL),
		ThumbnailURL:     optionalString(row.Get(galleryPhotoURL)),
		VideoURL:         optionalString(row.Get(galleryVideoURL)),
		ImageDatetimeUTC: coerceDatetime(row.Get(galleryPhotoDate)),
		ImageType:        imageType,
	}

	out := &rowOutcome{}
	err := im.rows.RunRow(ctx, func(store ImportStore) error {
		*out = rowOutcome{}
		if err := companyExists(ctx, store, memo, out, placeID); err != nil {
			return err
		}
		created, err := store.UpsertGallery(ctx, image)
		if err != nil {
			return err
		}
		out.count("gallery", created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
