package entity

import (
	"encoding/json"
	"time"

	"github.com/octobees/localpros/api/internal/geo"
)

// Company represents a business listed in the directory.
type Company struct {
	ID                     string          `json:"id"`
	CityID                 int64           `json:"city_id"`
	Name                   string          `json:"name"`
	Slug                   string          `json:"slug"`
	Phone                  *string         `json:"phone,omitempty"`
	Email                  *string         `json:"email,omitempty"`
	Site                   *string         `json:"site,omitempty"`
	FullAddress            *string         `json:"full_address,omitempty"`
	StreetAddress          *string         `json:"street_address,omitempty"`
	Borough                *string         `json:"borough,omitempty"`
	PostalCode             *string         `json:"postal_code,omitempty"`
	Latitude               *float64        `json:"latitude,omitempty"`
	Longitude              *float64        `json:"longitude,omitempty"`
	Timezone               string          `json:"timezone"`
	AverageRating          float64         `json:"average_rating"`
	TotalReviews           int             `json:"total_reviews"`
	VerifiedProfessional   bool            `json:"verified_professional"`
	About                  json.RawMessage `json:"about"`
	WorkingHours           json.RawMessage `json:"working_hours"`
	Subtypes               []string        `json:"subtypes"`
	LogoURL                *string         `json:"logo_url,omitempty"`
	BookingAppointmentLink *string         `json:"booking_appointment_link,omitempty"`
	LocationLink           *string         `json:"location_link,omitempty"`
	StreetViewURL          *string         `json:"street_view_url,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// Point returns the company location, or nil when coordinates are unknown.
func (c Company) Point() *geo.Point {
	return geo.PointFrom(c.Latitude, c.Longitude)
}

// CompanyListing is a company row joined with its geography, as returned by searches.
type CompanyListing struct {
	Company
	City          City     `json:"city"`
	State         State    `json:"state"`
	Country       Country  `json:"country"`
	URLPath       string   `json:"url_path"`
	DistanceMiles *float64 `json:"distance_miles,omitempty"`
	DistanceKm    *float64 `json:"distance_km,omitempty"`
}

// URLPath builds the public path /country/state/city/company.
func URLPath(countrySlug, stateSlug, citySlug, companySlug string) string {
	return "/" + countrySlug + "/" + stateSlug + "/" + citySlug + "/" + companySlug
}

// CompanyDetail is the full company profile.
type CompanyDetail struct {
	CompanyListing
	ServiceCategories []ServiceCategory `json:"service_categories"`
	ServiceAreas      []City            `json:"service_areas"`
	Certifications    []Certification   `json:"certifications"`
}
