package dto

import (
	"strings"

	"github.com/octobees/localpros/api/internal/geo"
)

// DefaultRadius applies when a proximity search omits the radius.
const DefaultRadius = 25.0

// SortKey enumerates the sortable company attributes.
type SortKey int

const (
	SortByName SortKey = iota
	SortByRating
	SortByDistance
)

func (k SortKey) String() string {
	switch k {
	case SortByRating:
		return "rating"
	case SortByDistance:
		return "distance"
	default:
		return "name"
	}
}

// Sort is a sort key with direction.
type Sort struct {
	Key        SortKey
	Descending bool
}

// ParseSort reads "name", "-rating", "distance"... A leading '-' means descending.
// Unrecognized keys yield name ascending.
func ParseSort(raw string) Sort {
	raw = strings.TrimSpace(raw)
	desc := strings.HasPrefix(raw, "-")
	switch strings.ToLower(strings.TrimPrefix(raw, "-")) {
	case "name":
		return Sort{Key: SortByName, Descending: desc}
	case "rating":
		return Sort{Key: SortByRating, Descending: desc}
	case "distance":
		return Sort{Key: SortByDistance, Descending: desc}
	default:
		return Sort{Key: SortByName}
	}
}

func (s Sort) String() string {
	if s.Descending {
		return "-" + s.Key.String()
	}
	return s.Key.String()
}

// Proximity restricts results to a radius around Center.
type Proximity struct {
	Center geo.Point
	Radius float64
	Unit   geo.Unit
}

// RadiusMiles converts the radius to miles.
func (p Proximity) RadiusMiles() float64 {
	if p.Unit == geo.Kilometers {
		return p.Radius * geo.MilesPerKm
	}
	return p.Radius
}

// CompanyFilter holds the conjunctive filters handed to the query builder.
type CompanyFilter struct {
	City            string
	State           string
	Country         string
	ServiceCategory string
	StateID         *int64
	CityID          *int64
	VerifiedOnly    bool
	MinRating       *float64
	Proximity       *Proximity
	Sort            Sort
}

// SearchParams is the pre-parsed company search request.
type SearchParams struct {
	City            string
	State           string
	Country         string
	ServiceCategory string
	VerifiedOnly    bool
	MinRating       *float64
	Lat             *float64
	Lng             *float64
	Address         string
	Radius          *float64
	Unit            geo.Unit
	Sort            string
	Page            int
	PerPage         int
}

// HasCoordinates reports whether both lat and lng were supplied.
func (p SearchParams) HasCoordinates() bool {
	return p.Lat != nil && p.Lng != nil
}

// FiltersApplied echoes the filters a search ran with.
type FiltersApplied struct {
	City            string   `json:"city,omitempty"`
	State           string   `json:"state,omitempty"`
	Country         string   `json:"country,omitempty"`
	ServiceCategory string   `json:"service_category,omitempty"`
	VerifiedOnly    bool     `json:"verified_only"`
	MinRating       *float64 `json:"min_rating,omitempty"`
}

// SearchContext describes how a search was interpreted.
type SearchContext struct {
	QueryType      string         `json:"query_type"`
	Location       string         `json:"location,omitempty"`
	Coordinates    *geo.Point     `json:"coordinates,omitempty"`
	Radius         float64        `json:"radius"`
	Unit           geo.Unit       `json:"unit"`
	Sort           string         `json:"sort"`
	FiltersApplied FiltersApplied `json:"filters_applied"`
}

// SearchMeta accompanies every search response.
type SearchMeta struct {
	SearchContext SearchContext `json:"search_context"`
	Pagination    Pagination    `json:"pagination"`
}

// StateListingParams is the pre-parsed state company listing request.
type StateListingParams struct {
	StateSlug       string
	City            string
	ServiceCategory string
	VerifiedOnly    bool
	MinRating       *float64
	Sort            string
	Page            int
	PerPage         int
}
