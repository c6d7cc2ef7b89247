// Package geocode resolves free-text addresses to coordinates and back.
package geocode

import (
	"context"

	"github.com/rotisserie/eris"
)

// ErrNoMatch is returned when the provider knows no location for the query.
var ErrNoMatch = eris.New("geocode: no match")

// Result is a resolved location.
type Result struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
	StreetAddress    string  `json:"street_address,omitempty"`
	PostalCode       string  `json:"postal_code,omitempty"`
	City             string  `json:"city,omitempty"`
	State            string  `json:"state,omitempty"`
	Country          string  `json:"country,omitempty"`
	CountryCode      string  `json:"country_code,omitempty"`
}

// Client is a geocoding provider.
type Client interface {
	Geocode(ctx context.Context, address string) (*Result, error)
	Reverse(ctx context.Context, lat, lng float64) (*Result, error)
}
