package entity

import (
	"time"

	"github.com/octobees/localpros/api/internal/geo"
)

// Country is the root of the geographic hierarchy.
type Country struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State belongs to a Country; its slug is unique within the country.
type State struct {
	ID        int64     `json:"id"`
	CountryID int64     `json:"country_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// City belongs to a State; its slug is unique within the state.
type City struct {
	ID        int64     `json:"id"`
	StateID   int64     `json:"state_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Point returns the city centre, or nil when coordinates are unknown.
func (c City) Point() *geo.Point {
	return geo.PointFrom(c.Latitude, c.Longitude)
}

// CityPlacement is a city together with its ancestors.
type CityPlacement struct {
	City    City    `json:"city"`
	State   State   `json:"state"`
	Country Country `json:"country"`
}

// FullName renders "City, State, Country".
func (p CityPlacement) FullName() string {
	return p.City.Name + ", " + p.State.Name + ", " + p.Country.Name
}
