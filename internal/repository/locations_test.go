package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/localpros/api/internal/geo"
)

func placementCols() []string {
	cols := append([]string{}, cityCols...)
	cols = append(cols, stateCols...)
	return append(cols, countryCols...)
}

func placementRow(cityID int64, name string, lat, lng float64, now time.Time) []any {
	return []any{
		cityID, int64(3), name, name, &lat, &lng, now, now,
		int64(3), int64(1), "Florida", "FL", "florida", now, now,
		int64(1), "US", "United States", "united-states", now, now,
	}
}

func TestLocationsRepository_SearchCities(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery("WHERE ci.name ILIKE \\$1 ORDER BY ci.name LIMIT \\$2").WithArgs("%orl%", 5).
		WillReturnRows(mock.NewRows(placementCols()).AddRow(placementRow(9, "Orlando", 28.5, -81.4, now)...))

	cities, err := NewLocationsRepository(mock).SearchCities(context.Background(), "orl", 5)
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, "Orlando, Florida, United States", cities[0].FullName())
}

func TestLocationsRepository_SearchWithZeroLimit(t *testing.T) {
	repo := NewLocationsRepository(newMock(t))
	cities, err := repo.SearchCities(context.Background(), "orl", 0)
	require.NoError(t, err)
	assert.Empty(t, cities)

	states, err := repo.SearchStates(context.Background(), "fl", 0)
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestLocationsRepository_CitiesInBox(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	box := geo.BoundingBox(geo.Point{Lat: 28.5, Lng: -81.4}, 50, geo.Miles)
	mock.ExpectQuery("ci.latitude BETWEEN \\$1 AND \\$2").WithArgs(box.MinLat, box.MaxLat, box.MinLng, box.MaxLng).
		WillReturnRows(mock.NewRows(placementCols()).
			AddRow(placementRow(9, "Orlando", 28.5383, -81.3792, now)...).
			AddRow(placementRow(10, "Kissimmee", 28.2920, -81.4076, now)...))

	cities, err := NewLocationsRepository(mock).CitiesInBox(context.Background(), box)
	require.NoError(t, err)
	assert.Len(t, cities, 2)
}

func TestLocationsRepository_FindStateBySlugOrCode(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery("st.slug = LOWER\\(\\$1\\) OR UPPER\\(st.code\\) = UPPER\\(\\$1\\)").WithArgs("FL").
		WillReturnRows(mock.NewRows(stateCols).AddRow(int64(3), int64(1), "Florida", "FL", "florida", now, now))

	st, err := NewLocationsRepository(mock).FindStateBySlugOrCode(context.Background(), "FL")
	require.NoError(t, err)
	assert.Equal(t, "florida", st.Slug)

	_, err = NewLocationsRepository(newMock(t)).FindStateBySlugOrCode(context.Background(), " ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocationsRepository_GetCityNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM cities ci WHERE ci.id = \\$1").WithArgs(int64(404)).WillReturnRows(mock.NewRows(cityCols))

	_, err := NewLocationsRepository(mock).GetCity(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocationsRepository_StateTotals(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM cities WHERE state_id").WithArgs(int64(3)).
		WillReturnRows(mock.NewRows([]string{"companies", "cities"}).AddRow(12, 5))

	companies, cities, err := NewLocationsRepository(mock).StateTotals(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 12, companies)
	assert.Equal(t, 5, cities)
}
