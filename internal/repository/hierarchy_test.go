package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/localpros/api/internal/entity"
)

var (
	countryCols = []string{"id", "code", "name", "slug", "created_at", "updated_at"}
	stateCols   = []string{"id", "country_id", "name", "code", "slug", "created_at", "updated_at"}
	cityCols    = []string{"id", "state_id", "name", "slug", "latitude", "longitude", "created_at", "updated_at"}
)

func TestResolveCountry(t *testing.T) {
	now := time.Now()
	ctx := context.Background()

	t.Run("existing with same name", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM countries WHERE code = ").WithArgs("US").
			WillReturnRows(mock.NewRows(countryCols).AddRow(int64(1), "US", "United States", "united-states", now, now))

		c, created, err := NewHierarchyStore(mock).ResolveCountry(ctx, "us", "United States")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, int64(1), c.ID)
	})

	t.Run("existing with renamed country", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM countries WHERE code = ").WithArgs("US").
			WillReturnRows(mock.NewRows(countryCols).AddRow(int64(1), "US", "USA", "usa", now, now))
		mock.ExpectQuery("UPDATE countries SET name").WithArgs(int64(1), "United States").
			WillReturnRows(mock.NewRows([]string{"updated_at"}).AddRow(now))

		c, created, err := NewHierarchyStore(mock).ResolveCountry(ctx, "US", "United States")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "United States", c.Name)
		assert.Equal(t, "usa", c.Slug)
	})

	t.Run("missing country is created", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM countries WHERE code = ").WithArgs("US").WillReturnRows(mock.NewRows(countryCols))
		mock.ExpectQuery("INSERT INTO countries").WithArgs("US", "United States", "united-states").
			WillReturnRows(mock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

		c, created, err := NewHierarchyStore(mock).ResolveCountry(ctx, "US", "United States")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, int64(7), c.ID)
		assert.Equal(t, "united-states", c.Slug)
	})

	t.Run("blank input", func(t *testing.T) {
		mock := newMock(t)
		_, _, err := NewHierarchyStore(mock).ResolveCountry(ctx, " ", "United States")
		assert.ErrorIs(t, err, ErrBlankInput)
		_, _, err = NewHierarchyStore(mock).ResolveCountry(ctx, "US", "")
		assert.ErrorIs(t, err, ErrBlankInput)
	})
}

func TestStateCode(t *testing.T) {
	assert.Equal(t, "FL", StateCode("Florida"))
	assert.Equal(t, "NY", StateCode(" ny "))
	assert.Equal(t, "ÑU", StateCode("ñuble"))
	// Names sharing a prefix collide.
	assert.Equal(t, StateCode("Alabama"), StateCode("Alaska"))
}

func TestResolveState(t *testing.T) {
	now := time.Now()
	ctx := context.Background()

	t.Run("created with derived code", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM states").WithArgs(int64(1), "Florida").WillReturnRows(mock.NewRows(stateCols))
		mock.ExpectQuery("INSERT INTO states").WithArgs(int64(1), "Florida", "FL", "florida").
			WillReturnRows(mock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(3), now, now))

		st, created, err := NewHierarchyStore(mock).ResolveState(ctx, "Florida", 1)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "FL", st.Code)
		assert.Equal(t, int64(3), st.ID)
	})

	t.Run("found case-insensitively", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("LOWER\\(name\\) = LOWER\\(\\$2\\)").WithArgs(int64(1), "florida").
			WillReturnRows(mock.NewRows(stateCols).AddRow(int64(3), int64(1), "Florida", "FL", "florida", now, now))

		st, created, err := NewHierarchyStore(mock).ResolveState(ctx, "florida", 1)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "Florida", st.Name)
	})

	t.Run("blank name", func(t *testing.T) {
		_, _, err := NewHierarchyStore(newMock(t)).ResolveState(ctx, "", 1)
		assert.ErrorIs(t, err, ErrBlankInput)
	})
}

func TestResolveCity(t *testing.T) {
	now := time.Now()
	ctx := context.Background()
	lat, lng := 28.5383, -81.3792

	t.Run("existing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM cities").WithArgs(int64(3), "Orlando").
			WillReturnRows(mock.NewRows(cityCols).AddRow(int64(9), int64(3), "Orlando", "orlando", &lat, &lng, now, now))

		ci, created, err := NewHierarchyStore(mock).ResolveCity(ctx, "Orlando", 3)
		require.NoError(t, err)
		assert.False(t, created)
		require.NotNil(t, ci.Point())
		assert.Equal(t, lat, ci.Point().Lat)
	})

	t.Run("created", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM cities").WithArgs(int64(3), "Winter Park").WillReturnRows(mock.NewRows(cityCols))
		mock.ExpectQuery("INSERT INTO cities").WithArgs(int64(3), "Winter Park", "winter-park").
			WillReturnRows(mock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(10), now, now))

		ci, created, err := NewHierarchyStore(mock).ResolveCity(ctx, "Winter Park", 3)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Nil(t, ci.Point())
	})
}

func TestResolveCompanyByExternalID(t *testing.T) {
	now := time.Now()
	ctx := context.Background()

	t.Run("insert applies defaults", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("INSERT INTO companies").WithArgs(anyArgs(24)...).
			WillReturnRows(mock.NewRows([]string{"slug", "created_at", "updated_at", "inserted"}).
				AddRow("acme-plumbing", now, now, true))

		company := &entity.Company{ID: " P1 ", CityID: 9, Name: "Acme Plumbing"}
		created, err := NewHierarchyStore(mock).ResolveCompanyByExternalID(ctx, company)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "P1", company.ID)
		assert.Equal(t, "UTC", company.Timezone)
		assert.JSONEq(t, "{}", string(company.About))
		assert.Equal(t, []string{}, company.Subtypes)
	})

	t.Run("update keeps stored slug", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("ON CONFLICT \\(id\\) DO UPDATE").WithArgs(anyArgs(24)...).
			WillReturnRows(mock.NewRows([]string{"slug", "created_at", "updated_at", "inserted"}).
				AddRow("acme", now, now, false))

		company := &entity.Company{ID: "P1", CityID: 9, Name: "Acme Plumbing & Drains"}
		created, err := NewHierarchyStore(mock).ResolveCompanyByExternalID(ctx, company)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "acme", company.Slug)
	})

	t.Run("update keeps review aggregates", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`average_rating = CASE WHEN EXISTS \(SELECT 1 FROM reviews WHERE company_id = EXCLUDED\.id\)\s+THEN companies\.average_rating ELSE EXCLUDED\.average_rating END,\s+` +
			`total_reviews = CASE WHEN EXISTS \(SELECT 1 FROM reviews WHERE company_id = EXCLUDED\.id\)\s+THEN companies\.total_reviews ELSE EXCLUDED\.total_reviews END`).
			WithArgs(anyArgs(24)...).
			WillReturnRows(mock.NewRows([]string{"slug", "created_at", "updated_at", "inserted"}).
				AddRow("acme", now, now, false))

		company := &entity.Company{ID: "P1", CityID: 9, Name: "Acme", AverageRating: 4.5, TotalReviews: 12}
		created, err := NewHierarchyStore(mock).ResolveCompanyByExternalID(ctx, company)
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("slug conflict", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("INSERT INTO companies").WithArgs(anyArgs(24)...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "index_companies_on_city_id_and_slug"})

		_, err := NewHierarchyStore(mock).ResolveCompanyByExternalID(ctx, &entity.Company{ID: "P2", CityID: 9, Name: "Acme"})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "slug has already been taken")
	})

	t.Run("blank id", func(t *testing.T) {
		_, err := NewHierarchyStore(newMock(t)).ResolveCompanyByExternalID(ctx, &entity.Company{CityID: 9, Name: "Acme"})
		assert.ErrorIs(t, err, ErrBlankInput)
	})
}

func TestLinkServiceCategories(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("INSERT INTO service_categories").WithArgs("Drain Cleaning", "drain-cleaning").
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectExec("INSERT INTO company_services").WithArgs("P1", int64(2)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := NewHierarchyStore(mock).LinkServiceCategories(context.Background(), "P1",
		[]string{"Drain Cleaning", " drain cleaning ", ""})
	require.NoError(t, err)
}
