package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/localpros/api/internal/dto"
	"github.com/octobees/localpros/api/internal/entity"
	"github.com/octobees/localpros/api/internal/repository"
	"github.com/octobees/localpros/api/internal/service"
)

type stubProfiles struct {
	detail     entity.CompanyDetail
	categories []entity.ServiceCategory
	reviews    service.ReviewPage
	gallery    service.GalleryPage
	err        error

	gotID     string
	gotFilter dto.ReviewFilter
	gotPage   dto.PageRequest
	deleted   int64
}

func (s *stubProfiles) Detail(_ context.Context, id string) (entity.CompanyDetail, error) {
	s.gotID = id
	return s.detail, s.err
}

func (s *stubProfiles) ServiceCategories(context.Context) ([]entity.ServiceCategory, error) {
	return s.categories, s.err
}

func (s *stubProfiles) Reviews(_ context.Context, id string, filter dto.ReviewFilter, page dto.PageRequest) (service.ReviewPage, error) {
	s.gotID, s.gotFilter, s.gotPage = id, filter, page
	return s.reviews, s.err
}

func (s *stubProfiles) Gallery(_ context.Context, id string, page dto.PageRequest) (service.GalleryPage, error) {
	s.gotID, s.gotPage = id, page
	return s.gallery, s.err
}

func (s *stubProfiles) DeleteReview(_ context.Context, id int64) error {
	s.deleted = id
	return s.err
}

func TestCompaniesHandler_Show(t *testing.T) {
	profiles := &stubProfiles{detail: entity.CompanyDetail{
		CompanyListing: entity.CompanyListing{
			Company: entity.Company{ID: "ChIJ1", Name: "Acme Plumbing", Slug: "acme-plumbing"},
			URLPath: "/united-states/florida/orlando/acme-plumbing",
		},
		ServiceCategories: []entity.ServiceCategory{{ID: 1, Name: "Drain Cleaning"}},
	}}
	handler := NewCompaniesHandler(profiles)

	c, rec := newContext(http.MethodGet, "/api/v1/companies/ChIJ1")
	c.SetParamNames("id")
	c.SetParamValues("ChIJ1")
	require.NoError(t, handler.Show(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ChIJ1", profiles.gotID)

	var payload struct {
		Data struct {
			Name              string                   `json:"name"`
			URLPath           string                   `json:"url_path"`
			ServiceCategories []entity.ServiceCategory `json:"service_categories"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "Acme Plumbing", payload.Data.Name)
	assert.Equal(t, "/united-states/florida/orlando/acme-plumbing", payload.Data.URLPath)
	assert.Len(t, payload.Data.ServiceCategories, 1)
}

func TestCompaniesHandler_ShowNotFound(t *testing.T) {
	handler := NewCompaniesHandler(&stubProfiles{err: repository.ErrNotFound})

	c, rec := newContext(http.MethodGet, "/api/v1/companies/missing")
	c.SetParamNames("id")
	c.SetParamValues("missing")
	require.NoError(t, handler.Show(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Company not found", decode(t, rec).Message)
}

func TestCompaniesHandler_Reviews(t *testing.T) {
	reviewedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	profiles := &stubProfiles{reviews: service.ReviewPage{
		Reviews:      []entity.Review{{ID: 9, CompanyID: "ChIJ1", ReviewRating: 5, ReviewDatetimeUTC: &reviewedAt}},
		Pagination:   dto.NewPagination(dto.PageRequest{Page: 1, PerPage: 10}, 1),
		Distribution: entity.RatingDistribution{1: 0, 2: 0, 3: 0, 4: 0, 5: 1},
	}}
	handler := NewCompaniesHandler(profiles)

	c, rec := newContext(http.MethodGet, "/api/v1/companies/ChIJ1/reviews?min_rating=4&sort=rating&per_page=10")
	c.SetParamNames("id")
	c.SetParamValues("ChIJ1")
	require.NoError(t, handler.Reviews(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, profiles.gotFilter.MinRating)
	assert.Equal(t, 4, *profiles.gotFilter.MinRating)
	assert.Equal(t, dto.ReviewSort{Key: dto.ReviewSortByRating}, profiles.gotFilter.Sort)
	assert.Equal(t, dto.PageRequest{Page: 1, PerPage: 10}, profiles.gotPage)

	var payload struct {
		Data []entity.Review `json:"data"`
		Meta ReviewsMeta     `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Data, 1)
	assert.Equal(t, 1, payload.Meta.RatingDistribution[5])
	assert.Equal(t, 1, payload.Meta.Pagination.TotalCount)
}

func TestCompaniesHandler_ReviewsValidation(t *testing.T) {
	profiles := &stubProfiles{}
	handler := NewCompaniesHandler(profiles)

	for _, q := range []string{"min_rating=0", "min_rating=6", "min_rating=four"} {
		c, rec := newContext(http.MethodGet, "/api/v1/companies/ChIJ1/reviews?"+q)
		require.NoError(t, handler.Reviews(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
	assert.Empty(t, profiles.gotID)
}

func TestCompaniesHandler_GalleryDefaults(t *testing.T) {
	profiles := &stubProfiles{}
	handler := NewCompaniesHandler(profiles)

	c, rec := newContext(http.MethodGet, "/api/v1/companies/ChIJ1/gallery_images")
	c.SetParamNames("id")
	c.SetParamValues("ChIJ1")
	require.NoError(t, handler.Gallery(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.PageRequest{Page: 1, PerPage: 50}, profiles.gotPage)

	var payload struct {
		Data []entity.GalleryImage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.NotNil(t, payload.Data)

	c, _ = newContext(http.MethodGet, "/api/v1/companies/ChIJ1/gallery_images?per_page=500&page=2")
	require.NoError(t, handler.Gallery(c))
	assert.Equal(t, dto.PageRequest{Page: 2, PerPage: 100}, profiles.gotPage)
}

func TestCompaniesHandler_ServiceCategoriesError(t *testing.T) {
	handler := NewCompaniesHandler(&stubProfiles{err: errors.New("db down")})
	c, rec := newContext(http.MethodGet, "/api/v1/service_categories")
	require.NoError(t, handler.ServiceCategories(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCompaniesHandler_DeleteReview(t *testing.T) {
	tests := map[string]struct {
		param      string
		err        error
		expectCode int
	}{
		"invalid id": {param: "abc", expectCode: http.StatusBadRequest},
		"not found":  {param: "7", err: repository.ErrNotFound, expectCode: http.StatusNotFound},
		"success":    {param: "7", expectCode: http.StatusOK},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			profiles := &stubProfiles{err: tt.err}
			c, rec := newContext(http.MethodDelete, "/api/backoffice/v1/reviews/"+tt.param)
			c.SetParamNames("id")
			c.SetParamValues(tt.param)

			require.NoError(t, NewCompaniesHandler(profiles).DeleteReview(c))
			assert.Equal(t, tt.expectCode, rec.Code)
			if tt.expectCode != http.StatusBadRequest {
				assert.Equal(t, int64(7), profiles.deleted)
			}
		})
	}
}
