package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/localpros/api/internal/dto"
	"github.com/octobees/localpros/api/internal/entity"
	"github.com/octobees/localpros/api/internal/repository"
)

type fakeCompanies struct {
	listing    entity.CompanyListing
	listingErr error
	exists     bool
	certs      []entity.Certification
	categories []entity.ServiceCategory
	areas      []entity.City
	areasErr   error
}

func (f *fakeCompanies) GetListing(context.Context, string) (entity.CompanyListing, error) {
	return f.listing, f.listingErr
}

func (f *fakeCompanies) Exists(context.Context, string) (bool, error) { return f.exists, nil }

func (f *fakeCompanies) ListCertifications(context.Context, string) ([]entity.Certification, error) {
	return f.certs, nil
}

func (f *fakeCompanies) ListServiceCategories(context.Context, string) ([]entity.ServiceCategory, error) {
	return f.categories, nil
}

func (f *fakeCompanies) ListAllServiceCategories(context.Context) ([]entity.ServiceCategory, error) {
	return f.categories, nil
}

func (f *fakeCompanies) ListServiceAreas(context.Context, string) ([]entity.City, error) {
	return f.areas, f.areasErr
}

type fakeReviews struct {
	reviews   []entity.Review
	total     int
	gotFilter dto.ReviewFilter
}

func (f *fakeReviews) ListByCompany(_ context.Context, _ string, filter dto.ReviewFilter, _ dto.PageRequest) ([]entity.Review, int, error) {
	f.gotFilter = filter
	return f.reviews, f.total, nil
}

func (f *fakeReviews) Distribution(context.Context, string) (entity.RatingDistribution, error) {
	return entity.RatingDistribution{1: 0, 2: 0, 3: 0, 4: 1, 5: 2}, nil
}

type fakeGalleries struct {
	images  []entity.GalleryImage
	gotPage dto.PageRequest
}

func (f *fakeGalleries) ListByCompany(_ context.Context, _ string, page dto.PageRequest) ([]entity.GalleryImage, int, error) {
	f.gotPage = page
	return f.images, len(f.images), nil
}

func TestCompanyService_Detail(t *testing.T) {
	yesterday := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	companies := &fakeCompanies{
		listing:    entity.CompanyListing{Company: entity.Company{ID: "P1", Name: "Acme"}, URLPath: "/us/fl/orlando/acme"},
		certs:      []entity.Certification{{CertificationName: "Plumbing License", ExpiryDate: &yesterday}},
		categories: []entity.ServiceCategory{{ID: 1, Name: "Drain Cleaning", Slug: "drain-cleaning"}},
		areas:      []entity.City{{ID: 3, Name: "Orlando"}},
	}
	svc := NewCompanyService(companies, &fakeReviews{}, &fakeGalleries{}, nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC) }

	detail, err := svc.Detail(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, "/us/fl/orlando/acme", detail.URLPath)
	assert.Len(t, detail.ServiceCategories, 1)
	assert.Len(t, detail.ServiceAreas, 1)
	require.Len(t, detail.Certifications, 1)
	assert.True(t, detail.Certifications[0].IsExpired)
}

func TestCompanyService_DetailErrors(t *testing.T) {
	svc := NewCompanyService(&fakeCompanies{listingErr: repository.ErrNotFound}, &fakeReviews{}, &fakeGalleries{}, nil)
	_, err := svc.Detail(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	svc = NewCompanyService(&fakeCompanies{areasErr: errors.New("db down")}, &fakeReviews{}, &fakeGalleries{}, nil)
	_, err = svc.Detail(context.Background(), "P1")
	assert.Error(t, err)
}

func TestCompanyService_Reviews(t *testing.T) {
	reviews := &fakeReviews{reviews: []entity.Review{{ID: 1, ReviewRating: 5}}, total: 3}
	svc := NewCompanyService(&fakeCompanies{exists: true}, reviews, &fakeGalleries{}, nil)
	minRating := 4

	page, err := svc.Reviews(context.Background(), "P1", dto.ReviewFilter{MinRating: &minRating, Sort: dto.ParseReviewSort("rating")}, dto.ClampPage(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.Equal(t, 2, page.Distribution[5])
	assert.Equal(t, 4, *reviews.gotFilter.MinRating)

	svc = NewCompanyService(&fakeCompanies{exists: false}, reviews, &fakeGalleries{}, nil)
	_, err = svc.Reviews(context.Background(), "ghost", dto.ReviewFilter{}, dto.ClampPage(1, 20))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCompanyService_Gallery(t *testing.T) {
	galleries := &fakeGalleries{images: []entity.GalleryImage{{ID: 1, Position: 1}, {ID: 2, Position: 2}}}
	svc := NewCompanyService(&fakeCompanies{exists: true}, &fakeReviews{}, galleries, nil)

	page, err := svc.Gallery(context.Background(), "P1", dto.ClampPageWithDefault(0, 0, GalleryDefaultPerPage))
	require.NoError(t, err)
	assert.Len(t, page.Images, 2)
	assert.Equal(t, dto.PageRequest{Page: 1, PerPage: 50}, galleries.gotPage)
	assert.Equal(t, 2, page.Pagination.TotalCount)
}

func TestCompanyService_DeleteReview(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })

	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM reviews WHERE id = \\$1 RETURNING company_id").WithArgs(int64(7)).
		WillReturnRows(mock.NewRows([]string{"company_id"}).AddRow("P1"))
	mock.ExpectExec("UPDATE companies SET").WithArgs("P1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM reviews").WithArgs(int64(8)).WillReturnRows(mock.NewRows([]string{"company_id"}))
	mock.ExpectRollback()

	svc := NewCompanyService(&fakeCompanies{}, &fakeReviews{}, &fakeGalleries{}, repository.NewTxRunner(mock))
	require.NoError(t, svc.DeleteReview(context.Background(), 7))
	assert.ErrorIs(t, svc.DeleteReview(context.Background(), 8), repository.ErrNotFound)
}
