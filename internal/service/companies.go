package service

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/octobees/localpros/api/internal/dto"
	"github.com/octobees/localpros/api/internal/entity"
	"github.com/octobees/localpros/api/internal/repository"
)

// GalleryDefaultPerPage is the page size of gallery listings when none is requested.
const GalleryDefaultPerPage = 50

// CompanyReader loads company profiles and their catalogue links.
type CompanyReader interface {
	GetListing(ctx context.Context, id string) (entity.CompanyListing, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListCertifications(ctx context.Context, companyID string) ([]entity.Certification, error)
	ListServiceCategories(ctx context.Context, companyID string) ([]entity.ServiceCategory, error)
	ListAllServiceCategories(ctx context.Context) ([]entity.ServiceCategory, error)
	ListServiceAreas(ctx context.Context, companyID string) ([]entity.City, error)
}

// ReviewReader pages reviews.
type ReviewReader interface {
	ListByCompany(ctx context.Context, companyID string, filter dto.ReviewFilter, page dto.PageRequest) ([]entity.Review, int, error)
	Distribution(ctx context.Context, companyID string) (entity.RatingDistribution, error)
}

// GalleryReader pages gallery images.
type GalleryReader interface {
	ListByCompany(ctx context.Context, companyID string, page dto.PageRequest) ([]entity.GalleryImage, int, error)
}

// TxRunner runs fn in one transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q repository.Querier) error) error
}

// CompanyService serves company profiles, reviews and galleries.
type CompanyService struct {
	companies CompanyReader
	reviews   ReviewReader
	galleries GalleryReader
	tx        TxRunner
	now       func() time.Time
}

// NewCompanyService wires the service.
func NewCompanyService(companies CompanyReader, reviews ReviewReader, galleries GalleryReader, tx TxRunner) *CompanyService {
	return &CompanyService{companies: companies, reviews: reviews, galleries: galleries, tx: tx, now: time.Now}
}

// Detail loads the full profile of a company, or repository.ErrNotFound.
func (s *CompanyService) Detail(ctx context.Context, id string) (entity.CompanyDetail, error) {
	listing, err := s.companies.GetListing(ctx, id)
	if err != nil {
		return entity.CompanyDetail{}, err
	}
	detail := entity.CompanyDetail{CompanyListing: listing}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail.ServiceCategories, err = s.companies.ListServiceCategories(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		detail.ServiceAreas, err = s.companies.ListServiceAreas(gctx, id)
		return err
	})
	g.Go(func() error {
		certs, err := s.companies.ListCertifications(gctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		for i := range certs {
			certs[i] = certs[i].WithStatus(now)
		}
		detail.Certifications = certs
		return nil
	})
	if err := g.Wait(); err != nil {
		return entity.CompanyDetail{}, eris.Wrap(err, "service: company detail")
	}
	return detail, nil
}

// ServiceCategories lists the category catalogue.
func (s *CompanyService) ServiceCategories(ctx context.Context) ([]entity.ServiceCategory, error) {
	return s.companies.ListAllServiceCategories(ctx)
}

// ReviewPage is a page of reviews with the company's rating distribution.
type ReviewPage struct {
	Reviews      []entity.Review
	Pagination   dto.Pagination
	Distribution entity.RatingDistribution
}

func (s *CompanyService) ensureCompany(ctx context.Context, id string) error {
	ok, err := s.companies.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return eris.Wrapf(repository.ErrNotFound, "company %s", id)
	}
	return nil
}

// Reviews pages the reviews of a company.
func (s *CompanyService) Reviews(ctx context.Context, companyID string, filter dto.ReviewFilter, page dto.PageRequest) (ReviewPage, error) {
	if err := s.ensureCompany(ctx, companyID); err != nil {
		return ReviewPage{}, err
	}
	reviews, total, err := s.reviews.ListByCompany(ctx, companyID, filter, page)
	if err != nil {
		return ReviewPage{}, eris.Wrap(err, "service: list reviews")
	}
	dist, err := s.reviews.Distribution(ctx, companyID)
	if err != nil {
		return ReviewPage{}, eris.Wrap(err, "service: rating distribution")
	}
	return ReviewPage{Reviews: reviews, Pagination: dto.NewPagination(page, total), Distribution: dist}, nil
}

// GalleryPage is a page of gallery images.
type GalleryPage struct {
	Images     []entity.GalleryImage
	Pagination dto.Pagination
}

// Gallery pages the images of a company in position order.
func (s *CompanyService) Gallery(ctx context.Context, companyID string, page dto.PageRequest) (GalleryPage, error) {
	if err := s.ensureCompany(ctx, companyID); err != nil {
		return GalleryPage{}, err
	}
	images, total, err := s.galleries.ListByCompany(ctx, companyID, page)
	if err != nil {
		return GalleryPage{}, eris.Wrap(err, "service: list gallery")
	}
	return GalleryPage{Images: images, Pagination: dto.NewPagination(page, total)}, nil
}

// DeleteReview removes a review; the company rating is recomputed in the same transaction.
func (s *CompanyService) DeleteReview(ctx context.Context, id int64) error {
	return s.tx.InTx(ctx, func(q repository.Querier) error {
		return repository.NewReviewsRepository(q).Delete(ctx, id)
	})
}
