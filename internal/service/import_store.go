package service

import (
	"context"

	"github.com/octobees/localpros/api/internal/entity"
	"github.com/octobees/localpros/api/internal/repository"
)

// ImportStore is the write surface a single import row runs against.
type ImportStore interface {
	ResolveCountry(ctx context.Context, code, name string) (entity.Country, bool, error)
	ResolveState(ctx context.Context, name string, countryID int64) (entity.State, bool, error)
	ResolveCity(ctx context.Context, name string, stateID int64) (entity.City, bool, error)
	ResolveCompanyByExternalID(ctx context.Context, company *entity.Company) (bool, error)
	LinkServiceCategories(ctx context.Context, companyID string, names []string) error
	CompanyExists(ctx context.Context, id string) (bool, error)
	UpsertReview(ctx context.Context, review *entity.Review) (bool, error)
	UpsertGallery(ctx context.Context, image *entity.GalleryImage) (bool, error)
}

// RowRunner runs fn atomically: every write made through the store commits or none does.
type RowRunner interface {
	RunRow(ctx context.Context, fn func(store ImportStore) error) error
}

// TxRowRunner binds repository stores to one database transaction per row.
type TxRowRunner struct {
	tx *repository.TxRunner
}

// NewTxRowRunner wraps tx.
func NewTxRowRunner(tx *repository.TxRunner) *TxRowRunner {
	return &TxRowRunner{tx: tx}
}

// RunRow implements RowRunner.
func (r *TxRowRunner) RunRow(ctx context.Context, fn func(store ImportStore) error) error {
	return r.tx.InTx(ctx, func(q repository.Querier) error {
		return fn(txStore{
			HierarchyStore: repository.NewHierarchyStore(q),
			companies:      repository.NewCompaniesRepository(q),
			reviews:        repository.NewReviewsRepository(q),
			galleries:      repository.NewGalleriesRepository(q),
		})
	})
}

type txStore struct {
	*repository.HierarchyStore
	companies *repository.CompaniesRepository
	reviews   *repository.ReviewsRepository
	galleries *repository.GalleriesRepository
}

func (s txStore) CompanyExists(ctx context.Context, id string) (bool, error) {
	return s.companies.Exists(ctx, id)
}

func (s txStore) UpsertReview(ctx context.Context, review *entity.Review) (bool, error) {
	return s.reviews.Upsert(ctx, review)
}

func (s txStore) UpsertGallery(ctx context.Context, image *entity.GalleryImage) (bool, error) {
	return s.galleries.Upsert(ctx, image)
}
