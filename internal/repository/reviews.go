package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"

	"github.com/octobees/localpros/api/internal/dto"
	"github.com/octobees/localpros/api/internal/entity"
)

// ReviewsRepository persists reviews. Every write recomputes the parent company's
// average_rating and total_reviews on the same Querier, so binding it to a transaction
// keeps the aggregate consistent with the write.
type ReviewsRepository struct {
	db Querier
}

// NewReviewsRepository wires a repository over db.
func NewReviewsRepository(db Querier) *ReviewsRepository {
	return &ReviewsRepository{db: db}
}

// ErrInvalidRating is returned for ratings outside 1..5.
var ErrInvalidRating = eris.New("review rating must be between 1 and 5")

const upsertReviewSQL = `
        INSERT INTO reviews (
            company_id, review_link, author_title, author_image, review_text, review_img_urls,
            owner_answer, owner_answer_timestamp_datetime_utc, review_rating, review_datetime_utc, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
        ON CONFLICT (company_id, review_link) DO UPDATE SET
            author_title = EXCLUDED.author_title,
            author_image = EXCLUDED.author_image,
            review_text = EXCLUDED.review_text,
            review_img_urls = EXCLUDED.review_img_urls,
            owner_answer = EXCLUDED.owner_answer,
            owner_answer_timestamp_datetime_utc = EXCLUDED.owner_answer_timestamp_datetime_utc,
            review_rating = EXCLUDED.review_rating,
            review_datetime_utc = EXCLUDED.review_datetime_utc,
            updated_at = NOW()
        RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
    `

const recomputeRatingSQL = `
        UPDATE companies SET
            average_rating = COALESCE((SELECT ROUND(AVG(review_rating)::numeric, 2) FROM reviews WHERE company_id = $1), 0),
            total_reviews = (SELECT COUNT(*) FROM reviews WHERE company_id = $1),
            updated_at = NOW()
        WHERE id = $1
    `

// Upsert creates or updates a review keyed by (company_id, review_link), then recomputes
// the company rating. Reports whether a row was created.
func (r *ReviewsRepository) Upsert(ctx context.Context, review *entity.Review) (bool, error) {
	if review == nil {
		return false, eris.New("repository: review payload is nil")
	}
	if strings.TrimSpace(review.CompanyID) == "" || strings.TrimSpace(review.ReviewLink) == "" {
		return false, eris.Wrap(ErrBlankInput, "review company and link")
	}
	if review.ReviewRating < entity.MinReviewRating || review.ReviewRating > entity.MaxReviewRating {
		return false, ErrInvalidRating
	}
	if review.ReviewImgURLs == nil {
		review.ReviewImgURLs = []string{}
	}

	var inserted bool
	err := r.db.QueryRow(ctx, upsertReviewSQL,
		review.CompanyID,
		review.ReviewLink,
		stringOrNil(review.AuthorTitle),
		stringOrNil(review.AuthorImage),
		stringOrNil(review.ReviewText),
		review.ReviewImgURLs,
		stringOrNil(review.OwnerAnswer),
		review.OwnerAnswerTimestampDatetimeUTC,
		review.ReviewRating,
		review.ReviewDatetimeUTC,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt, &inserted)
	if err != nil {
		return false, translateWriteError(err, "repository: upsert review")
	}

	if err := r.RecomputeRating(ctx, review.CompanyID); err != nil {
		return false, err
	}
	return inserted, nil
}

// Delete removes a review and recomputes its company's rating.
func (r *ReviewsRepository) Delete(ctx context.Context, id int64) error {
	var companyID string
	err := r.db.QueryRow(ctx, "DELETE FROM reviews WHERE id = $1 RETURNING company_id", id).Scan(&companyID)
	if isNoRows(err) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrap(err, "repository: delete review")
	}
	return r.RecomputeRating(ctx, companyID)
}

// RecomputeRating sets average_rating to the mean review rating rounded to two decimals
// and total_reviews to the review count. Both are zero when the company has no reviews.
func (r *ReviewsRepository) RecomputeRating(ctx context.Context, companyID string) error {
	if _, err := r.db.Exec(ctx, recomputeRatingSQL, companyID); err != nil {
		return eris.Wrap(err, "repository: recompute company rating")
	}
	return nil
}

// ListByCompany returns one page of a company's reviews and the total matching count.
func (r *ReviewsRepository) ListByCompany(ctx context.Context, companyID string, filter dto.ReviewFilter, page dto.PageRequest) ([]entity.Review, int, error) {
	base := psql.Select().From("reviews").Where(sq.Eq{"company_id": companyID})
	if filter.MinRating != nil {
		base = base.Where(sq.GtOrEq{"review_rating": *filter.MinRating})
	}

	countSQL, countArgs, err := base.Column("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, eris.Wrap(err, "repository: build review count")
	}
	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "repository: count reviews")
	}

	dir := "ASC"
	if filter.Sort.Descending {
		dir = "DESC"
	}
	order := "review_datetime_utc " + dir + " NULLS LAST"
	if filter.Sort.Key == dto.ReviewSortByRating {
		order = "review_rating " + dir
	}

	listSQL, listArgs, err := base.Columns(
		"id", "company_id", "review_link", "author_title", "author_image", "review_text", "review_img_urls",
		"owner_answer", "owner_answer_timestamp_datetime_utc", "review_rating", "review_datetime_utc",
		"created_at", "updated_at",
	).OrderBy(order, "id DESC").Limit(uint64(page.PerPage)).Offset(uint64(page.Offset())).ToSql()
	if err != nil {
		return nil, 0, eris.Wrap(err, "repository: build review list")
	}

	rows, err := r.db.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "repository: list reviews")
	}
	defer rows.Close()

	reviews := []entity.Review{}
	for rows.Next() {
		var rv entity.Review
		if err := rows.Scan(&rv.ID, &rv.CompanyID, &rv.ReviewLink, &rv.AuthorTitle, &rv.AuthorImage, &rv.ReviewText,
			&rv.ReviewImgURLs, &rv.OwnerAnswer, &rv.OwnerAnswerTimestampDatetimeUTC, &rv.ReviewRating,
			&rv.ReviewDatetimeUTC, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, 0, eris.Wrap(err, "repository: scan review")
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, eris.Wrap(err, "repository: iterate reviews")
	}
	return reviews, total, nil
}

// Distribution counts a company's reviews per star. Every star 1..5 is present.
func (r *ReviewsRepository) Distribution(ctx context.Context, companyID string) (entity.RatingDistribution, error) {
	rows, err := r.db.Query(ctx,
		"SELECT review_rating, COUNT(*) FROM reviews WHERE company_id = $1 GROUP BY review_rating", companyID)
	if err != nil {
		return nil, eris.Wrap(err, "repository: rating distribution")
	}
	defer rows.Close()

	dist := entity.RatingDistribution{}
	for star := entity.MinReviewRating; star <= entity.MaxReviewRating; star++ {
		dist[star] = 0
	}
	for rows.Next() {
		var star, n int
		if err := rows.Scan(&star, &n); err != nil {
			return nil, eris.Wrap(err, "repository: scan rating distribution")
		}
		dist[star] = n
	}
	return dist, eris.Wrap(rows.Err(), "repository: iterate rating distribution")
}
