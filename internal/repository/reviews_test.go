package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/localpros/api/internal/dto"
	"github.com/octobees/localpros/api/internal/entity"
)

func TestReviewsRepository_UpsertRecomputesRatingInSameTx(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO reviews").WithArgs(anyArgs(10)...).
		WillReturnRows(mock.NewRows([]string{"id", "created_at", "updated_at", "inserted"}).AddRow(int64(5), now, now, true))
	mock.ExpectExec(`UPDATE companies SET average_rating = COALESCE\(\(SELECT ROUND\(AVG\(review_rating\)::numeric, 2\)`).
		WithArgs("P1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	var created bool
	err := NewTxRunner(mock).InTx(context.Background(), func(q Querier) error {
		var err error
		created, err = NewReviewsRepository(q).Upsert(context.Background(), &entity.Review{
			CompanyID:    "P1",
			ReviewLink:   "https://maps.example/r/1",
			ReviewRating: 4,
		})
		return err
	})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestReviewsRepository_UpsertRejectsOutOfRangeRating(t *testing.T) {
	repo := NewReviewsRepository(newMock(t))
	for _, rating := range []int{0, 6, -1} {
		_, err := repo.Upsert(context.Background(), &entity.Review{CompanyID: "P1", ReviewLink: "x", ReviewRating: rating})
		assert.ErrorIs(t, err, ErrInvalidRating)
	}
}

func TestReviewsRepository_UpsertRequiresLink(t *testing.T) {
	_, err := NewReviewsRepository(newMock(t)).Upsert(context.Background(), &entity.Review{CompanyID: "P1", ReviewRating: 3})
	assert.ErrorIs(t, err, ErrBlankInput)
}

func TestReviewsRepository_Delete(t *testing.T) {
	t.Run("recomputes parent", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("DELETE FROM reviews WHERE id = \\$1 RETURNING company_id").WithArgs(int64(5)).
			WillReturnRows(mock.NewRows([]string{"company_id"}).AddRow("P1"))
		mock.ExpectExec("UPDATE companies SET").WithArgs("P1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewReviewsRepository(mock).Delete(context.Background(), 5))
	})

	t.Run("missing review", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("DELETE FROM reviews").WithArgs(int64(99)).WillReturnRows(mock.NewRows([]string{"company_id"}))

		assert.ErrorIs(t, NewReviewsRepository(mock).Delete(context.Background(), 99), ErrNotFound)
	})
}

func TestReviewsRepository_ListByCompany(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	author := "Jane"
	minRating := 4

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reviews WHERE company_id = \$1 AND review_rating >= \$2`).
		WithArgs("P1", 4).WillReturnRows(mock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY review_rating DESC, id DESC LIMIT 10 OFFSET 0`).
		WithArgs("P1", 4).
		WillReturnRows(mock.NewRows([]string{
			"id", "company_id", "review_link", "author_title", "author_image", "review_text", "review_img_urls",
			"owner_answer", "owner_answer_timestamp_datetime_utc", "review_rating", "review_datetime_utc",
			"created_at", "updated_at",
		}).AddRow(int64(1), "P1", "link", &author, nil, nil, []string{}, nil, nil, 5, &now, now, now))

	reviews, total, err := NewReviewsRepository(mock).ListByCompany(context.Background(), "P1",
		dto.ReviewFilter{MinRating: &minRating, Sort: dto.ParseReviewSort("-rating")}, dto.ClampPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].ReviewRating)
	assert.Equal(t, &author, reviews[0].AuthorTitle)
}

func TestReviewsRepository_DefaultSortIsNewestFirst(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reviews`).WithArgs("P1").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY review_datetime_utc DESC NULLS LAST, id DESC`).WithArgs("P1").
		WillReturnRows(mock.NewRows([]string{"id"}))

	reviews, total, err := NewReviewsRepository(mock).ListByCompany(context.Background(), "P1",
		dto.ReviewFilter{Sort: dto.ParseReviewSort("")}, dto.ClampPage(1, 20))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, reviews)
}

func TestReviewsRepository_Distribution(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("GROUP BY review_rating").WithArgs("P1").
		WillReturnRows(mock.NewRows([]string{"review_rating", "count"}).AddRow(5, 3).AddRow(1, 1))

	dist, err := NewReviewsRepository(mock).Distribution(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, entity.RatingDistribution{1: 1, 2: 0, 3: 0, 4: 0, 5: 3}, dist)
}
