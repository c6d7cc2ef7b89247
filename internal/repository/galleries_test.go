package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/localpros/api/internal/dto"
	"github.com/octobees/localpros/api/internal/entity"
)

func TestGalleriesRepository_UpsertAppendsPosition(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(`INSERT INTO gallery_images .* COALESCE\(MAX\(position\), 0\) \+ 1`).
		WithArgs("P1", "https://img/1.jpg", nil, nil, (*time.Time)(nil), 0, nil).
		WillReturnRows(mock.NewRows([]string{"id", "position", "created_at", "updated_at", "inserted"}).
			AddRow(int64(4), 3, now, now, true))

	img := &entity.GalleryImage{CompanyID: "P1", ImageURL: " https://img/1.jpg "}
	created, err := NewGalleriesRepository(mock).Upsert(context.Background(), img)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 3, img.Position)
}

func TestGalleriesRepository_UpsertValidatesImageType(t *testing.T) {
	bad := "selfie"
	_, err := NewGalleriesRepository(newMock(t)).Upsert(context.Background(),
		&entity.GalleryImage{CompanyID: "P1", ImageURL: "u", ImageType: &bad})
	assert.ErrorIs(t, err, ErrInvalidImageType)

	_, err = NewGalleriesRepository(newMock(t)).Upsert(context.Background(), &entity.GalleryImage{CompanyID: "P1"})
	assert.ErrorIs(t, err, ErrBlankInput)
}

func TestGalleriesRepository_ListByCompany(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	work := "work"

	mock.ExpectQuery("SELECT COUNT").WithArgs("P1").WillReturnRows(mock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("ORDER BY position ASC, id ASC").WithArgs("P1", 50, 0).
		WillReturnRows(mock.NewRows([]string{
			"id", "company_id", "image_url", "thumbnail_url", "video_url", "image_datetime_utc", "position",
			"image_type", "created_at", "updated_at",
		}).
			AddRow(int64(1), "P1", "a.jpg", nil, nil, nil, 1, &work, now, now).
			AddRow(int64(2), "P1", "b.jpg", nil, nil, nil, 2, nil, now, now))

	images, total, err := NewGalleriesRepository(mock).ListByCompany(context.Background(), "P1", dto.ClampPageWithDefault(0, 0, 50))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, images, 2)
	assert.Equal(t, "a.jpg", images[0].ImageURL)
	assert.Equal(t, &work, images[0].ImageType)
}
