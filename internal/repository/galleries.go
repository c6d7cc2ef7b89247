package repository

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/octobees/localpros/api/internal/dto"
	"github.com/octobees/localpros/api/internal/entity"
)

// GalleriesRepository persists company gallery images.
type GalleriesRepository struct {
	db Querier
}

// NewGalleriesRepository wires a repository over db.
func NewGalleriesRepository(db Querier) *GalleriesRepository {
	return &GalleriesRepository{db: db}
}

// ErrInvalidImageType is returned for an image_type outside the accepted set.
var ErrInvalidImageType = eris.New("image type is not included in the list")

// A new image without a position is appended after the company's last one. Updates keep
// the stored position unless a positive one is supplied.
const upsertGallerySQL = `
        INSERT INTO gallery_images (
            company_id, image_url, thumbnail_url, video_url, image_datetime_utc, position, image_type, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5,
            CASE WHEN $6::int > 0 THEN $6::int
                 ELSE (SELECT COALESCE(MAX(position), 0) + 1 FROM gallery_images WHERE company_id = $1)
            END,
            $7, NOW()
        )
        ON CONFLICT (company_id, image_url) DO UPDATE SET
            thumbnail_url = EXCLUDED.thumbnail_url,
            video_url = EXCLUDED.video_url,
            image_datetime_utc = EXCLUDED.image_datetime_utc,
            position = CASE WHEN $6::int > 0 THEN $6::int ELSE gallery_images.position END,
            image_type = EXCLUDED.image_type,
            updated_at = NOW()
        RETURNING id, position, created_at, updated_at, (xmax = 0) AS inserted
    `

// Upsert creates or updates an image keyed by (company_id, image_url). Reports whether a row was created.
func (r *GalleriesRepository) Upsert(ctx context.Context, image *entity.GalleryImage) (bool, error) {
	if image == nil {
		return false, eris.New("repository: gallery image payload is nil")
	}
	image.ImageURL = strings.TrimSpace(image.ImageURL)
	if strings.TrimSpace(image.CompanyID) == "" || image.ImageURL == "" {
		return false, eris.Wrap(ErrBlankInput, "gallery company and image url")
	}
	if image.ImageType != nil && !entity.ValidImageType(*image.ImageType) {
		return false, ErrInvalidImageType
	}
	if image.Position < 0 {
		image.Position = 0
	}

	var inserted bool
	err := r.db.QueryRow(ctx, upsertGallerySQL,
		image.CompanyID,
		image.ImageURL,
		stringOrNil(image.ThumbnailURL),
		stringOrNil(image.VideoURL),
		image.ImageDatetimeUTC,
		image.Position,
		stringOrNil(image.ImageType),
	).Scan(&image.ID, &image.Position, &image.CreatedAt, &image.UpdatedAt, &inserted)
	if err != nil {
		return false, translateWriteError(err, "repository: upsert gallery image")
	}
	return inserted, nil
}

// ListByCompany returns one page of a company's images in position order and the total count.
func (r *GalleriesRepository) ListByCompany(ctx context.Context, companyID string, page dto.PageRequest) ([]entity.GalleryImage, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM gallery_images WHERE company_id = $1", companyID).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "repository: count gallery images")
	}

	rows, err := r.db.Query(ctx, `
        SELECT id, company_id, image_url, thumbnail_url, video_url, image_datetime_utc, position, image_type,
               created_at, updated_at
        FROM gallery_images WHERE company_id = $1
        ORDER BY position ASC, id ASC
        LIMIT $2 OFFSET $3`, companyID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, eris.Wrap(err, "repository: list gallery images")
	}
	defer rows.Close()

	images := []entity.GalleryImage{}
	for rows.Next() {
		var img entity.GalleryImage
		if err := rows.Scan(&img.ID, &img.CompanyID, &img.ImageURL, &img.ThumbnailURL, &img.VideoURL,
			&img.ImageDatetimeUTC, &img.Position, &img.ImageType, &img.CreatedAt, &img.UpdatedAt); err != nil {
			return nil, 0, eris.Wrap(err, "repository: scan gallery image")
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, eris.Wrap(err, "repository: iterate gallery images")
	}
	return images, total, nil
}
