package entity

import "time"

// GalleryImage is a photo or video attached to a company.
type GalleryImage struct {
	ID               int64      `json:"id"`
	CompanyID        string     `json:"company_id"`
	ImageURL         string     `json:"image_url"`
	ThumbnailURL     *string    `json:"thumbnail_url,omitempty"`
	VideoURL         *string    `json:"video_url,omitempty"`
	ImageDatetimeUTC *time.Time `json:"image_datetime_utc,omitempty"`
	Position         int        `json:"position"`
	ImageType        *string    `json:"image_type,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

var galleryImageTypes = map[string]struct{}{
	"before":    {},
	"after":     {},
	"work":      {},
	"team":      {},
	"equipment": {},
}

// ValidImageType reports whether t is an accepted gallery image category.
func ValidImageType(t string) bool {
	_, ok := galleryImageTypes[t]
	return ok
}
