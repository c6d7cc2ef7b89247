package entity

import "time"

// Review is a customer review of a company. Rating is an integer in 1..5.
type Review struct {
	ID                              int64      `json:"id"`
	CompanyID                       string     `json:"company_id"`
	ReviewLink                      string     `json:"review_link"`
	AuthorTitle                     *string    `json:"author_title,omitempty"`
	AuthorImage                     *string    `json:"author_image,omitempty"`
	ReviewText                      *string    `json:"review_text,omitempty"`
	ReviewImgURLs                   []string   `json:"review_img_urls"`
	OwnerAnswer                     *string    `json:"owner_answer,omitempty"`
	OwnerAnswerTimestampDatetimeUTC *time.Time `json:"owner_answer_timestamp_datetime_utc,omitempty"`
	ReviewRating                    int        `json:"review_rating"`
	ReviewDatetimeUTC               *time.Time `json:"review_datetime_utc,omitempty"`
	CreatedAt                       time.Time  `json:"created_at"`
	UpdatedAt                       time.Time  `json:"updated_at"`
}

// MinReviewRating and MaxReviewRating bound Review.ReviewRating.
const (
	MinReviewRating = 1
	MaxReviewRating = 5
)

// RatingDistribution counts reviews per star value 1..5.
type RatingDistribution map[int]int
