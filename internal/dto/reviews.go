package dto

import "strings"

// ReviewSortKey enumerates review orderings.
type ReviewSortKey int

const (
	ReviewSortByDate ReviewSortKey = iota
	ReviewSortByRating
)

// ReviewSort is a review sort key with direction.
type ReviewSort struct {
	Key        ReviewSortKey
	Descending bool
}

// ParseReviewSort reads "review_date" or "rating" with an optional '-' prefix.
// Blank or unknown input yields newest first.
func ParseReviewSort(raw string) ReviewSort {
	raw = strings.TrimSpace(raw)
	desc := strings.HasPrefix(raw, "-")
	switch strings.TrimPrefix(raw, "-") {
	case "review_date":
		return ReviewSort{Key: ReviewSortByDate, Descending: desc}
	case "rating":
		return ReviewSort{Key: ReviewSortByRating, Descending: desc}
	default:
		return ReviewSort{Key: ReviewSortByDate, Descending: true}
	}
}

// ReviewFilter narrows a company's reviews.
type ReviewFilter struct {
	MinRating *int
	Sort      ReviewSort
}
