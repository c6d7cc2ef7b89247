package dto

const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
	// MaxPage bounds page so the row offset cannot overflow.
	MaxPage        = 1_000_000
)

// PageRequest is a clamped page/per_page pair.
type PageRequest struct {
	Page    int
	PerPage int
}

// ClampPage applies the listing bounds: page <1 -> 1, page >MaxPage -> MaxPage,
// per_page <1 -> 20, per_page >100 -> 100.
func ClampPage(page, perPage int) PageRequest {
	return ClampPageWithDefault(page, perPage, DefaultPerPage)
}

// ClampPageWithDefault is ClampPage with a custom per_page fallback.
func ClampPageWithDefault(page, perPage, fallback int) PageRequest {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage < 1 {
		perPage = fallback
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return PageRequest{Page: page, PerPage: perPage}
}

// Offset is the number of rows to skip.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Pagination describes a page within a result set.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PerPage     int  `json:"per_page"`
	TotalPages  int  `json:"total_pages"`
	TotalCount  int  `json:"total_count"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// NewPagination computes page metadata for total matching rows.
func NewPagination(p PageRequest, total int) Pagination {
	pages := 0
	if total > 0 && p.PerPage > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return Pagination{
		CurrentPage: p.Page,
		PerPage:     p.PerPage,
		TotalPages:  pages,
		TotalCount:  total,
		HasNext:     p.Page < pages,
		HasPrev:     p.Page > 1,
	}
}
