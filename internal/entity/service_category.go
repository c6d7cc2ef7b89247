package entity

// ServiceCategory groups companies by the kind of work they do.
type ServiceCategory struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description,omitempty"`
}
