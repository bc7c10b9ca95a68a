package models

// Pagination echoes paging metadata on list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// ConflictFilter narrows stored conflict report listings.
type ConflictFilter struct {
	Status   string
	Kind     string
	Severity string
	Page     int
	PageSize int
}
