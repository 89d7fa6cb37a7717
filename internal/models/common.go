package models

// Level is a class level offered by the school.
type Level string

const (
	LevelLKG1 Level = "LKG1"
	LevelUKG1 Level = "UKG1"
	LevelUKG2 Level = "UKG2"
)

// Valid reports whether l is an offered level.
func (l Level) Valid() bool {
	switch l {
	case LevelLKG1, LevelUKG1, LevelUKG2:
		return true
	}
	return false
}

// StoredFile is the metadata triple kept for any uploaded file.
type StoredFile struct {
	OriginalName string `json:"original_name"`
	StoredName   string `json:"stored_name"`
	Path         string `json:"-"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// Page normalises a 1-based page request.
type Page struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps page and size to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Paginate builds pagination metadata for total rows.
func (p Page) Paginate(total int) *Pagination {
	n := p.Normalize()
	pages := 0
	if total > 0 {
		pages = (total + n.PageSize - 1) / n.PageSize
	}
	return &Pagination{Page: n.Page, PageSize: n.PageSize, TotalCount: total, TotalPages: pages}
}
