// Package pagination computes page/skip/limit metadata shared by every
// paginated ledger read.
package pagination

const (
	// DefaultPageSize is used when a caller omits or zeroes the page size.
	DefaultPageSize = 10
	// MaxPageSize caps the page size a caller may request.
	MaxPageSize = 100
)

// Metadata describes one page of a result set.
type Metadata struct {
	Total      int64 `json:"total"`
	PageNumber int   `json:"page_number"`
	TotalPages int   `json:"total_pages"`
	PageSize   int   `json:"page_size"`
}

// TotalPages returns ceil(total / pageSize).
func TotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// PageSize clamps a requested page size into [1, MaxPageSize].
func PageSize(size int) int {
	switch {
	case size <= 0:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	}
	return size
}

// New builds metadata for an explicitly requested page. Page numbers below
// one are treated as the first page.
func New(total int64, pageNumber, pageSize int) Metadata {
	pageSize = PageSize(pageSize)
	if pageNumber < 1 {
		pageNumber = 1
	}
	return Metadata{
		Total:      total,
		PageNumber: pageNumber,
		TotalPages: TotalPages(total, pageSize),
		PageSize:   pageSize,
	}
}

// Latest builds metadata for a "default to latest page" read: a nil page
// number, or one beyond the last page, selects the last page.
func Latest(total int64, pageNumber *int, pageSize int) Metadata {
	pageSize = PageSize(pageSize)
	totalPages := TotalPages(total, pageSize)

	page := totalPages
	if pageNumber != nil && *pageNumber <= totalPages {
		page = *pageNumber
	}

	return New(total, page, pageSize)
}

// Skip returns how many items precede the page.
func (m Metadata) Skip() int {
	if m.PageNumber < 1 {
		return 0
	}
	return (m.PageNumber - 1) * m.PageSize
}

// Limit returns the maximum number of items on the page.
func (m Metadata) Limit() int {
	return m.PageSize
}
