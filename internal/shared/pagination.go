package shared

// Page is a zero-based slice of a sorted listing together with its totals.
type Page[T any] struct {
	Content          []T   `json:"content"`
	TotalPages       int   `json:"totalPages"`
	TotalElements    int64 `json:"totalElements"`
	Size             int   `json:"size"`
	Number           int   `json:"number"`
	NumberOfElements int   `json:"numberOfElements"`
	First            bool  `json:"first"`
	Last             bool  `json:"last"`
	Empty            bool  `json:"empty"`
}

// NewPage computes page metadata for content found at the zero-based page
// number out of total matching rows.
func NewPage[T any](content []T, number, size int, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	if size <= 0 {
		size = 20
	}
	if number < 0 {
		number = 0
	}
	totalPages := int((total + int64(size) - 1) / int64(size))
	return Page[T]{
		Content:          content,
		TotalPages:       totalPages,
		TotalElements:    total,
		Size:             size,
		Number:           number,
		NumberOfElements: len(content),
		First:            number == 0,
		Last:             number >= totalPages-1,
		Empty:            len(content) == 0,
	}
}

// HasNext reports whether a page follows this one.
func (p Page[T]) HasNext() bool {
	return !p.Last
}

// HasPrevious reports whether a page precedes this one.
func (p Page[T]) HasPrevious() bool {
	return !p.First
}

// Pages lists the zero-based page numbers to show around the current page,
// at most window of them.
func (p Page[T]) Pages(window int) []int {
	if p.TotalPages == 0 || window <= 0 {
		return nil
	}
	start := p.Number - window/2
	if start < 0 {
		start = 0
	}
	end := start + window
	if end > p.TotalPages {
		end = p.TotalPages
		start = max(end-window, 0)
	}
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}
