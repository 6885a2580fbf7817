package blogs

import "strings"

const (
	PageSize    = 5
	RecentLimit = 5
)

// ActiveOnly keeps records that have not been soft-deleted, in order.
func ActiveOnly(records []Blog) []Blog {
	out := make([]Blog, 0, len(records))
	for _, b := range records {
		if b.Active() {
			out = append(out, b)
		}
	}
	return out
}

// Filter applies the active filter first and then the search, category and
// status criteria. Empty criteria fields pass everything through.
func Filter(records []Blog, c Criteria) []Blog {
	search := strings.ToLower(c.Search)
	out := make([]Blog, 0, len(records))
	for _, b := range ActiveOnly(records) {
		if search != "" && !strings.Contains(strings.ToLower(b.Title), search) {
			continue
		}
		if c.Category != "" && b.Category != c.Category {
			continue
		}
		if c.Status != "" && b.Status != c.Status {
			continue
		}
		out = append(out, b)
	}
	return out
}

func PageCount(n, size int) int {
	if size < 1 {
		return 0
	}
	pages := n / size
	if n%size > 0 {
		pages++
	}
	return pages
}

// Paginate returns the 1-based page of records. Pages past the end are empty.
func Paginate(records []Blog, page, size int) []Blog {
	if page < 1 {
		page = 1
	}
	if size < 1 || page > PageCount(len(records), size) {
		return []Blog{}
	}
	start := (page - 1) * size
	end := min(start+size, len(records))
	out := make([]Blog, end-start)
	copy(out, records[start:end])
	return out
}

func List(records []Blog, c Criteria, page int) Page {
	if page < 1 {
		page = 1
	}
	filtered := Filter(records, c)
	return Page{
		Blogs:      Paginate(filtered, page, PageSize),
		Total:      len(filtered),
		Page:       page,
		PerPage:    PageSize,
		TotalPages: PageCount(len(filtered), PageSize),
	}
}

// Summarize computes the dashboard aggregates. Total counts every stored
// record including soft-deleted ones; Recent holds the newest active records
// first.
func Summarize(records []Blog) Summary {
	s := Summary{Total: len(records)}
	for _, b := range records {
		switch {
		case !b.Active():
			s.Deleted++
		case b.Status == Published:
			s.Published++
		case b.Status == Draft:
			s.Drafts++
		}
	}
	active := ActiveOnly(records)
	if len(active) > RecentLimit {
		active = active[len(active)-RecentLimit:]
	}
	s.Recent = make([]Blog, len(active))
	for i, b := range active {
		s.Recent[len(active)-1-i] = b
	}
	return s
}

// ListState is the browsing position of a list view.
type ListState struct {
	Criteria Criteria
	Page     int
}

// WithCriteria moves to c, going back to the first page when c differs from
// the current criteria.
func (s ListState) WithCriteria(c Criteria) ListState {
	if c != s.Criteria {
		return ListState{Criteria: c, Page: 1}
	}
	return s
}

func (s ListState) WithPage(page int) ListState {
	if page < 1 {
		page = 1
	}
	s.Page = page
	return s
}

func (s ListState) Apply(records []Blog) Page {
	return List(records, s.Criteria, s.Page)
}
