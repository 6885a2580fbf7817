package blogs

import (
	"time"
)

type Category string

const (
	Tech     Category = "Tech"
	Business Category = "Business"
	Design   Category = "Design"
)

func (c Category) Valid() bool {
	switch c {
	case Tech, Business, Design:
		return true
	}
	return false
}

type Status string

const (
	Draft     Status = "Draft"
	Published Status = "Published"
)

func (s Status) Valid() bool {
	return s == Draft || s == Published
}

// DateLayout is the calendar date format of PublishDate.
const DateLayout = "2006-01-02"

// Blog is the only persisted entity. Values are never mutated in place: every
// change produces a new Blog so snapshots taken by callers stay intact.
type Blog struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Status      Status    `json:"status"`
	Author      string    `json:"author"`
	PublishDate string    `json:"publishDate"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
	DeletedAt   time.Time `json:"deletedAt,omitzero"`
}

// Active reports whether the record has not been soft-deleted.
func (b Blog) Active() bool {
	return b.DeletedAt.IsZero()
}

// Validate returns a field → problem map, empty when the record is acceptable.
func (b Blog) Validate() map[string]string {
	errs := make(map[string]string)
	if b.Title == "" {
		errs["title"] = "required"
	}
	if b.Description == "" {
		errs["description"] = "required"
	}
	if b.Author == "" {
		errs["author"] = "required"
	}
	if b.PublishDate == "" {
		errs["publishDate"] = "required"
	} else if _, err := time.Parse(DateLayout, b.PublishDate); err != nil {
		errs["publishDate"] = "must be YYYY-MM-DD"
	}
	if !b.Category.Valid() {
		errs["category"] = "must be one of Tech, Business, Design"
	}
	if !b.Status.Valid() {
		errs["status"] = "must be one of Draft, Published"
	}
	return errs
}

// Equal compares two records field by field. Timestamps are compared as
// instants so a round trip through JSON does not count as a change.
func Equal(a, b Blog) bool {
	return a.ID == b.ID &&
		a.Title == b.Title &&
		a.Description == b.Description &&
		a.Category == b.Category &&
		a.Status == b.Status &&
		a.Author == b.Author &&
		a.PublishDate == b.PublishDate &&
		a.Image == b.Image &&
		a.CreatedAt.Equal(b.CreatedAt) &&
		a.DeletedAt.Equal(b.DeletedAt)
}

type Criteria struct {
	Search   string
	Category Category
	Status   Status
}

type Page struct {
	Blogs      []Blog `json:"data"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	TotalPages int    `json:"total_pages"`
}

type Summary struct {
	Total     int    `json:"total"`
	Published int    `json:"published"`
	Drafts    int    `json:"drafts"`
	Deleted   int    `json:"deleted"`
	Recent    []Blog `json:"recent"`
}
