// Package form tracks in-progress create and edit forms for blog records.
//
// A form is Clean until a field changes and Dirty afterwards; only a dirty
// form may be submitted. Create forms stay dirty once touched. Edit forms
// compare against the loaded snapshot on every change, so reverting a field
// makes the form clean again.
package form

import (
	"errors"
	"fmt"

	"github.com/jeremyjsx/blogdesk/internal/blogs"
)

type Field string

const (
	Title       Field = "title"
	Description Field = "description"
	Category    Field = "category"
	Status      Field = "status"
	Author      Field = "author"
	PublishDate Field = "publishDate"
)

var ErrUnknownField = errors.New("unknown form field")

type mode int

const (
	createMode mode = iota
	editMode
)

type Controller struct {
	mode     mode
	original blogs.Blog
	current  blogs.Blog
	dirty    bool
	message  string
}

// NewCreate starts an empty create form with the default category and status.
func NewCreate() *Controller {
	b := blogs.Blog{Category: blogs.Tech, Status: blogs.Draft}
	return &Controller{mode: createMode, original: b, current: b}
}

// NewEdit starts an edit form over a loaded record.
func NewEdit(original blogs.Blog) *Controller {
	return &Controller{mode: editMode, original: original, current: original}
}

// Set changes one field. Values for category and status are stored as given;
// Blog.Validate rejects unknown ones at submit.
func (c *Controller) Set(field Field, value string) error {
	next := c.current
	switch field {
	case Title:
		next.Title = value
	case Description:
		next.Description = value
	case Category:
		next.Category = blogs.Category(value)
	case Status:
		next.Status = blogs.Status(value)
	case Author:
		next.Author = value
	case PublishDate:
		next.PublishDate = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	c.update(next)
	return nil
}

// ReplaceImage validates and stores a new image. A rejected image leaves the
// form untouched apart from Message.
func (c *Controller) ReplaceImage(contentType string, data []byte) error {
	url, err := EncodeImage(contentType, data)
	if err != nil {
		c.reject(err)
		return err
	}
	next := c.current
	next.Image = url
	c.update(next)
	c.message = ""
	return nil
}

// ReplaceImageDataURL is ReplaceImage for an image that arrives already
// encoded as a data URL.
func (c *Controller) ReplaceImageDataURL(url string) error {
	contentType, data, err := DecodeDataURL(url)
	if err != nil {
		c.reject(err)
		return err
	}
	return c.ReplaceImage(contentType, data)
}

// ClearImage removes the image. Clearing a form without one is a no-op.
func (c *Controller) ClearImage() {
	if c.current.Image == "" {
		return
	}
	next := c.current
	next.Image = ""
	c.update(next)
	c.message = ""
}

func (c *Controller) reject(err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		c.message = verr.Message
		return
	}
	c.message = err.Error()
}

func (c *Controller) update(next blogs.Blog) {
	c.current = next
	switch c.mode {
	case createMode:
		c.dirty = true
	case editMode:
		c.dirty = !blogs.Equal(c.current, c.original)
	}
}

func (c *Controller) Dirty() bool {
	return c.dirty
}

// CanSubmit reports whether the submit action is enabled.
func (c *Controller) CanSubmit() bool {
	return c.dirty
}

// Values returns the record as currently edited.
func (c *Controller) Values() blogs.Blog {
	return c.current
}

func (c *Controller) Original() blogs.Blog {
	return c.original
}

// Message is the last user-facing validation message, empty when none.
func (c *Controller) Message() string {
	return c.message
}
