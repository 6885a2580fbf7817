package events

import (
	"time"
)

const (
	TypeBlogCreated   = "blog.created"
	TypeBlogUpdated   = "blog.updated"
	TypeBlogPublished = "blog.published"
	TypeBlogDeleted   = "blog.deleted"
	TypeBlogPurged    = "blog.purged"
)

type BlogPayload struct {
	BlogID   string `json:"blog_id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

type BlogEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   BlogPayload `json:"payload"`
}

func NewBlogEvent(eventType string, payload BlogPayload) BlogEvent {
	return BlogEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
