package gateway

import (
	"encoding/json"
	"time"

	"github.com/nhle/evcharge-console/internal/model"
)

// notificationPayload is the wire shape of a single notification. The ID is
// decoded as json.Number because the platform emits numeric identifiers while
// this client treats them as opaque strings. IsRead stays a pointer so an
// omitted or null flag is distinguishable from an explicit false.
type notificationPayload struct {
	ID        json.Number `json:"id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Category  string      `json:"category"`
	IsRead    *bool       `json:"isRead"`
	CreatedAt string      `json:"createdAt"`
}

// listResponse is the response from GET /api/notifications.
type listResponse struct {
	Data []notificationPayload `json:"data"`
}

// countResponse is the response from GET /api/notifications/unread-count.
type countResponse struct {
	Count int `json:"count"`
}

// createRequest is the body for POST /api/notifications.
type createRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// createResponse wraps the created notification.
type createResponse struct {
	Data notificationPayload `json:"data"`
}

// ErrorResponse is the platform's standard error body.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// decodeRecord maps a wire payload onto a Record. It never fails: unparseable
// fields fall back to zero values so a single malformed notification cannot
// poison a whole list response.
func decodeRecord(p notificationPayload) Record {
	var createdAt time.Time
	if p.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
			createdAt = t
		}
	}

	return Record{
		ID:        p.ID.String(),
		Title:     p.Title,
		Content:   p.Content,
		Category:  model.Category(p.Category),
		Read:      p.IsRead,
		CreatedAt: createdAt,
	}
}
