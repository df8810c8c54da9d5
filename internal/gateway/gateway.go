package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/evcharge-console/internal/model"
)

// AuthError indicates that the platform rejected the credential.
// It is returned by the REST gateway when a 401 response is received.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Record is a notification as returned by the platform. It differs from
// model.Notification in one way: the read flag is a pointer, because the
// bulk list endpoint does not always echo it. A nil Read means the server
// was silent and the store must resolve the flag against local state.
type Record struct {
	ID        string
	Title     string
	Content   string
	Category  model.Category
	Read      *bool
	CreatedAt time.Time
}

// Notification converts a Record into a model.Notification. An absent read
// flag defaults to unread; callers merging against known IDs apply their own
// resolution first.
func (r Record) Notification() model.Notification {
	read := false
	if r.Read != nil {
		read = *r.Read
	}
	return model.Notification{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		Category:  r.Category,
		IsRead:    read,
		CreatedAt: r.CreatedAt,
	}
}

// CreateInput is the payload for creating a notification.
type CreateInput struct {
	Title    string
	Content  string
	Category model.Category
}

// Gateway is the remote notification API this client depends on.
type Gateway interface {
	// List retrieves the full notification list for the current user.
	List(ctx context.Context) ([]Record, error)

	// UnreadCount retrieves only the number of unread notifications.
	// This is the cheap endpoint the poller hits every interval.
	UnreadCount(ctx context.Context) (int, error)

	// MarkRead marks a single notification as read. Marking an
	// already-read notification is not an error.
	MarkRead(ctx context.Context, id string) error

	// MarkAllRead marks every notification for the current user as read.
	MarkAllRead(ctx context.Context) error

	// Create stores a new notification and returns it with its
	// server-assigned ID.
	Create(ctx context.Context, in CreateInput) (Record, error)
}
