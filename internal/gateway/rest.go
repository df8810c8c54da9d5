package gateway

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/nhle/evcharge-console/internal/session"
)

// REST implements Gateway against the platform's notification endpoints.
type REST struct {
	client *Client
}

// NewREST creates a REST gateway. Credentials are read from creds on every
// request.
func NewREST(baseURL string, creds session.Source) *REST {
	return &REST{client: NewClient(baseURL, creds)}
}

// List retrieves the full notification list for the current user.
func (g *REST) List(ctx context.Context) ([]Record, error) {
	var resp listResponse
	if err := g.client.Get(ctx, "/api/notifications", &resp); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	records := make([]Record, 0, len(resp.Data))
	for _, p := range resp.Data {
		records = append(records, decodeRecord(p))
	}
	return records, nil
}

// UnreadCount retrieves the number of unread notifications.
func (g *REST) UnreadCount(ctx context.Context) (int, error) {
	var resp countResponse
	err := g.client.Get(ctx, "/api/notifications/unread-count", &resp)
	if err != nil {
		return 0, fmt.Errorf("fetching unread count: %w", err)
	}
	if resp.Count < 0 {
		return 0, nil
	}
	return resp.Count, nil
}

// MarkRead marks a single notification as read.
func (g *REST) MarkRead(ctx context.Context, id string) error {
	path := "/api/notifications/" + url.PathEscape(id) + "/read"
	if err := g.client.Put(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}
	return nil
}

// MarkAllRead marks every notification for the current user as read.
func (g *REST) MarkAllRead(ctx context.Context) error {
	if err := g.client.Put(ctx, "/api/notifications/read-all", nil, nil); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

// Create stores a new notification on the platform. A client-generated
// request ID makes accidental resubmits (e.g. a double enter on the compose
// form) idempotent server-side.
func (g *REST) Create(ctx context.Context, in CreateInput) (Record, error) {
	body := createRequest{
		Title:    in.Title,
		Content:  in.Content,
		Category: string(in.Category),
	}
	headers := map[string]string{
		"X-Request-ID": uuid.New().String(),
	}

	var resp createResponse
	if err := g.client.Post(ctx, "/api/notifications", body, &resp, headers); err != nil {
		return Record{}, fmt.Errorf("creating notification: %w", err)
	}

	return decodeRecord(resp.Data), nil
}
