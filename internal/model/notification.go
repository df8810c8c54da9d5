package model

import "time"

// Category is the semantic tag assigned to a notification by the platform.
type Category string

const (
	CategoryBooking Category = "booking"
	CategoryPayment Category = "payment"
	CategoryIssue   Category = "issue"
	CategoryPenalty Category = "penalty"
	CategoryInvoice Category = "invoice"
	CategoryGeneral Category = "general"
)

// Categories lists every recognized notification category, in display order.
var Categories = []Category{
	CategoryBooking,
	CategoryPayment,
	CategoryIssue,
	CategoryPenalty,
	CategoryInvoice,
	CategoryGeneral,
}

// Valid reports whether c is one of the recognized categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryBooking, CategoryPayment, CategoryIssue,
		CategoryPenalty, CategoryInvoice, CategoryGeneral:
		return true
	}
	return false
}

// Notification is a single platform notification as held by the client.
type Notification struct {
	// ID is the server-assigned identifier and the merge key: two fetches
	// of the same ID are the same logical notification.
	ID string `json:"id"`

	// Title is the short display headline.
	Title string `json:"title"`

	// Content is the notification body text.
	Content string `json:"content"`

	// Category is the semantic tag from the closed set above.
	Category Category `json:"category"`

	// IsRead is the only field the client ever mutates. It transitions
	// false -> true and never back.
	IsRead bool `json:"is_read"`

	// CreatedAt is when the server generated this notification.
	CreatedAt time.Time `json:"created_at"`
}
