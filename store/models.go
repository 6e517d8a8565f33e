package store

import (
	"time"

	"github.com/uptrace/bun"
)

// Event statuses as stored in events.status.
const (
	EventPublished = "published"
	EventDraft     = "draft"
	EventCancelled = "cancelled"
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID          int64     `bun:"id,pk,autoincrement"`
	OrganizerID int64     `bun:"organizer_id,notnull"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description"`
	City        string    `bun:"city"`
	Country     string    `bun:"country"`
	Category    string    `bun:"category"`
	Slug        string    `bun:"slug,notnull"`
	Status      string    `bun:"status,notnull,default:'draft'"`
	StartAt     time.Time `bun:"start_at,notnull"`
	EndAt       time.Time `bun:"end_at,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type Organizer struct {
	bun.BaseModel `bun:"table:organizers,alias:o"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Email     string    `bun:"email,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Booking enquiry statuses.
const (
	EnquiryPending = "pending"
	EnquirySent    = "sent"
	EnquiryReplied = "replied"
)

type BookingEnquiry struct {
	bun.BaseModel `bun:"table:booking_enquiries,alias:be"`

	ID           int64     `bun:"id,pk,autoincrement"`
	EventID      int64     `bun:"event_id,notnull"`
	OrganizerID  int64     `bun:"organizer_id,notnull"`
	UserID       string    `bun:"user_id"`
	SessionID    string    `bun:"session_id"`
	Message      string    `bun:"message,notnull"`
	Quantity     int64     `bun:"quantity"`
	EnquiryType  string    `bun:"enquiry_type"`
	ContactEmail string    `bun:"contact_email,notnull"`
	ContactPhone string    `bun:"contact_phone"`
	Status       string    `bun:"status,notnull,default:'pending'"`
	Reply        string    `bun:"reply"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	SentAt       time.Time `bun:"sent_at,nullzero"`
	RepliedAt    time.Time `bun:"replied_at,nullzero"`
}

// EventFilter narrows an event search; empty fields are ignored.
type EventFilter struct {
	Query    string
	Location string
	Date     string
	Category string
	Limit    int
}
