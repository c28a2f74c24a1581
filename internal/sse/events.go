// Package sse implements Server-Sent Events so open dashboards see rating and
// catalog changes made elsewhere.
package sse

import (
	"time"

	"github.com/bookshelfapp/bookshelf-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventBookCreated represents a book creation event.
	EventBookCreated EventType = "book.created"
	// EventBookDeleted represents a book deletion event.
	EventBookDeleted EventType = "book.deleted"

	// EventRatingSubmitted is sent when new rating counts are accepted by the Book API.
	EventRatingSubmitted EventType = "rating.submitted"
	// EventRatingFailed is sent when a rating write fails and local edits are rolled back.
	EventRatingFailed EventType = "rating.failed"
	// EventRatingUndone is sent when a compensating undo write succeeds.
	EventRatingUndone EventType = "rating.undone"

	// EventIndexRefreshed represents a completed catalog re-index.
	EventIndexRefreshed EventType = "search.index_refreshed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// ISBN scopes the event to one book. Clients watching a single book
	// only receive events for it; empty means catalog-wide.
	ISBN string `json:"-"`
}

// BookEventData is the data payload for book.created events.
type BookEventData struct {
	Book *domain.Book `json:"book"`
}

// BookDeletedEventData is the data payload for book.deleted events.
type BookDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	ISBN      string    `json:"isbn"`
}

// RatingEventData is the data payload for rating events.
type RatingEventData struct {
	BookID  int64   `json:"book_id"`
	ISBN    string  `json:"isbn"`
	Counts  [5]int  `json:"counts"` // index 0 holds 1-star ratings
	Total   int     `json:"total"`
	Average float64 `json:"average"`
	Error   string  `json:"error,omitempty"`
}

// IndexRefreshedEventData is the data payload for search.index_refreshed events.
type IndexRefreshedEventData struct {
	Books      int   `json:"books"`
	DurationMs int64 `json:"duration_ms"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewBookCreatedEvent creates a book.created event.
func NewBookCreatedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookCreated,
		Data:      BookEventData{Book: book},
		Timestamp: time.Now(),
		ISBN:      book.ISBN(),
	}
}

// NewBookDeletedEvent creates a book.deleted event.
func NewBookDeletedEvent(isbn string, deletedAt time.Time) Event {
	return Event{
		Type: EventBookDeleted,
		Data: BookDeletedEventData{
			ISBN:      isbn,
			DeletedAt: deletedAt,
		},
		Timestamp: time.Now(),
		ISBN:      isbn,
	}
}

// NewRatingEvent creates a rating event of the given type.
func NewRatingEvent(eventType EventType, data RatingEventData) Event {
	return Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ISBN:      data.ISBN,
	}
}

// NewIndexRefreshedEvent creates a search.index_refreshed event.
func NewIndexRefreshedEvent(books int, took time.Duration) Event {
	return Event{
		Type: EventIndexRefreshed,
		Data: IndexRefreshedEventData{
			Books:      books,
			DurationMs: took.Milliseconds(),
		},
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}
