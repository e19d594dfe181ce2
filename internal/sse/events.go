// Package sse implements Server-Sent Events for pushing board state changes
// and listing updates to connected clients.
package sse

import (
	"time"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventBoardTitleChanged represents a board rename.
	EventBoardTitleChanged EventType = "board.title_changed"
	// EventBoardEndTimeChanged represents a board reschedule.
	EventBoardEndTimeChanged EventType = "board.end_time_changed"
	// EventBoardStopped represents an immediate board close.
	EventBoardStopped EventType = "board.stopped"
	// EventBoardDeleted represents a board deletion.
	EventBoardDeleted EventType = "board.deleted"

	// EventShareLinkReady represents a successful share promotion.
	EventShareLinkReady EventType = "board.share_link_ready"
	// EventGiftLinkReady represents a successful gift conversion.
	EventGiftLinkReady EventType = "board.gift_link_ready"

	// EventCardDeleted represents a card removal from a board.
	EventCardDeleted EventType = "card.deleted"

	// EventListingUpdated represents a settled listing refresh.
	EventListingUpdated EventType = "listing.updated"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct
// deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// BoardTitleChangedEventData is the data payload for board rename events.
type BoardTitleChangedEventData struct {
	BoardID string `json:"board_id"`
	Title   string `json:"title"`
}

// BoardEndTimeChangedEventData is the data payload for reschedule events.
type BoardEndTimeChangedEventData struct {
	EndTime time.Time `json:"end_time"`
	BoardID string    `json:"board_id"`
}

// BoardStoppedEventData is the data payload for board stop events.
type BoardStoppedEventData struct {
	StoppedAt time.Time `json:"stopped_at"`
	BoardID   string    `json:"board_id"`
}

// BoardDeletedEventData is the data payload for board delete events.
type BoardDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	BoardID   string    `json:"board_id"`
}

// LinkReadyEventData is the data payload for share and gift link events.
type LinkReadyEventData struct {
	BoardID string `json:"board_id"`
	URL     string `json:"url"`
}

// CardDeletedEventData is the data payload for card delete events.
type CardDeletedEventData struct {
	BoardID string `json:"board_id"`
	CardID  string `json:"card_id"`
}

// ListingUpdatedEventData is the data payload for listing refresh events.
// Thumbnails travel out of band; this just tells clients to re-pull.
type ListingUpdatedEventData struct {
	RefreshedAt time.Time `json:"refreshed_at"`
	BoardCount  int       `json:"board_count"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewBoardTitleChangedEvent creates a board.title_changed event.
func NewBoardTitleChangedEvent(boardID, title string) Event {
	return Event{
		Type: EventBoardTitleChanged,
		Data: BoardTitleChangedEventData{
			BoardID: boardID,
			Title:   title,
		},
		Timestamp: time.Now(),
	}
}

// NewBoardEndTimeChangedEvent creates a board.end_time_changed event.
func NewBoardEndTimeChangedEvent(boardID string, endTime time.Time) Event {
	return Event{
		Type: EventBoardEndTimeChanged,
		Data: BoardEndTimeChangedEventData{
			BoardID: boardID,
			EndTime: endTime,
		},
		Timestamp: time.Now(),
	}
}

// NewBoardStoppedEvent creates a board.stopped event.
func NewBoardStoppedEvent(boardID string) Event {
	return Event{
		Type: EventBoardStopped,
		Data: BoardStoppedEventData{
			BoardID:   boardID,
			StoppedAt: time.Now(),
		},
		Timestamp: time.Now(),
	}
}

// NewBoardDeletedEvent creates a board.deleted event.
func NewBoardDeletedEvent(boardID string) Event {
	return Event{
		Type: EventBoardDeleted,
		Data: BoardDeletedEventData{
			BoardID:   boardID,
			DeletedAt: time.Now(),
		},
		Timestamp: time.Now(),
	}
}

// NewShareLinkReadyEvent creates a board.share_link_ready event.
func NewShareLinkReadyEvent(boardID, url string) Event {
	return Event{
		Type: EventShareLinkReady,
		Data: LinkReadyEventData{
			BoardID: boardID,
			URL:     url,
		},
		Timestamp: time.Now(),
	}
}

// NewGiftLinkReadyEvent creates a board.gift_link_ready event.
func NewGiftLinkReadyEvent(boardID, url string) Event {
	return Event{
		Type: EventGiftLinkReady,
		Data: LinkReadyEventData{
			BoardID: boardID,
			URL:     url,
		},
		Timestamp: time.Now(),
	}
}

// NewCardDeletedEvent creates a card.deleted event.
func NewCardDeletedEvent(boardID, cardID string) Event {
	return Event{
		Type: EventCardDeleted,
		Data: CardDeletedEventData{
			BoardID: boardID,
			CardID:  cardID,
		},
		Timestamp: time.Now(),
	}
}

// NewListingUpdatedEvent creates a listing.updated event.
func NewListingUpdatedEvent(boardCount int) Event {
	return Event{
		Type: EventListingUpdated,
		Data: ListingUpdatedEventData{
			RefreshedAt: time.Now(),
			BoardCount:  boardCount,
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
