// Package domain contains the core entities of the rolling-paper product:
// boards, the cards attached to them, and the users who write them.
package domain

import (
	"fmt"
	"time"
)

// Board is the shared greeting-board aggregate. A board starts life on the
// device that created it and may later be promoted to the remote store when
// its owner asks for a share or gift link.
type Board struct {
	ID           string    `json:"id"`
	Creator      *User     `json:"creator,omitempty"`
	Cards        []Card    `json:"cards"`
	CreatedAt    time.Time `json:"created_at"`
	EndTime      time.Time `json:"end_time"`
	Title        string    `json:"title"`
	ShareLink    string    `json:"share_link,omitempty"`
	TemplateID   string    `json:"template_id"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	IsGift       bool      `json:"is_gift"`
}

// State describes where a board sits in its share/gift lifecycle.
// Closed is orthogonal and derived from EndTime, see Closed().
type State int

const (
	// StateDraft is a local-only board with no share link.
	StateDraft State = iota
	// StateShared is a remote-resident board with a minted share link.
	StateShared
	// StateGifted is a shared board that has been converted to a gift.
	StateGifted
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateShared:
		return "shared"
	case StateGifted:
		return "gifted"
	default:
		return "unknown"
	}
}

// State derives the lifecycle state from the board's fields. The share link
// is the single source of truth for remote residency, so state never needs
// to be stored separately.
func (b *Board) State() State {
	switch {
	case b.IsGift:
		return StateGifted
	case b.ShareLink != "":
		return StateShared
	default:
		return StateDraft
	}
}

// Closed reports whether the board has reached its end time.
func (b *Board) Closed(now time.Time) bool {
	return !now.Before(b.EndTime)
}

// Stop closes the board immediately by setting the closing sentinel:
// EndTime equal to CreatedAt.
func (b *Board) Stop() {
	b.EndTime = b.CreatedAt
}

// Stopped reports whether the board was manually stopped rather than
// expiring naturally.
func (b *Board) Stopped() bool {
	return b.EndTime.Equal(b.CreatedAt)
}

// AddCard appends a card to the board's display sequence.
// Card IDs must be unique within a board.
func (b *Board) AddCard(c Card) error {
	for _, existing := range b.Cards {
		if existing.ID == c.ID {
			return fmt.Errorf("card %s already attached to board %s", c.ID, b.ID)
		}
	}
	b.Cards = append(b.Cards, c)
	return nil
}

// RemoveCard deletes a card by ID, preserving the order of the rest.
// Returns false if the card is not attached.
func (b *Board) RemoveCard(cardID string) bool {
	for i, c := range b.Cards {
		if c.ID == cardID {
			b.Cards = append(b.Cards[:i], b.Cards[i+1:]...)
			return true
		}
	}
	return false
}

// Card returns the attached card with the given ID, or nil.
func (b *Board) Card(cardID string) *Card {
	for i := range b.Cards {
		if b.Cards[i].ID == cardID {
			return &b.Cards[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the board. Mutating the copy, including its
// card sequence, never touches the original.
func (b *Board) Clone() *Board {
	clone := *b
	clone.Cards = make([]Card, len(b.Cards))
	copy(clone.Cards, b.Cards)
	if b.Creator != nil {
		creator := *b.Creator
		clone.Creator = &creator
	}
	return &clone
}

// Preview projects the board into its listing representation.
func (b *Board) Preview() BoardPreview {
	return BoardPreview{
		ID:           b.ID,
		Title:        b.Title,
		CreatedAt:    b.CreatedAt,
		EndTime:      b.EndTime,
		ThumbnailURL: b.ThumbnailURL,
		TemplateID:   b.TemplateID,
		IsGift:       b.IsGift,
		CardCount:    len(b.Cards),
	}
}

// BoardPreview is a lightweight projection of a Board used for list
// rendering. It carries no card content.
type BoardPreview struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	EndTime      time.Time `json:"end_time"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	TemplateID   string    `json:"template_id"`
	IsGift       bool      `json:"is_gift"`
	CardCount    int       `json:"card_count"`
}
