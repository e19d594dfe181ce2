// Package store provides the two board document stores the sync core
// reconciles: a badger-backed local store holding drafts on device, and an
// HTTP client for the cloud store that boards are promoted into.
//
// Both implementations satisfy BoardStore and expose two reactive slots:
// the single "current board" and the preview list for listing screens.
package store

import (
	"context"

	"github.com/papermint/papermint-server/internal/domain"
	"github.com/papermint/papermint-server/internal/reactive"
)

// BoardStore is the document-store contract shared by the local and remote
// implementations.
//
// FetchBoard loads a board and publishes it to the current-board slot; at
// most one board is "current" per store at a time, mirroring the single
// open-board screen. RemoveBoard is idempotent: removing an absent board
// succeeds without touching the current slot.
type BoardStore interface {
	AddBoard(ctx context.Context, board *domain.Board) error
	UpdateBoard(ctx context.Context, board *domain.Board) error
	RemoveBoard(ctx context.Context, boardID string) error
	FetchBoard(ctx context.Context, boardID string) (*domain.Board, error)
	ResetCurrentBoard()

	AddCard(ctx context.Context, boardID string, card domain.Card) error
	RemoveCard(ctx context.Context, boardID, cardID string) error

	// ConvertToGift marks a board as a gift server-side and returns the
	// updated board. Only the remote store supports this; the local store
	// returns a conflict error.
	ConvertToGift(ctx context.Context, board *domain.Board) (*domain.Board, error)

	// RefreshPreviews re-reads the store's boards and publishes the preview
	// list to the previews slot.
	RefreshPreviews(ctx context.Context) error

	CurrentBoard() *reactive.Cell[*domain.Board]
	BoardPreviews() *reactive.Cell[[]domain.BoardPreview]
}
