package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/papermint/papermint-server/internal/domain"
	"github.com/papermint/papermint-server/internal/errors"
	"github.com/papermint/papermint-server/internal/reactive"
)

// boardPrefix namespaces board documents inside the badger keyspace.
const boardPrefix = "board:"

// Local is the on-device board store. Boards live as JSON documents in an
// embedded badger database; this is where every board starts life as a
// draft.
type Local struct {
	db     *badger.DB
	boards *entity[domain.Board]
	logger *slog.Logger

	current  *reactive.Cell[*domain.Board]
	previews *reactive.Cell[[]domain.BoardPreview]
}

// OpenLocal opens (or creates) the local store at the given path.
func OpenLocal(path string, logger *slog.Logger) (*Local, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil      // Disable badger's internal logging
	opts.SyncWrites = true // Draft boards must survive a crash

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	return &Local{
		db:       db,
		boards:   newEntity[domain.Board](db, boardPrefix),
		logger:   logger,
		current:  reactive.NewCell[*domain.Board](),
		previews: reactive.NewCell[[]domain.BoardPreview](),
	}, nil
}

// DB exposes the underlying badger handle so small sibling stores (settings)
// can share one database file.
func (s *Local) DB() *badger.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Local) Close() error {
	return s.db.Close()
}

// CurrentBoard returns the current-board slot.
func (s *Local) CurrentBoard() *reactive.Cell[*domain.Board] {
	return s.current
}

// BoardPreviews returns the preview-list slot.
func (s *Local) BoardPreviews() *reactive.Cell[[]domain.BoardPreview] {
	return s.previews
}

// AddBoard stores a new board document.
func (s *Local) AddBoard(ctx context.Context, board *domain.Board) error {
	if err := s.boards.Put(ctx, board.ID, board); err != nil {
		return fmt.Errorf("add board: %w", err)
	}
	s.logger.Info("board added to local store", "board_id", board.ID)
	return s.RefreshPreviews(ctx)
}

// UpdateBoard replaces a board document and keeps the current slot in sync
// when the updated board is the open one.
func (s *Local) UpdateBoard(ctx context.Context, board *domain.Board) error {
	if err := s.boards.Put(ctx, board.ID, board); err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	s.syncCurrent(board)
	return s.RefreshPreviews(ctx)
}

// RemoveBoard deletes a board document. Removing an absent board is a
// successful no-op; the current slot is only cleared when it held the
// removed board.
func (s *Local) RemoveBoard(ctx context.Context, boardID string) error {
	if err := s.boards.Delete(ctx, boardID); err != nil {
		return fmt.Errorf("remove board: %w", err)
	}
	if cur, ok := s.current.Get(); ok && cur != nil && cur.ID == boardID {
		s.current.Set(nil)
	}
	s.logger.Info("board removed from local store", "board_id", boardID)
	return s.RefreshPreviews(ctx)
}

// FetchBoard loads a board and publishes it to the current-board slot.
func (s *Local) FetchBoard(ctx context.Context, boardID string) (*domain.Board, error) {
	board, err := s.boards.Get(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("fetch board: %w", err)
	}
	s.current.Set(board.Clone())
	return board, nil
}

// ResetCurrentBoard clears the current-board slot.
func (s *Local) ResetCurrentBoard() {
	s.current.Set(nil)
}

// AddCard appends a card to a board's display sequence.
func (s *Local) AddCard(ctx context.Context, boardID string, card domain.Card) error {
	board, err := s.boards.Get(ctx, boardID)
	if err != nil {
		return fmt.Errorf("add card: %w", err)
	}
	if err := board.AddCard(card); err != nil {
		return errors.Conflict(err.Error())
	}
	if err := s.boards.Put(ctx, boardID, board); err != nil {
		return fmt.Errorf("add card: %w", err)
	}
	s.syncCurrent(board)
	s.logger.Info("card added", "board_id", boardID, "card_id", card.ID)
	return s.RefreshPreviews(ctx)
}

// RemoveCard deletes a card from a board. Removing an absent card is a
// successful no-op.
func (s *Local) RemoveCard(ctx context.Context, boardID, cardID string) error {
	board, err := s.boards.Get(ctx, boardID)
	if err != nil {
		return fmt.Errorf("remove card: %w", err)
	}
	if !board.RemoveCard(cardID) {
		return nil
	}
	if err := s.boards.Put(ctx, boardID, board); err != nil {
		return fmt.Errorf("remove card: %w", err)
	}
	s.syncCurrent(board)
	s.logger.Info("card removed", "board_id", boardID, "card_id", cardID)
	return s.RefreshPreviews(ctx)
}

// ConvertToGift is a remote-only operation.
func (s *Local) ConvertToGift(_ context.Context, board *domain.Board) (*domain.Board, error) {
	return nil, errors.Conflict(fmt.Sprintf("board %s is local-only; gifts require remote residency", board.ID))
}

// RefreshPreviews republishes the preview list from the stored boards.
func (s *Local) RefreshPreviews(ctx context.Context) error {
	boards, err := s.boards.List(ctx)
	if err != nil {
		return fmt.Errorf("refresh previews: %w", err)
	}

	previews := make([]domain.BoardPreview, 0, len(boards))
	for _, b := range boards {
		previews = append(previews, b.Preview())
	}
	s.previews.Set(previews)
	return nil
}

// syncCurrent republishes the current slot when board is the open board.
func (s *Local) syncCurrent(board *domain.Board) {
	if cur, ok := s.current.Get(); ok && cur != nil && cur.ID == board.ID {
		s.current.Set(board.Clone())
	}
}
