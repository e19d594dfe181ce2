package store

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papermint/papermint-server/internal/domain"
	"github.com/papermint/papermint-server/internal/errors"
	"github.com/papermint/papermint-server/internal/reactive"
)

// remoteTimeout bounds every call to the cloud document API.
const remoteTimeout = 15 * time.Second

// Remote is the cloud board store, reached over the document API. Boards
// arrive here through promotion and are authoritative once they do.
type Remote struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger

	current  *reactive.Cell[*domain.Board]
	previews *reactive.Cell[[]domain.BoardPreview]
}

// NewRemote creates a Remote store client for the given API base URL.
func NewRemote(baseURL, apiKey string, logger *slog.Logger) *Remote {
	return &Remote{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: remoteTimeout},
		logger:     logger,
		current:    reactive.NewCell[*domain.Board](),
		previews:   reactive.NewCell[[]domain.BoardPreview](),
	}
}

// CurrentBoard returns the current-board slot.
func (s *Remote) CurrentBoard() *reactive.Cell[*domain.Board] {
	return s.current
}

// BoardPreviews returns the preview-list slot.
func (s *Remote) BoardPreviews() *reactive.Cell[[]domain.BoardPreview] {
	return s.previews
}

// AddBoard writes a board document to the cloud store.
func (s *Remote) AddBoard(ctx context.Context, board *domain.Board) error {
	if err := s.do(ctx, http.MethodPost, "/v1/boards", board, nil, nil); err != nil {
		return fmt.Errorf("add board: %w", err)
	}
	s.logger.Info("board added to remote store", "board_id", board.ID)
	return nil
}

// UpdateBoard replaces a board document in the cloud store.
func (s *Remote) UpdateBoard(ctx context.Context, board *domain.Board) error {
	if err := s.do(ctx, http.MethodPut, "/v1/boards/"+board.ID, board, nil, nil); err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	s.syncCurrent(board)
	return nil
}

// RemoveBoard deletes a board document. A 404 from the API is treated as a
// successful no-op.
func (s *Remote) RemoveBoard(ctx context.Context, boardID string) error {
	err := s.do(ctx, http.MethodDelete, "/v1/boards/"+boardID, nil, nil, nil)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return fmt.Errorf("remove board: %w", err)
	}
	if cur, ok := s.current.Get(); ok && cur != nil && cur.ID == boardID {
		s.current.Set(nil)
	}
	s.logger.Info("board removed from remote store", "board_id", boardID)
	return nil
}

// FetchBoard loads a board and publishes it to the current-board slot.
func (s *Remote) FetchBoard(ctx context.Context, boardID string) (*domain.Board, error) {
	var board domain.Board
	if err := s.do(ctx, http.MethodGet, "/v1/boards/"+boardID, nil, &board, nil); err != nil {
		return nil, fmt.Errorf("fetch board: %w", err)
	}
	s.current.Set(board.Clone())
	return &board, nil
}

// ResetCurrentBoard clears the current-board slot.
func (s *Remote) ResetCurrentBoard() {
	s.current.Set(nil)
}

// AddCard attaches a card to a board.
func (s *Remote) AddCard(ctx context.Context, boardID string, card domain.Card) error {
	var board domain.Board
	if err := s.do(ctx, http.MethodPost, "/v1/boards/"+boardID+"/cards", card, &board, nil); err != nil {
		return fmt.Errorf("add card: %w", err)
	}
	s.syncCurrent(&board)
	s.logger.Info("card added", "board_id", boardID, "card_id", card.ID)
	return nil
}

// RemoveCard detaches a card from a board. A 404 is a successful no-op.
func (s *Remote) RemoveCard(ctx context.Context, boardID, cardID string) error {
	err := s.do(ctx, http.MethodDelete, "/v1/boards/"+boardID+"/cards/"+cardID, nil, nil, nil)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("remove card: %w", err)
	}
	// Mirror the removal into the current slot without a second round-trip.
	if cur, ok := s.current.Get(); ok && cur != nil && cur.ID == boardID {
		updated := cur.Clone()
		updated.RemoveCard(cardID)
		s.current.Set(updated)
	}
	s.logger.Info("card removed", "board_id", boardID, "card_id", cardID)
	return nil
}

// ConvertToGift marks a board as a gift server-side and returns the updated
// board.
func (s *Remote) ConvertToGift(ctx context.Context, board *domain.Board) (*domain.Board, error) {
	var updated domain.Board
	if err := s.do(ctx, http.MethodPost, "/v1/boards/"+board.ID+"/gift", nil, &updated, nil); err != nil {
		return nil, fmt.Errorf("convert to gift: %w", err)
	}
	s.syncCurrent(&updated)
	s.logger.Info("board converted to gift", "board_id", board.ID)
	return &updated, nil
}

// RefreshPreviews pulls the preview list and republishes it.
func (s *Remote) RefreshPreviews(ctx context.Context) error {
	var previews []domain.BoardPreview
	if err := s.do(ctx, http.MethodGet, "/v1/boards", nil, &previews, nil); err != nil {
		return fmt.Errorf("refresh previews: %w", err)
	}
	s.previews.Set(previews)
	return nil
}

func (s *Remote) syncCurrent(board *domain.Board) {
	if cur, ok := s.current.Get(); ok && cur != nil && cur.ID == board.ID {
		s.current.Set(board.Clone())
	}
}

// do performs one JSON round-trip against the document API. in is marshaled
// as the request body when non-nil; out is unmarshaled from the response
// body when non-nil. Extra headers may be supplied.
func (s *Remote) do(ctx context.Context, method, path string, in, out any, headers map[string]string) error {
	reqCtx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.ErrStoreUnavailable.WithCause(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.NotFound(fmt.Sprintf("%s %s: not found", method, path))
	case resp.StatusCode >= 400:
		return errors.ErrStoreUnavailable.WithCause(fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.UnmarshalRead(resp.Body, out); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}
	return nil
}
