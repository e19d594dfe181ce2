// Package service provides the business logic layer for board lifecycle
// management: edits, closing, deletion, promotion to the cloud store, and
// gift conversion.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/papermint/papermint-server/internal/blob"
	"github.com/papermint/papermint-server/internal/domain"
	"github.com/papermint/papermint-server/internal/errors"
	"github.com/papermint/papermint-server/internal/id"
	"github.com/papermint/papermint-server/internal/images"
	"github.com/papermint/papermint-server/internal/link"
	"github.com/papermint/papermint-server/internal/sse"
	"github.com/papermint/papermint-server/internal/store"
	boardsync "github.com/papermint/papermint-server/internal/sync"
)

// Emitter broadcasts output events to the UI layer. The SSE manager
// implements it; tests use a recording stub.
type Emitter interface {
	Emit(event any)
}

// NoopEmitter drops every event. For tests.
type NoopEmitter struct{}

// Emit implements Emitter as a no-op.
func (NoopEmitter) Emit(any) {}

// promotionConcurrency bounds the parallel card uploads during promotion.
const promotionConcurrency = 4

// Lifecycle is the authoritative state machine for one open board's
// mutations and its transitions between the local and remote stores.
type Lifecycle struct {
	local       store.BoardStore
	remote      store.BoardStore
	localBlobs  *blob.LocalStore
	remoteBlobs blob.Store
	minter      link.Minter
	coordinator *boardsync.Coordinator
	emitter     Emitter
	logger      *slog.Logger

	// promotions collapses concurrent share/gift requests for the same
	// board into one promotion, closing the race where two callers both
	// observe Draft and both promote.
	promotions singleflight.Group
}

// NewLifecycle creates the lifecycle controller.
func NewLifecycle(
	local, remote store.BoardStore,
	localBlobs *blob.LocalStore,
	remoteBlobs blob.Store,
	minter link.Minter,
	coordinator *boardsync.Coordinator,
	emitter Emitter,
	logger *slog.Logger,
) *Lifecycle {
	return &Lifecycle{
		local:       local,
		remote:      remote,
		localBlobs:  localBlobs,
		remoteBlobs: remoteBlobs,
		minter:      minter,
		coordinator: coordinator,
		emitter:     emitter,
		logger:      logger,
	}
}

// storeFor routes a write to the store that owns the board.
func (l *Lifecycle) storeFor(residency domain.Residency) store.BoardStore {
	if residency == domain.ResidencyRemote {
		return l.remote
	}
	return l.local
}

// current returns the resolved open board and its residency.
func (l *Lifecycle) current() (*domain.Board, domain.Residency, error) {
	resolved, ok := l.coordinator.Resolved().Get()
	if !ok || resolved.Board == nil {
		return nil, domain.ResidencyLocal, errors.NotFound("no board is currently open")
	}
	return resolved.Board.Clone(), resolved.Residency, nil
}

// CreateBoard creates a new draft board in the local store and opens it.
func (l *Lifecycle) CreateBoard(ctx context.Context, title, templateID string, endTime time.Time, creator *domain.User) (*domain.Board, error) {
	boardID, err := id.Generate(id.PrefixBoard)
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}

	board := &domain.Board{
		ID:         boardID,
		Creator:    creator,
		Cards:      []domain.Card{},
		CreatedAt:  time.Now().UTC(),
		EndTime:    endTime,
		Title:      title,
		TemplateID: templateID,
	}

	if err := l.local.AddBoard(ctx, board); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	if _, err := l.local.FetchBoard(ctx, boardID); err != nil {
		return nil, fmt.Errorf("open created board: %w", err)
	}

	l.logger.Info("board created", "board_id", boardID, "template_id", templateID)
	return board, nil
}

// FetchCurrentBoard re-pulls a board into the current-board slots, remote
// first. A remote read failure degrades to the local store rather than
// failing the fetch. Whichever store delivers the board, the other store's
// slot is cleared: a stale slot left behind by a previously viewed board
// would otherwise keep winning resolution over the one just opened.
func (l *Lifecycle) FetchCurrentBoard(ctx context.Context, boardID string) (*domain.Board, error) {
	board, err := l.remote.FetchBoard(ctx, boardID)
	if err == nil {
		l.local.ResetCurrentBoard()
		return board, nil
	}
	if !errors.Is(err, errors.ErrNotFound) && !errors.Is(err, errors.ErrStoreUnavailable) {
		return nil, fmt.Errorf("fetch current board: %w", err)
	}

	board, err = l.local.FetchBoard(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("fetch current board: %w", err)
	}
	l.remote.ResetCurrentBoard()
	return board, nil
}

// ChangeTitle renames the open board, writing through to the owning store.
func (l *Lifecycle) ChangeTitle(ctx context.Context, newTitle string) error {
	board, residency, err := l.current()
	if err != nil {
		return err
	}

	board.Title = newTitle
	if err := l.storeFor(residency).UpdateBoard(ctx, board); err != nil {
		return fmt.Errorf("change title: %w", err)
	}

	l.emitter.Emit(sse.NewBoardTitleChangedEvent(board.ID, newTitle))
	return nil
}

// ChangeEndTime reschedules the open board's closing time.
func (l *Lifecycle) ChangeEndTime(ctx context.Context, newTime time.Time) error {
	board, residency, err := l.current()
	if err != nil {
		return err
	}

	board.EndTime = newTime
	if err := l.storeFor(residency).UpdateBoard(ctx, board); err != nil {
		return fmt.Errorf("change end time: %w", err)
	}

	l.emitter.Emit(sse.NewBoardEndTimeChangedEvent(board.ID, newTime))
	return nil
}

// StopBoard closes the open board immediately via the end-time sentinel.
// The local copy is always updated; once a board is shared the remote copy
// must stay consistent too.
func (l *Lifecycle) StopBoard(ctx context.Context) error {
	board, _, err := l.current()
	if err != nil {
		return err
	}

	board.Stop()
	if err := l.local.UpdateBoard(ctx, board); err != nil {
		return fmt.Errorf("stop board: %w", err)
	}
	if board.State() != domain.StateDraft {
		if err := l.remote.UpdateBoard(ctx, board); err != nil {
			return fmt.Errorf("stop board: %w", err)
		}
	}

	l.emitter.Emit(sse.NewBoardStoppedEvent(board.ID))
	l.logger.Info("board stopped", "board_id", board.ID)
	return nil
}

// DeleteBoard removes the open board from the local store and, when it has
// been shared, from the remote store as well. Safe on boards with zero
// cards; deleting an already-absent copy is a no-op.
func (l *Lifecycle) DeleteBoard(ctx context.Context) error {
	board, _, err := l.current()
	if err != nil {
		return err
	}

	if err := l.local.RemoveBoard(ctx, board.ID); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if board.State() != domain.StateDraft {
		if err := l.remote.RemoveBoard(ctx, board.ID); err != nil {
			return fmt.Errorf("delete board: %w", err)
		}
	}

	l.emitter.Emit(sse.NewBoardDeletedEvent(board.ID))
	l.logger.Info("board deleted", "board_id", board.ID)
	return nil
}

// DeleteCard removes a card from the open board, routed to the owning
// store.
func (l *Lifecycle) DeleteCard(ctx context.Context, cardID string) error {
	board, residency, err := l.current()
	if err != nil {
		return err
	}

	if err := l.storeFor(residency).RemoveCard(ctx, board.ID, cardID); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}

	l.emitter.Emit(sse.NewCardDeletedEvent(board.ID, cardID))
	return nil
}

// AttachCard uploads a decorated card image to the owning store's blob
// store and appends the card to the open board. The image's BlurHash is
// computed here so listing screens can show a placeholder immediately.
func (l *Lifecycle) AttachCard(ctx context.Context, imageData []byte, contentType string, creator *domain.User) (*domain.Card, error) {
	board, residency, err := l.current()
	if err != nil {
		return nil, err
	}

	cardID, err := id.Generate(id.PrefixCard)
	if err != nil {
		return nil, fmt.Errorf("attach card: %w", err)
	}

	blobs := blob.Store(l.localBlobs)
	if residency == domain.ResidencyRemote {
		blobs = l.remoteBlobs
	}
	contentURL, err := blobs.Upload(ctx, cardID, imageData, contentType, "cards")
	if err != nil {
		return nil, errors.ErrUploadFailed.WithCause(fmt.Errorf("upload card image: %w", err))
	}

	hash, err := images.ComputeBlurHash(imageData)
	if err != nil {
		// Placeholder only; the card is still usable without it.
		l.logger.Warn("blurhash computation failed", "card_id", cardID, "error", err)
	}

	card := domain.Card{
		ID:         cardID,
		Creator:    creator,
		CreatedAt:  time.Now().UTC(),
		ContentURL: contentURL,
		BlurHash:   hash,
	}
	if err := l.storeFor(residency).AddCard(ctx, board.ID, card); err != nil {
		return nil, fmt.Errorf("attach card: %w", err)
	}

	l.logger.Info("card attached", "board_id", board.ID, "card_id", cardID)
	return &card, nil
}

// RequestShareLink returns the open board's share link, promoting the
// board from the local store to the remote store first when it is still a
// draft. Idempotent: a board that already has a link returns it without
// re-uploading or re-minting.
func (l *Lifecycle) RequestShareLink(ctx context.Context) (string, error) {
	board, _, err := l.current()
	if err != nil {
		return "", err
	}

	if board.ShareLink != "" {
		return board.ShareLink, nil
	}

	promoted, err := l.promote(ctx, board)
	if err != nil {
		return "", err
	}

	l.emitter.Emit(sse.NewShareLinkReadyEvent(promoted.ID, promoted.ShareLink))
	return promoted.ShareLink, nil
}

// RequestGiftLink converts the open board into a gift and returns the gift
// link. A draft is promoted first; an already-gifted board just re-mints
// its link without re-converting.
func (l *Lifecycle) RequestGiftLink(ctx context.Context) (string, error) {
	board, _, err := l.current()
	if err != nil {
		return "", err
	}

	if board.State() == domain.StateDraft {
		if board, err = l.promote(ctx, board); err != nil {
			return "", err
		}
	}

	if !board.IsGift {
		converted, err := l.remote.ConvertToGift(ctx, board)
		if err != nil {
			return "", fmt.Errorf("request gift link: %w", err)
		}
		board = converted
	}

	giftURL, err := l.mintLink(ctx, board, link.RouteGift)
	if err != nil {
		return "", err
	}

	l.emitter.Emit(sse.NewGiftLinkReadyEvent(board.ID, giftURL))
	l.logger.Info("gift link ready", "board_id", board.ID)
	return giftURL, nil
}

// promote copies a draft board to the remote store: every card image is
// uploaded to the remote blob store, a thumbnail is chosen, the share link
// is minted, and only then is the board written remotely and the local
// current slot cleared. Any card upload failure aborts the whole promotion
// with nothing written to the remote store.
//
// Concurrent promotions of the same board collapse into a single flight.
func (l *Lifecycle) promote(ctx context.Context, board *domain.Board) (*domain.Board, error) {
	result, err, _ := l.promotions.Do(board.ID, func() (any, error) {
		return l.promoteOnce(ctx, board)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Board), nil
}

func (l *Lifecycle) promoteOnce(ctx context.Context, board *domain.Board) (*domain.Board, error) {
	promoted := board.Clone()

	// Fan out the card uploads; promotion is complete only when every
	// upload has succeeded.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(promotionConcurrency)
	for i := range promoted.Cards {
		card := &promoted.Cards[i]
		if card.Uploaded() && !blob.IsLocalURL(card.ContentURL) {
			continue // already server-side
		}
		g.Go(func() error {
			url, err := l.uploadCardRemote(gctx, card)
			if err != nil {
				return errors.ErrUploadFailed.WithCause(fmt.Errorf("card %s: %w", card.ID, err))
			}
			card.ContentURL = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.logger.Warn("promotion aborted, board stays draft", "board_id", board.ID, "error", err)
		return nil, err
	}

	if len(promoted.Cards) > 0 {
		promoted.ThumbnailURL = promoted.Cards[rand.IntN(len(promoted.Cards))].ContentURL
	}

	// Mint before the remote write: a remote-resident board without a
	// share link would violate the residency invariant if minting failed
	// afterwards.
	shareURL, err := l.mintLink(ctx, promoted, link.RouteWrite)
	if err != nil {
		return nil, err
	}
	promoted.ShareLink = shareURL

	if err := l.remote.AddBoard(ctx, promoted); err != nil {
		return nil, fmt.Errorf("promote board: %w", err)
	}
	if _, err := l.remote.FetchBoard(ctx, promoted.ID); err != nil {
		return nil, fmt.Errorf("open promoted board: %w", err)
	}
	l.local.ResetCurrentBoard()

	// Keep the local history copy consistent with what was promoted.
	if err := l.local.UpdateBoard(ctx, promoted); err != nil {
		l.logger.Warn("failed to sync promoted board to local history", "board_id", promoted.ID, "error", err)
	}

	l.logger.Info("board promoted",
		"board_id", promoted.ID,
		"cards", len(promoted.Cards),
		"share_link", shareURL,
	)
	return promoted, nil
}

// uploadCardRemote moves one card's image bytes to the remote blob store
// and returns the durable URL.
func (l *Lifecycle) uploadCardRemote(ctx context.Context, card *domain.Card) (string, error) {
	if !card.Uploaded() {
		return "", fmt.Errorf("card has no image content")
	}

	data, err := l.localBlobs.Download(ctx, card.ContentURL)
	if err != nil {
		return "", fmt.Errorf("read local card image: %w", err)
	}

	url, err := l.remoteBlobs.Upload(ctx, card.ID, data, blob.ContentTypeForURL(card.ContentURL), "cards")
	if err != nil {
		return "", fmt.Errorf("upload card image: %w", err)
	}
	return url, nil
}

// mintLink requests a short link for the board from the link service.
func (l *Lifecycle) mintLink(ctx context.Context, board *domain.Board, route link.Route) (string, error) {
	req := link.Request{
		BoardID:      board.ID,
		Title:        board.Title,
		ThumbnailURL: board.ThumbnailURL,
		Route:        route,
	}
	if board.Creator != nil {
		req.CreatorName = board.Creator.DisplayName
	}

	url, err := l.minter.Mint(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mint %s link: %w", route, err)
	}
	return url, nil
}
