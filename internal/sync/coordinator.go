// Package sync reconciles the local and remote board stores into one
// coherent view: a single resolved "current board" tagged with its
// residency, and merged year-grouped listings with resolved thumbnails.
package sync

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/papermint/papermint-server/internal/domain"
	"github.com/papermint/papermint-server/internal/reactive"
	"github.com/papermint/papermint-server/internal/store"
)

// Resolved is the outcome of current-board resolution: the board the UI
// should display and the store that owns it. Board is nil when neither
// store has a current board.
type Resolved struct {
	Board     *domain.Board
	Residency domain.Residency
}

// Coordinator owns the decision of which store is authoritative for the
// open board and produces merged listings for the listing screens.
type Coordinator struct {
	local  store.BoardStore
	remote store.BoardStore
	thumbs *ThumbnailResolver
	logger *slog.Logger

	resolved *reactive.Cell[Resolved]
	listing  *reactive.Cell[Listing]

	// generation guards listing refreshes: a newer refresh supersedes any
	// still-running thumbnail fan-out.
	generation atomic.Int64
}

// New creates a coordinator over the two stores.
func New(local, remote store.BoardStore, thumbs *ThumbnailResolver, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		local:    local,
		remote:   remote,
		thumbs:   thumbs,
		logger:   logger,
		resolved: reactive.NewCell[Resolved](),
		listing:  reactive.NewCell[Listing](),
	}
}

// Resolved returns the cell carrying the resolved current board.
func (c *Coordinator) Resolved() *reactive.Cell[Resolved] {
	return c.resolved
}

// Listing returns the cell carrying the latest merged listing.
func (c *Coordinator) Listing() *reactive.Cell[Listing] {
	return c.listing
}

// Run subscribes to both stores' current-board slots and re-resolves on
// every change until ctx is canceled. Call in a goroutine.
//
// Resolution rule: remote wins if non-nil, else local if non-nil, else
// none. Identical consecutive resolutions are not re-emitted.
func (c *Coordinator) Run(ctx context.Context) {
	localCh := c.local.CurrentBoard().Subscribe(ctx)
	remoteCh := c.remote.CurrentBoard().Subscribe(ctx)

	var localBoard, remoteBoard *domain.Board
	var last *Resolved

	for {
		select {
		case b := <-localCh:
			localBoard = b
		case b := <-remoteCh:
			remoteBoard = b
		case <-ctx.Done():
			return
		}

		next := resolve(localBoard, remoteBoard)
		if last != nil && equalResolved(*last, next) {
			continue
		}
		last = &next
		c.resolved.Set(next)

		if next.Board != nil {
			c.logger.Debug("current board resolved",
				"board_id", next.Board.ID,
				"residency", next.Residency.String(),
			)
		}
	}
}

// resolve applies the precedence rule to one snapshot of both slots.
func resolve(localBoard, remoteBoard *domain.Board) Resolved {
	switch {
	case remoteBoard != nil:
		return Resolved{Board: remoteBoard, Residency: domain.ResidencyRemote}
	case localBoard != nil:
		return Resolved{Board: localBoard, Residency: domain.ResidencyLocal}
	default:
		return Resolved{Board: nil, Residency: domain.ResidencyLocal}
	}
}

// equalResolved reports whether two resolutions carry the same board state.
// Field-by-field so that a genuine edit (title, end time, cards, link)
// re-emits while a redundant slot refresh does not.
func equalResolved(a, b Resolved) bool {
	if a.Residency != b.Residency {
		return false
	}
	if (a.Board == nil) != (b.Board == nil) {
		return false
	}
	if a.Board == nil {
		return true
	}
	x, y := a.Board, b.Board
	if x.ID != y.ID || x.Title != y.Title || x.ShareLink != y.ShareLink ||
		x.ThumbnailURL != y.ThumbnailURL || x.IsGift != y.IsGift ||
		!x.EndTime.Equal(y.EndTime) || len(x.Cards) != len(y.Cards) {
		return false
	}
	for i := range x.Cards {
		if x.Cards[i].ID != y.Cards[i].ID || x.Cards[i].ContentURL != y.Cards[i].ContentURL {
			return false
		}
	}
	return true
}
