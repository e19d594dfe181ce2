package sync

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/papermint/papermint-server/internal/blob"
	"github.com/papermint/papermint-server/internal/domain"
	"github.com/papermint/papermint-server/internal/imagecache"
	"github.com/papermint/papermint-server/internal/images"
)

// thumbnailConcurrency bounds the parallel blob downloads in one listing
// refresh.
const thumbnailConcurrency = 4

// Listing is one settled listing emission: the merged year groups plus a
// resolved thumbnail per board. A missing or nil entry means the UI renders
// the board's template default image.
type Listing struct {
	Groups     []YearGroup
	Thumbnails map[string][]byte
}

// ThumbnailResolver fetches and caches preview thumbnails, routing each
// download to the blob store matching the preview's residency.
type ThumbnailResolver struct {
	cache       *imagecache.Cache
	localBlobs  blob.Store
	remoteBlobs blob.Store
	logger      *slog.Logger
}

// NewThumbnailResolver creates a resolver over the image cache and the two
// blob stores.
func NewThumbnailResolver(cache *imagecache.Cache, localBlobs, remoteBlobs blob.Store, logger *slog.Logger) *ThumbnailResolver {
	return &ThumbnailResolver{
		cache:       cache,
		localBlobs:  localBlobs,
		remoteBlobs: remoteBlobs,
		logger:      logger,
	}
}

// resolveOne returns the thumbnail bytes for a preview, or nil when the
// board has no thumbnail or the download failed (template fallback either
// way). Cache first, then the owning blob store.
func (r *ThumbnailResolver) resolveOne(ctx context.Context, p TaggedPreview) []byte {
	if p.ThumbnailURL == "" {
		return nil
	}

	if data, ok := r.cache.Get(p.ThumbnailURL); ok {
		return data
	}

	blobs := r.remoteBlobs
	if p.Residency == domain.ResidencyLocal {
		blobs = r.localBlobs
	}

	raw, err := blobs.Download(ctx, p.ThumbnailURL)
	if err != nil {
		r.logger.Warn("thumbnail download failed, falling back to template",
			"board_id", p.ID,
			"url", p.ThumbnailURL,
			"error", err,
		)
		return nil
	}

	thumb, err := images.Thumbnail(raw)
	if err != nil {
		r.logger.Warn("thumbnail decode failed, falling back to template",
			"board_id", p.ID,
			"error", err,
		)
		return nil
	}

	r.cache.Set(p.ThumbnailURL, thumb)
	return thumb
}

// RefreshListing re-pulls both stores' previews, merges them, resolves
// every thumbnail, and publishes the settled listing. It blocks until the
// thumbnail fan-out completes and returns the listing it computed, which is
// always scoped to the caller's filter.
//
// A store that cannot deliver fresh previews degrades to whatever its slot
// last held. Publishes are superseding: if another refresh starts while
// this one is resolving thumbnails, this one's result is returned to its
// caller but not published, so a stale listing never interleaves into the
// shared slot.
func (c *Coordinator) RefreshListing(ctx context.Context, filter PreviewFilter) Listing {
	gen := c.generation.Add(1)

	if err := c.local.RefreshPreviews(ctx); err != nil {
		c.logger.Warn("local preview refresh failed", "error", err)
	}
	if err := c.remote.RefreshPreviews(ctx); err != nil {
		c.logger.Warn("remote preview refresh failed", "error", err)
	}

	localPreviews, _ := c.local.BoardPreviews().Get()
	remotePreviews, _ := c.remote.BoardPreviews().Get()

	groups := MergeListings(localPreviews, remotePreviews, filter)

	var mu sync.Mutex
	thumbnails := make(map[string][]byte)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(thumbnailConcurrency)
	for _, group := range groups {
		for _, p := range group.Previews {
			g.Go(func() error {
				data := c.thumbs.resolveOne(gctx, p)
				mu.Lock()
				thumbnails[p.ID] = data
				mu.Unlock()
				return nil
			})
		}
	}
	// Workers never return errors; failures settle as template fallbacks.
	_ = g.Wait()

	listing := Listing{Groups: groups, Thumbnails: thumbnails}

	if c.generation.Load() != gen {
		c.logger.Debug("listing refresh superseded, not publishing", "generation", gen)
		return listing
	}

	c.listing.Set(listing)
	return listing
}
