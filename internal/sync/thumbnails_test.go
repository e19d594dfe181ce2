package sync

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papermint/papermint-server/internal/domain"
	"github.com/papermint/papermint-server/internal/imagecache"
)

// stubBlobs is a controllable blob store for thumbnail tests.
type stubBlobs struct {
	mu        sync.Mutex
	data      map[string][]byte
	downloads int
	gate      chan struct{} // when non-nil, Download blocks until closed
}

func newStubBlobs() *stubBlobs {
	return &stubBlobs{data: make(map[string][]byte)}
}

func (s *stubBlobs) Upload(_ context.Context, id string, data []byte, _, namespace string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	url := "stub://" + namespace + "/" + id
	s.data[url] = data
	return url, nil
}

func (s *stubBlobs) Download(_ context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	gate := s.gate
	s.downloads++
	data, ok := s.data[url]
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok {
		return nil, fmt.Errorf("blob missing: %s", url)
	}
	return data, nil
}

func (s *stubBlobs) downloadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloads
}

func testJPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: 90, G: 160, B: 220, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func taggedPreview(id, thumbURL string, residency domain.Residency) TaggedPreview {
	return TaggedPreview{
		BoardPreview: domain.BoardPreview{
			ID:           id,
			CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			ThumbnailURL: thumbURL,
		},
		Residency: residency,
	}
}

func TestResolveOne_RoutesByResidency(t *testing.T) {
	ctx := context.Background()
	cache := imagecache.New()
	localBlobs := newStubBlobs()
	remoteBlobs := newStubBlobs()
	log := slog.New(slog.DiscardHandler)

	jpegData := testJPEG(t)
	localURL, err := localBlobs.Upload(ctx, "thumb-l", jpegData, "image/jpeg", "cards")
	require.NoError(t, err)
	remoteURL, err := remoteBlobs.Upload(ctx, "thumb-r", jpegData, "image/jpeg", "cards")
	require.NoError(t, err)

	r := NewThumbnailResolver(cache, localBlobs, remoteBlobs, log)

	got := r.resolveOne(ctx, taggedPreview("board-l", localURL, domain.ResidencyLocal))
	assert.NotNil(t, got)
	assert.Equal(t, 1, localBlobs.downloadCount())
	assert.Equal(t, 0, remoteBlobs.downloadCount())

	got = r.resolveOne(ctx, taggedPreview("board-r", remoteURL, domain.ResidencyRemote))
	assert.NotNil(t, got)
	assert.Equal(t, 1, remoteBlobs.downloadCount())
}

func TestResolveOne_CacheFirst(t *testing.T) {
	ctx := context.Background()
	cache := imagecache.New()
	blobs := newStubBlobs()
	r := NewThumbnailResolver(cache, blobs, blobs, slog.New(slog.DiscardHandler))

	url, err := blobs.Upload(ctx, "thumb", testJPEG(t), "image/jpeg", "cards")
	require.NoError(t, err)

	p := taggedPreview("board-1", url, domain.ResidencyLocal)

	first := r.resolveOne(ctx, p)
	require.NotNil(t, first)
	require.Equal(t, 1, blobs.downloadCount())

	second := r.resolveOne(ctx, p)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, blobs.downloadCount(), "second resolve must come from cache")
}

func TestResolveOne_FallsBack(t *testing.T) {
	ctx := context.Background()
	r := NewThumbnailResolver(imagecache.New(), newStubBlobs(), newStubBlobs(), slog.New(slog.DiscardHandler))

	// No thumbnail URL at all.
	assert.Nil(t, r.resolveOne(ctx, taggedPreview("board-1", "", domain.ResidencyLocal)))

	// Download failure.
	assert.Nil(t, r.resolveOne(ctx, taggedPreview("board-2", "stub://cards/missing", domain.ResidencyLocal)))
}

func TestRefreshListing_SettlesAllThumbnails(t *testing.T) {
	ctx := context.Background()
	local := newStubStore()
	remote := newStubStore()
	blobs := newStubBlobs()
	cache := imagecache.New()
	log := slog.New(slog.DiscardHandler)

	url, err := blobs.Upload(ctx, "thumb", testJPEG(t), "image/jpeg", "cards")
	require.NoError(t, err)

	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	local.previews.Set([]domain.BoardPreview{
		{ID: "board-1", CreatedAt: now, ThumbnailURL: url},
		{ID: "board-2", CreatedAt: now.Add(time.Hour), ThumbnailURL: "stub://cards/broken"},
		{ID: "board-3", CreatedAt: now.Add(2 * time.Hour)},
	})

	c := New(local, remote, NewThumbnailResolver(cache, blobs, blobs, log), log)
	c.RefreshListing(ctx, FilterAll)

	listing, ok := c.Listing().Get()
	require.True(t, ok, "listing must settle even with failures")

	assert.Equal(t, []string{"board-3", "board-2", "board-1"}, flatten(listing.Groups))
	assert.NotNil(t, listing.Thumbnails["board-1"])
	assert.Nil(t, listing.Thumbnails["board-2"], "failed download settles as template fallback")
	assert.Nil(t, listing.Thumbnails["board-3"], "absent thumbnail settles as template fallback")
}

func TestRefreshListing_PullsRemotePreviews(t *testing.T) {
	ctx := context.Background()
	local := newStubStore()
	remote := newStubStore()
	log := slog.New(slog.DiscardHandler)

	// The gift lives behind the remote store's RefreshPreviews, as with
	// the real cloud store; nothing has published its preview slot yet.
	remote.stored = []domain.BoardPreview{{
		ID:        "board-gift",
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		IsGift:    true,
	}}

	c := New(local, remote, NewThumbnailResolver(imagecache.New(), newStubBlobs(), newStubBlobs(), log), log)
	listing := c.RefreshListing(ctx, FilterGifts)

	assert.Equal(t, []string{"board-gift"}, flatten(listing.Groups),
		"refresh must pull remote previews, not rely on a pre-populated slot")

	published, ok := c.Listing().Get()
	require.True(t, ok)
	assert.Equal(t, []string{"board-gift"}, flatten(published.Groups))
}

func TestRefreshListing_SupersededRefreshIsDiscarded(t *testing.T) {
	ctx := context.Background()
	local := newStubStore()
	remote := newStubStore()
	blobs := newStubBlobs()
	log := slog.New(slog.DiscardHandler)

	url, err := blobs.Upload(ctx, "thumb", testJPEG(t), "image/jpeg", "cards")
	require.NoError(t, err)

	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	stale := []domain.BoardPreview{{ID: "board-stale", CreatedAt: now, ThumbnailURL: url}}
	fresh := []domain.BoardPreview{{ID: "board-fresh", CreatedAt: now}}

	c := New(local, remote, NewThumbnailResolver(imagecache.New(), blobs, blobs, log), log)

	// First refresh blocks inside the thumbnail download.
	gate := make(chan struct{})
	blobs.mu.Lock()
	blobs.gate = gate
	blobs.mu.Unlock()

	local.previews.Set(stale)
	done := make(chan struct{})
	var staleListing Listing
	go func() {
		staleListing = c.RefreshListing(ctx, FilterAll)
		close(done)
	}()

	// Wait until the stale refresh is inside its download.
	require.Eventually(t, func() bool {
		return blobs.downloadCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Second refresh supersedes and settles immediately (no thumbnail URL).
	blobs.mu.Lock()
	blobs.gate = nil
	blobs.mu.Unlock()
	local.previews.Set(fresh)
	c.RefreshListing(ctx, FilterAll)

	// Release the stale refresh; its result must not be published, but its
	// caller still gets the listing it asked for.
	close(gate)
	<-done
	assert.Equal(t, []string{"board-stale"}, flatten(staleListing.Groups))

	listing, ok := c.Listing().Get()
	require.True(t, ok)
	assert.Equal(t, []string{"board-fresh"}, flatten(listing.Groups))
}
