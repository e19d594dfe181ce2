package providers

import (
	"github.com/samber/do/v2"

	"github.com/papermint/papermint-server/internal/blob"
	"github.com/papermint/papermint-server/internal/config"
	"github.com/papermint/papermint-server/internal/imagecache"
	"github.com/papermint/papermint-server/internal/link"
	"github.com/papermint/papermint-server/internal/logger"
	"github.com/papermint/papermint-server/internal/service"
	"github.com/papermint/papermint-server/internal/sse"
	"github.com/papermint/papermint-server/internal/store"
	boardsync "github.com/papermint/papermint-server/internal/sync"
)

// SSEManagerHandle wraps the SSE manager for lifecycle management.
type SSEManagerHandle struct {
	Manager *sse.Manager
}

// ProvideSSEManager provides the SSE event broadcaster.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	return &SSEManagerHandle{Manager: sse.NewManager(log.Logger)}, nil
}

// ProvideLinkMinter provides the short-link service client.
func ProvideLinkMinter(i do.Injector) (link.Minter, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return link.NewClient(cfg.Link.BaseURL, cfg.Link.APIKey), nil
}

// ProvideThumbnailResolver provides the cache-first thumbnail resolver.
func ProvideThumbnailResolver(i do.Injector) (*boardsync.ThumbnailResolver, error) {
	cache := do.MustInvoke[*imagecache.Cache](i)
	localBlobs := do.MustInvoke[*blob.LocalStore](i)
	remoteBlobs := do.MustInvoke[*blob.RemoteStore](i)
	log := do.MustInvoke[*logger.Logger](i)

	return boardsync.NewThumbnailResolver(cache, localBlobs, remoteBlobs, log.Logger), nil
}

// ProvideCoordinator provides the current-board and listing coordinator.
func ProvideCoordinator(i do.Injector) (*boardsync.Coordinator, error) {
	localHandle := do.MustInvoke[*LocalStoreHandle](i)
	remote := do.MustInvoke[*store.Remote](i)
	thumbs := do.MustInvoke[*boardsync.ThumbnailResolver](i)
	log := do.MustInvoke[*logger.Logger](i)

	return boardsync.New(localHandle.Local, remote, thumbs, log.Logger), nil
}

// ProvideLifecycle provides the board lifecycle controller.
func ProvideLifecycle(i do.Injector) (*service.Lifecycle, error) {
	localHandle := do.MustInvoke[*LocalStoreHandle](i)
	remote := do.MustInvoke[*store.Remote](i)
	localBlobs := do.MustInvoke[*blob.LocalStore](i)
	remoteBlobs := do.MustInvoke[*blob.RemoteStore](i)
	minter := do.MustInvoke[link.Minter](i)
	coordinator := do.MustInvoke[*boardsync.Coordinator](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLifecycle(
		localHandle.Local,
		remote,
		localBlobs,
		remoteBlobs,
		minter,
		coordinator,
		sseHandle.Manager,
		log.Logger,
	), nil
}
