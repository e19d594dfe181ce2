// Package di provides dependency injection configuration for the PaperMint server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/papermint/papermint-server/internal/blob"
	"github.com/papermint/papermint-server/internal/config"
	"github.com/papermint/papermint-server/internal/di/providers"
	"github.com/papermint/papermint-server/internal/imagecache"
	"github.com/papermint/papermint-server/internal/link"
	"github.com/papermint/papermint-server/internal/logger"
	"github.com/papermint/papermint-server/internal/service"
	"github.com/papermint/papermint-server/internal/settings"
	"github.com/papermint/papermint-server/internal/store"
	boardsync "github.com/papermint/papermint-server/internal/sync"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideLocalStore)
	do.Provide(injector, providers.ProvideRemoteStore)
	do.Provide(injector, providers.ProvideLocalBlobStore)
	do.Provide(injector, providers.ProvideRemoteBlobStore)
	do.Provide(injector, providers.ProvideSettingsStore)
	do.Provide(injector, providers.ProvideImageCache)
	do.Provide(injector, providers.ProvideBlobWatcher)

	// Event fan-out
	do.Provide(injector, providers.ProvideSSEManager)

	// Sync layer
	do.Provide(injector, providers.ProvideThumbnailResolver)
	do.Provide(injector, providers.ProvideCoordinator)

	// Business services
	do.Provide(injector, providers.ProvideLinkMinter)
	do.Provide(injector, providers.ProvideLifecycle)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.LocalStoreHandle](injector)
	_ = do.MustInvoke[*store.Remote](injector)
	_ = do.MustInvoke[*blob.LocalStore](injector)
	_ = do.MustInvoke[*blob.RemoteStore](injector)
	_ = do.MustInvoke[*settings.Store](injector)
	_ = do.MustInvoke[*imagecache.Cache](injector)
	_ = do.MustInvoke[*providers.BlobWatcherHandle](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*boardsync.ThumbnailResolver](injector)
	_ = do.MustInvoke[*boardsync.Coordinator](injector)
	_ = do.MustInvoke[link.Minter](injector)
	_ = do.MustInvoke[*service.Lifecycle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
