package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/papermint/papermint-server/internal/blob"
	"github.com/papermint/papermint-server/internal/config"
	"github.com/papermint/papermint-server/internal/imagecache"
	"github.com/papermint/papermint-server/internal/logger"
	"github.com/papermint/papermint-server/internal/settings"
	"github.com/papermint/papermint-server/internal/store"
)

// LocalStoreHandle wraps the local board store with Shutdownable.
type LocalStoreHandle struct {
	*store.Local
}

// Shutdown implements do.Shutdownable.
func (h *LocalStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideLocalStore provides the on-device badger board store.
func ProvideLocalStore(i do.Injector) (*LocalStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	local, err := store.OpenLocal(cfg.Storage.BasePath, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("local store: %w", err)
	}

	log.Info("Local board store opened", "path", cfg.Storage.BasePath)
	return &LocalStoreHandle{Local: local}, nil
}

// ProvideRemoteStore provides the cloud board store client.
func ProvideRemoteStore(i do.Injector) (*store.Remote, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return store.NewRemote(cfg.Remote.BaseURL, cfg.Remote.APIKey, log.Logger), nil
}

// ProvideLocalBlobStore provides the filesystem blob store for card images.
func ProvideLocalBlobStore(i do.Injector) (*blob.LocalStore, error) {
	cfg := do.MustInvoke[*config.Config](i)

	blobs, err := blob.NewLocalStore(cfg.Storage.BlobPath)
	if err != nil {
		return nil, fmt.Errorf("local blob store: %w", err)
	}
	return blobs, nil
}

// ProvideRemoteBlobStore provides the cloud blob store client.
func ProvideRemoteBlobStore(i do.Injector) (*blob.RemoteStore, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return blob.NewRemoteStore(cfg.Remote.BaseURL, cfg.Remote.APIKey), nil
}

// ProvideSettingsStore provides the user settings store, sharing the local
// store's database file.
func ProvideSettingsStore(i do.Injector) (*settings.Store, error) {
	localHandle := do.MustInvoke[*LocalStoreHandle](i)

	return settings.New(localHandle.DB()), nil
}

// ProvideImageCache provides the in-memory thumbnail cache.
func ProvideImageCache(i do.Injector) (*imagecache.Cache, error) {
	return imagecache.New(), nil
}

// BlobWatcherHandle wraps the filesystem watcher with Shutdownable.
type BlobWatcherHandle struct {
	*imagecache.Watcher
}

// Shutdown implements do.Shutdownable.
func (h *BlobWatcherHandle) Shutdown() error {
	return h.Close()
}

// ProvideBlobWatcher provides the watcher that evicts cached thumbnails
// when local card images change on disk.
func ProvideBlobWatcher(i do.Injector) (*BlobWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	cache := do.MustInvoke[*imagecache.Cache](i)
	log := do.MustInvoke[*logger.Logger](i)

	watcher, err := imagecache.NewWatcher(cache, cfg.Storage.BlobPath, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("blob watcher: %w", err)
	}
	return &BlobWatcherHandle{Watcher: watcher}, nil
}
