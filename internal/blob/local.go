package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/papermint/papermint-server/internal/errors"
)

// localScheme prefixes URLs served by the on-device store.
const localScheme = "local://"

// LocalStore keeps blobs on the local filesystem under a base directory.
// Thread-safe for concurrent operations.
type LocalStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewLocalStore creates a LocalStore rooted at basePath.
// The directory is created if it does not exist.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// BasePath returns the root directory blobs are stored under.
func (s *LocalStore) BasePath() string {
	return s.basePath
}

// Upload writes data to {basePath}/{namespace}/{id}{ext} and returns a
// local:// URL for it.
func (s *LocalStore) Upload(ctx context.Context, id string, data []byte, contentType, namespace string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.Validation("blob id cannot be empty")
	}
	if len(data) == 0 {
		return "", errors.Validation("blob data cannot be empty")
	}
	if namespace == "" {
		namespace = "misc"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.basePath, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.ErrStoreUnavailable.WithCause(fmt.Errorf("create namespace directory: %w", err))
	}

	name := id + extensionFor(contentType)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", errors.ErrStoreUnavailable.WithCause(fmt.Errorf("write blob file: %w", err))
	}

	return localScheme + namespace + "/" + name, nil
}

// Download reads the bytes behind a local:// URL.
func (s *LocalStore) Download(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel, ok := strings.CutPrefix(url, localScheme)
	if !ok {
		return nil, errors.Validation(fmt.Sprintf("not a local blob URL: %s", url))
	}
	// Reject traversal out of the base directory.
	rel = filepath.Clean(rel)
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, errors.Validation(fmt.Sprintf("invalid blob path: %s", url))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.basePath, rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("blob not found: %s", url)).WithCause(err)
		}
		return nil, errors.ErrStoreUnavailable.WithCause(fmt.Errorf("read blob file: %w", err))
	}

	return data, nil
}

// Remove deletes the blob behind a local:// URL. Missing blobs are a no-op.
func (s *LocalStore) Remove(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rel, ok := strings.CutPrefix(url, localScheme)
	if !ok {
		return errors.Validation(fmt.Sprintf("not a local blob URL: %s", url))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.basePath, filepath.Clean(rel))); err != nil && !os.IsNotExist(err) {
		return errors.ErrStoreUnavailable.WithCause(fmt.Errorf("remove blob file: %w", err))
	}
	return nil
}

// IsLocalURL reports whether a URL refers to the on-device blob store.
// Promotion uses this to decide which card images still need a remote
// upload.
func IsLocalURL(url string) bool {
	return strings.HasPrefix(url, localScheme)
}
