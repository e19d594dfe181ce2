// Package blob provides content upload and download for decorated card
// images. Two interchangeable implementations exist: a local filesystem
// store for draft boards and an HTTP-backed remote store used once a board
// is promoted.
package blob

import (
	"context"
	"path"
	"strings"
)

// Store is the blob storage contract shared by the local and remote
// implementations.
type Store interface {
	// Upload stores data under the given id within a path namespace and
	// returns a URL that Download accepts.
	Upload(ctx context.Context, id string, data []byte, contentType, namespace string) (string, error)

	// Download fetches the bytes behind a URL previously returned by Upload.
	Download(ctx context.Context, url string) ([]byte, error)
}

// extensionFor maps a content type to a file extension.
// Card images are always raster images.
func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

// ContentTypeForURL maps a blob URL's extension back to the content type it
// was uploaded with, inverting extensionFor.
func ContentTypeForURL(url string) string {
	switch strings.ToLower(path.Ext(url)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
