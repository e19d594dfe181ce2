package blob

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papermint/papermint-server/internal/errors"
)

const (
	// maxBlobSize limits downloads to prevent memory exhaustion.
	maxBlobSize = 10 * 1024 * 1024 // 10MB

	// requestTimeout is the maximum time for a single blob request.
	requestTimeout = 30 * time.Second
)

// RemoteStore uploads and downloads blobs through the cloud blob API.
// Uploads return durable https URLs suitable for share links.
type RemoteStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRemoteStore creates a RemoteStore targeting the given API base URL.
func NewRemoteStore(baseURL, apiKey string) *RemoteStore {
	return &RemoteStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// uploadResponse is the cloud API's reply to a blob upload.
type uploadResponse struct {
	URL string `json:"url"`
}

// Upload PUTs data to {base}/blobs/{namespace}/{id} and returns the durable
// URL the service assigns.
func (s *RemoteStore) Upload(ctx context.Context, id string, data []byte, contentType, namespace string) (string, error) {
	if id == "" {
		return "", errors.Validation("blob id cannot be empty")
	}
	if len(data) == 0 {
		return "", errors.Validation("blob data cannot be empty")
	}
	if namespace == "" {
		namespace = "misc"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/blobs/%s/%s", s.baseURL, namespace, id)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", errors.ErrStoreUnavailable.WithCause(fmt.Errorf("upload blob: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", errors.ErrStoreUnavailable.WithCause(fmt.Errorf("upload blob: status %d", resp.StatusCode))
	}

	var ur uploadResponse
	if err := json.UnmarshalRead(resp.Body, &ur); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if ur.URL == "" {
		return "", fmt.Errorf("upload response missing url")
	}

	return ur.URL, nil
}

// Download GETs the bytes behind a URL, bounded by maxBlobSize.
func (s *RemoteStore) Download(ctx context.Context, url string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.ErrStoreUnavailable.WithCause(fmt.Errorf("download blob: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NotFound(fmt.Sprintf("blob not found: %s", url))
	case resp.StatusCode != http.StatusOK:
		return nil, errors.ErrStoreUnavailable.WithCause(fmt.Errorf("download blob: status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobSize))
	if err != nil {
		return nil, errors.ErrStoreUnavailable.WithCause(fmt.Errorf("read blob body: %w", err))
	}

	return data, nil
}

func (s *RemoteStore) authorize(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}
