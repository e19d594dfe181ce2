// Package link mints shareable short links for boards through the external
// link service. Links carry a route tag so the client app knows whether to
// open the write screen or the gift screen.
package link

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/papermint/papermint-server/internal/errors"
)

// Route selects the screen a minted link opens in the client app.
type Route string

const (
	// RouteWrite opens the card-writing screen for collaborators.
	RouteWrite Route = "write"
	// RouteGift opens the gift-unwrap screen for the recipient.
	RouteGift Route = "gift"
)

// Valid reports whether the route is one of the known tags.
func (r Route) Valid() bool {
	return r == RouteWrite || r == RouteGift
}

// Request describes the link to mint.
type Request struct {
	BoardID      string `json:"board_id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	CreatorName  string `json:"creator_name,omitempty"`
	Route        Route  `json:"route"`
}

// mintResponse is the link service's reply.
type mintResponse struct {
	URL string `json:"url"`
}

// Minter is the contract the lifecycle controller depends on.
type Minter interface {
	Mint(ctx context.Context, req Request) (string, error)
}

// mintTimeout bounds a single mint call.
const mintTimeout = 10 * time.Second

// Client mints links against the HTTP link service.
// Calls are rate limited; the link service meters by API key and minting
// is never on a hot path.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a link-minting client for the given service base URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: mintTimeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Mint requests a short link for a board.
func (c *Client) Mint(ctx context.Context, req Request) (string, error) {
	if req.BoardID == "" {
		return "", errors.Validation("board id is required to mint a link")
	}
	if !req.Route.Valid() {
		return "", errors.Validation(fmt.Sprintf("unknown link route %q", req.Route))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithTimeout(ctx, mintTimeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal mint request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/v1/links", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create mint request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.ErrLinkMintFailed.WithCause(fmt.Errorf("mint link: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", errors.ErrLinkMintFailed.WithCause(fmt.Errorf("mint link: status %d", resp.StatusCode))
	}

	var mr mintResponse
	if err := json.UnmarshalRead(resp.Body, &mr); err != nil {
		return "", errors.ErrLinkMintFailed.WithCause(fmt.Errorf("decode mint response: %w", err))
	}
	if mr.URL == "" {
		return "", errors.LinkMintFailed("link service returned an empty url")
	}

	return mr.URL, nil
}
