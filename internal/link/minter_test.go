package link

import (
	"context"
	"encoding/json/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papermint/papermint-server/internal/errors"
)

func TestClient_Mint(t *testing.T) {
	var got Request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/links", r.URL.Path)
		require.NoError(t, json.UnmarshalRead(r.Body, &got))
		_, _ = w.Write([]byte(`{"url":"https://pmnt.link/w/abc123"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	url, err := c.Mint(context.Background(), Request{
		BoardID: "board-1",
		Title:   "happy birthday",
		Route:   RouteWrite,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://pmnt.link/w/abc123", url)
	assert.Equal(t, "board-1", got.BoardID)
	assert.Equal(t, RouteWrite, got.Route)
}

func TestClient_MintValidation(t *testing.T) {
	c := NewClient("http://localhost:0", "")

	_, err := c.Mint(context.Background(), Request{Title: "x", Route: RouteWrite})
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = c.Mint(context.Background(), Request{BoardID: "board-1", Route: Route("open")})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestClient_MintServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Mint(context.Background(), Request{BoardID: "board-1", Route: RouteGift})
	assert.ErrorIs(t, err, errors.ErrLinkMintFailed)
}

func TestRoute_Valid(t *testing.T) {
	assert.True(t, RouteWrite.Valid())
	assert.True(t, RouteGift.Valid())
	assert.False(t, Route("").Valid())
	assert.False(t, Route("admin").Valid())
}
