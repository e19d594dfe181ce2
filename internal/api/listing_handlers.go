package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/papermint/papermint-server/internal/http/response"
	boardsync "github.com/papermint/papermint-server/internal/sync"
)

// ListingResponse is one settled listing: year groups plus which boards
// have a resolved thumbnail available for download.
type ListingResponse struct {
	Groups     []boardsync.YearGroup `json:"groups"`
	Thumbnails map[string]bool       `json:"thumbnails"`
}

// handleGetListing refreshes the merged listing and returns it once every
// thumbnail has settled. ?filter=gifts restricts to gifted boards.
//
// The response is built from this request's own refresh result, not the
// shared listing slot, so concurrent requests with different filters never
// serve each other's listing.
func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	filter := boardsync.FilterAll
	if r.URL.Query().Get("filter") == "gifts" {
		filter = boardsync.FilterGifts
	}

	listing := s.coordinator.RefreshListing(r.Context(), filter)

	available := make(map[string]bool, len(listing.Thumbnails))
	for boardID, data := range listing.Thumbnails {
		available[boardID] = data != nil
	}

	response.Success(w, ListingResponse{
		Groups:     listing.Groups,
		Thumbnails: available,
	}, s.logger)
}

// handleGetThumbnail serves a board's resolved thumbnail from the latest
// settled listing. Boards without one get a 404 so the client renders the
// template default.
func (s *Server) handleGetThumbnail(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")

	listing, ok := s.coordinator.Listing().Get()
	if !ok {
		response.NotFound(w, "no listing has been resolved yet", s.logger)
		return
	}

	data, ok := listing.Thumbnails[boardID]
	if !ok || data == nil {
		response.NotFound(w, "no thumbnail for board", s.logger)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "max-age=60")
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed to write thumbnail", "board_id", boardID, "error", err)
	}
}
