package api

import (
	"net/http"

	"github.com/papermint/papermint-server/internal/http/response"
)

// BadgeCountRequest is the payload for PUT /settings/badge-count.
type BadgeCountRequest struct {
	Email string `json:"email" validate:"required,email"`
	Count int    `json:"count" validate:"gte=0"`
}

// TouchTemplateRequest is the payload for POST /settings/recent-templates.
type TouchTemplateRequest struct {
	TemplateID string `json:"template_id" validate:"required"`
}

// handleGetBadgeCount returns the unseen-card badge count for a user.
func (s *Server) handleGetBadgeCount(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		response.BadRequest(w, "email query parameter is required", s.logger)
		return
	}

	count, err := s.settings.BadgeCount(r.Context(), email)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]int{"count": count}, s.logger)
}

// handleSetBadgeCount updates the unseen-card badge count for a user.
func (s *Server) handleSetBadgeCount(w http.ResponseWriter, r *http.Request) {
	var req BadgeCountRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if err := s.settings.SetBadgeCount(r.Context(), req.Email, req.Count); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleGetRecentTemplates returns the most recently used board templates.
func (s *Server) handleGetRecentTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.settings.RecentTemplates(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string][]string{"templates": templates}, s.logger)
}

// handleTouchTemplate records a template as recently used.
func (s *Server) handleTouchTemplate(w http.ResponseWriter, r *http.Request) {
	var req TouchTemplateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if err := s.settings.TouchTemplate(r.Context(), req.TemplateID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
