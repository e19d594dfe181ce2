package api

import (
	"encoding/json/v2"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/papermint/papermint-server/internal/domain"
	"github.com/papermint/papermint-server/internal/http/response"
)

// maxCardImageSize caps uploaded card images at 10MB.
const maxCardImageSize = 10 << 20

// CreateBoardRequest is the payload for POST /boards.
type CreateBoardRequest struct {
	Title           string    `json:"title" validate:"required,max=120"`
	TemplateID      string    `json:"template_id" validate:"required"`
	EndTime         time.Time `json:"end_time" validate:"required"`
	CreatorEmail    string    `json:"creator_email" validate:"required,email"`
	CreatorName     string    `json:"creator_name" validate:"required,max=80"`
	CreatorImageURL string    `json:"creator_image_url,omitempty" validate:"omitempty,url"`
}

// ChangeTitleRequest is the payload for PATCH /boards/current/title.
type ChangeTitleRequest struct {
	Title string `json:"title" validate:"required,max=120"`
}

// ChangeEndTimeRequest is the payload for PATCH /boards/current/end-time.
type ChangeEndTimeRequest struct {
	EndTime time.Time `json:"end_time" validate:"required"`
}

// LinkResponse carries a minted share or gift link.
type LinkResponse struct {
	URL string `json:"url"`
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.UnmarshalRead(r.Body, dst); err != nil {
		response.BadRequest(w, "invalid JSON body", s.logger)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		response.BadRequest(w, err.Error(), s.logger)
		return false
	}
	return true
}

// handleCreateBoard creates a new local draft board and opens it.
func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var req CreateBoardRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	board, err := s.boards.CreateBoard(r.Context(), req.Title, req.TemplateID, req.EndTime, &domain.User{
		Email:           req.CreatorEmail,
		DisplayName:     req.CreatorName,
		ProfileImageURL: req.CreatorImageURL,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, board, s.logger)
}

// handleOpenBoard re-pulls a board into the current slot.
func (s *Server) handleOpenBoard(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "id")
	if boardID == "" {
		response.BadRequest(w, "board ID is required", s.logger)
		return
	}

	board, err := s.boards.FetchCurrentBoard(r.Context(), boardID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, board, s.logger)
}

// CurrentBoardResponse is the resolved current board with its residency.
type CurrentBoardResponse struct {
	Board     *domain.Board `json:"board"`
	Residency string        `json:"residency"`
	Closed    bool          `json:"closed"`
}

// handleGetCurrentBoard returns the resolved current board.
func (s *Server) handleGetCurrentBoard(w http.ResponseWriter, r *http.Request) {
	resolved, ok := s.coordinator.Resolved().Get()
	if !ok || resolved.Board == nil {
		response.NotFound(w, "no board is currently open", s.logger)
		return
	}

	response.Success(w, CurrentBoardResponse{
		Board:     resolved.Board,
		Residency: resolved.Residency.String(),
		Closed:    resolved.Board.Closed(time.Now()),
	}, s.logger)
}

// handleChangeTitle renames the current board.
func (s *Server) handleChangeTitle(w http.ResponseWriter, r *http.Request) {
	var req ChangeTitleRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if err := s.boards.ChangeTitle(r.Context(), req.Title); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleChangeEndTime reschedules the current board.
func (s *Server) handleChangeEndTime(w http.ResponseWriter, r *http.Request) {
	var req ChangeEndTimeRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if err := s.boards.ChangeEndTime(r.Context(), req.EndTime); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleStopBoard closes the current board immediately.
func (s *Server) handleStopBoard(w http.ResponseWriter, r *http.Request) {
	if err := s.boards.StopBoard(r.Context()); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleDeleteBoard deletes the current board from every store that holds it.
func (s *Server) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	if err := s.boards.DeleteBoard(r.Context()); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleRequestShareLink promotes the current board if needed and returns
// its share link.
func (s *Server) handleRequestShareLink(w http.ResponseWriter, r *http.Request) {
	url, err := s.boards.RequestShareLink(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, LinkResponse{URL: url}, s.logger)
}

// handleRequestGiftLink converts the current board into a gift and returns
// the gift link.
func (s *Server) handleRequestGiftLink(w http.ResponseWriter, r *http.Request) {
	url, err := s.boards.RequestGiftLink(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, LinkResponse{URL: url}, s.logger)
}

// handleAttachCard accepts a multipart card image upload and appends the
// card to the current board.
// Content-Type: multipart/form-data with "file", "creator_email" and
// "creator_name" fields.
func (s *Server) handleAttachCard(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCardImageSize)
	if err := r.ParseMultipartForm(maxCardImageSize); err != nil {
		response.BadRequest(w, "invalid multipart form", s.logger)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "no file uploaded, use 'file' field in multipart form", s.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "failed to read uploaded file", s.logger)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	creator := &domain.User{
		Email:       r.FormValue("creator_email"),
		DisplayName: r.FormValue("creator_name"),
	}

	card, err := s.boards.AttachCard(r.Context(), data, contentType, creator)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, card, s.logger)
}

// handleDeleteCard removes a card from the current board.
func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	if cardID == "" {
		response.BadRequest(w, "card ID is required", s.logger)
		return
	}

	if err := s.boards.DeleteCard(r.Context(), cardID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
