package api

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papermint/papermint-server/internal/domain"
	"github.com/papermint/papermint-server/internal/errors"
	"github.com/papermint/papermint-server/internal/http/response"
	"github.com/papermint/papermint-server/internal/reactive"
	"github.com/papermint/papermint-server/internal/settings"
	"github.com/papermint/papermint-server/internal/sse"
	boardsync "github.com/papermint/papermint-server/internal/sync"
)

// stubBoards is a canned BoardService.
type stubBoards struct {
	board *domain.Board
	card  *domain.Card
	link  string
	err   error

	titleChanges []string
	stopCalls    int
	deleteCalls  int
}

func (s *stubBoards) CreateBoard(context.Context, string, string, time.Time, *domain.User) (*domain.Board, error) {
	return s.board, s.err
}

func (s *stubBoards) FetchCurrentBoard(context.Context, string) (*domain.Board, error) {
	return s.board, s.err
}

func (s *stubBoards) ChangeTitle(_ context.Context, title string) error {
	if s.err == nil {
		s.titleChanges = append(s.titleChanges, title)
	}
	return s.err
}

func (s *stubBoards) ChangeEndTime(context.Context, time.Time) error { return s.err }

func (s *stubBoards) StopBoard(context.Context) error {
	s.stopCalls++
	return s.err
}

func (s *stubBoards) DeleteBoard(context.Context) error {
	s.deleteCalls++
	return s.err
}

func (s *stubBoards) DeleteCard(context.Context, string) error { return s.err }

func (s *stubBoards) AttachCard(context.Context, []byte, string, *domain.User) (*domain.Card, error) {
	return s.card, s.err
}

func (s *stubBoards) RequestShareLink(context.Context) (string, error) { return s.link, s.err }
func (s *stubBoards) RequestGiftLink(context.Context) (string, error)  { return s.link, s.err }

// slotStore is the minimal BoardStore the coordinator needs in handler
// tests.
type slotStore struct {
	current  *reactive.Cell[*domain.Board]
	previews *reactive.Cell[[]domain.BoardPreview]
}

func newSlotStore() *slotStore {
	return &slotStore{
		current:  reactive.NewCell[*domain.Board](),
		previews: reactive.NewCell[[]domain.BoardPreview](),
	}
}

func (s *slotStore) AddBoard(context.Context, *domain.Board) error        { return nil }
func (s *slotStore) UpdateBoard(context.Context, *domain.Board) error     { return nil }
func (s *slotStore) RemoveBoard(context.Context, string) error            { return nil }
func (s *slotStore) ResetCurrentBoard()                                   { s.current.Set(nil) }
func (s *slotStore) AddCard(context.Context, string, domain.Card) error   { return nil }
func (s *slotStore) RemoveCard(context.Context, string, string) error     { return nil }
func (s *slotStore) RefreshPreviews(context.Context) error                { return nil }
func (s *slotStore) CurrentBoard() *reactive.Cell[*domain.Board]          { return s.current }
func (s *slotStore) BoardPreviews() *reactive.Cell[[]domain.BoardPreview] { return s.previews }
func (s *slotStore) FetchBoard(context.Context, string) (*domain.Board, error) {
	return nil, errors.NotFound("not found")
}
func (s *slotStore) ConvertToGift(context.Context, *domain.Board) (*domain.Board, error) {
	return nil, errors.NotFound("not found")
}

type apiFixture struct {
	server      *Server
	boards      *stubBoards
	coordinator *boardsync.Coordinator
	local       *slotStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	log := slog.New(slog.DiscardHandler)

	opts := badger.DefaultOptions(t.TempDir())
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	local := newSlotStore()
	coordinator := boardsync.New(local, newSlotStore(), nil, log)
	boards := &stubBoards{}
	manager := sse.NewManager(log)

	server := NewServer(boards, coordinator, settings.New(db), sse.NewHandler(manager, log), log)
	return &apiFixture{server: server, boards: boards, coordinator: coordinator, local: local}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)
	return w
}

func testBoard(id string) *domain.Board {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Board{
		ID:        id,
		Title:     "send-off",
		CreatedAt: created,
		EndTime:   created.Add(24 * time.Hour),
	}
}

func TestHealthCheck(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestCreateBoard(t *testing.T) {
	f := newAPIFixture(t)
	f.boards.board = testBoard("brd_1")

	w := f.do(t, http.MethodPost, "/api/v1/boards", CreateBoardRequest{
		Title:        "send-off",
		TemplateID:   "tmpl_1",
		EndTime:      time.Now().Add(24 * time.Hour),
		CreatorEmail: "ada@example.com",
		CreatorName:  "Ada",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "brd_1")
}

func TestCreateBoard_ValidationFailure(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name string
		req  CreateBoardRequest
	}{
		{"missing title", CreateBoardRequest{TemplateID: "tmpl_1", EndTime: time.Now(), CreatorEmail: "a@b.com", CreatorName: "A"}},
		{"bad email", CreateBoardRequest{Title: "x", TemplateID: "tmpl_1", EndTime: time.Now(), CreatorEmail: "nope", CreatorName: "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/boards", tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetCurrentBoard(t *testing.T) {
	f := newAPIFixture(t)

	// Nothing resolved yet.
	w := f.do(t, http.MethodGet, "/api/v1/boards/current", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.coordinator.Resolved().Set(boardsync.Resolved{
		Board:     testBoard("brd_1"),
		Residency: domain.ResidencyRemote,
	})

	w = f.do(t, http.MethodGet, "/api/v1/boards/current", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "remote", data["residency"])
}

func TestChangeTitle(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPatch, "/api/v1/boards/current/title", ChangeTitleRequest{Title: "renamed"})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"renamed"}, f.boards.titleChanges)
}

func TestChangeTitle_NoBoardOpen(t *testing.T) {
	f := newAPIFixture(t)
	f.boards.err = errors.NotFound("no board is currently open")

	w := f.do(t, http.MethodPatch, "/api/v1/boards/current/title", ChangeTitleRequest{Title: "renamed"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStopAndDelete(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/boards/current/stop", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, f.boards.stopCalls)

	w = f.do(t, http.MethodDelete, "/api/v1/boards/current", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, f.boards.deleteCalls)
}

func TestRequestShareLink(t *testing.T) {
	f := newAPIFixture(t)
	f.boards.link = "https://pmnt.app/write/brd_1"

	w := f.do(t, http.MethodPost, "/api/v1/boards/current/share", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://pmnt.app/write/brd_1")
}

func TestRequestShareLink_UploadFailureMapsTo502(t *testing.T) {
	f := newAPIFixture(t)
	f.boards.err = errors.UploadFailed("card upload failed")

	w := f.do(t, http.MethodPost, "/api/v1/boards/current/share", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "UPLOAD_FAILED")
}

func TestAttachCard_Multipart(t *testing.T) {
	f := newAPIFixture(t)
	f.boards.card = &domain.Card{ID: "crd_1", ContentURL: "local://cards/crd_1.jpg"}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "card.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("image-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("creator_email", "grace@example.com"))
	require.NoError(t, writer.WriteField("creator_name", "Grace"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/boards/current/cards", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "crd_1")
}

func TestAttachCard_MissingFile(t *testing.T) {
	f := newAPIFixture(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("creator_name", "Grace"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/boards/current/cards", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetListing(t *testing.T) {
	f := newAPIFixture(t)

	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	f.local.previews.Set([]domain.BoardPreview{
		{ID: "brd_1", Title: "summer", CreatedAt: now},
	})

	w := f.do(t, http.MethodGet, "/api/v1/listings", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "brd_1")
	assert.Contains(t, w.Body.String(), fmt.Sprint(now.Year()))
}

func TestGetListing_FilterScopedToRequest(t *testing.T) {
	f := newAPIFixture(t)

	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	f.local.previews.Set([]domain.BoardPreview{
		{ID: "brd_plain", CreatedAt: now},
		{ID: "brd_gift", CreatedAt: now.Add(time.Hour), IsGift: true},
	})

	// Each response reflects its own filter, independent of what the
	// shared listing slot holds.
	w := f.do(t, http.MethodGet, "/api/v1/listings?filter=gifts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "brd_gift")
	assert.NotContains(t, w.Body.String(), "brd_plain")

	w = f.do(t, http.MethodGet, "/api/v1/listings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "brd_plain")
	assert.Contains(t, w.Body.String(), "brd_gift")
}

func TestGetThumbnail_NotResolved(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/listings/thumbnails/brd_1", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadgeCountRoundTrip(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPut, "/api/v1/settings/badge-count", BadgeCountRequest{
		Email: "ada@example.com",
		Count: 4,
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/settings/badge-count?email=ada%40example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":4`)
}

func TestRecentTemplates(t *testing.T) {
	f := newAPIFixture(t)

	for _, id := range []string{"tmpl_a", "tmpl_b", "tmpl_a"} {
		w := f.do(t, http.MethodPost, "/api/v1/settings/recent-templates", TouchTemplateRequest{TemplateID: id})
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	w := f.do(t, http.MethodGet, "/api/v1/settings/recent-templates", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Most recent first, deduplicated.
	body := w.Body.String()
	assert.Less(t, strings.Index(body, "tmpl_a"), strings.Index(body, "tmpl_b"))
	assert.Equal(t, 1, strings.Count(body, "tmpl_a"))
}

func TestRequestIDHeader(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w = httptest.NewRecorder()
	f.server.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}
