// Package api provides the HTTP API server and handlers for the PaperMint
// board sync core.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/papermint/papermint-server/internal/domain"
	"github.com/papermint/papermint-server/internal/http/response"
	"github.com/papermint/papermint-server/internal/settings"
	"github.com/papermint/papermint-server/internal/sse"
	boardsync "github.com/papermint/papermint-server/internal/sync"
)

// BoardService is the lifecycle surface the handlers drive.
type BoardService interface {
	CreateBoard(ctx context.Context, title, templateID string, endTime time.Time, creator *domain.User) (*domain.Board, error)
	FetchCurrentBoard(ctx context.Context, boardID string) (*domain.Board, error)
	ChangeTitle(ctx context.Context, newTitle string) error
	ChangeEndTime(ctx context.Context, newTime time.Time) error
	StopBoard(ctx context.Context) error
	DeleteBoard(ctx context.Context) error
	DeleteCard(ctx context.Context, cardID string) error
	AttachCard(ctx context.Context, imageData []byte, contentType string, creator *domain.User) (*domain.Card, error)
	RequestShareLink(ctx context.Context) (string, error)
	RequestGiftLink(ctx context.Context) (string, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	boards      BoardService
	coordinator *boardsync.Coordinator
	settings    *settings.Store
	sseHandler  *sse.Handler
	router      *chi.Mux
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(boards BoardService, coordinator *boardsync.Coordinator, settingsStore *settings.Store, sseHandler *sse.Handler, logger *slog.Logger) *Server {
	s := &Server{
		boards:      boards,
		coordinator: coordinator,
		settings:    settingsStore,
		sseHandler:  sseHandler,
		router:      chi.NewRouter(),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(requestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/boards", func(r chi.Router) {
			r.Post("/", s.handleCreateBoard)
			r.Post("/{id}/open", s.handleOpenBoard)

			// Intents against the currently open board.
			r.Route("/current", func(r chi.Router) {
				r.Get("/", s.handleGetCurrentBoard)
				r.Patch("/title", s.handleChangeTitle)
				r.Patch("/end-time", s.handleChangeEndTime)
				r.Post("/stop", s.handleStopBoard)
				r.Delete("/", s.handleDeleteBoard)
				r.Post("/share", s.handleRequestShareLink)
				r.Post("/gift", s.handleRequestGiftLink)
				r.Post("/cards", s.handleAttachCard)
				r.Delete("/cards/{cardID}", s.handleDeleteCard)
			})
		})

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", s.handleGetListing)
			r.Get("/thumbnails/{boardID}", s.handleGetThumbnail)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/badge-count", s.handleGetBadgeCount)
			r.Put("/badge-count", s.handleSetBadgeCount)
			r.Get("/recent-templates", s.handleGetRecentTemplates)
			r.Post("/recent-templates", s.handleTouchTemplate)
		})

		r.Get("/events", s.sseHandler.ServeHTTP)
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
