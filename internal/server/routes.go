package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"codeberg.org/snonux/cardstudio/internal/deck"
	"codeberg.org/snonux/cardstudio/internal/flow"
)

// Exporter writes a finished deck and returns the file it created
type Exporter interface {
	Export(d *deck.Deck) (string, error)
}

// Config configures the server
type Config struct {
	Logger   *zap.Logger
	Exporter Exporter
	// Library receives every exported deck; nil starts an empty one
	Library *deck.Library
	// NewController builds the controller of each session; the default
	// uses instant transitions since there is nothing to animate
	NewController func() *flow.Controller
}

// Server serves the session API
type Server struct {
	registry *Registry
	exporter Exporter
	library  *deck.Library
	log      *zap.Logger
	router   chi.Router
}

// New creates a server with its routes mounted
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Library == nil {
		config.Library = deck.NewLibrary()
	}
	if config.NewController == nil {
		log := config.Logger
		config.NewController = func() *flow.Controller {
			return flow.New(&flow.Config{Logger: log, Transition: flow.Instant{}})
		}
	}

	s := &Server{
		registry: NewRegistry(config.NewController),
		exporter: config.Exporter,
		library:  config.Library,
		log:      config.Logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the session registry
func (s *Server) Registry() *Registry {
	return s.registry
}

// routes mounts the session API:
//
//	POST   /api/sessions                      create a session
//	GET    /api/sessions                      list session IDs
//	GET    /api/sessions/{id}                 state snapshot
//	DELETE /api/sessions/{id}                 end a session
//	PUT    /api/sessions/{id}/metadata        submit the mandatory form
//	POST   /api/sessions/{id}/form            reopen the mandatory form
//	PUT    /api/sessions/{id}/card            set one face of the visible card
//	POST   /api/sessions/{id}/content-type    change the medium of a face
//	POST   /api/sessions/{id}/flip            flip the visible card
//	POST   /api/sessions/{id}/prompt          open the text prompt
//	POST   /api/sessions/{id}/prompt/{ticket} answer the text prompt
//	POST   /api/sessions/{id}/advance         submit and move to the next card
//	POST   /api/sessions/{id}/view            switch to view mode
//	POST   /api/sessions/{id}/add             switch to add mode
//	POST   /api/sessions/{id}/select/{n}      open card n from the view list
//	POST   /api/sessions/{id}/delete          request deletion of cards
//	POST   /api/sessions/{id}/confirm         accept the open dialog
//	POST   /api/sessions/{id}/dismiss         close the open dialog
//	GET    /api/sessions/{id}/stats           dashboard numbers
//	POST   /api/sessions/{id}/export          export the deck
//	GET    /api/decks                         exported decks (?folder=, ?favorites=true)
//	GET    /api/decks/folders                 folder names
//	GET    /api/decks/{deckID}                one exported deck
//	DELETE /api/decks/{deckID}                forget a deck
//	POST   /api/decks/{deckID}/favorite       toggle the favorite flag
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(withRequestLogging(s.log))

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Get("/", s.listSessions)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Put("/metadata", s.putMetadata)
			r.Post("/form", s.reopenForm)
			r.Put("/card", s.putCard)
			r.Post("/content-type", s.postContentType)
			r.Post("/flip", s.postFlip)
			r.Post("/prompt", s.postPrompt)
			r.Post("/prompt/{ticket}", s.answerPrompt)
			r.Post("/advance", s.postAdvance)
			r.Post("/view", s.postView)
			r.Post("/add", s.postAdd)
			r.Post("/select/{n}", s.postSelect)
			r.Post("/delete", s.postDelete)
			r.Post("/confirm", s.postConfirm)
			r.Post("/dismiss", s.postDismiss)
			r.Get("/stats", s.getStats)
			r.Post("/export", s.postExport)
		})
	})

	r.Route("/api/decks", func(r chi.Router) {
		r.Get("/", s.listDecks)
		r.Get("/folders", s.listFolders)
		r.Get("/{deckID}", s.getDeck)
		r.Delete("/{deckID}", s.deleteDeck)
		r.Post("/{deckID}/favorite", s.toggleFavorite)
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}
