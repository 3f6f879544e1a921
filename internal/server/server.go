// Package server wires the card service together and runs the HTTP server.
//
// New is the composition root:
//
//	config → sqlite.DB → store.Store (restored from the DB)
//	       → render.Renderer → export.Exporter
//	       → share.TokenService / share.Builder, optional MinIO object store
//	       → CardService, ShareService → handlers → routes
//
// Each layer only receives what it needs. Handlers never touch the store or
// the database; services never touch HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/sakif/servicecard/internal/clock"
	"github.com/sakif/servicecard/internal/config"
	"github.com/sakif/servicecard/internal/export"
	"github.com/sakif/servicecard/internal/handler"
	"github.com/sakif/servicecard/internal/middleware"
	"github.com/sakif/servicecard/internal/render"
	sqliteRepo "github.com/sakif/servicecard/internal/repository/sqlite"
	"github.com/sakif/servicecard/internal/service"
	"github.com/sakif/servicecard/internal/share"
	"github.com/sakif/servicecard/internal/storage"
	"github.com/sakif/servicecard/internal/store"
)

const shutdownTimeout = 30 * time.Second

// Server owns every long-lived resource: the database, the store's
// background writer and the exporter's surface pool. Close releases them.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	store    *store.Store
	exporter *export.Exporter

	cards  *service.CardService
	shares *service.ShareService
}

// Option customizes a Server.
type Option func(*options)

type options struct {
	clock   clock.Clock
	objects storage.ObjectStore
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithObjectStore replaces the MinIO store built from the configuration.
func WithObjectStore(s storage.ObjectStore) Option {
	return func(o *options) { o.objects = s }
}

// New assembles the service. The saved cards are restored before New
// returns; a restore failure is logged and the service starts with no saved
// cards.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	o := options{clock: clock.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	// === STORAGE ===
	db, err := sqliteRepo.New(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	st := store.New(db, cfg.Storage.Namespace, o.clock, logger)
	if err := st.Restore(ctx); err != nil {
		logger.Warn("starting without saved cards", slog.String("error", err.Error()))
	}

	// === RENDERING AND EXPORT ===
	renderer := render.New(o.clock)
	exporter, err := export.New(renderer, cfg.ExportConfig(), logger)
	if err != nil {
		st.Close(ctx)
		db.Close()
		return nil, fmt.Errorf("creating exporter: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		store:    st,
		exporter: exporter,
	}

	// === SHARING ===
	var tokens *share.TokenService
	if cfg.Share.Secret != "" {
		if tokens, err = share.NewTokenService(cfg.Share.Secret, cfg.Share.TTL, o.clock); err != nil {
			s.close(ctx)
			return nil, fmt.Errorf("creating share tokens: %w", err)
		}
	} else {
		logger.Warn("SHARE_SECRET not set, signed share links are disabled")
	}

	links, err := share.NewBuilder(cfg.Server.BaseURL, tokens)
	if err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("creating share links: %w", err)
	}

	// Publishing is optional: the server starts without an object store and
	// the publish endpoint answers 503.
	objects := o.objects
	if objects == nil && cfg.ObjectStoreConfig().Enabled() {
		minioStore, err := storage.NewMinIOStore(ctx, cfg.ObjectStoreConfig(), logger)
		if err != nil {
			logger.Warn("object storage unavailable, publishing is disabled",
				slog.String("endpoint", cfg.MinIO.Endpoint),
				slog.String("error", err.Error()),
			)
		} else {
			objects = minioStore
		}
	}

	s.shares = service.NewShareService(service.ShareDeps{
		Store:        st,
		Links:        links,
		Tokens:       tokens,
		Exporter:     exporter,
		Objects:      objects,
		Publications: db,
		Clock:        o.clock,
		Logger:       logger,
	})
	s.cards = service.NewCardService(st, renderer, exporter, logger, service.WithUnpublisher(s.shares))

	if err := s.setupRoutes(renderer); err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// MIDDLEWARE ORDER MATTERS: RequestID must run before the logger so every
// log line carries the id; Recoverer turns a panicking handler into a 500.
func (s *Server) setupRoutes(renderer *render.Renderer) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-Id"},
		MaxAge:         300,
	}))

	pages, err := handler.NewPageHandler(s.cards, s.shares, renderer, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	cards := handler.NewCardHandler(s.cards, s.logger)
	shares := handler.NewShareHandler(s.shares, s.logger)

	// Rasterizing is the expensive operation; limit it per client.
	exportLimit := httprate.LimitByIP(s.config.Export.RatePerMinute, time.Minute)

	// === Pages ===
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/preview", http.StatusFound)
	})
	s.router.Get("/preview", pages.HandlePreview)
	s.router.Get("/share", pages.HandleShareCurrent)
	s.router.Get("/share/{id}", pages.HandleShare)
	s.router.Get("/s/{token}", pages.HandleSignedShare)

	// === API ===
	s.router.Route("/api", func(r chi.Router) {
		r.Route("/card", func(r chi.Router) {
			r.Get("/", cards.HandleGetCard)
			r.Get("/preview", cards.HandlePreview)
			r.Get("/share", shares.HandleCurrentLinks)
			r.With(exportLimit).Get("/image.png", cards.HandleCurrentImage)

			r.Patch("/provider", cards.HandleUpdateProvider)
			r.Post("/services", cards.HandleAddService)
			r.Patch("/services/{id}", cards.HandleUpdateService)
			r.Delete("/services/{id}", cards.HandleRemoveService)
			r.Patch("/holiday-rate", cards.HandleUpdateHolidayRate)
			r.Post("/holiday-rate/dates", cards.HandleAddHolidayDate)
			r.Put("/holiday-rate/dates/{index}", cards.HandleEditHolidayDate)
			r.Delete("/holiday-rate/dates/{index}", cards.HandleRemoveHolidayDate)
			r.Patch("/sections/{section}", cards.HandleUpdateSection)
			r.Post("/testimonials", cards.HandleAddTestimonial)
			r.Patch("/testimonials/{id}", cards.HandleUpdateTestimonial)
			r.Delete("/testimonials/{id}", cards.HandleRemoveTestimonial)
			r.Put("/target-audience", cards.HandleUpdateTargetAudience)
			r.Put("/general-inclusions", cards.HandleUpdateGeneralInclusions)
			r.Patch("/design", cards.HandleUpdateDesign)
			r.Post("/design/theme/{name}", cards.HandleApplyTheme)

			r.Post("/save", cards.HandleSave)
			r.Post("/reset", cards.HandleReset)
		})

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", cards.HandleListSaved)
			r.Delete("/", cards.HandleClear)
			r.Get("/{id}", cards.HandleGetSaved)
			r.Delete("/{id}", cards.HandleDelete)
			r.Post("/{id}/load", cards.HandleLoad)
			r.Get("/{id}/share", shares.HandleLinks)
			r.With(exportLimit).Get("/{id}/image.png", cards.HandleSavedImage)
			r.With(exportLimit).Post("/{id}/publish", shares.HandlePublish)
			r.Delete("/{id}/publish", shares.HandleUnpublish)
		})

		r.Get("/icons", handler.HandleIcons)
		r.Get("/themes", handler.HandleThemes)
	})

	return nil
}

// Start serves HTTP until SIGINT/SIGTERM, then shuts down gracefully:
//  1. stop accepting connections and let in-flight requests finish
//  2. write any pending saved cards and stop the background writer
//  3. stop the export pool and close the database
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second, // exports may take up to EXPORT_TIMEOUT
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", s.config.Server.BaseURL),
			slog.String("database", s.config.Storage.DBPath),
			slog.Bool("signedLinks", s.config.Share.Secret != ""),
			slog.Bool("publishing", s.shares.PublishingEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		closeErr := s.close(ctx)
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return closeErr

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := srv.Shutdown(ctx)
	if err := s.close(ctx); err != nil && shutdownErr == nil {
		shutdownErr = err
	}
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

// Close releases the server's resources without an HTTP server running,
// e.g. after tests.
func (s *Server) Close(ctx context.Context) error {
	return s.close(ctx)
}

func (s *Server) close(ctx context.Context) error {
	storeErr := s.store.Close(ctx)
	if storeErr != nil {
		s.logger.Error("saved cards may not have been written", slog.String("error", storeErr.Error()))
	}
	if s.exporter != nil {
		s.exporter.Close()
	}
	return errors.Join(storeErr, s.db.Close())
}
