// Package server wires the services, handlers and middleware into one router
// and runs the HTTP server until it receives a shutdown signal.
//
// It is the composition root of the API: storage, blob store, AI generator and
// event publisher are built by main and handed in as Deps; everything derived
// from them (services, handlers, routes) is assembled here.
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

	"github.com/sakif/blog-platform/internal/ai"
	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/blob"
	"github.com/sakif/blog-platform/internal/config"
	"github.com/sakif/blog-platform/internal/events"
	"github.com/sakif/blog-platform/internal/handler"
	"github.com/sakif/blog-platform/internal/middleware"
	"github.com/sakif/blog-platform/internal/repository"
	"github.com/sakif/blog-platform/internal/service"
)

// Timeouts of the HTTP server.
const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 30 * time.Second

	// aiWriteMargin is the time left after the AI call budget for storing a
	// generated image and writing the response.
	aiWriteMargin = 15 * time.Second
)

// writeTimeoutFor returns the server write timeout. It must outlast the AI call
// budget, or the connection closes before a slow generation is answered.
func writeTimeoutFor(cfg config.Config) time.Duration {
	budget := cfg.OpenAI.Timeout
	if budget <= 0 {
		budget = ai.DefaultLimits().Timeout
	}
	if d := budget + aiWriteMargin; d > writeTimeout {
		return d
	}
	return writeTimeout
}

// Deps are the external collaborators the server is built on.
type Deps struct {
	Users repository.UserRepository
	Posts repository.PostRepository
	Blobs blob.Store
	// UploadDir, when set, is served at /uploads (local blob store).
	UploadDir string
	// Generator is nil when no AI provider is configured.
	Generator ai.Generator
	Events    events.Publisher
	// Ping reports storage health for /healthz. Optional.
	Ping func(ctx context.Context) error
}

// Server represents the HTTP server and its router.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	metrics *middleware.Metrics
	deps    Deps
}

// New builds the services and handlers and registers every route.
func New(cfg config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Users == nil || deps.Posts == nil {
		return nil, errors.New("server: user and post repositories are required")
	}
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		metrics: middleware.NewMetrics(),
		deps:    deps,
	}
	s.setupRoutes(tokens)
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// Middleware order: request id, real ip, panic recovery, metrics, request
// logging, CORS, then the optional identity on /api. Metrics and logging run
// outside CORS so preflight requests are observed too.
func (s *Server) setupRoutes(tokens *auth.TokenService) {
	cfg, deps, logger := s.config, s.deps, s.logger

	passwords := auth.NewPasswordService(cfg.Auth.BcryptCost)
	authService := service.NewAuthService(deps.Users, tokens, passwords, logger)
	userService := service.NewUserService(deps.Users, passwords, deps.Blobs, deps.Events, logger)
	postService := service.NewPostService(deps.Posts, deps.Users, deps.Blobs, deps.Events, logger)
	feedService := service.NewFeedService(deps.Posts, deps.Users, logger)
	aiService := service.NewAIService(deps.Generator, deps.Blobs, logger)

	var google *auth.GoogleProvider
	if cfg.Google.Enabled() {
		google = auth.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL)
	}

	cookies := handler.CookieConfig{Secure: cfg.Auth.CookieSecure, TTL: tokens.TTL()}
	authHandler := handler.NewAuthHandler(authService, google, cookies, cfg.Server.ClientURL, logger)
	userHandler := handler.NewUserHandler(userService, logger)
	postHandler := handler.NewPostHandler(postService, feedService, logger)
	aiHandler := handler.NewAIHandler(aiService, logger)

	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Logger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Server.ClientURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	if deps.UploadDir != "" {
		fileServer := http.FileServer(http.Dir(deps.UploadDir))
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))
	}

	requireAuth := auth.RequireAuth(tokens)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))

		r.Route("/user", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.Get("/profile", authHandler.HandleProfile)
			if google != nil {
				r.Get("/google", authHandler.HandleGoogleLogin)
				r.Get("/google/callback", authHandler.HandleGoogleCallback)
			}

			r.Get("/followers/{id}", userHandler.HandleFollowers)
			r.Get("/following/{id}", userHandler.HandleFollowing)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/", userHandler.HandleGetSelf)
				r.Put("/", userHandler.HandleUpdateSelf)
				r.Post("/follow/{id}", userHandler.HandleFollow)
			})

			r.Get("/{id}", userHandler.HandleGetUser)
		})

		r.Route("/post", func(r chi.Router) {
			r.Get("/", postHandler.HandleList)
			r.Get("/profile/{id}", postHandler.HandleListByAuthor)
			r.Get("/{id}", postHandler.HandleGet)
			r.Post("/{id}/views", postHandler.HandleView)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", postHandler.HandleCreate)
				r.Put("/", postHandler.HandleUpdate)
				r.Delete("/{id}", postHandler.HandleDelete)
				r.Post("/{id}/comment", postHandler.HandleAddComment)
				r.Put("/{id}/comment/{commentId}", postHandler.HandleEditComment)
				r.Delete("/{id}/comment/{commentId}", postHandler.HandleDeleteComment)
				r.Post("/{id}/like", postHandler.HandleLike)
			})
		})

		r.Route("/ai", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/summary", aiHandler.HandleSummary)
			r.Post("/content", aiHandler.HandleContent)
			r.Post("/image", aiHandler.HandleImage)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.deps.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeoutFor(s.config),
		IdleTimeout:  idleTimeout,
	}
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for up
// to shutdownTimeout. Closing storage and other resources is left to the caller.
func (s *Server) Start() error {
	srv := s.httpServer()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("storage", s.config.Storage.Driver),
			slog.String("blob", s.config.Blob.Driver),
			slog.Bool("ai", s.deps.Generator != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
