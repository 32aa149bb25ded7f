package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/digkill/promoshot/internal/config"
	"github.com/digkill/promoshot/internal/models"
	"github.com/digkill/promoshot/internal/ratelimit"
	"github.com/digkill/promoshot/internal/service"
)

type ProjectService interface {
	CreateImageProject(ctx context.Context, in service.CreateImageInput) (string, error)
	CreateVideo(ctx context.Context, userID, projectID string) (string, error)
	ListPublished(ctx context.Context) ([]models.Project, error)
	ListMine(ctx context.Context, userID string) ([]models.Project, error)
	Get(ctx context.Context, userID, projectID string) (*models.Project, error)
	SetPublished(ctx context.Context, userID, projectID string, published bool) error
	Delete(ctx context.Context, userID, projectID string) error
}

type CreditService interface {
	EnsureUser(ctx context.Context, userID string) error
	Balance(ctx context.Context, userID string) (int, error)
	Grant(ctx context.Context, userID string, amount int) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	cfg      config.Config
	log      *slog.Logger
	projects ProjectService
	credits  CreditService
	limiter  RateLimiter
	db       Pinger
	validate *validator.Validate
	router   *chi.Mux
}

// NewServer wires the routes. limiter may be nil, in which case paid routes are not rate limited.
func NewServer(cfg config.Config, log *slog.Logger, projects ProjectService, credits CreditService, limiter RateLimiter, db Pinger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	s := &Server{
		cfg:      cfg,
		log:      log,
		projects: projects,
		credits:  credits,
		limiter:  limiter,
		db:       db,
		validate: validator.New(),
		router:   r,
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/projects/published", s.handleListPublished)

		r.Group(func(authed chi.Router) {
			authed.Use(s.authenticate)
			authed.Use(s.ensureUser)

			authed.Get("/credits", s.handleBalance)
			authed.Get("/projects", s.handleListMine)
			authed.Get("/projects/{projectId}", s.handleGetProject)
			authed.Post("/projects/{projectId}/publish", s.handlePublish)
			authed.Delete("/projects/{projectId}", s.handleDeleteProject)

			authed.Group(func(paid chi.Router) {
				paid.Use(s.rateLimit)
				paid.Post("/projects", s.handleCreateProject)
				paid.Post("/projects/video", s.handleCreateVideo)
			})
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.basicAuth)
		r.Post("/credits", s.handleGrantCredits)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("http shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.cfg.ListenAddr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	<-shutdownDone
	s.log.Info("api stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			s.log.Warn("readiness check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
