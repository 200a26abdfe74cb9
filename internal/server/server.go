// Package server exposes the storage, link and extension API over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"cloudnav/internal/auth"
	"cloudnav/internal/extension"
	"cloudnav/internal/links"
	"cloudnav/internal/storage"
)

// LinkCreator creates links; links.Service implements it.
type LinkCreator interface {
	Create(ctx context.Context, req links.NewLink) (links.Created, error)
}

// Options are the server dependencies. Registry may be nil, in which case a
// private registry is used.
type Options struct {
	Repo      storage.Repository
	Verifier  *auth.Verifier
	Links     LinkCreator
	Packager  *extension.Packager
	Registry  *prometheus.Registry
	StaticDir string
	Logger    logrus.FieldLogger
}

// Server holds the handler dependencies.
type Server struct {
	repo      storage.Repository
	verifier  *auth.Verifier
	links     LinkCreator
	packager  *extension.Packager
	validate  *validator.Validate
	metrics   *metrics
	registry  *prometheus.Registry
	staticDir string
	log       logrus.FieldLogger
}

// New creates a Server.
func New(opts Options) *Server {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Server{
		repo:      opts.Repo,
		verifier:  opts.Verifier,
		links:     opts.Links,
		packager:  opts.Packager,
		validate:  validator.New(),
		metrics:   newMetrics(reg),
		registry:  reg,
		staticDir: opts.StaticDir,
		log:       opts.Logger.WithField("component", "http"),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.withLogging)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Use(middleware.Compress(5, "application/json", "text/html", "application/javascript", "text/plain"))

	r.Get("/favicon.ico", s.handleFavicon)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/storage", s.handleGetStorage)
		r.Get("/stats", s.handleStats)
		r.Get("/themes", s.handleThemes)
		r.Get("/themes/{id}", s.handleTheme)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/storage", s.handlePostStorage)
			r.Post("/link", s.handleCreateLink)
			r.Get("/extension/bundle.zip", s.handleExtensionBundle)
			r.Get("/extension/files/{name}", s.handleExtensionFile)
		})
	})

	if s.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	}
	return r
}
