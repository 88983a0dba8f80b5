// Package http provides the HTTP delivery layer for the URL shortener service.
// This package contains the HTTP handlers and related types used for processing
// incoming requests, validating input, and formatting responses.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/shortlink/pkg/middleware/recoverer"
)

type routerOptions struct {
	verifier tokenVerifier
	docsPath string
}

type RouterOption func(*routerOptions)

// WithAuth requires a valid bearer token on link creation and statistics.
func WithAuth(verifier tokenVerifier) RouterOption {
	return func(o *routerOptions) {
		o.verifier = verifier
	}
}

func WithDocsPath(path string) RouterOption {
	return func(o *routerOptions) {
		o.docsPath = path
	}
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the URL shortener API.
func NewRouter(logger *httplog.Logger, linkUseCase linkUseCase, opts ...RouterOption) *chi.Mux {
	options := routerOptions{docsPath: "./docs/swagger.yml"}
	for _, opt := range opts {
		opt(&options)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger, serverErrorResponse))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, options.docsPath)
	})

	h := newLinkHandler(linkUseCase, validator.New())

	protected := func(r chi.Router) {
		if options.verifier != nil {
			r.Use(authenticate(options.verifier))
		}
	}

	r.Group(func(r chi.Router) {
		protected(r)

		r.Post("/shorten", h.shortenURL)
		r.Post("/url/shorten", h.shortenURL)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Group(func(r chi.Router) {
			protected(r)

			r.Post("/shorten", h.shortenURL)
			r.Get("/links/{code}/stats", h.getLinkStats)
		})
	})

	r.Get("/{code}", h.resolveShortCode)

	return r
}
