package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shortlink/internal/adapter/auth"
	"github.com/vadimbarashkov/shortlink/internal/adapter/enrich"
	"github.com/vadimbarashkov/shortlink/internal/analytics"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/usecase"
	"github.com/vadimbarashkov/shortlink/pkg/redis"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/shortlink/internal/adapter/delivery/http"
	rediscache "github.com/vadimbarashkov/shortlink/internal/adapter/repository/redis"
)

const shutdownTimeout = 15 * time.Second

// NewLogger builds the request logger; its embedded slog.Logger is shared by
// the rest of the application.
func NewLogger(cfg *config.Config) *httplog.Logger {
	level := slog.LevelDebug
	if cfg.Env == config.EnvProd {
		level = slog.LevelInfo
	}

	return httplog.NewLogger("shortlink", httplog.Options{
		JSON:     cfg.Env != config.EnvDev,
		LogLevel: level,
		Concise:  cfg.Env == config.EnvDev,
		Tags: map[string]string{
			"env": cfg.Env,
		},
	})
}

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := NewLogger(cfg)

	stores, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stores.close()

	var ucOpts []usecase.Option

	if cfg.Redis.URL != "" {
		client, err := redis.New(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("%s: failed to connect to redis: %w", op, err)
		}
		defer client.Close()

		ucOpts = append(ucOpts, usecase.WithCache(rediscache.NewLinkCache(client, cfg.Redis.TTL)))
	}

	handler, recorder, err := newHandler(ctx, cfg, logger, stores, ucOpts...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        handler,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("storage", cfg.Storage.Driver))

		var err error

		if cfg.HTTPServer.TLS() {
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		// Resolutions still in flight have been answered; drain their analytics.
		if err := recorder.Close(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to drain analytics: %w", op, err)
		}

		logger.Info("server stopped")

		return nil
	})

	return g.Wait()
}

// newHandler assembles the analytics pipeline, the link use case and the
// router on top of already opened stores. The returned recorder must be closed
// after the server stops.
func newHandler(ctx context.Context, cfg *config.Config, logger *httplog.Logger, st *stores, ucOpts ...usecase.Option) (http.Handler, *analytics.Recorder, error) {
	const op = "app.newHandler"

	var routerOpts []delivery.RouterOption
	if cfg.Auth.Enabled {
		verifier, err := newVerifier(ctx, cfg.Auth)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		routerOpts = append(routerOpts, delivery.WithAuth(verifier))
	}

	enrichOpts := []enrich.Option{
		enrich.WithGeoTimeout(cfg.Enrich.GeoTimeout),
		enrich.WithLogger(logger.Logger),
	}
	if cfg.Enrich.GeoActive() {
		enrichOpts = append(enrichOpts, enrich.WithGeoLocator(enrich.NewIPInfoLocator(cfg.Enrich.IPInfoToken, cfg.Enrich.GeoTimeout)))
	} else {
		logger.Info("geolocation disabled")
	}

	recorder := analytics.New(
		enrich.New(enrich.NewUAClassifier(), enrichOpts...),
		st.access,
		analytics.WithWorkers(cfg.Analytics.Workers),
		analytics.WithQueueSize(cfg.Analytics.QueueSize),
		analytics.WithEnrichTimeout(cfg.Analytics.EnrichTimeout),
		analytics.WithInlineTimeout(cfg.Analytics.InlineTimeout),
		analytics.WithLogger(logger.Logger),
	)

	ucOpts = append([]usecase.Option{
		usecase.WithShortCodeLength(cfg.ShortCode.Length),
		usecase.WithBaseURL(cfg.BaseURL),
		usecase.WithLogger(logger.Logger),
	}, ucOpts...)

	uc := usecase.New(st.links, st.access, recorder, ucOpts...)

	return delivery.NewRouter(logger, uc, routerOpts...), recorder, nil
}

type tokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

func newVerifier(ctx context.Context, cfg config.Auth) (tokenVerifier, error) {
	const op = "app.newVerifier"

	switch cfg.Strategy {
	case config.AuthStrategyHS256:
		return auth.NewHS256Verifier(cfg.JWTSecret), nil
	case config.AuthStrategyOIDC:
		v, err := auth.NewOIDCVerifier(ctx, cfg.IssuerURL, cfg.Audience)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%s: unknown auth strategy %q", op, cfg.Strategy)
	}
}
