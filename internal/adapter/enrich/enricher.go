// Package enrich derives geolocation and client details for an access from the
// caller's IP address and User-Agent header.
package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
	"golang.org/x/sync/errgroup"
)

type geoLocator interface {
	Locate(ctx context.Context, ip net.IP) (entity.Geo, error)
}

type clientClassifier interface {
	Classify(userAgent string) entity.Client
}

type Option func(*Enricher)

// WithGeoLocator enables geolocation. Without it geo fields stay null.
func WithGeoLocator(geo geoLocator) Option {
	return func(e *Enricher) {
		e.geo = geo
	}
}

func WithGeoTimeout(d time.Duration) Option {
	return func(e *Enricher) {
		if d > 0 {
			e.geoTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) {
		e.logger = logger
	}
}

type Enricher struct {
	geo        geoLocator
	classifier clientClassifier
	geoTimeout time.Duration
	logger     *slog.Logger
}

func New(classifier clientClassifier, opts ...Option) *Enricher {
	e := &Enricher{
		classifier: classifier,
		geoTimeout: DefaultGeoTimeout,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Lookup never fails: whatever cannot be derived in time is left null.
func (e *Enricher) Lookup(ctx context.Context, ip, userAgent string) entity.Enrichment {
	var enr entity.Enrichment

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		enr.Geo = e.locate(ctx, ip)
		return nil
	})

	g.Go(func() error {
		if e.classifier != nil {
			enr.Client = e.classifier.Classify(userAgent)
		}
		return nil
	})

	_ = g.Wait()

	return enr
}

func (e *Enricher) locate(ctx context.Context, ip string) entity.Geo {
	const op = "adapter.enrich.Enricher.locate"

	if e.geo == nil {
		return entity.Geo{}
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		e.logger.Debug("skipping geolocation", slog.String("op", op), slog.String("ip", ip),
			slog.Any("err", fmt.Errorf("%w: unparsable address", entity.ErrEnrichmentUnavailable)))
		return entity.Geo{}
	}

	ctx, cancel := context.WithTimeout(ctx, e.geoTimeout)
	defer cancel()

	geo, err := e.geo.Locate(ctx, parsed)
	if err != nil {
		e.logger.Debug("geolocation unavailable", slog.String("op", op), slog.String("ip", ip),
			slog.Any("err", fmt.Errorf("%w: %w", entity.ErrEnrichmentUnavailable, err)))
		return entity.Geo{}
	}

	return geo
}
