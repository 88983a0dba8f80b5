// Package analytics records enriched access events off the request path.
package analytics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const (
	DefaultWorkers       = 4
	DefaultQueueSize     = 1024
	DefaultEnrichTimeout = 2 * time.Second
	DefaultInlineTimeout = 500 * time.Millisecond
	defaultAppendTimeout = 5 * time.Second
)

type enricher interface {
	Lookup(ctx context.Context, ip, userAgent string) entity.Enrichment
}

type accessRepository interface {
	Append(ctx context.Context, rec *entity.AccessRecord) error
}

type Option func(*Recorder)

func WithWorkers(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(r *Recorder) {
		if n >= 0 {
			r.queueSize = n
		}
	}
}

func WithEnrichTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.enrichTimeout = d
		}
	}
}

// WithInlineTimeout bounds the whole enrich and append cycle of an event
// recorded on the caller's goroutine.
func WithInlineTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.inlineTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// Recorder enriches access events and appends exactly one access record per
// event. Events are drained by a fixed pool of workers.
type Recorder struct {
	enricher      enricher
	repo          accessRepository
	logger        *slog.Logger
	workers       int
	queueSize     int
	enrichTimeout time.Duration
	appendTimeout time.Duration
	inlineTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan entity.AccessEvent
	wg     sync.WaitGroup
}

// New starts the worker pool. Call Close to drain it.
func New(enricher enricher, repo accessRepository, opts ...Option) *Recorder {
	r := &Recorder{
		enricher:      enricher,
		repo:          repo,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		workers:       DefaultWorkers,
		queueSize:     DefaultQueueSize,
		enrichTimeout: DefaultEnrichTimeout,
		appendTimeout: defaultAppendTimeout,
		inlineTimeout: DefaultInlineTimeout,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.queue = make(chan entity.AccessEvent, r.queueSize)

	r.wg.Add(r.workers)
	for i := 0; i < r.workers; i++ {
		go r.work()
	}

	return r
}

// Record hands ev to the worker pool. If the queue is full or the recorder is
// closed the event is processed on the caller's goroutine instead of dropped,
// within the inline timeout. Enrichment gets at most half of that budget.
func (r *Recorder) Record(ctx context.Context, ev entity.AccessEvent) {
	r.mu.RLock()
	if !r.closed {
		select {
		case r.queue <- ev:
			r.mu.RUnlock()
			return
		default:
		}
	}
	r.mu.RUnlock()

	r.logger.Warn("analytics queue unavailable, recording inline", slog.Int64("link_id", ev.LinkID))

	inlineCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.inlineTimeout)
	defer cancel()

	r.process(inlineCtx, ev, min(r.enrichTimeout, r.inlineTimeout/2))
}

// Close stops accepting queued events and waits for the workers to drain the
// queue or for ctx to be done.
func (r *Recorder) Close(ctx context.Context) error {
	const op = "analytics.Recorder.Close"

	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
}

func (r *Recorder) work() {
	defer r.wg.Done()

	for ev := range r.queue {
		r.process(context.Background(), ev, r.enrichTimeout)
	}
}

func (r *Recorder) process(ctx context.Context, ev entity.AccessEvent, enrichTimeout time.Duration) {
	const op = "analytics.Recorder.process"

	enrichCtx, cancel := context.WithTimeout(ctx, enrichTimeout)
	enr := r.enricher.Lookup(enrichCtx, ev.IP, ev.UserAgent)
	cancel()

	rec := entity.NewAccessRecord(ev, enr)

	appendCtx, cancel := context.WithTimeout(ctx, r.appendTimeout)
	defer cancel()

	if err := r.repo.Append(appendCtx, rec); err != nil {
		r.logger.Error("failed to record access",
			slog.String("op", op),
			slog.Int64("link_id", ev.LinkID),
			slog.Any("err", err),
		)
	}
}
