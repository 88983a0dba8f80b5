package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/shortcode"
)

const (
	maxAttempts       = 10
	defaultStatsLimit = 50
	maxStatsLimit     = 500
)

type codeGenerator interface {
	Generate(length int) (string, error)
}

type linkRepository interface {
	Exists(ctx context.Context, code string) (bool, error)
	Insert(ctx context.Context, code, targetURL string, ownerID *string) (*entity.Link, error)
	Lookup(ctx context.Context, code string) (*entity.Link, error)
	IncrementAndTouch(ctx context.Context, linkID int64) (int64, error)
}

type accessRepository interface {
	ListByLink(ctx context.Context, linkID int64, limit int) ([]entity.AccessRecord, error)
}

type linkCache interface {
	Get(ctx context.Context, code string) (*entity.Link, error)
	Set(ctx context.Context, link *entity.Link) error
}

type accessRecorder interface {
	Record(ctx context.Context, ev entity.AccessEvent)
}

type Option func(*LinkUseCase)

func WithShortCodeLength(n int) Option {
	return func(uc *LinkUseCase) {
		uc.shortCodeLength = n
	}
}

func WithBaseURL(baseURL string) Option {
	return func(uc *LinkUseCase) {
		uc.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithCodeGenerator(gen codeGenerator) Option {
	return func(uc *LinkUseCase) {
		uc.codeGen = gen
	}
}

// WithCache puts a read-through cache in front of lookups on the resolution path.
func WithCache(cache linkCache) Option {
	return func(uc *LinkUseCase) {
		uc.cache = cache
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(uc *LinkUseCase) {
		uc.logger = logger
	}
}

type LinkUseCase struct {
	shortCodeLength int
	baseURL         string
	codeGen         codeGenerator
	linkRepo        linkRepository
	accessRepo      accessRepository
	recorder        accessRecorder
	cache           linkCache
	logger          *slog.Logger
	now             func() time.Time
}

func New(linkRepo linkRepository, accessRepo accessRepository, recorder accessRecorder, opts ...Option) *LinkUseCase {
	uc := &LinkUseCase{
		shortCodeLength: shortcode.DefaultLength,
		codeGen:         shortcode.NewGenerator(),
		linkRepo:        linkRepo,
		accessRepo:      accessRepo,
		recorder:        recorder,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// ShortenURL allocates a free short code for targetURL and stores the link.
// Codes are drawn at the configured length for the first half of the attempts
// and one symbol longer for the rest; ErrExhausted is returned when all fail.
func (uc *LinkUseCase) ShortenURL(ctx context.Context, targetURL string, ownerID *string) (*entity.ShortLink, error) {
	const op = "usecase.LinkUseCase.ShortenURL"

	for attempt := 0; attempt < maxAttempts; attempt++ {
		length := uc.shortCodeLength
		if attempt >= maxAttempts/2 {
			length++
		}

		code, err := uc.codeGen.Generate(length)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		taken, err := uc.linkRepo.Exists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to check short code: %w", op, err)
		}
		if taken {
			continue
		}

		link, err := uc.linkRepo.Insert(ctx, code, targetURL, ownerID)
		if err != nil {
			if errors.Is(err, entity.ErrConflict) {
				uc.logger.Debug("lost short code race, retrying", slog.String("op", op), slog.String("code", code))
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return &entity.ShortLink{
			Link:     *link,
			ShortURL: uc.shortURL(link.Code),
		}, nil
	}

	return nil, fmt.Errorf("%s: %w", op, entity.ErrExhausted)
}

// ResolveShortCode returns the link for code after counting the click.
// Analytics are handed to the recorder and never fail the resolution.
func (uc *LinkUseCase) ResolveShortCode(ctx context.Context, code string, access entity.AccessContext) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.ResolveShortCode"

	link, err := uc.lookup(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	observedAt := uc.now()

	clicks, err := uc.linkRepo.IncrementAndTouch(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to update link stats: %w", op, err)
	}

	link.ClickCount = clicks
	link.LastAccessedAt = &observedAt

	uc.recorder.Record(ctx, entity.AccessEvent{
		LinkID:     link.ID,
		IP:         access.IP,
		UserAgent:  access.UserAgent,
		ObservedAt: observedAt,
	})

	return link, nil
}

// GetLinkStats returns the link and its most recent access records.
// Owned links are only visible to their owner.
func (uc *LinkUseCase) GetLinkStats(ctx context.Context, code string, callerID *string, limit int) (*entity.LinkStats, error) {
	const op = "usecase.LinkUseCase.GetLinkStats"

	link, err := uc.linkRepo.Lookup(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get link: %w", op, err)
	}

	if !link.OwnedBy(callerID) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrForbidden)
	}

	switch {
	case limit <= 0:
		limit = defaultStatsLimit
	case limit > maxStatsLimit:
		limit = maxStatsLimit
	}

	accesses, err := uc.accessRepo.ListByLink(ctx, link.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list access records: %w", op, err)
	}

	return &entity.LinkStats{
		Link:     *link,
		Accesses: accesses,
	}, nil
}

func (uc *LinkUseCase) lookup(ctx context.Context, code string) (*entity.Link, error) {
	if uc.cache == nil {
		return uc.linkRepo.Lookup(ctx, code)
	}

	link, err := uc.cache.Get(ctx, code)
	if err != nil {
		uc.logger.Warn("link cache read failed", slog.String("code", code), slog.Any("err", err))
	}
	if link != nil {
		return link, nil
	}

	link, err = uc.linkRepo.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := uc.cache.Set(ctx, link); err != nil {
		uc.logger.Warn("link cache write failed", slog.String("code", code), slog.Any("err", err))
	}

	return link, nil
}

func (uc *LinkUseCase) shortURL(code string) string {
	return uc.baseURL + "/" + code
}
