package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/shortcode"
)

// retryAfterSeconds is sent with 503 responses when no short code could be allocated.
const retryAfterSeconds = "1"

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type linkUseCase interface {
	ShortenURL(ctx context.Context, targetURL string, ownerID *string) (*entity.ShortLink, error)
	ResolveShortCode(ctx context.Context, code string, access entity.AccessContext) (*entity.Link, error)
	GetLinkStats(ctx context.Context, code string, callerID *string, limit int) (*entity.LinkStats, error)
}

type linkHandler struct {
	useCase  linkUseCase
	validate *validator.Validate
}

func newLinkHandler(useCase linkUseCase, validate *validator.Validate) *linkHandler {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &linkHandler{
		useCase:  useCase,
		validate: validate,
	}
}

func (h *linkHandler) shortenURL(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return
	}

	link, err := h.useCase.ShortenURL(r.Context(), req.URL, identityFrom(r.Context()))
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		if errors.Is(err, entity.ErrExhausted) {
			w.Header().Set("Retry-After", retryAfterSeconds)
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, exhaustedResponse)
			return
		}

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toShortLinkResponse(link))
}

func (h *linkHandler) resolveShortCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if !shortcode.Valid(code) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, urlNotFoundResponse)
		return
	}

	link, err := h.useCase.ResolveShortCode(r.Context(), code, entity.AccessContext{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	http.Redirect(w, r, link.TargetURL, http.StatusFound)
}

func (h *linkHandler) getLinkStats(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidLimitResponse)
			return
		}
		limit = n
	}

	stats, err := h.useCase.GetLinkStats(r.Context(), code, identityFrom(r.Context()), limit)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
		case errors.Is(err, entity.ErrForbidden):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, forbiddenResponse)
		default:
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, serverErrorResponse)
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLinkStatsResponse(stats))
}

// clientIP returns the address chi's RealIP middleware left in RemoteAddr,
// stripped of its port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
