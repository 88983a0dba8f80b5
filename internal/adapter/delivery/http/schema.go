package http

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/guregu/null/v5"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const statusError = "error"

// shortenRequest represents the structure for a request to shorten a URL.
type shortenRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

// shortLinkResponse represents the structure for a response containing a freshly shortened URL.
type shortLinkResponse struct {
	Code      string    `json:"code"`
	ShortURL  string    `json:"short_url"`
	TargetURL string    `json:"target_url"`
	CreatedAt time.Time `json:"created_at"`
}

func toShortLinkResponse(link *entity.ShortLink) shortLinkResponse {
	return shortLinkResponse{
		Code:      link.Code,
		ShortURL:  link.ShortURL,
		TargetURL: link.TargetURL,
		CreatedAt: link.CreatedAt,
	}
}

// accessResponse represents a single enriched access of a link.
type accessResponse struct {
	IPAddress      string      `json:"ip_address"`
	City           null.String `json:"city"`
	Region         null.String `json:"region"`
	Country        null.String `json:"country"`
	Coordinates    null.String `json:"coordinates"`
	Organization   null.String `json:"organization"`
	PostalCode     null.String `json:"postal_code"`
	Timezone       null.String `json:"timezone"`
	BrowserFamily  null.String `json:"browser_family"`
	BrowserVersion null.String `json:"browser_version"`
	OSFamily       null.String `json:"os_family"`
	OSVersion      null.String `json:"os_version"`
	DeviceFamily   null.String `json:"device_family"`
	ObservedAt     time.Time   `json:"observed_at"`
}

// linkStatsResponse represents the structure for a response containing link statistics.
type linkStatsResponse struct {
	Code           string           `json:"code"`
	TargetURL      string           `json:"target_url"`
	ClickCount     int64            `json:"click_count"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt *time.Time       `json:"last_accessed_at"`
	Accesses       []accessResponse `json:"accesses"`
}

func toLinkStatsResponse(stats *entity.LinkStats) linkStatsResponse {
	accesses := make([]accessResponse, 0, len(stats.Accesses))
	for _, a := range stats.Accesses {
		accesses = append(accesses, accessResponse{
			IPAddress:      a.IPAddress,
			City:           a.City,
			Region:         a.Region,
			Country:        a.Country,
			Coordinates:    a.Coordinates,
			Organization:   a.Organization,
			PostalCode:     a.PostalCode,
			Timezone:       a.Timezone,
			BrowserFamily:  a.BrowserFamily,
			BrowserVersion: a.BrowserVersion,
			OSFamily:       a.OSFamily,
			OSVersion:      a.OSVersion,
			DeviceFamily:   a.DeviceFamily,
			ObservedAt:     a.ObservedAt,
		})
	}

	return linkStatsResponse{
		Code:           stats.Code,
		TargetURL:      stats.TargetURL,
		ClickCount:     stats.ClickCount,
		CreatedAt:      stats.CreatedAt,
		LastAccessedAt: stats.LastAccessedAt,
		Accesses:       accesses,
	}
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	invalidLimitResponse = errorResponse{
		Status:  statusError,
		Message: "limit must be a positive integer",
	}

	urlNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "url not found",
	}

	unauthorizedResponse = errorResponse{
		Status:  statusError,
		Message: "unauthorized",
	}

	forbiddenResponse = errorResponse{
		Status:  statusError,
		Message: "forbidden",
	}

	exhaustedResponse = errorResponse{
		Status:  statusError,
		Message: "could not allocate a short code, try again later",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

// messageForTag returns a user-friendly message based on the validation tag.
func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url", "http_url":
		return "invalid url"
	default:
		return "invalid value"
	}
}

// getValidationErrors processes validation errors and returns a list of validationError.
func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

// validationErrorResponse constructs an errorResponse for validation errors.
func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}
