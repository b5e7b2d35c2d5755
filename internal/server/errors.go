package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	catalogdomain "github.com/mewayz/billing/internal/catalog/domain"
	checkoutdomain "github.com/mewayz/billing/internal/checkout/domain"
	"github.com/mewayz/billing/pkg/db"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(err),
					Code:    err.Error(),
					Message: validationErrorMessage(err),
				},
			},
		}
	case errors.Is(err, checkoutdomain.ErrAttemptInFlight):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "a checkout attempt is already in flight for this session",
		}
	case db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, checkoutdomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, checkoutdomain.ErrEmptySelection),
		errors.Is(err, checkoutdomain.ErrInvalidInterval),
		errors.Is(err, checkoutdomain.ErrInvalidAttemptID):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, checkoutdomain.ErrAttemptNotFound),
		errors.Is(err, catalogdomain.ErrBundleNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(err error) string {
	switch {
	case errors.Is(err, checkoutdomain.ErrEmptySelection):
		return "bundle_ids"
	case errors.Is(err, checkoutdomain.ErrInvalidInterval):
		return "payment_interval"
	case errors.Is(err, checkoutdomain.ErrInvalidAttemptID):
		return "id"
	default:
		return "request"
	}
}

func validationErrorMessage(err error) string {
	switch {
	case errors.Is(err, checkoutdomain.ErrEmptySelection):
		return "select at least one bundle"
	case errors.Is(err, checkoutdomain.ErrInvalidInterval):
		return "payment interval must be monthly or yearly"
	case errors.Is(err, checkoutdomain.ErrInvalidAttemptID):
		return "attempt id is invalid"
	default:
		return "invalid request"
	}
}

// classifyErrorForLog feeds the request log's error_type/error_code fields.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := ""
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if err != nil {
		code = err.Error()
	}
	return payload.Type, code
}
