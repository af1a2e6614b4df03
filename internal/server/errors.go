package server

import (
	"errors"
	"net/http"
	"strings"

	applicationdomain "github.com/cardlinkhq/cardlink/internal/application/domain"
	typedomain "github.com/cardlinkhq/cardlink/internal/applicationtype/domain"
	authdomain "github.com/cardlinkhq/cardlink/internal/auth/domain"
	"github.com/cardlinkhq/cardlink/internal/authorization"
	devicedomain "github.com/cardlinkhq/cardlink/internal/device/domain"
	orgdomain "github.com/cardlinkhq/cardlink/internal/organization/domain"
	userdomain "github.com/cardlinkhq/cardlink/internal/user/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
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
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
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

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, devicedomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    forbiddenErrorType(err),
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrAccountExists),
		errors.Is(err, userdomain.ErrAlreadyClaimed),
		errors.Is(err, applicationdomain.ErrAlreadyCompleted),
		errors.Is(err, applicationdomain.ErrApplicationClosed),
		errors.Is(err, applicationdomain.ErrDuplicateScan):
		return http.StatusConflict, errorPayload{
			Type:    conflictErrorType(err),
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
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
		errors.Is(err, userdomain.ErrInvalidCardID),
		errors.Is(err, userdomain.ErrInvalidEmail),
		errors.Is(err, applicationdomain.ErrInvalidCardID),
		errors.Is(err, applicationdomain.ErrInvalidApplicationID),
		errors.Is(err, typedomain.ErrInvalidTitle),
		errors.Is(err, typedomain.ErrInvalidQuestions),
		errors.Is(err, typedomain.ErrInvalidAnswers),
		errors.Is(err, typedomain.ErrTooManyQuestions),
		errors.Is(err, devicedomain.ErrInvalidName),
		errors.Is(err, orgdomain.ErrInvalidName):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, orgdomain.ErrNotAMember),
		errors.Is(err, orgdomain.ErrInsufficientRole),
		errors.Is(err, applicationdomain.ErrInvalidToken),
		errors.Is(err, applicationdomain.ErrTokenExpired),
		errors.Is(err, applicationdomain.ErrUnauthorized),
		errors.Is(err, applicationdomain.ErrDeviceMismatch):
		return true
	default:
		return false
	}
}

func forbiddenErrorType(err error) string {
	switch {
	case errors.Is(err, applicationdomain.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, applicationdomain.ErrTokenExpired):
		return "token_expired"
	default:
		return "forbidden"
	}
}

func conflictErrorType(err error) string {
	switch {
	case errors.Is(err, applicationdomain.ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, applicationdomain.ErrApplicationClosed):
		return "application_closed"
	case errors.Is(err, applicationdomain.ErrDuplicateScan):
		return "duplicate_scan"
	case errors.Is(err, userdomain.ErrAlreadyClaimed):
		return "already_claimed"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrProfileNotFound),
		errors.Is(err, userdomain.ErrInvalidSignupToken),
		errors.Is(err, applicationdomain.ErrApplicationNotFound),
		errors.Is(err, applicationdomain.ErrCardNotFound),
		errors.Is(err, typedomain.ErrTypeNotFound),
		errors.Is(err, devicedomain.ErrDeviceNotFound),
		errors.Is(err, orgdomain.ErrOrganizationNotFound),
		errors.Is(err, authdomain.ErrAccountNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", payload.Type
	case status == http.StatusBadRequest:
		return "validation", payload.Type
	default:
		return "domain", payload.Type
	}
}
