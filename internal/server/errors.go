package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
	"github.com/smallbiznis/faktur/internal/authorization"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/faktur/internal/payment/domain"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
	"gorm.io/gorm"
)

// ValidationErrors carries field-level messages and renders as 422.
type ValidationErrors struct {
	Fields map[string][]string
}

func (v *ValidationErrors) Error() string {
	return "validation failed"
}

type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`

	// Only set when a payment is rejected for exceeding the balance.
	OutstandingAmount string `json:"outstanding_amount,omitempty"`
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not_found")
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

		status, body := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, body)
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
	return newValidationError("request", "The request body is malformed.")
}

func newValidationError(field, message string) error {
	return &ValidationErrors{
		Fields: map[string][]string{field: {message}},
	}
}

func mapError(err error) (int, errorBody) {
	if err == nil {
		return http.StatusInternalServerError, errorBody{Message: "Internal server error"}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusUnprocessableEntity, errorBody{
			Message: "Validation failed",
			Errors:  vErr.Fields,
		}
	}

	if field, message, ok := fieldValidationError(err); ok {
		return http.StatusUnprocessableEntity, errorBody{
			Message: "Validation failed",
			Errors:  map[string][]string{field: {message}},
		}
	}

	var exceedsErr *paymentdomain.ExceedsOutstandingError
	if errors.As(err, &exceedsErr) {
		return http.StatusBadRequest, errorBody{
			Message:           "Payment amount exceeds outstanding balance",
			OutstandingAmount: exceedsErr.Outstanding.StringFixed(2),
		}
	}

	if message, ok := businessRuleError(err); ok {
		return http.StatusBadRequest, errorBody{Message: message}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrTokenRevoked):
		return http.StatusUnauthorized, errorBody{Message: "Unauthenticated"}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorBody{Message: "Forbidden"}
	case isNotFoundError(err):
		return http.StatusNotFound, errorBody{Message: "Not found"}
	default:
		return http.StatusInternalServerError, errorBody{Message: "Internal server error"}
	}
}

func fieldValidationError(err error) (field, message string, ok bool) {
	switch {
	case errors.Is(err, invoicedomain.ErrEmptyItems):
		return "items", "At least one item is required.", true
	case errors.Is(err, invoicedomain.ErrInvalidQty):
		return "items", "Each item qty must be at least 1.", true
	case errors.Is(err, invoicedomain.ErrInvalidPrice):
		return "items", "Item price cannot be negative.", true
	case errors.Is(err, invoicedomain.ErrPastDueDate):
		return "due_date", "Due date cannot be in the past.", true
	case errors.Is(err, invoicedomain.ErrInvalidCustomer):
		return "customer_id", "The selected customer is invalid.", true
	case errors.Is(err, paymentdomain.ErrInvalidAmount):
		return "amount", "Amount must be greater than zero.", true
	case errors.Is(err, authdomain.ErrWeakPassword):
		return "password", "Password must be at least 6 characters.", true
	case errors.Is(err, userdomain.ErrInvalidEmail):
		return "email", "Email address is invalid.", true
	case errors.Is(err, userdomain.ErrInvalidRole):
		return "role", "Role must be admin or user.", true
	case errors.Is(err, userdomain.ErrUserExists):
		return "email", "Email address is already taken.", true
	default:
		return "", "", false
	}
}

func businessRuleError(err error) (string, bool) {
	switch {
	case errors.Is(err, paymentdomain.ErrDraftInvoice):
		return "Cannot pay a draft invoice. Please submit it first.", true
	case errors.Is(err, paymentdomain.ErrAlreadyPaid):
		return "Invoice is already paid", true
	case errors.Is(err, invoicedomain.ErrNotDraft):
		return "Only a draft invoice can be modified or submitted", true
	case errors.Is(err, invoicedomain.ErrPaidImmutable):
		return "A paid invoice cannot be deleted", true
	case errors.Is(err, invoicedomain.ErrNotPaid):
		return "Only a paid invoice can be exported", true
	default:
		return "", false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, userdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
