// Package common holds the response envelope, RFC 9457 problem details and
// request binding shared by the HTTP handlers.
package common

import (
	"errors"

	"github.com/amirasaad/householdledger/pkg/domain"
	authsvc "github.com/amirasaad/householdledger/pkg/service/auth"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`     // A URI reference that identifies the problem type
	Title    string `json:"title"`              // Short, human-readable summary
	Status   int    `json:"status"`             // HTTP status code
	Detail   string `json:"detail,omitempty"`   // Human-readable explanation
	Instance string `json:"instance,omitempty"` // URI reference that identifies the specific occurrence
	Errors   any    `json:"errors,omitempty"`   // Optional: additional error details
}

// ProblemContentType is the media type of ProblemDetails responses.
const ProblemContentType = "application/problem+json"

var validate = validator.New()

// SuccessResponseJSON writes data wrapped in Response.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Status: status, Message: message, Data: data})
}

// ProblemDetailsJSON writes an application/problem+json response. The
// status comes from ErrorToStatusCode(err) unless an int is passed in args.
// A string in args replaces the detail and any other value goes to Errors.
// Server-side failures never expose the underlying cause.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, args ...any) error {
	status := fiber.StatusInternalServerError
	if err != nil {
		status = ErrorToStatusCode(err)
	}
	pd := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Instance: c.OriginalURL(),
	}
	for _, arg := range args {
		switch v := arg.(type) {
		case int:
			status = v
		case string:
			pd.Detail = v
		case nil:
		default:
			pd.Errors = v
		}
	}
	if pd.Detail == "" && err != nil {
		switch {
		case status < fiber.StatusInternalServerError:
			pd.Detail = err.Error()
		case errors.Is(err, domain.ErrStorageUnavailable):
			pd.Detail = domain.ErrStorageUnavailable.Error()
		default:
			pd.Detail = fiber.ErrInternalServerError.Message
		}
	}
	pd.Status = status
	if err := c.Status(status).JSON(pd); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, ProblemContentType)
	return nil
}

// ErrorToStatusCode maps domain errors to appropriate HTTP status codes.
func ErrorToStatusCode(err error) int {
	var fiberErr *fiber.Error
	switch {
	case domain.IsValidation(err):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrAuthFailure):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrNotAMember):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrAccountNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrUsernameTaken), errors.Is(err, domain.ErrAlreadyMember):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrMembershipLimitReached), errors.Is(err, domain.ErrBalanceOutOfRange):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	default:
		return fiber.StatusInternalServerError
	}
}

// BindAndValidate parses the request body and validates it using go-playground/validator.
// On failure the problem response is already written and the returned
// pointer is nil; handlers then return the error as is.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, ProblemDetailsJSON(c, "Invalid request body", nil, err.Error(), fiber.StatusBadRequest)
	}
	if err := validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return nil, ProblemDetailsJSON(c, "Validation failed", nil, "request body failed validation", fields, fiber.StatusBadRequest)
		}
		return nil, ProblemDetailsJSON(c, "Validation failed", nil, err.Error(), fiber.StatusBadRequest)
	}
	return &input, nil
}

// CurrentUser returns the username of the verified bearer token stored by
// the JWT middleware.
func CurrentUser(c *fiber.Ctx, authSvc *authsvc.Service) (string, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return "", domain.ErrAuthFailure
	}
	return authSvc.CurrentUser(token)
}
