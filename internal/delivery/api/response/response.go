// Package response renders the JSON bodies of the account API.
package response

import (
	"net/http"
	"time"

	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/domain/entity"

	"github.com/labstack/echo/v4"
)

// ErrorResponse defines the structure for error responses
type ErrorResponse struct {
	Error     string `json:"error"`                // User-facing error message
	Code      string `json:"code,omitempty"`       // Machine-readable error code, e.g., "VALIDATION_FAILED"
	RequestID string `json:"request_id,omitempty"` // Request tracking ID
}

// User is the public JSON view of an account. It never carries the password hash or tokens.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserBody wraps a single user.
type UserBody struct {
	User *User `json:"user"`
}

// AuthBody is returned by register and login.
type AuthBody struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// HealthBody is returned by the health check.
type HealthBody struct {
	Status string `json:"status"`
}

// NewUser projects an account onto its JSON view. An empty email is omitted.
func NewUser(account *entity.Account) *User {
	return &User{
		ID:        account.ID.String(),
		Email:     account.Email,
		Username:  account.Username,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
}

// Success returns a successful response
func Success(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, data)
}

// UserResponse returns {"user": ...}.
func UserResponse(c echo.Context, statusCode int, account *entity.Account) error {
	return Success(c, statusCode, UserBody{User: NewUser(account)})
}

// AuthResponse returns {"user": ..., "token": ...}.
func AuthResponse(c echo.Context, statusCode int, account *entity.Account, token string) error {
	return Success(c, statusCode, AuthBody{User: NewUser(account), Token: token})
}

// Error returns an error response
func Error(c echo.Context, statusCode int, errorCode string, message string) error {
	return c.JSON(statusCode, ErrorResponse{
		Error:     message,
		Code:      errorCode,
		RequestID: deliverycontext.GetRequestID(c),
	})
}

// InternalServerError returns a 500 error
func InternalServerError(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusInternalServerError, errorCode, message)
}
