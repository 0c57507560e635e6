// Package handler contains the HTTP handlers for the account API.
package handler

import (
	"log/slog"
	"net/http"
	"slices"

	"accounts/internal/delivery/api/response"
	deliverycontext "accounts/internal/delivery/context"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/errors"
	"accounts/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type registerRequest struct {
	Email             string `json:"email" validate:"required,email"`
	Username          string `json:"username"`
	Password          string `json:"password" validate:"required"`
	ConfirmedPassword string `json:"confirmedPassword"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
}

// loginRequest has no validation tags: every login failure must look the same.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required"`
}

// AccountHandler holds dependencies for account-related handlers.
type AccountHandler struct {
	uc     usecase.AccountUsecase
	logger *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler, injected by Fx.
func NewAccountHandler(uc usecase.AccountUsecase, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		uc:     uc,
		logger: logger,
	}
}

// bind decodes and validates a request body.
func bind(c echo.Context, input any) error {
	if err := c.Bind(input); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("malformed request body")
	}

	return errors.WithStack(c.Validate(input))
}

// Register handles POST /users.
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	output, err := h.uc.Register(c.Request().Context(), usecase.RegisterInput{
		Email:             req.Email,
		Username:          req.Username,
		Password:          req.Password,
		ConfirmedPassword: req.ConfirmedPassword,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.AuthResponse(c, http.StatusCreated, output.Account, output.Token)
}

// Login handles POST /users/login.
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("malformed request body")
	}

	output, err := h.uc.Login(c.Request().Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.AuthResponse(c, http.StatusOK, output.Account, output.Token)
}

// ResetPassword handles POST /users/passwordReset. The new password is never part of the response.
func (h *AccountHandler) ResetPassword(c echo.Context) error {
	var req passwordResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	account, err := h.uc.ResetPassword(c.Request().Context(), req.Email)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.UserResponse(c, http.StatusOK, account)
}

// Logout handles POST /users/logout.
func (h *AccountHandler) Logout(c echo.Context) error {
	account, token, err := principal(c)
	if err != nil {
		return err
	}

	if err := h.uc.Logout(c.Request().Context(), account, token); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusOK)
}

// LogoutAll handles POST /users/logoutAll.
func (h *AccountHandler) LogoutAll(c echo.Context) error {
	account, _, err := principal(c)
	if err != nil {
		return err
	}

	if err := h.uc.LogoutAll(c.Request().Context(), account); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusOK)
}

// GetSelf handles GET /users/me. It answers from the account loaded by authentication.
func (h *AccountHandler) GetSelf(c echo.Context) error {
	account, ok := deliverycontext.GetAccount(c)
	if !ok {
		return domainerrors.ErrInvalidToken
	}

	return response.UserResponse(c, http.StatusOK, account)
}

// GetByID handles GET /users/:id. Failures answer with an empty body.
func (h *AccountHandler) GetByID(c echo.Context) error {
	requesterID, _, err := principal(c)
	if err != nil {
		return err
	}

	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.NoContent(http.StatusNotFound)
	}

	account, err := h.uc.GetByID(c.Request().Context(), requesterID, targetID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrAccountNotFound) {
			return c.NoContent(http.StatusNotFound)
		}

		deliverycontext.GetLoggerOrDefault(c.Request().Context(), h.logger).
			Error("Failed to get account", slog.Any("targetID", targetID), slog.Any("error", err))

		return c.NoContent(http.StatusInternalServerError)
	}

	return response.UserResponse(c, http.StatusOK, account)
}

// UpdateSelf handles PATCH /users/me. Every value must be a JSON string.
func (h *AccountHandler) UpdateSelf(c echo.Context) error {
	accountID, _, err := principal(c)
	if err != nil {
		return err
	}

	var raw map[string]any
	if err := c.Bind(&raw); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("malformed request body")
	}

	update, err := toProfileUpdate(raw)
	if err != nil {
		return err
	}

	account, err := h.uc.UpdateSelf(c.Request().Context(), accountID, update)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.UserResponse(c, http.StatusOK, account)
}

// DeleteSelf handles DELETE /users/me.
func (h *AccountHandler) DeleteSelf(c echo.Context) error {
	accountID, _, err := principal(c)
	if err != nil {
		return err
	}

	account, err := h.uc.DeleteSelf(c.Request().Context(), accountID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.UserResponse(c, http.StatusOK, account)
}

// HealthCheck handles GET /healthz.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, response.HealthBody{Status: "ok"})
}

func principal(c echo.Context) (uuid.UUID, string, error) {
	account, ok := deliverycontext.GetAccount(c)
	if !ok {
		return uuid.Nil, "", domainerrors.ErrInvalidToken
	}

	token, _ := deliverycontext.GetSessionToken(c)

	return account.ID, token, nil
}

func toProfileUpdate(raw map[string]any) (usecase.ProfileUpdate, error) {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	update := make(usecase.ProfileUpdate, len(raw))
	for _, key := range keys {
		value, ok := raw[key].(string)
		if !ok {
			return nil, domainerrors.ErrValidationFailed.WithDetails(key + " must be a string")
		}
		update[key] = value
	}

	return update, nil
}
