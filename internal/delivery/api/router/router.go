// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"accounts/internal/delivery/api/middleware"
	"accounts/internal/delivery/api/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AccountHandler *handler.AccountHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	accountHandler *handler.AccountHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		accountHandler: params.AccountHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.HealthCheck)

	auth := r.authMiddleware.Authenticate

	usersGroup := e.Group("/users")
	{
		usersGroup.POST("", r.accountHandler.Register)
		usersGroup.POST("/login", r.accountHandler.Login)
		usersGroup.POST("/passwordReset", r.accountHandler.ResetPassword)

		usersGroup.POST("/logout", r.accountHandler.Logout, auth)
		usersGroup.POST("/logoutAll", r.accountHandler.LogoutAll, auth)
		usersGroup.GET("/me", r.accountHandler.GetSelf, auth)
		usersGroup.PATCH("/me", r.accountHandler.UpdateSelf, auth)
		usersGroup.DELETE("/me", r.accountHandler.DeleteSelf, auth)
		usersGroup.GET("/:id", r.accountHandler.GetByID, auth)
	}
}
