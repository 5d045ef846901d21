package handlers

import (
	"context"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-resale/internal/services"
	"ticket-resale/models"
	"ticket-resale/monitoring"
)

type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	Profile(ctx context.Context, userID string) (*models.PublicUser, error)
}

type AuthHandler struct {
	auth AuthService
}

func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type authResponse struct {
	Message string `json:"message"`
	*services.AuthResult
}

// Register - Create an account and sign in
func (h *AuthHandler) Register(e *core.RequestEvent) error {
	var in services.RegisterInput
	if err := e.BindBody(&in); err != nil {
		return apis.NewBadRequestError("Invalid request body", nil)
	}

	result, err := h.auth.Register(e.Request.Context(), in)
	monitoring.TrackOperation("register", err)
	if err != nil {
		return apiError(e, err)
	}

	return e.JSON(http.StatusCreated, authResponse{Message: "User registered successfully", AuthResult: result})
}

// Login - Exchange email and password for a token
func (h *AuthHandler) Login(e *core.RequestEvent) error {
	var in services.LoginInput
	if err := e.BindBody(&in); err != nil {
		return apis.NewBadRequestError("Invalid request body", nil)
	}

	result, err := h.auth.Login(e.Request.Context(), in)
	monitoring.TrackOperation("login", err)
	if err != nil {
		return apiError(e, err)
	}

	return e.JSON(http.StatusOK, authResponse{Message: "Login successful", AuthResult: result})
}
