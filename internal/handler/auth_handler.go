package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"formini/internal/auth"
	apperrors "formini/internal/errors"
	"formini/internal/model"
	"formini/internal/service"
)

// ClaimsContextKey is where the bearer middleware stores the validated *auth.Claims.
const ClaimsContextKey = "claims"

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents an account registration request.
type RegisterRequest struct {
	FirstName string `json:"first_name" example:"Sara"`
	LastName  string `json:"last_name" example:"Ben Ali"`
	Email     string `json:"email" example:"sara@formini.tn"`
	Password  string `json:"password" example:"motdepasse1"`
	Role      string `json:"role,omitempty" example:"student"`
}

// VerifyRequest represents an email verification request.
type VerifyRequest struct {
	Email string `json:"email" validate:"required" example:"sara@formini.tn"`
	Code  string `json:"code" validate:"required" example:"482913"`
}

// ResendRequest represents a request for a new verification code.
type ResendRequest struct {
	Email string `json:"email" validate:"required" example:"sara@formini.tn"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required" example:"sara@formini.tn"`
	Password string `json:"password" validate:"required" example:"motdepasse1"`
}

// RegisterResponse is returned after registration. No token is issued until the email is verified.
type RegisterResponse struct {
	Account   model.PublicAccount `json:"account"`
	EmailSent bool                `json:"email_sent"`
	Message   string              `json:"message"`
}

// SessionResponse carries a bearer token.
type SessionResponse struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	Account   model.PublicAccount `json:"account"`
}

// ResendResponse is returned after a code is reissued.
type ResendResponse struct {
	EmailSent bool   `json:"email_sent"`
	Message   string `json:"message"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// Register godoc
// @Summary Register a new account
// @Description Creates an unverified account and emails it a 6-digit verification code.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return bindError()
	}

	result, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      model.Role(req.Role),
	})
	if err != nil {
		return err
	}

	message := "account created, check your email for the verification code"
	if !result.EmailSent {
		message = "account created, the verification email could not be sent, request a new code"
	}
	return c.JSON(http.StatusCreated, RegisterResponse{
		Account:   result.Account,
		EmailSent: result.EmailSent,
		Message:   message,
	})
}

// Verify godoc
// @Summary Verify an email address
// @Description Consumes the verification code and returns a bearer token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Email and code"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/verify [post]
func (h *AuthHandler) Verify(c echo.Context) error {
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return bindError()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.authService.Verify(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

// Resend godoc
// @Summary Resend the verification code
// @Description Replaces the code of an unverified account. Earlier codes stop working.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResendRequest true "Email"
// @Success 200 {object} ResendResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/resend [post]
func (h *AuthHandler) Resend(c echo.Context) error {
	var req ResendRequest
	if err := c.Bind(&req); err != nil {
		return bindError()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sent, err := h.authService.ResendCode(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}

	message := "a new verification code has been sent"
	if !sent {
		message = "a new verification code was generated but the email could not be sent"
	}
	return c.JSON(http.StatusOK, ResendResponse{EmailSent: sent, Message: message})
}

// Login godoc
// @Summary Login
// @Description Five consecutive failures lock the account for 30 minutes.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return bindError()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

// Logout godoc
// @Summary Logout
// @Description Revokes the presented bearer token.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return err
	}
	if err := h.authService.Logout(c.Request().Context(), claims); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
}

func toSessionResponse(s *service.Session) SessionResponse {
	return SessionResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		Account:   s.Account,
	}
}

func claimsFrom(c echo.Context) (*auth.Claims, error) {
	claims, ok := c.Get(ClaimsContextKey).(*auth.Claims)
	if !ok || claims == nil {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
