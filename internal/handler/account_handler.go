package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"formini/internal/model"
	"formini/internal/service"
)

// AccountHandler serves the authenticated account.
type AccountHandler struct {
	authService service.AuthService
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(authService service.AuthService) *AccountHandler {
	return &AccountHandler{authService: authService}
}

// AccountResponse wraps the public account projection.
type AccountResponse struct {
	Account model.PublicAccount `json:"account"`
}

// Me godoc
// @Summary Current account
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AccountResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return err
	}

	account, err := h.authService.CurrentAccount(c.Request().Context(), claims.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AccountResponse{Account: *account})
}
