package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/service"
	appErrors "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/errors"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/response"
)

// AuthHandler wires authentication to HTTP routes.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login godoc
// @Summary Authenticate and receive an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
