package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerRequestPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponsePayload struct {
	Access    string `json:"access"`
	ProfileID string `json:"profile_id"`
	ExpiresIn int64  `json:"expires_in"`
	TokenType string `json:"token_type"`
}

func newSessionResponse(session auth.Session) sessionResponsePayload {
	return sessionResponsePayload{
		Access:    session.Access,
		ProfileID: session.ProfileID,
		ExpiresIn: session.ExpiresIn,
		TokenType: "Bearer",
	}
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	// Registration is a mock: malformed bodies register an empty account.
	_ = c.ShouldBindJSON(&request)
	registration := h.accounts.Register(c.Request.Context(), request.Username, request.Email, request.Password)
	c.JSON(http.StatusCreated, registration)
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	session, err := h.accounts.Login(c.Request.Context(), request.Email, request.Password)
	if errors.Is(err, auth.ErrMissingEmail) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_email"})
		return
	}
	if err != nil {
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session))
}

func (h *httpHandler) handleGuest(c *gin.Context) {
	session, err := h.accounts.Guest(c.Request.Context())
	if err != nil {
		h.logger.Error("guest login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session))
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}
	h.accounts.Logout(c.Request.Context(), profileID)
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleStatus(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.accounts.Status(c.Request.Context(), profileID))
}
