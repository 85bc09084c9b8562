package handlers

import (
	"net/http"

	"opinionhub/internal/services"

	"github.com/gin-gonic/gin"
)

// CaptchaHandler owns the token store endpoints. The client generates the
// token after solving the rotation challenge, PUTs it here, and the vote
// pipeline consumes it. Presence, freshness and single-use are the whole
// server-side contract; the challenge solution itself is never re-verified.
type CaptchaHandler struct {
	tokens services.TokenStore
}

func NewCaptchaHandler(tokens services.TokenStore) *CaptchaHandler {
	return &CaptchaHandler{tokens: tokens}
}

type tokenRequest struct {
	Token string `json:"token"`
}

// StoreToken handles PUT /api/captcha/verify
func (h *CaptchaHandler) StoreToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		fail(c, http.StatusBadRequest, "Token is required")
		return
	}

	h.tokens.Store(req.Token)

	ok(c, http.StatusOK, gin.H{"message": "Token stored successfully"})
}

// VerifyToken handles POST /api/captcha/verify
// Consumes the token: a second call with the same token fails.
func (h *CaptchaHandler) VerifyToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		fail(c, http.StatusBadRequest, "Token is required")
		return
	}

	if !h.tokens.Verify(req.Token) {
		fail(c, http.StatusBadRequest, "Invalid or expired token")
		return
	}

	ok(c, http.StatusOK, gin.H{"message": "CAPTCHA verified successfully"})
}
