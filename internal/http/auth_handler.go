package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipeshare/internal/domain"
	"recipeshare/internal/service"
)

// AuthHandler expone alta, confirmacion y sesiones.
type AuthHandler struct {
	logger   *zap.Logger
	accounts *service.AccountService
	profiles *service.ProfileService
}

func NewAuthHandler(logger *zap.Logger, accounts *service.AccountService, profiles *service.ProfileService) *AuthHandler {
	return &AuthHandler{logger: logger, accounts: accounts, profiles: profiles}
}

// SignUp maneja POST /auth/signup.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
		Username string `json:"username" binding:"required"`
		FullName string `json:"full_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "signup", err)
		return
	}

	userID, err := h.accounts.SignUp(c.Request.Context(), service.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		FullName: req.FullName,
	})
	if err != nil {
		writeError(c, h.logger, "signup", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": userID, "status": "confirmation_pending"})
}

// Confirm maneja POST /auth/confirm.
func (h *AuthHandler) Confirm(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "confirm", err)
		return
	}
	if err := h.accounts.ConfirmEmail(c.Request.Context(), req.Email, req.Code); err != nil {
		writeError(c, h.logger, "confirm", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}

// ResendConfirmation maneja POST /auth/confirm/resend. No revela si el email existe.
func (h *AuthHandler) ResendConfirmation(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "resend confirmation", err)
		return
	}
	if err := h.accounts.ResendConfirmation(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.logger, "resend confirmation", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "confirmation_sent"})
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "login", err)
		return
	}

	res, err := h.accounts.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, "login", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Refresh maneja POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "refresh", err)
		return
	}
	session, err := h.accounts.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, h.logger, "refresh", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// Logout maneja POST /auth/logout. El refresh token en el body es opcional.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, h.logger, "logout", err)
			return
		}
	}
	session := domain.Session{
		AccessToken:  c.GetString(accessTokenKey),
		RefreshToken: req.RefreshToken,
		UserID:       viewerID(c),
	}
	if err := h.accounts.SignOut(c.Request.Context(), session); err != nil {
		writeError(c, h.logger, "logout", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me maneja GET /me: identidad y perfil del usuario autenticado.
func (h *AuthHandler) Me(c *gin.Context) {
	ident, ok := CurrentIdentity(c)
	if !ok {
		writeError(c, h.logger, "me", domain.ErrUnauthenticated)
		return
	}
	profile, err := h.accounts.EnsureProfile(c.Request.Context(), ident)
	if err != nil {
		writeError(c, h.logger, "me", err)
		return
	}
	view, err := h.profiles.View(c.Request.Context(), profile.Username, ident.ID)
	if err != nil {
		writeError(c, h.logger, "me", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": ident, "profile": view})
}
