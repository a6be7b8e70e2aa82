package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

type AuthHandler struct {
	auth          AuthService
	secureCookies bool
	logger        *zap.Logger
}

func NewAuthHandler(auth AuthService, secureCookies bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookies: secureCookies, logger: logger}
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/", "", h.secureCookies, true)
}

// SignUp registers a new account
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	user, err := h.auth.SignUp(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Account created successfully", "user": user})
}

// SignIn sets the access and refresh cookies
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	session, err := h.auth.SignIn(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.setCookie(c, accessCookie, session.AccessToken, h.auth.AccessTTL())
	h.setCookie(c, refreshCookie, session.RefreshToken, h.auth.RefreshTTL())
	c.JSON(http.StatusOK, gin.H{"message": "Signed in successfully", "user": session.User})
}

// Refresh swaps the refresh cookie for a new access cookie
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		respondError(c, h.logger, models.ErrUnauthorized)
		return
	}

	access, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.setCookie(c, accessCookie, access, h.auth.AccessTTL())
	c.JSON(http.StatusOK, gin.H{"message": "Token refreshed"})
}

// SignOut clears both cookies
func (h *AuthHandler) SignOut(c *gin.Context) {
	h.setCookie(c, accessCookie, "", -1)
	h.setCookie(c, refreshCookie, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out successfully"})
}

type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

func (h *UserHandler) Profile(c *gin.Context) {
	user, err := h.users.Profile(c.Request.Context(), principal(c).UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateUserRequest
	if err := bindPatch(c, &req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), principal(c).UserID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
}

// ListUsers is the admin user directory
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, err := pageRequest(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	users, err := h.users.ListUsers(c.Request.Context(), page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}
