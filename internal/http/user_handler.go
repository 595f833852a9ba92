package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/domain"
	"tasktracker/internal/service"
)

// UserHandler mantiene dependencias para login, registro, verificacion y reset.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
	sessions *service.SessionManager
	cookies  *CookieManager
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, sessions *service.SessionManager, cookies *CookieManager) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
		sessions: sessions,
		cookies:  cookies,
	}
}

type identityResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Verified    bool   `json:"verified"`
}

func newIdentityResponse(identity domain.Identity) identityResponse {
	return identityResponse{
		ID:          identity.ID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		Verified:    identity.Verified,
	}
}

// Login maneja POST /login.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		badRequest(c, "The request body is not valid JSON.")
		return
	}

	identity, err := h.userServ.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "login", err)
		return
	}
	if !h.startSession(c, identity) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": newIdentityResponse(identity)})
}

// Create maneja POST /create.
func (h *UserHandler) Create(c *gin.Context) {
	var req struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		Password    string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create request", zap.Error(err))
		badRequest(c, "The request body is not valid JSON.")
		return
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = strings.TrimSpace(req.FirstName + " " + req.LastName)
	}

	identity, err := h.userServ.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		DisplayName: name,
		Password:    req.Password,
	})
	if err != nil {
		respondError(c, h.logger, "create identity", err)
		return
	}
	if !h.startSession(c, identity) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"identity": newIdentityResponse(identity)})
}

// Verify maneja GET /verify/:token.
func (h *UserHandler) Verify(c *gin.Context) {
	if _, ok := mustIdentity(c); !ok {
		return
	}
	identity, err := h.userServ.Verify(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, h.logger, "verify", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": newIdentityResponse(identity)})
}

// ResendVerification maneja POST /verify.
func (h *UserHandler) ResendVerification(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	if err := h.userServ.ResendVerification(c.Request.Context(), identity); err != nil {
		respondError(c, h.logger, "resend verification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verification_sent"})
}

// ResetForm maneja GET /reset; devuelve los datos que la pagina de reset necesita.
func (h *UserHandler) ResetForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"email": c.Query("email"),
		"token": c.Query("token"),
	})
}

// RequestReset maneja POST /reset. Siempre responde 200 para no revelar emails.
func (h *UserHandler) RequestReset(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "The request body is not valid JSON.")
		return
	}
	if err := h.userServ.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, "request reset", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset_requested"})
}

// ResetPassword maneja POST /reset/:token.
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "The request body is not valid JSON.")
		return
	}
	if req.Email == "" {
		req.Email = c.Query("email")
	}
	if err := h.userServ.ResetPassword(c.Request.Context(), req.Email, c.Param("token"), req.Password); err != nil {
		respondError(c, h.logger, "reset password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password_reset"})
}

// Logout maneja DELETE /logout.
func (h *UserHandler) Logout(c *gin.Context) {
	c.Header("Access-Control-Expose-Headers", "Authorization")
	c.Header("Authorization", loggedOutSentinel)
	h.cookies.Clear(c.Writer)
	c.Status(http.StatusOK)
}

func (h *UserHandler) startSession(c *gin.Context, identity domain.Identity) bool {
	session, err := h.sessions.Issue(identity)
	if err != nil {
		respondError(c, h.logger, "issue session", err)
		return false
	}
	c.Header("Access-Control-Expose-Headers", "Authorization")
	c.Header("Authorization", bearerPrefix+session.Token)
	h.cookies.SetSession(c.Writer, session.Token, h.sessions.TTL())
	return true
}
