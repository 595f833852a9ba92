package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/domain"
	"tasktracker/internal/service"
)

const currentIdentityKey = "current_identity"

// SessionMiddleware valida el token de sesion, carga la identidad y rota el
// token en cada request. allowUnverified habilita las rutas de verificacion y logout.
func SessionMiddleware(logger *zap.Logger, sessions *service.SessionManager, cookies *CookieManager, allowUnverified bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := sessions.Resolve(c.Request.Context(), sessionToken(c.Request), allowUnverified)
		if err != nil {
			rejectSession(c, logger, cookies, err)
			return
		}

		c.Header("Authorization", bearerPrefix+session.Token)
		c.Header("Access-Control-Expose-Headers", "Authorization")
		cookies.SetSession(c.Writer, session.Token, sessions.TTL())

		c.Set(currentIdentityKey, session.Identity)
		c.Next()
	}
}

func rejectSession(c *gin.Context, logger *zap.Logger, cookies *CookieManager, err error) {
	path := zap.String("path", c.Request.URL.Path)
	switch {
	case errors.Is(err, service.ErrSessionMissing):
		logger.Warn("session rejected", zap.String("reason", "missing"), path)
		abortWithError(c, http.StatusUnauthorized, "Unauthorized", "Please log in.")
	case errors.Is(err, service.ErrSessionExpired), errors.Is(err, service.ErrSessionInvalid):
		reason := "invalid"
		if errors.Is(err, service.ErrSessionExpired) {
			reason = "expired"
		}
		logger.Warn("session rejected", zap.String("reason", reason), path)
		c.Header("Authorization", rejectedSentinel)
		cookies.Clear(c.Writer)
		abortWithError(c, http.StatusUnauthorized, "Unauthorized", "Your session is no longer valid, please log in again.")
	case errors.Is(err, service.ErrUserGone):
		logger.Warn("session rejected", zap.String("reason", "user_gone"), path)
		cookies.Clear(c.Writer)
		abortWithError(c, http.StatusForbidden, "Forbidden", "This account no longer exists.")
	case errors.Is(err, service.ErrVerificationRequired):
		logger.Warn("session rejected", zap.String("reason", "unverified"), path)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"title":   "Verification Required",
			"message": "Please verify your email address before continuing.",
			"verify":  true,
		})
	default:
		logger.Error("session resolve failed", zap.Error(err), path)
		abortWithError(c, http.StatusInternalServerError, "Server Error", "Something went wrong.")
	}
}

// CurrentIdentity devuelve la identidad resuelta por SessionMiddleware.
func CurrentIdentity(c *gin.Context) (domain.Identity, bool) {
	val, ok := c.Get(currentIdentityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := val.(domain.Identity)
	return identity, ok
}

func mustIdentity(c *gin.Context) (domain.Identity, bool) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "Unauthorized", "Please log in.")
	}
	return identity, ok
}
