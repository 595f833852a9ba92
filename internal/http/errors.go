package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/service"
)

type errorEnvelope struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func abortWithError(c *gin.Context, status int, title, message string) {
	c.AbortWithStatusJSON(status, errorEnvelope{Title: title, Message: message})
}

// respondError traduce errores de servicio al sobre {"title","message"}.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var validation *service.ValidationError
	var unauthorized *service.UnauthorizedPeerError

	switch {
	case errors.As(err, &validation):
		abortWithError(c, http.StatusBadRequest, "Validation Error", validation.Message)
	case errors.Is(err, service.ErrInvalidEmail):
		abortWithError(c, http.StatusBadRequest, "Validation Error", "The email address is not valid.")
	case errors.Is(err, service.ErrEmailInUse):
		abortWithError(c, http.StatusBadRequest, "Email In Use", "An account with that email already exists.")
	case errors.Is(err, service.ErrInvalidSelf):
		abortWithError(c, http.StatusBadRequest, "Invalid Request", "You cannot add yourself.")
	case errors.Is(err, service.ErrTokenNotFound):
		abortWithError(c, http.StatusBadRequest, "Invalid Token", "The link is invalid or has already been used.")
	case errors.Is(err, service.ErrTokenExpired):
		abortWithError(c, http.StatusBadRequest, "Expired Token", "The link has expired.")
	case errors.Is(err, service.ErrInvalidCredentials):
		abortWithError(c, http.StatusUnauthorized, "Login Failed", "Invalid email or password.")
	case errors.As(err, &unauthorized):
		abortWithError(c, http.StatusForbidden, "Unauthorized", unauthorized.Error())
	case errors.Is(err, service.ErrUnauthorized):
		abortWithError(c, http.StatusForbidden, "Unauthorized", "You are not allowed to do that.")
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "Not Found", "The requested resource was not found.")
	case errors.Is(err, service.ErrRateLimited):
		abortWithError(c, http.StatusTooManyRequests, "Too Many Requests", "Please try again later.")
	case errors.Is(err, service.ErrEmailSendFailure):
		logger.Warn(op+" email delivery failed", zap.Error(err))
		abortWithError(c, http.StatusServiceUnavailable, "Email Unavailable", "Email delivery is unavailable, please try again later.")
	default:
		logger.Error(op+" failed", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Server Error", "Something went wrong.")
	}
}

func badRequest(c *gin.Context, message string) {
	abortWithError(c, http.StatusBadRequest, "Invalid Request", message)
}
