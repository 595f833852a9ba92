package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/db"
	"tasktracker/internal/service"
)

// RouterDeps agrupa lo que el router necesita para montar middlewares y rutas.
type RouterDeps struct {
	Logger      *zap.Logger
	DB          db.Pinger
	Sessions    *service.SessionManager
	Cookies     *CookieManager
	Limiter     service.RateLimiter
	AuthLimiter service.RateLimiter
	Users       *UserHandler
	People      *PeopleHandler
	Tasks       *TaskHandler
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(deps.Logger), gin.Recovery(), RateLimitMiddleware(deps.Limiter, "global"))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", readinessHandler(deps.Logger, deps.DB))

	authLimit := RateLimitMiddleware(deps.AuthLimiter, "auth")
	r.POST("/login", authLimit, deps.Users.Login)
	r.POST("/create", authLimit, deps.Users.Create)
	r.GET("/reset", deps.Users.ResetForm)
	r.POST("/reset", authLimit, deps.Users.RequestReset)
	r.POST("/reset/:token", authLimit, deps.Users.ResetPassword)
	r.DELETE("/logout", deps.Users.Logout)

	unverified := r.Group("", SessionMiddleware(deps.Logger, deps.Sessions, deps.Cookies, true))
	unverified.GET("/verify/:token", deps.Users.Verify)
	unverified.POST("/verify", deps.Users.ResendVerification)
	unverified.GET("/csv", deps.Tasks.ExportCSV)

	authed := r.Group("", SessionMiddleware(deps.Logger, deps.Sessions, deps.Cookies, false))
	authed.GET("/", deps.Tasks.List)
	authed.POST("/", deps.Tasks.Save)
	authed.DELETE("/", deps.Tasks.Delete)

	people := authed.Group("/people")
	people.GET("", deps.People.List)
	people.POST("", deps.People.Invite)
	people.PATCH("", deps.People.SetPermission)
	people.DELETE("", deps.People.Remove)
	people.POST("/approve", deps.People.Approve)
	people.DELETE("/pending", deps.People.Remove)

	r.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "Not Found", "The page you are looking for does not exist.")
	})

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// readinessHandler responde 503 mientras la base no responda.
func readinessHandler(logger *zap.Logger, pinger db.Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pinger != nil {
			if err := db.Ping(c.Request.Context(), pinger); err != nil {
				logger.Warn("readiness check failed", zap.Error(err))
				abortWithError(c, http.StatusServiceUnavailable, "Unavailable", "The database is not reachable.")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
