package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"campus/internal/auth"
	"campus/internal/httpmiddleware"
	"campus/internal/queue"
	"campus/internal/records"
)

// Deps are the collaborators of the records HTTP API.
type Deps struct {
	Records    *records.Service
	Queue      queue.Queue
	Limiter    *httpmiddleware.TokenBucket
	SigningKey string
	AccessTTL  time.Duration
	// RedisHealthy is optional; nil means redis is not in use.
	RedisHealthy func(context.Context) bool
	Log          zerolog.Logger
}

// NewRouter wires the records endpoints.
func NewRouter(d Deps) *gin.Engine {
	h := &handler{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger(d.Log, "/healthz", "/metrics"))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:   []string{"X-Request-ID"},
		MaxAge:          24 * time.Hour,
	}))
	r.Use(securityHeaders())
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware())
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.healthz)

	r.POST("/users/register", h.register)
	r.POST("/token", h.token)

	authed := r.Group("/", auth.BearerAuth(d.SigningKey), h.currentUser)
	anyRole := requireRole(auth.RoleStudent, auth.RoleTeacher, auth.RoleAdmin)
	staff := requireRole(auth.RoleTeacher, auth.RoleAdmin)

	authed.GET("/attendance/student/:student_id", anyRole, h.viewAttendance)
	authed.POST("/attendance/mark", staff, h.markAttendance)
	authed.GET("/marks/student/:student_id", anyRole, h.viewMarks)
	authed.POST("/marks/upload", staff, h.uploadMarks)

	return r
}

const requestIDKey = "request_id"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestLogger(log zerolog.Logger, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if skipped[c.Request.URL.Path] {
			return
		}
		ev := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// HSTS only in release mode
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
