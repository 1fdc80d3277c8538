package main

import (
	"context"
	"image"
	"net/http"
	"time"

	"ibanscan/pkg/config"
	"ibanscan/pkg/iban"
	"ibanscan/pkg/scan"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// maxUploadSize caps frame and photo uploads.
const maxUploadSize = 5 * 1024 * 1024

// photoReader reads an IBAN from a still image.
type photoReader interface {
	ReadIban(ctx context.Context, img image.Image) (iban.Match, string, error)
}

type server struct {
	cfg       *config.Config
	db        *gorm.DB // nil when no database is configured
	jwtSecret []byte
	registry  *scan.Registry
	photos    photoReader
	limiter   *rate.Limiter
	now       func() time.Time
}

func newServer(cfg *config.Config, db *gorm.DB, frames scan.LineRecognizer, photos photoReader) *server {
	return &server{
		cfg:       cfg,
		db:        db,
		jwtSecret: []byte(cfg.Auth.JWTSecret),
		registry:  scan.NewRegistry(scan.WithRecognizer(frames), scan.WithSource(sourceCamera)),
		photos:    photos,
		limiter:   rate.NewLimiter(rate.Limit(cfg.Scan.RateLimit), cfg.Scan.RateBurst),
		now:       time.Now,
	}
}

func (s *server) setupRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/register", s.requireDB(), s.registerHandler)
	r.POST("/login", s.requireDB(), s.loginHandler)

	authGroup := r.Group("")
	authGroup.Use(s.jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/sessions", s.createSessionHandler)
	authGroup.GET("/sessions/:id", s.getSessionHandler)
	authGroup.POST("/sessions/:id/lines", s.rateLimit(), s.sessionLinesHandler)
	authGroup.POST("/sessions/:id/frames", s.rateLimit(), s.sessionFrameHandler)
	authGroup.POST("/sessions/:id/rearm", s.rearmSessionHandler)
	authGroup.DELETE("/sessions/:id", s.deleteSessionHandler)
	authGroup.POST("/photos", s.photoHandler)
	authGroup.GET("/scans", s.requireDB(), s.listScansHandler)
}

func (s *server) requireDB() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.db == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "database not configured"})
			return
		}
		c.Next()
	}
}

// rateLimit shares one token bucket between all frame submissions.
func (s *server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many frames"})
			return
		}
		c.Next()
	}
}
