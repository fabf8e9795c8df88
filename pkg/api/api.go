package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/smtp-relay/pkg/config"
	"github.com/telekom/smtp-relay/pkg/metrics"
	"github.com/telekom/smtp-relay/pkg/version"
)

// APIController is a route bundle registered on the server. Handlers are
// middleware applied to the whole bundle before its routes run.
type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

type Server struct {
	gin    *gin.Engine
	config config.Config
}

func NewServer(log *zap.Logger, cfg config.Config, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
	)

	// The relay is called from arbitrary origins (demo pages, internal
	// tools), so the CORS policy is deliberately permissive. Credentials
	// travel in the request body, never in cookies, so allowing any
	// origin does not widen the attack surface.
	engine.Use(
		cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type"},
			MaxAge:          12 * time.Hour,
		}),
		securityHeaders(),
		maxBodyBytes(cfg.Server.MaxBodyBytes),
	)

	if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Warn("Invalid trustedProxies configuration", zap.Error(err))
	}

	s := &Server{
		gin:    engine,
		config: cfg,
	}

	ServeDocs(engine)
	engine.GET("/healthz", s.getHealth)
	engine.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	return s
}

func (s *Server) RegisterAll(controllers []APIController) error {
	r := s.gin.Group("/")
	for _, c := range controllers {
		if err := c.Register(r.Group(c.BasePath(), c.Handlers()...)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) Listen() {
	_ = s.gin.Run(s.config.Server.ListenAddress)
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Version})
}

// securityHeaders sets standard hardening headers on every response.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'")
		c.Next()
	}
}

// maxBodyBytes caps request bodies before any handler reads them.
// Oversized bodies surface as a MaxBytesError from the JSON bind.
func maxBodyBytes(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		limit = config.DefaultMaxBodyBytes
	}
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
