package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/deployer-cli/deployer/pkg/apiresponses"
	"github.com/deployer-cli/deployer/pkg/metrics"
	"github.com/deployer-cli/deployer/pkg/ratelimit"
	"github.com/deployer-cli/deployer/pkg/system"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

var defaultCORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:3000"}

type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

type Options struct {
	Debug bool
	// Static serves every route outside /api. Nil disables the UI.
	Static      static.ServeFileSystem
	RateLimit   ratelimit.Config
	CORSOrigins []string
}

type Server struct {
	gin     *gin.Engine
	log     *zap.Logger
	api     *gin.RouterGroup
	limiter *ratelimit.IPRateLimiter
}

func NewServer(log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		system.RequestLogger(log.Sugar()),
	)

	if opts.Debug {
		origins := opts.CORSOrigins
		if len(origins) == 0 {
			origins = defaultCORSOrigins
		}
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins: origins,
				AllowMethods: []string{"GET", "DELETE", "OPTIONS"},
				AllowHeaders: []string{"Origin", "Content-Type"},
				MaxAge:       12 * time.Hour,
			}),
		)
	}

	limiter := ratelimit.New(opts.RateLimit.WithDefaults())
	s := &Server{
		gin:     engine,
		log:     log,
		api:     engine.Group("/api", limiter.Middleware()),
		limiter: limiter,
	}

	engine.GET("/healthz", s.healthz)
	engine.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	var assets gin.HandlerFunc
	if opts.Static != nil {
		assets = ServeSPA("/", opts.Static)
	}
	engine.NoRoute(func(c *gin.Context) {
		if assets == nil || c.Request.URL.Path == "/api" || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			apiresponses.RespondNotFound(c)
			return
		}
		assets(c)
	})

	return s
}

// RegisterAll mounts every controller below /api.
func (s *Server) RegisterAll(controllers []APIController) error {
	for _, c := range controllers {
		if err := c.Register(s.api.Group(c.BasePath(), c.Handlers()...)); err != nil {
			return fmt.Errorf("register %s: %w", c.BasePath(), err)
		}
	}
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.gin
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. ready, when set, receives the bound address once the listener
// is open.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Sugar().Infow("Dashboard listening", "address", ln.Addr().String())
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the rate limiter.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
