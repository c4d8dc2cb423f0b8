package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zulandar/praktika/internal/artifacts"
	"github.com/zulandar/praktika/internal/checks"
)

// StartOpts holds configuration for the report server.
type StartOpts struct {
	Checks    *checks.Store
	Artifacts *artifacts.Store
	Port      int
	Out       io.Writer
	Logger    *zap.Logger

	// RateLimit and Burst bound requests per second across all clients.
	// Zero disables limiting.
	RateLimit float64
	Burst     int
}

// Start launches the report HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Report server running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// NewRouter builds the report server's handler.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.Checks == nil {
		return nil, fmt.Errorf("report: checks store is required")
	}
	if opts.Artifacts == nil {
		return nil, fmt.Errorf("report: artifact store is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(recovery(opts.Logger), accessLog(opts.Logger))
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		router.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), burst)))
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	registerRoutes(router, opts.Checks, opts.Artifacts)
	return router, nil
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered", zap.Any("error", rec))
				c.String(http.StatusInternalServerError, "internal error")
				c.Abort()
			}
		}()
		c.Next()
	}
}

func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.String(http.StatusTooManyRequests, "rate limit exceeded, please retry shortly")
			c.Abort()
			return
		}
		c.Next()
	}
}
