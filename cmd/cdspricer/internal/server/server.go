// Package server exposes the cdspricer calculations over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/meenmo/cdslib/cmd/cdspricer/internal/fit"
	"github.com/meenmo/cdslib/cmd/cdspricer/internal/jsonio"
	"github.com/meenmo/cdslib/cmd/cdspricer/internal/portfolio"
	"github.com/meenmo/cdslib/cmd/cdspricer/internal/price"
	"github.com/meenmo/cdslib/cmd/cdspricer/internal/rates"
	"github.com/meenmo/cdslib/cmd/cdspricer/internal/sensitivity"
	"github.com/meenmo/cdslib/config"
	"github.com/meenmo/cdslib/metrics"
)

const shutdownTimeout = 10 * time.Second

// New builds the router. Every calculation is a POST of the same JSON the
// matching subcommand reads.
func New(cfg config.Config, m *metrics.Metrics) *gin.Engine {
	switch cfg.Server.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), observe(m))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
	metricsPath := cfg.Server.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.GET(metricsPath, gin.WrapH(m.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/price", handle(func(_ context.Context, in price.Input) (*price.Output, error) {
			return price.Calculate(cfg, in)
		}))
		v1.POST("/calibrate", handle(func(ctx context.Context, in fit.Input) (*fit.Output, error) {
			out, err := fit.Calculate(ctx, cfg, in)
			m.ObserveCalibrations(len(in.Names), err)
			return out, err
		}))
		v1.POST("/index", handle(func(ctx context.Context, in portfolio.Input) (*portfolio.Output, error) {
			return portfolio.Calculate(ctx, cfg, in)
		}))
		v1.POST("/risk", handle(func(_ context.Context, in sensitivity.Input) (*sensitivity.Output, error) {
			return sensitivity.Calculate(cfg, in)
		}))
		v1.POST("/yieldcurve", handle(func(_ context.Context, in rates.Input) (*rates.Output, error) {
			return rates.Calculate(cfg, in)
		}))
	}
	return r
}

// handle binds the request body, runs calc and writes the result. Bad JSON
// is a 400; a calculation failure is a 422.
func handle[In, Out any](calc func(context.Context, In) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in In
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, jsonio.ErrorOutput{Error: "failed to parse JSON input: " + err.Error()})
			return
		}
		out, err := calc(c.Request.Context(), in)
		if err != nil {
			slog.Debug("server: calculation failed", "path", c.FullPath(), "error", err)
			c.JSON(http.StatusUnprocessableEntity, jsonio.ErrorOutput{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func observe(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.ObserveRequest(endpoint, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, m *metrics.Metrics) error {
	srv := &http.Server{Addr: cfg.Server.Address, Handler: New(cfg, m)}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
