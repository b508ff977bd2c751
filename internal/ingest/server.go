// Package ingest implements the ingest acceptor (IA): the HTTP service
// that authenticates devices, writes chunk blobs atomically, inserts
// QUEUED chunk rows, and exposes the internal chunk-fetch contract W2
// uses to retrieve audio.
package ingest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/salescontrol/pipeline/internal/blobstore"
	"github.com/salescontrol/pipeline/internal/conf"
	"github.com/salescontrol/pipeline/internal/datastore"
	"github.com/salescontrol/pipeline/internal/logging"
	"github.com/salescontrol/pipeline/internal/observability/metrics"
)

// Server wraps the Echo instance and every dependency the acceptor's
// handlers need.
type Server struct {
	echo     *echo.Echo
	settings conf.IngestSettings
	logger   *slog.Logger

	store   *datastore.Store
	blobs   *blobstore.Store
	metrics *metrics.Recorder

	devices *datastore.DeviceRepository
	chunks  *datastore.ChunkRepository
}

// New builds a Server with every route registered. Handlers are
// thin: validation + a single repository/blob call each.
func New(settings conf.IngestSettings, store *datastore.Store, blobs *blobstore.Store, rec *metrics.Recorder) *Server {
	s := &Server{
		echo:     echo.New(),
		settings: settings,
		logger:   logging.ForService("ingest"),
		store:    store,
		blobs:    blobs,
		metrics:  rec,
		devices:  datastore.NewDeviceRepository(store),
		chunks:   datastore.NewChunkRepository(store),
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(echomw.Recover())
	s.echo.Use(s.requestMetrics)

	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/chunks", s.handleUploadChunk, s.deviceAuth)
	v1.GET("/internal/chunks/:chunk_id/file", s.handleInternalFetch, s.internalAuth)

	admin := v1.Group("/admin", s.adminAuth)
	admin.POST("/devices", s.handleCreateDevice)
	admin.GET("/devices", s.handleListDevices)
	admin.PATCH("/devices/:device_id", s.handlePatchDevice)

	return s
}

// requestMetrics records per-route HTTP counters and latency.
func (s *Server) requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.metrics == nil {
			return next(c)
		}
		start := time.Now()
		err := next(c)
		route := c.Path()
		status := c.Response().Status
		s.metrics.IncHTTPRequest(route, http.StatusText(status))
		s.metrics.ObserveHTTPRequestDuration(route, time.Since(start).Seconds())
		return err
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts it
// down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ingest acceptor listening", "addr", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}
