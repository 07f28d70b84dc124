// Package server exposes quoting, swapping, status and the audit log over
// HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"relay-swap/config"
	"relay-swap/pkg/audit"
	"relay-swap/pkg/bridge"
	"relay-swap/pkg/safety"
	"relay-swap/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// Swapper is the orchestration surface served over HTTP
type Swapper interface {
	GetQuote(ctx context.Context, req types.SwapRequest) (*types.QuoteResult, error)
	ExecuteSwap(ctx context.Context, req types.SwapRequest) (*types.SwapResult, error)
}

// Response is the envelope of every API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Server serves the swap API
type Server struct {
	config   config.ServerConfig
	swapper  Swapper
	auditLog audit.Log
	status   bridge.StatusFetcher
	logger   *zap.Logger
	engine   *gin.Engine
}

// New creates a server. auditLog and status may be nil, in which case their
// routes answer 501.
func New(cfg config.ServerConfig, swapper Swapper, auditLog audit.Log, status bridge.StatusFetcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config:   cfg,
		swapper:  swapper,
		auditLog: auditLog,
		status:   status,
		logger:   logger,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), recovery(s.logger), requestLogger(s.logger), instrument())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", requestIDHeader},
		ExposeHeaders:   []string{requestIDHeader},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1", rateLimit(s.config.RateLimitPerSec, s.config.RateLimitBurst))
	api.POST("/quote", s.quote)
	api.POST("/swap", s.swap)
	api.GET("/status/:requestId", s.getStatus)
	api.GET("/audit", s.listAudit)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"status": "ok"}})
}

func (s *Server) quote(c *gin.Context) {
	var req types.SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request body: " + err.Error()})
		return
	}

	quote, err := s.swapper.GetQuote(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadGateway, Response{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: quote})
}

// swap returns 200 for every orchestrated outcome, rejections included. The
// result's success flag tells them apart.
func (s *Server) swap(c *gin.Context) {
	var req types.SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := s.swapper.ExecuteSwap(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, safety.ErrSponsorInvariant) {
			s.logger.Error("Swap aborted on invariant fault",
				zap.String("request_id", c.GetString("request_id")),
				zap.Error(err),
			)
		}
		c.JSON(http.StatusInternalServerError, Response{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: result.Success, Data: result, Error: result.Error})
}

func (s *Server) getStatus(c *gin.Context) {
	if s.status == nil {
		c.JSON(http.StatusNotImplemented, Response{Error: "status tracking is not supported by this provider"})
		return
	}

	update, err := s.status.GetStatus(c.Request.Context(), c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadGateway, Response{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: update})
}

// listAudit returns the audit log, or its last ?limit entries
func (s *Server) listAudit(c *gin.Context) {
	if s.auditLog == nil {
		c.JSON(http.StatusNotImplemented, Response{Error: "audit log is not configured"})
		return
	}

	entries, err := s.auditLog.Entries()
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Error: err.Error()})
		return
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, Response{Error: "limit must be a non-negative integer"})
			return
		}
		if limit < len(entries) {
			entries = entries[len(entries)-limit:]
		}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}
