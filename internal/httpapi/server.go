// Package httpapi exposes the provider facade over a small local admin
// HTTP surface: POST /v1/predict/{modelId}, /v1/prefetch/{modelId}, and
// /v1/preempt/{modelId}. It stands in for the wRPC transport that is out
// of scope for this repository, grounded on the web-console backend's
// gin.Engine setup.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wamli/inference-provider/internal/mlerror"
	"github.com/wamli/inference-provider/internal/provider"
	"github.com/wamli/inference-provider/internal/staticmodel"
	"github.com/wamli/inference-provider/internal/tensor"
	"github.com/wamli/inference-provider/pkg/logging/ginlog"
)

// Server wraps the HTTP server and the provider facade it exposes.
type Server struct {
	provider     *provider.Provider
	staticModels staticmodel.Store
	logger       *zap.Logger
	addr         string

	httpServer *http.Server
}

// NewServer creates a Server bound to addr (host:port, e.g. ":8081").
func NewServer(p *provider.Provider, staticModels staticmodel.Store, logger *zap.Logger, addr string) *Server {
	return &Server{provider: p, staticModels: staticModels, logger: logger, addr: addr}
}

// SetupRoutes configures the admin API's gin.Engine.
func (s *Server) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginlog.RequestLogger(s.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "inference-provider"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/predict/:modelId", s.handlePredict)
		v1.POST("/prefetch/:modelId", s.handlePrefetch)
		v1.POST("/preempt/:modelId", s.handlePreempt)
		v1.GET("/static/:modelId/metadata", s.handleStaticMetadata)
		v1.GET("/static/:modelId/data", s.handleStaticData)
	}

	return router
}

// Serve runs the HTTP server until the process is asked to stop via
// Shutdown. It blocks for the lifetime of the listener.
func (s *Server) Serve() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.SetupRoutes(),
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handlePredict(c *gin.Context) {
	modelID := c.Param("modelId")

	var in tensor.Tensor
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := in.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := s.provider.Predict(modelID, in)
	writeResult(c, out, err)
}

func (s *Server) handlePrefetch(c *gin.Context) {
	modelID := c.Param("modelId")
	err := s.provider.Prefetch(modelID)
	writeResult(c, struct{}{}, err)
}

func (s *Server) handlePreempt(c *gin.Context) {
	modelID := c.Param("modelId")
	err := s.provider.Preempt(modelID)
	writeResult(c, struct{}{}, err)
}

// handleStaticMetadata serves the metadata.json document for a model
// registered with the static model store, exercising the reference
// staticmodel.Store contract over a real HTTP round trip.
func (s *Server) handleStaticMetadata(c *gin.Context) {
	b, err := s.staticModels.GetMetadata(c.Param("modelId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", b)
}

// handleStaticData serves the raw model bytes for a model registered
// with the static model store.
func (s *Server) handleStaticData(c *gin.Context) {
	b, err := s.staticModels.GetData(c.Param("modelId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", b)
}

func writeResult(c *gin.Context, body any, err error) {
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, body)
}

func statusFor(err error) int {
	switch {
	case mlerror.IsContextNotFound(err):
		return http.StatusNotFound
	case mlerror.IsInvalidMetadata(err), mlerror.IsInvalidEncoding(err), mlerror.IsUnsupportedExecutionTarget(err):
		return http.StatusUnprocessableEntity
	case mlerror.IsProcessor(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
