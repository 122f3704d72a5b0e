// Package api exposes an engine over HTTP: starting a receiver or sender,
// polling or streaming progress, cancelling, and listing the journal.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/swiftshare/journal"
	"github.com/opd-ai/swiftshare/protocol"
	"github.com/opd-ai/swiftshare/session"
)

// DefaultListLimit caps /transfers when no limit is given.
const DefaultListLimit = 50

// DefaultProgressInterval is how often /ws/progress pushes a snapshot.
const DefaultProgressInterval = 250 * time.Millisecond

// Engine is the control surface the API drives. *swiftshare.Engine
// satisfies it.
type Engine interface {
	StartReceiver(port uint16) bool
	StartSender(filePath, ip string, port uint16) bool
	Cancel()
	Snapshot() session.Snapshot
	Transfers(ctx context.Context, limit int) ([]journal.Entry, error)
}

// ReceiverRequest is the body of POST /receiver.
type ReceiverRequest struct {
	Port uint16 `json:"port" binding:"required"`
}

// SenderRequest is the body of POST /sender.
type SenderRequest struct {
	Path string `json:"path" binding:"required"`
	IP   string `json:"ip" binding:"required,ip"`
	Port uint16 `json:"port" binding:"required"`
}

// StatusResponse carries the engine's boolean result as a status byte.
type StatusResponse struct {
	Status protocol.Status `json:"status"`
	Error  string          `json:"error,omitempty"`
}

func statusOf(ok bool) protocol.Status {
	if ok {
		return protocol.StatusOK
	}
	return protocol.StatusError
}

// Handler serves the API routes for one engine.
type Handler struct {
	engine   Engine
	interval time.Duration
}

// NewHandler creates a handler. A non-positive interval selects
// DefaultProgressInterval.
func NewHandler(engine Engine, interval time.Duration) *Handler {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &Handler{engine: engine, interval: interval}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/receiver", h.startReceiver)
	r.POST("/sender", h.startSender)
	r.POST("/cancel", h.cancel)
	r.GET("/progress", h.progress)
	r.GET("/transfers", h.transfers)
	r.GET("/ws/progress", h.streamProgress)
}

// NewRouter builds a gin engine with recovery, request logging and the API
// routes.
func NewRouter(engine Engine, interval time.Duration) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	NewHandler(engine, interval).Register(r)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"function": "api.request",
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"latency":  time.Since(start).String(),
		}).Debug("Handled request")
	}
}

func (h *Handler) startReceiver(c *gin.Context) {
	var req ReceiverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, StatusResponse{Status: protocol.StatusError, Error: err.Error()})
		return
	}

	ok := h.engine.StartReceiver(req.Port)
	logrus.WithFields(logrus.Fields{
		"function": "Handler.startReceiver",
		"port":     req.Port,
		"ok":       ok,
	}).Info("Receiver start requested")
	c.JSON(http.StatusOK, StatusResponse{Status: statusOf(ok)})
}

func (h *Handler) startSender(c *gin.Context) {
	var req SenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, StatusResponse{Status: protocol.StatusError, Error: err.Error()})
		return
	}

	ok := h.engine.StartSender(req.Path, req.IP, req.Port)
	logrus.WithFields(logrus.Fields{
		"function": "Handler.startSender",
		"path":     req.Path,
		"ip":       req.IP,
		"port":     req.Port,
		"ok":       ok,
	}).Info("Sender start requested")
	c.JSON(http.StatusOK, StatusResponse{Status: statusOf(ok)})
}

func (h *Handler) cancel(c *gin.Context) {
	h.engine.Cancel()
	c.JSON(http.StatusOK, StatusResponse{Status: protocol.StatusOK})
}

func (h *Handler) progress(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Snapshot())
}

func (h *Handler) transfers(c *gin.Context) {
	limit := DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, StatusResponse{Status: protocol.StatusError, Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := h.engine.Transfers(c.Request.Context(), limit)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Handler.transfers",
			"error":    err.Error(),
		}).Error("Failed to list transfers")
		c.JSON(http.StatusInternalServerError, StatusResponse{Status: protocol.StatusError, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}
