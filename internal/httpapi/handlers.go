package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/AbdelilahOu/DBRouter/internal/client"
	"github.com/AbdelilahOu/DBRouter/internal/state"
	dbrouter "github.com/AbdelilahOu/DBRouter/pkg"
	"github.com/gin-gonic/gin"
)

// MaxQueryLimit bounds the limit a caller may ask for.
const MaxQueryLimit = 1000

const queryTimeout = 30 * time.Second

// Handler serves the REST API over a session registry.
type Handler struct {
	registry *state.Registry
	logger   *slog.Logger
}

func NewHandler(registry *state.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{registry: registry, logger: logger}
}

// Router builds the gin engine with every API route registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())

	api := router.Group("/api/db")
	api.POST("/connect", h.handleConnect)
	api.POST("/close", h.handleClose)
	api.POST("/close-all", h.handleCloseAll)
	api.GET("/connections", h.handleListConnections)
	api.POST("/query", h.handleQuery)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.registry.Len()})
	})

	return router
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (h *Handler) handleConnect(c *gin.Context) {
	var req dbrouter.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		GinRespondError(c, http.StatusBadRequest, fmt.Sprintf("%s: %v", ErrInvalidRequest, err))
		return
	}

	target, err := req.ClientTarget()
	if err != nil {
		GinRespondError(c, http.StatusBadRequest, fmt.Sprintf("invalid datasource config: %v", err))
		return
	}

	res, err := h.registry.Connect(c.Request.Context(), target)
	if err != nil {
		h.logger.Warn("connect failed", "label", target.Label(), "type", string(target.Kind), "error", err)
		GinRespondError(c, statusFor(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, dbrouter.ConnectResponse{
		ConnectionID: res.ID,
		ExpiresAt:    dbrouter.FormatTime(res.ExpiresAt),
	})
}

func (h *Handler) handleClose(c *gin.Context) {
	var req dbrouter.CloseRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ConnectionID == "" {
		GinRespondError(c, http.StatusBadRequest, "connectionId is required")
		return
	}
	if req.ConnectionID == state.DefaultKey {
		GinRespondError(c, http.StatusBadRequest, "the default connection cannot be closed")
		return
	}

	if err := h.registry.Remove(req.ConnectionID); err != nil {
		h.logger.Error("close failed", "session", req.ConnectionID, "error", err)
		GinRespondError(c, http.StatusInternalServerError, ErrInternalServer)
		return
	}

	c.JSON(http.StatusOK, dbrouter.CloseResponse{
		Status:  "success",
		Message: fmt.Sprintf("Connection %s closed", req.ConnectionID),
	})
}

func (h *Handler) handleCloseAll(c *gin.Context) {
	n := h.registry.RemoveAll()
	c.JSON(http.StatusOK, dbrouter.CloseAllResponse{
		Status:      "success",
		Message:     fmt.Sprintf("Closed %d connection(s)", n),
		ClosedCount: n,
	})
}

func (h *Handler) handleListConnections(c *gin.Context) {
	c.JSON(http.StatusOK, dbrouter.NewListSessionsResponse(h.registry.List()))
}

func (h *Handler) handleQuery(c *gin.Context) {
	var req dbrouter.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		GinRespondError(c, http.StatusBadRequest, fmt.Sprintf("%s: %v", ErrInvalidRequest, err))
		return
	}
	if !client.IsReadQuery(req.Query) {
		GinRespondError(c, http.StatusBadRequest, "only SELECT queries are allowed")
		return
	}

	limit := req.Limit
	switch {
	case limit <= 0:
		limit = dbrouter.DefaultQueryLimit
	case limit > MaxQueryLimit:
		limit = MaxQueryLimit
	}

	resp, err := state.RunWithSession(c.Request.Context(), h.registry, req.ConnectionID, func(ctx context.Context) (dbrouter.QueryResponse, error) {
		dbc, err := h.registry.Resolve(ctx)
		if err != nil {
			return dbrouter.QueryResponse{}, err
		}
		ctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()

		rows, truncated, err := dbc.SelectMapsLimit(ctx, limit, req.Query)
		if err != nil {
			return dbrouter.QueryResponse{}, err
		}
		return dbrouter.QueryResponse{Rows: rows, Count: len(rows), Truncated: truncated}, nil
	})
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("query failed", "session", req.ConnectionID, "error", err)
			GinRespondError(c, status, ErrInternalServer)
			return
		}
		GinRespondError(c, status, err.Error())
		return
	}

	c.JSON(http.StatusOK, resp)
}
