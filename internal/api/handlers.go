package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexatrade/orderflow/internal/orders"
)

// userIDHeader carries the caller identity. Authentication itself happens
// upstream of this service.
const userIDHeader = "X-User-ID"

func (s *Server) acceptOrder(c *gin.Context) {
	userID, ok := s.identityFrom(c)
	if !ok {
		return
	}
	var req orders.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "reason": err.Error()})
		return
	}
	order, err := s.store.Accept(c.Request.Context(), req, userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) modifyOrder(c *gin.Context) {
	userID, ok := s.identityFrom(c)
	if !ok {
		return
	}
	id, ok := s.orderIDFrom(c)
	if !ok {
		return
	}
	var patch orders.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "reason": err.Error()})
		return
	}
	order, err := s.store.Modify(c.Request.Context(), id, patch, userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) cancelOrder(c *gin.Context) {
	userID, ok := s.identityFrom(c)
	if !ok {
		return
	}
	id, ok := s.orderIDFrom(c)
	if !ok {
		return
	}
	order, err := s.store.Cancel(c.Request.Context(), id, userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) getOrder(c *gin.Context) {
	id, ok := s.orderIDFrom(c)
	if !ok {
		return
	}
	order, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "reason": "order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) listOrders(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	if rawUser := c.Query("user_id"); rawUser != "" {
		userID, err := uuid.Parse(rawUser)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "reason": "malformed user_id"})
			return
		}
		list, err := s.store.ListByUser(c.Request.Context(), userID, limit, offset)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": list})
		return
	}

	if symbol := c.Query("symbol"); symbol != "" {
		list, err := s.store.ListBySymbol(c.Request.Context(), symbol, limit, offset)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": list})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "reason": "user_id or symbol query parameter is required"})
}

func (s *Server) orderStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":   stats,
		"latency": s.store.LatencyStats(),
	})
}

func (s *Server) identityFrom(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(userIDHeader)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "reason": userIDHeader + " header is required"})
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "reason": "malformed " + userIDHeader + " header"})
		return uuid.Nil, false
	}
	return userID, true
}

func (s *Server) orderIDFrom(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "reason": "malformed order id"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps each error kind to its own status code; kinds are never
// mixed.
func (s *Server) writeError(c *gin.Context, err error) {
	kind := orders.KindOf(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		s.logger.Error("unclassified order error", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": string(kind), "reason": err.Error()})
}

func statusForKind(kind orders.Kind) int {
	switch kind {
	case orders.KindValidation:
		return http.StatusBadRequest
	case orders.KindUnauthorized:
		return http.StatusForbidden
	case orders.KindNotFound:
		return http.StatusNotFound
	case orders.KindInvalidState:
		return http.StatusConflict
	case orders.KindRiskRejected:
		return http.StatusUnprocessableEntity
	case orders.KindStore:
		return http.StatusServiceUnavailable
	case orders.KindExecution:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
