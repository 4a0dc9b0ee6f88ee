package handlers

import (
	"net/http"
	"strconv"

	"github.com/CivicLink/civiclink-backend/internal/middleware"
	"github.com/CivicLink/civiclink-backend/internal/models"
	"github.com/CivicLink/civiclink-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PointsHandler handles points-ledger HTTP requests
type PointsHandler struct {
	pointsService *services.PointsService
}

// NewPointsHandler creates a new PointsHandler
func NewPointsHandler(pointsService *services.PointsService) *PointsHandler {
	return &PointsHandler{
		pointsService: pointsService,
	}
}

// EditUserPoints handles POST /admin/points/edit
func (h *PointsHandler) EditUserPoints(c *gin.Context) {
	var req struct {
		TargetUserID string  `json:"targetUserId" binding:"required"`
		Delta        float64 `json:"delta" binding:"required"`
		Reason       string  `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	targetID, err := primitive.ObjectIDFromHex(req.TargetUserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return
	}

	entry, err := h.pointsService.EditUserPoints(c, middleware.UserID(c), targetID, req.Delta, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ResetMonthlyPoints handles POST /admin/points/reset
func (h *PointsHandler) ResetMonthlyPoints(c *gin.Context) {
	count, err := h.pointsService.ResetMonthlyPoints(c, models.TriggerManual, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usersReset": count})
}

// GetUserLedger handles GET /admin/points/ledger/:userId
func (h *PointsHandler) GetUserLedger(c *gin.Context) {
	targetID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	entries, err := h.pointsService.GetLedger(c, middleware.UserID(c), targetID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
