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

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// Create handles POST /admin/notifications
func (h *NotificationHandler) Create(c *gin.Context) {
	var notification models.Notification
	if err := c.ShouldBindJSON(&notification); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.notificationService.Create(c, middleware.UserID(c), &notification); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, notification)
}

// GetByID handles GET /admin/notifications/:id
func (h *NotificationHandler) GetByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	notification, err := h.notificationService.GetByID(c, middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notification)
}

// ListByStatus handles GET /admin/notifications
func (h *NotificationHandler) ListByStatus(c *gin.Context) {
	status := c.DefaultQuery("status", models.NotificationStatusScheduled)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	notifications, err := h.notificationService.ListByStatus(c, middleware.UserID(c), status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// UpdateStatus handles PATCH /admin/notifications/:id/status
func (h *NotificationHandler) UpdateStatus(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	notification, err := h.notificationService.UpdateStatus(c, middleware.UserID(c), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notification)
}

// Broadcast handles POST /admin/notifications/broadcast
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req struct {
		TargetUserIDs []string `json:"targetUserIds"`
		Title         string   `json:"title" binding:"required"`
		Message       string   `json:"message" binding:"required"`
		Type          string   `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	targets := make([]primitive.ObjectID, 0, len(req.TargetUserIDs))
	for _, raw := range req.TargetUserIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID: " + raw})
			return
		}
		targets = append(targets, id)
	}

	written, err := h.notificationService.Broadcast(c, middleware.UserID(c), targets, req.Title, req.Message, req.Type)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": written})
}
