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

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService         *services.UserService
	notificationService *services.NotificationService
	pointsService       *services.PointsService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(
	userService *services.UserService,
	notificationService *services.NotificationService,
	pointsService *services.PointsService,
) *UserHandler {
	return &UserHandler{
		userService:         userService,
		notificationService: notificationService,
		pointsService:       pointsService,
	}
}

// GetMe handles GET /users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.GetByID(c, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /users/me
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var update models.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.userService.UpdateProfile(c, middleware.UserID(c), &update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RegisterPushToken handles PUT /users/me/push-token
func (h *UserHandler) RegisterPushToken(c *gin.Context) {
	var req struct {
		FCMToken      string `json:"fcmToken"`
		ExpoPushToken string `json:"expoPushToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.userService.RegisterPushToken(c, middleware.UserID(c), req.FCMToken, req.ExpoPushToken); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Push token registered"})
}

// RemovePushTokens handles DELETE /users/me/push-token
func (h *UserHandler) RemovePushTokens(c *gin.Context) {
	if err := h.userService.RemovePushTokens(c, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Push tokens removed"})
}

// GetInbox handles GET /users/me/notifications
func (h *UserHandler) GetInbox(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, err := h.notificationService.Inbox(c, middleware.UserID(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// MarkInboxRead handles PATCH /users/me/notifications/:id/read
func (h *UserHandler) MarkInboxRead(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	if err := h.notificationService.MarkInboxRead(c, middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked read"})
}

// GetMyLedger handles GET /users/me/points/ledger
func (h *UserHandler) GetMyLedger(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	callerID := middleware.UserID(c)
	entries, err := h.pointsService.GetLedger(c, callerID, callerID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ListUsers handles GET /admin/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUserByID handles GET /admin/users/:id
func (h *UserHandler) GetUserByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	user, err := h.userService.GetByID(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /admin/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	if err := h.userService.DeleteUser(c, middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
