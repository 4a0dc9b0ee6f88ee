package handlers

import (
	"net/http"

	"github.com/CivicLink/civiclink-backend/internal/middleware"
	"github.com/CivicLink/civiclink-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// CredentialHandler handles QR credential HTTP requests
type CredentialHandler struct {
	credentialService *services.CredentialService
	userService       *services.UserService
}

// NewCredentialHandler creates a new CredentialHandler
func NewCredentialHandler(credentialService *services.CredentialService, userService *services.UserService) *CredentialHandler {
	return &CredentialHandler{
		credentialService: credentialService,
		userService:       userService,
	}
}

// Generate handles POST /credentials
func (h *CredentialHandler) Generate(c *gin.Context) {
	user, err := h.userService.GetByID(c, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	cred, err := h.credentialService.Generate(c, user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cred)
}

// GetCurrent handles GET /credentials/current
func (h *CredentialHandler) GetCurrent(c *gin.Context) {
	cred, err := h.credentialService.GetCurrent(c, middleware.UserID(c).Hex())
	if err != nil {
		respondError(c, err)
		return
	}
	if cred == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active credential", "code": "not-found"})
		return
	}
	c.JSON(http.StatusOK, cred)
}

// Invalidate handles DELETE /credentials/current
func (h *CredentialHandler) Invalidate(c *gin.Context) {
	if err := h.credentialService.Invalidate(c, middleware.UserID(c).Hex()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Credential invalidated"})
}

// GetHistory handles GET /credentials/history
func (h *CredentialHandler) GetHistory(c *gin.Context) {
	history, err := h.credentialService.History(c, middleware.UserID(c).Hex())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// Validate handles POST /credentials/validate. Scanners post the raw QR
// contents; the response reports the verdict without leaking why unknown
// subjects fail.
func (h *CredentialHandler) Validate(c *gin.Context) {
	var req struct {
		Data string `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result := h.credentialService.ValidateScanned(c, req.Data)
	c.JSON(http.StatusOK, result)
}
