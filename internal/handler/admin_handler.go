package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/cache"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/config"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/log"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/token"
)

// AdminHandler serves the administrative endpoints: login, manual
// initialization and cache clearing.
type AdminHandler struct {
	cacheMgr   *cache.Manager
	jwtManager *token.JWTManager
	adminCfg   config.AdminConfig
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cacheMgr *cache.Manager, jwtManager *token.JWTManager, adminCfg config.AdminConfig) *AdminHandler {
	return &AdminHandler{
		cacheMgr:   cacheMgr,
		jwtManager: jwtManager,
		adminCfg:   adminCfg,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/v1/admin/login. The single admin account is
// configured with a bcrypt password hash, never a plaintext password.
func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	if req.Username != h.adminCfg.Username ||
		bcrypt.CompareHashAndPassword([]byte(h.adminCfg.PasswordBcrypt), []byte(req.Password)) != nil {
		log.Warnf("[AdminHandler] failed login attempt for user '%s' from %s", req.Username, c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	accessToken, err := h.jwtManager.GenerateToken(req.Username)
	if err != nil {
		log.Errorf("[AdminHandler] failed to generate token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	log.Infof("[AdminHandler] admin '%s' logged in", req.Username)
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{"access_token": accessToken}, "message": "success"})
}

// Initialize handles POST /api/v1/admin/initialize. The rebuild runs in the
// background; clients poll the progress endpoint for completion.
func (h *AdminHandler) Initialize(c *gin.Context) {
	h.cacheMgr.ScheduleRebuild("manual initialization requested")
	c.JSON(http.StatusAccepted, gin.H{"code": 202, "data": h.cacheMgr.Progress(), "message": "initialization started"})
}

// ClearCache handles POST /api/v1/admin/cache/clear.
func (h *AdminHandler) ClearCache(c *gin.Context) {
	if err := h.cacheMgr.Clear(c.Request.Context()); err != nil {
		log.Errorf("[AdminHandler] failed to clear cache: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": nil, "message": "cache cleared"})
}
