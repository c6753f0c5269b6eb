package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"driveport/pkg/logger"
)

type tokenRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	AdminSecret string `json:"admin_secret" binding:"required"`
}

// NewRouter wires the HTTP surface: health check, token issue and the
// websocket endpoint.
func NewRouter(mode, adminSecret string, tokens *TokenService, ws *WSHandler, log *logger.Logger) *gin.Engine {
	gin.SetMode(mode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "Bot is running")
	})

	r.POST("/auth/token", func(c *gin.Context) {
		var req tokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and admin_secret are required"})
			return
		}
		if adminSecret == "" || req.AdminSecret != adminSecret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		token, err := tokens.Issue(req.UserID)
		if err != nil {
			log.Errorf("issue token for %s: %v", req.UserID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	})

	r.GET("/ws", ws.Connect)

	return r
}
