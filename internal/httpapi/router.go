package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/invicto-ai/roma-assistant/internal/httpapi/handlers"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	r.GET("/ping", h.Ping)
	r.POST("/chat", h.Chat)
	r.POST("/feedback", h.Feedback)

	return r
}
