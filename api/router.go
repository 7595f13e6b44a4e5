package api

import (
    "github.com/gin-gonic/gin"
)

func SetupRouter(deps Deps) *gin.Engine {
    r := gin.Default()
    h := NewHandler(deps)
    cfg := deps.Cfg

    // Health check
    r.GET("/health", func(c *gin.Context) {
        c.JSON(200, gin.H{"status": "ok"})
    })

    v1 := r.Group("/api/v1")
    v1.Use(AuthMiddleware(cfg))
    {
        v1.GET("/tools", h.handleListTools)

        // Tool session endpoints
        v1.POST("/sessions", h.handleCreateSession)
        v1.GET("/sessions/:sessionId", h.handleGetSession)
        v1.DELETE("/sessions/:sessionId", h.handleDeleteSession)
        v1.POST("/sessions/:sessionId/files", h.handleAddFiles)
        v1.POST("/sessions/:sessionId/url", h.handleAddURL)
        v1.POST("/sessions/:sessionId/convert", h.handleConvert)
        v1.GET("/sessions/:sessionId/items/:itemId/download", h.handleDownload)

        // Portfolio gallery
        v1.GET("/gallery", h.handleGalleryList)
        v1.GET("/gallery/:name", h.handleGalleryPhoto)
        v1.GET("/gallery/:name/thumbnail", h.handleGalleryThumbnail)
    }
    return r
}
