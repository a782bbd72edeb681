package http

import (
	"github.com/gin-gonic/gin"

	"gopherai-docqa/internal/bootstrap"
	"gopherai-docqa/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = int64(app.Config.App.MaxUploadMB) << 20

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	ragHandler := handler.NewRAGHandler(app.RAG, app.Config.App.MaxUploadMB, app.Logger)
	credentialHandler := handler.NewCredentialHandler(app.Credentials, app.Logger)

	v1 := router.Group("/api/v1")
	v1.POST("/upload", ragHandler.Upload)
	v1.POST("/query", ragHandler.Query)
	v1.POST("/messages", ragHandler.SendMessage)
	v1.GET("/messages/:session_id", ragHandler.History)
	v1.GET("/document/:session_id", ragHandler.Document)
	v1.GET("/sessions/:session_id", ragHandler.Session)
	v1.POST("/api-key", credentialHandler.SetAPIKey)
	v1.GET("/api-key-status", credentialHandler.Status)

	return router
}
