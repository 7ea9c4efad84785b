package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/api/handlers"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/api/ws"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/auth"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/queue"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/storage"
)

type RouterConfig struct {
	APIKey   string
	DB       *storage.PostgresStore
	MinIO    *storage.MinIOStore
	Producer *queue.Producer
	Hub      *ws.Hub
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Detections
	detH := handlers.NewDetectionHandler(cfg.DB, cfg.MinIO)
	v1.GET("/detections", detH.List)
	v1.GET("/detections/:id", detH.Get)
	v1.GET("/detections/:id/snapshot", detH.Snapshot)
	v1.GET("/stats", detH.Stats)

	return r
}
