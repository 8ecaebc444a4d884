package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"order-tracking-service/internal/middleware"
)

// Register mounts every route. auth validates the bearer token and stores the
// caller's permissions on the context.
func Register(r *gin.Engine, ctl *OrderController, auth gin.HandlerFunc) {
	// Public routes
	r.GET("/health", ctl.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/track", ctl.Track)
	r.GET("/u/:code", ctl.Track)

	// Operator routes
	op := r.Group("/")
	op.Use(auth, middleware.OperatorOnly())
	op.POST("/orders", ctl.CreateOrder)
	op.POST("/orders/:code/set-status", ctl.SetStatus)
	op.POST("/manual-attach", ctl.ManualAttach)
	op.POST("/ingest-image", ctl.IngestImage)
	op.POST("/upload-many", ctl.UploadMany)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(auth, middleware.AdminOnly())
	admin.POST("/aliases", ctl.RegisterAlias)
	admin.GET("/aliases/:code", ctl.ListAliases)
	admin.POST("/bulk-update-status", ctl.BulkUpdateStatus)
	admin.GET("/orders", ctl.GetAllOrders)
	admin.GET("/orders/status/:status", ctl.GetOrdersByStatus)
}
