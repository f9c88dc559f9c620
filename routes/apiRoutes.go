package routes

import (
	"urbanreport-be/controllers"
	"urbanreport-be/middlewares"

	"github.com/gin-gonic/gin"
)

// APIRoutes sets up the stats, notification and live-stream routes
func APIRoutes(r *gin.Engine, api *controllers.APIController, stream *controllers.StreamController) {
	group := r.Group("/api", middlewares.AuthMiddleware())
	{
		group.GET("/stats", api.Stats)
		group.GET("/issues/geojson", api.GeoJSON)
		group.GET("/issues/area-stats", api.AreaStats)
		group.GET("/notifications", api.Notifications)
		group.GET("/notifications/unread-count", api.UnreadCount)
		group.GET("/stream", stream.Stream)
	}
}
