package routes

import (
	"urbanreport-be/controllers"
	"urbanreport-be/middlewares"

	"github.com/gin-gonic/gin"
)

// AdminRoutes sets up the admin triage routes
func AdminRoutes(r *gin.Engine, admin *controllers.AdminController) {
	group := r.Group("/api/admin", middlewares.AuthMiddleware(), middlewares.AdminOnly())
	{
		group.GET("/dashboard", admin.Dashboard)
		group.GET("/issues", admin.ListIssues)
		group.PUT("/issues/:id/status", admin.UpdateStatus)
		group.PUT("/issues/:id/priority", admin.UpdatePriority)
		group.PUT("/issues/:id/spam", admin.MarkSpam)
		group.GET("/users", admin.ListUsers)
	}
}
