package routes

import (
	"urbanreport-be/controllers"
	"urbanreport-be/middlewares"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the citizen-facing issue routes
func IssueRoutes(r *gin.Engine, issues *controllers.IssueController, dailyLimit int) {
	group := r.Group("/api/issues", middlewares.AuthMiddleware())
	{
		group.POST("", middlewares.IssueRateLimiter(dailyLimit), issues.Create)
		group.GET("", issues.List)
		group.GET("/:id", issues.Get)
		group.POST("/:id/upvote", issues.Upvote)
	}
}
