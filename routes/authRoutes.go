package routes

import (
	"urbanreport-be/controllers"
	"urbanreport-be/middlewares"

	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, auth *controllers.AuthController) {
	group := r.Group("/api/auth")
	{
		group.POST("/register", auth.Register)
		group.POST("/login", auth.Login)
		group.POST("/logout", auth.Logout)
		group.GET("/me", middlewares.AuthMiddleware(), auth.GetMe)
	}
}
