package routes

import (
	"github.com/NatiEfraim/tokyo-api-sub000/internal/core/container"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/middleware"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/security"

	"github.com/gin-gonic/gin"
)

func RegisterPublicRoutes(router *gin.Engine, container *container.Container) {
	container.LoginHandler.RegisterRoutes(router)
}

func RegisterProtectedRoutes(router *gin.Engine, container *container.Container) {
	protectedRoutes := router.Group("")
	protectedRoutes.Use(security.JWTMiddleware())

	container.UserHandler.RegisterRoutes(protectedRoutes)
	container.ItemHandler.RegisterRoutes(protectedRoutes)
	container.ItemTypeHandler.RegisterRoutes(protectedRoutes)
	container.DepartmentHandler.RegisterRoutes(protectedRoutes)
	container.DistributionHandler.RegisterRoutes(protectedRoutes)
}

func RegisterUtilityRoutes(router *gin.Engine) {
	router.GET("/health", middleware.HealthCheckMiddleware())
}
