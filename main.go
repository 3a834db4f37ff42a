package main

import (
	"context"
	"os"

	"github.com/NatiEfraim/tokyo-api-sub000/cmd"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/core/container"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/core/logger"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/core/routes"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/database"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/database/migration"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	// Load .env file, but don't overwrite system environment variables.
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, falling back to system environment variables")
	}

	if len(os.Args) > 1 {
		cmd.Execute(context.Background())
		return
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	db, err := database.NewPostgresConnection(dbURL)
	if err != nil {
		log.Fatal("unable to connect to the database", zap.Error(err))
	}
	defer db.Close()

	log.Info("Connected to the database successfully")

	if err := migration.Migrate(dbURL, "file://./migrations", true, log); err != nil {
		log.Fatal("unable to run migrations", zap.Error(err))
	}

	appContainer := container.NewAppContainer(db, log)

	router := gin.Default()
	router.Use(middleware.RecoveryMiddleware(log))

	routes.RegisterPublicRoutes(router, appContainer)
	routes.RegisterProtectedRoutes(router, appContainer)
	routes.RegisterUtilityRoutes(router)

	appHost := os.Getenv("APP_HOST")
	if appHost == "" {
		appHost = ":8080"
	}

	if err := router.Run(appHost); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
