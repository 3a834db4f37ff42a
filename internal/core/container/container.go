package container

import (
	"database/sql"
	"os"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/clients"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/departments"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/distribution"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/inventory/items"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/inventory/reports"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/inventory/types"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/notifications"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	"github.com/NatiEfraim/tokyo-api-sub000/internal/users"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/security"

	"go.uber.org/zap"
)

type Container struct {
	Repository          *repository.Repository
	LoginHandler        *security.LoginHandler
	ItemHandler         *items.ItemHandler
	ItemTypeHandler     *types.ItemTypeHandler
	DepartmentHandler   *departments.DepartmentHandler
	DistributionHandler *distribution.DistributionHandler
	UserHandler         *users.UsersHandler
}

func NewAppContainer(db *sql.DB, log *zap.Logger) *Container {
	repo := repository.NewRepository(db)

	emailDomain := os.Getenv("MAIL_DOMAIN")
	if emailDomain == "" {
		emailDomain = "army.example.com"
	}

	inventoryRepo := items.NewRepository(repo)
	reportRepo := reports.NewRepository(repo)
	itemTypeRepo := types.NewRepository(repo)
	departmentRepo := departments.NewRepository(repo)
	clientRepo := clients.NewRepository(repo, emailDomain)
	userRepo := users.NewRepository(repo)
	distributionRepo := distribution.NewRepository(repo)
	dispatcher := notifications.NewDispatcher(log)

	allocationService := distribution.NewAllocationService(
		repo, distributionRepo, inventoryRepo, clientRepo, userRepo, dispatcher, log)

	return &Container{
		Repository:          repo,
		LoginHandler:        security.NewLoginHandler(repo),
		ItemHandler:         items.NewItemHandler(repo, inventoryRepo, reportRepo, log),
		ItemTypeHandler:     types.NewItemTypeHandler(itemTypeRepo, log),
		DepartmentHandler:   departments.NewHandler(departmentRepo, log),
		DistributionHandler: distribution.NewHandler(distributionRepo, allocationService, log),
		UserHandler:         users.NewHandler(userRepo, log),
	}
}
