package router

import (
	app "github.com/idplane/identity-ledger/internal/application"
	"github.com/idplane/identity-ledger/internal/container"
	pginfra "github.com/idplane/identity-ledger/internal/infrastructure/postgres"
	handlers "github.com/idplane/identity-ledger/internal/interface/http"
	"github.com/idplane/identity-ledger/internal/router/modules"
)

type Deps struct {
	Roles       *app.RoleService
	Users       *app.UserService
	UserHandler *handlers.UserHandler
	RoleHandler *handlers.RoleHandler
}

// BuildDeps wires repositories, services and handlers from the
// container singletons. Exposed so cmd/main.go can reuse the same
// services for the bootstrap reconciliation and the sweeper.
func BuildDeps() Deps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	gw := container.GetIdP()

	roleRepo := pginfra.NewRoleRepository(container.GetPGPool())
	userRepo := pginfra.NewUserRepository(container.GetPGPool())

	roles := app.NewRoleService(roleRepo, gw, cfg.DefaultRoles(), cfg.ProtectedRoleNames(), logger)

	users := &app.UserService{
		Repo:            userRepo,
		Roles:           roles,
		Gateway:         gw,
		Logger:          logger,
		GCS:             container.GetGCS(),
		GCSBucket:       cfg.GCSBucket,
		ES:              container.GetES(),
		ESUsersIndex:    cfg.ESUsersIndex,
		Rabbit:          container.GetRabbitPub(),
		AlertRecipient:  cfg.AlertRecipient,
		DefaultRoleName: cfg.DefaultRoleName,
		GracePeriod:     cfg.DeletionGracePeriod,
	}

	return Deps{
		Roles:       roles,
		Users:       users,
		UserHandler: handlers.NewUserHandler(users, logger),
		RoleHandler: handlers.NewRoleHandler(roles, logger),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry, deps Deps) {
	r.Add(modules.NewUserModule(deps.UserHandler))
	r.Add(modules.NewRoleModule(deps.RoleHandler))
}
