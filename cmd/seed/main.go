package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/idplane/identity-ledger/config"
	"github.com/idplane/identity-ledger/internal/application"
	"github.com/idplane/identity-ledger/internal/infrastructure/idp"
	pginfra "github.com/idplane/identity-ledger/internal/infrastructure/postgres"
	"github.com/idplane/identity-ledger/pkg/helpers"
)

// One-shot reconciliation of the default role table against both
// stores. Safe to run repeatedly; already-consistent roles are left
// untouched.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	gw, err := idp.NewFromCredentials(
		cfg.IdPDomain, cfg.IdPClientID, cfg.IdPClientSecret, cfg.IdPAudience,
		cfg.IdPTimeout, logger,
		idp.Options{MaxAttempts: cfg.IdPMaxAttempts, RetryBase: cfg.IdPRetryBase},
	)
	if err != nil {
		log.Fatalf("failed to init identity provider client: %v", err)
	}

	roles := application.NewRoleService(
		pginfra.NewRoleRepository(pool),
		gw,
		cfg.DefaultRoles(),
		cfg.ProtectedRoleNames(),
		logger,
	)

	if err := roles.EnsureDefaults(ctx); err != nil {
		log.Fatalf("default role reconciliation failed: %v", err)
	}
	fmt.Println("default roles reconciled")
}
