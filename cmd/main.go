package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/idplane/identity-ledger/config"
	"github.com/idplane/identity-ledger/internal/container"
	"github.com/idplane/identity-ledger/internal/infrastructure/idp"
	pginfra "github.com/idplane/identity-ledger/internal/infrastructure/postgres"
	handlers "github.com/idplane/identity-ledger/internal/interface/http"
	"github.com/idplane/identity-ledger/internal/interface/middleware"
	"github.com/idplane/identity-ledger/internal/router"
	"github.com/idplane/identity-ledger/internal/scheduler"
	"github.com/idplane/identity-ledger/pkg/helpers"
	"github.com/idplane/identity-ledger/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	// Initialize Postgres pool
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	// Run migrations using database/sql with pgx stdlib
	if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil && !errors.Is(migrate.ErrNoChange, err) {
		log.Fatalf("migration failed: %v", err)
	}

	// Redis
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	// GCS (avatar storage)
	gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
	if err != nil {
		log.Fatalf("failed to init GCS client: %v", err)
	}
	defer func() { _ = gcsClient.Close() }()

	// Elasticsearch (user directory)
	esClient, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		log.Fatalf("failed to init Elasticsearch client: %v", err)
	}

	// RabbitMQ publisher (email jobs); optional, the app degrades to
	// skipping notifications when the broker is unreachable.
	rabbitPub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		logger.WithError(err).Warn("rabbitmq unavailable, email notifications disabled")
		rabbitPub = nil
	} else {
		defer rabbitPub.Close()
	}

	// Identity provider management client
	idpClient, err := idp.NewFromCredentials(
		cfg.IdPDomain, cfg.IdPClientID, cfg.IdPClientSecret, cfg.IdPAudience,
		cfg.IdPTimeout, logger,
		idp.Options{
			MaxAttempts:  cfg.IdPMaxAttempts,
			RetryBase:    cfg.IdPRetryBase,
			Redis:        rdb,
			RoleCacheTTL: cfg.RoleCacheTTL,
		},
	)
	if err != nil {
		log.Fatalf("failed to init identity provider client: %v", err)
	}

	// Provide infra singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)
	container.SetRedis(rdb)
	container.SetGCS(gcsClient)
	container.SetES(esClient)
	container.SetRabbitPub(rabbitPub)
	container.SetIdP(idpClient)

	deps := router.BuildDeps()

	// Reconcile the default role table before serving traffic.
	bootCtx, cancelBoot := context.WithTimeout(ctx, 30*time.Second)
	if err := deps.Roles.EnsureDefaults(bootCtx); err != nil {
		cancelBoot()
		log.Fatalf("default role reconciliation failed: %v", err)
	}
	cancelBoot()

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg, deps)
	reg.RegisterAll()

	// Liveness outside /api
	health := handlers.NewHealthHandler(pool)
	r.GET("/healthz", health.Healthz)

	// Daily deletion sweep
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	hour, minute := cfg.SweepTime()
	sweeper := scheduler.NewSweeper(hour, minute, deps.Users.ExecuteScheduledDeletions, logger)
	go sweeper.Start(sweepCtx)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(http.ErrServerClosed, err) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")
	cancelSweep()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	// Open sql DB via pgx stdlib
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(migrate.ErrNoChange, err) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
