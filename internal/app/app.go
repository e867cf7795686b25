package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"picstore_backend/internal/config"
	"picstore_backend/internal/jobs"
	"picstore_backend/internal/logger"
	"picstore_backend/internal/models"
	"picstore_backend/internal/pathresolver"
	"picstore_backend/internal/repositories"
	"picstore_backend/internal/services"
	"picstore_backend/internal/storage"
	"picstore_backend/internal/transcoder"
)

// App bundles the wired media pipeline. Embedding callers (the HTTP
// layer and other collaborators live outside this module) consume the
// exposed services directly.
type App struct {
	Media       services.MediaService
	ShareTokens services.ShareTokenService

	cfg       *config.Config
	scheduler *jobs.Scheduler
	tasks     *services.TaskRunner
}

// New wires repositories, storage, transcoding and jobs against the
// given database handle.
func New(cfg *config.Config, db *gorm.DB) (*App, error) {
	resolver, err := pathresolver.New(cfg.Storage.Root)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewLocalStore(resolver)
	if err != nil {
		return nil, err
	}
	logger.Info("artifact store initialized", "root", resolver.Root())

	tc := transcoder.New()
	tasks := services.NewTaskRunner()

	tenantRepo := repositories.NewTenantRepository(db)
	userRepo := repositories.NewUserRepository(db)
	mediaRepo := repositories.NewMediaRepository(db)
	tokenRepo := repositories.NewShareTokenRepository(db)

	mediaService := services.NewMediaService(
		tenantRepo, userRepo, mediaRepo,
		resolver, store, tc, tasks,
		services.MediaConfig{
			CanonicalFormat:  cfg.Media.CanonicalFormat,
			OriginalQuality:  cfg.Media.OriginalQuality,
			ThumbnailQuality: cfg.Media.ThumbnailQuality,
			ThumbnailMaxDim:  cfg.Media.ThumbnailMaxDim,
			MaxUploadSize:    cfg.Media.MaxUploadSize,
		},
	)

	scheduler := jobs.NewScheduler()
	scheduler.Register(time.Duration(cfg.Jobs.OptimizationInterval), jobs.NewOptimizationJob(
		mediaRepo, tenantRepo, resolver, store, tc,
		jobs.OptimizationConfig{
			BatchSize:        cfg.Jobs.OptimizationBatchSize,
			OriginalQuality:  cfg.Media.OriginalQuality,
			ThumbnailQuality: cfg.Media.ThumbnailQuality,
			ThumbnailMaxDim:  cfg.Media.ThumbnailMaxDim,
		},
	))
	scheduler.Register(time.Duration(cfg.Jobs.ReconciliationInterval), jobs.NewReconciliationJob(
		tenantRepo, mediaRepo, resolver, store,
	))
	scheduler.Register(time.Duration(cfg.Jobs.TokenSweepInterval), jobs.NewTokenSweepJob(tokenRepo))

	return &App{
		Media:       mediaService,
		ShareTokens: services.NewShareTokenService(tokenRepo),
		cfg:         cfg,
		scheduler:   scheduler,
		tasks:       tasks,
	}, nil
}

// Run boots the full process: config, logger, database, migrations,
// then the job scheduler. Blocks until SIGINT/SIGTERM.
func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	logger.Info("logger initialized", "env", cfg.Server.Env)

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("database unavailable", "error", err)
	}
	logger.Info("database connected")

	if err := migrate(db); err != nil {
		logger.Fatal("migration failed", "error", err)
	}

	application, err := New(cfg, db)
	if err != nil {
		logger.Fatal("failed to initialize application", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	application.scheduler.Start(ctx)
	logger.Info("background jobs running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()
	application.scheduler.Wait()
	application.tasks.Close()
	logger.Info("shutdown complete")
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.MediaRecord{},
		&models.ShareToken{},
	)
}
