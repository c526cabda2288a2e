package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/yigit/schoolsphere/internal/app/controllers"
	appMigrations "github.com/yigit/schoolsphere/internal/app/migrations"
	appRepos "github.com/yigit/schoolsphere/internal/app/repositories"
	appRoutes "github.com/yigit/schoolsphere/internal/app/routes"
	appServices "github.com/yigit/schoolsphere/internal/app/services"
	"github.com/yigit/schoolsphere/internal/config"
	"github.com/yigit/schoolsphere/internal/db"
	appMiddleware "github.com/yigit/schoolsphere/internal/middleware"
	pkgAuth "github.com/yigit/schoolsphere/internal/pkg/auth"
	"github.com/yigit/schoolsphere/internal/pkg/gateway"
	"github.com/yigit/schoolsphere/internal/pkg/logger"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	AuthService           *appServices.AuthService
	PromotionService      *appServices.PromotionService
	ResolutionService     *appServices.ResolutionService
	PaymentService        *appServices.PaymentService
	AuthController        *appControllers.AuthController
	ApplicationController *appControllers.ApplicationController
	ResolutionController  *appControllers.ResolutionController
	StudentController     *appControllers.StudentController
	PaymentController     *appControllers.PaymentController
	AuthMiddleware        *appMiddleware.AuthMiddleware
	Repos                 *appRepos.Repositories
	JWTService            *pkgAuth.JWTService
	Logger                zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logger.Configure(logger.Config{
		Level:  logger.LogLevel(strings.ToLower(cfg.Logging.Level)),
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		dbPool.Close()
		return nil, err
	}

	lgr.Info().Msg("Running database migrations...")
	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		dbPool.Close()
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	migrator := appMigrations.NewMigrator(dbPool)
	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		dbPool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database ready.")
	return dbPool, nil
}

// BuildDependencies initializes repositories, services and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  config.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		StudentScopeExp: config.ParseDuration(cfg.JWT.StudentScopeExpiration, 15*time.Minute),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	gatewayClient := gateway.NewHTTPClient(gateway.Config{
		BaseURL:  cfg.Gateway.BaseURL,
		APIKey:   cfg.Gateway.APIKey,
		Timeout:  config.ParseDuration(cfg.Gateway.Timeout, 15*time.Second),
		Currency: cfg.Gateway.Currency,
	})

	deps.AuthService = appServices.NewAuthService(deps.Repos.UserRepository, deps.JWTService, lgr)
	deps.PromotionService = appServices.NewPromotionService(
		deps.Repos.ApplicationRepository,
		deps.Repos.StudentRepository,
		lgr,
	)
	deps.ResolutionService = appServices.NewResolutionService(
		deps.Repos.StudentRepository,
		deps.Repos.ApplicationRepository,
		deps.Repos.LinkAuditRepository,
		deps.JWTService,
		lgr,
	)
	deps.PaymentService = appServices.NewPaymentService(
		deps.Repos.PaymentRepository,
		deps.Repos.StudentRepository,
		gatewayClient,
		cfg.Gateway.Currency,
		appServices.ReconcilerConfig{
			MaxSyncAttempts: cfg.Reconciler.MaxSyncAttempts,
			InitialBackoff:  config.ParseDuration(cfg.Reconciler.InitialBackoff, 200*time.Millisecond),
			MaxBackoff:      config.ParseDuration(cfg.Reconciler.MaxBackoff, 5*time.Second),
			IntentTTL:       config.ParseDuration(cfg.Reconciler.IntentTTL, 24*time.Hour),
		},
		lgr,
	)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService)
	deps.ApplicationController = appControllers.NewApplicationController(deps.PromotionService)
	deps.ResolutionController = appControllers.NewResolutionController(deps.ResolutionService)
	deps.StudentController = appControllers.NewStudentController(deps.ResolutionService, deps.PaymentService)
	deps.PaymentController = appControllers.NewPaymentController(deps.PaymentService)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.Repos.StudentRepository)

	return deps, nil
}

// SetupRouter creates the gin engine and registers all routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	appRoutes.SetupRouter(
		router,
		deps.AuthController,
		deps.ApplicationController,
		deps.ResolutionController,
		deps.StudentController,
		deps.PaymentController,
		deps.AuthMiddleware,
	)

	lgr.Info().Msg("Routes registered")
	return router
}
