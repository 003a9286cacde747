package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/vivutravel/vivu-backend/app/db"
	"github.com/vivutravel/vivu-backend/app/observability/metrics"
	"github.com/vivutravel/vivu-backend/config"
	"github.com/vivutravel/vivu-backend/internal/api/admin"
	"github.com/vivutravel/vivu-backend/internal/api/auth"
	"github.com/vivutravel/vivu-backend/internal/api/chat"
	"github.com/vivutravel/vivu-backend/internal/api/city"
	"github.com/vivutravel/vivu-backend/internal/api/comment"
	"github.com/vivutravel/vivu-backend/internal/api/destination"
	"github.com/vivutravel/vivu-backend/internal/api/taxonomy"
	"github.com/vivutravel/vivu-backend/internal/api/tour"
	"github.com/vivutravel/vivu-backend/internal/api/user"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	AuthHandler        *auth.AuthHandler
	UserHandler        *user.UserHandler
	CityHandler        *city.CityHandler
	DestinationHandler *destination.DestinationHandler
	TaxonomyHandler    *taxonomy.TaxonomyHandler
	CommentHandler     *comment.CommentHandler
	TourHandler        *tour.TourHandler
	ChatHandler        *chat.ChatHandler
	AdminHandler       *admin.AdminHandler
}

// NewContainer initializes the database pool and wires repositories,
// services and handlers together.
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.InitWithMetrics(dbConfig.ConnectionURL, metrics.Get(), logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	authService := auth.NewAuthService(authRepo, cfg.JWT, logger)
	authHandler := auth.NewAuthHandler(authService, logger)

	userRepo := user.NewPostgresUserRepo(pool, logger)
	userService := user.NewUserService(userRepo, logger)
	userHandler := user.NewUserHandler(userService, logger)

	taxonomyRepo := taxonomy.NewPostgresTaxonomyRepo(pool, logger)
	taxonomyService := taxonomy.NewTaxonomyService(taxonomyRepo, logger)
	taxonomyHandler := taxonomy.NewTaxonomyHandler(taxonomyService, logger)

	cityRepo := city.NewPostgresCityRepo(pool, logger)
	cityService := city.NewCityService(cityRepo, logger)
	cityHandler := city.NewCityHandler(cityService, logger)

	ragClient := chat.NewRAGClient(cfg.RAG, metrics.Get(), logger)

	destinationRepo := destination.NewPostgresDestinationRepo(pool, logger)
	destinationService := destination.NewDestinationService(destinationRepo, ragClient, cfg.Cache.DefaultTTL, logger)
	destinationHandler := destination.NewDestinationHandler(destinationService, logger)

	commentRepo := comment.NewPostgresCommentRepo(pool, logger)
	commentService := comment.NewCommentService(commentRepo, logger)
	commentHandler := comment.NewCommentHandler(commentService, logger)

	tourRepo := tour.NewPostgresTourRepo(pool, logger)
	tourService := tour.NewTourService(tourRepo, logger)
	tourHandler := tour.NewTourHandler(tourService, logger)

	chatRepo := chat.NewPostgresChatRepo(pool, logger)
	chatService := chat.NewChatService(chatRepo, ragClient, logger)
	chatHandler := chat.NewChatHandler(chatService, logger)

	adminRepo := admin.NewPostgresAdminRepo(pool, logger)
	adminService := admin.NewAdminService(adminRepo, cfg.Cache.StatsTTL, logger)
	adminHandler := admin.NewAdminHandler(adminService, logger)

	return &Container{
		Config: cfg,
		Logger: logger,
		Pool:   pool,

		AuthHandler:        authHandler,
		UserHandler:        userHandler,
		CityHandler:        cityHandler,
		DestinationHandler: destinationHandler,
		TaxonomyHandler:    taxonomyHandler,
		CommentHandler:     commentHandler,
		TourHandler:        tourHandler,
		ChatHandler:        chatHandler,
		AdminHandler:       adminHandler,
	}, nil
}

// Close releases all resources held by the container.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready.
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}
