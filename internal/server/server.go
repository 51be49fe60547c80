// Package server contains the HTTP and WebSocket handlers of the recipe API.
package server

import (
	"context"
	"errors"
	"time"

	_ "foodgram/docs" // swagger docs
	"foodgram/internal/bootstrap"
	"foodgram/internal/cache"
	"foodgram/internal/config"
	"foodgram/internal/database"
	"foodgram/internal/featureflags"
	"foodgram/internal/media"
	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/notifications"
	"foodgram/internal/repository"
	"foodgram/internal/service"
	"foodgram/internal/validation"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	limiter        *middleware.Limiter
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager

	userService         *service.UserService
	subscriptionService *service.SubscriptionService
	catalogService      *service.CatalogService
	recipeService       *service.RecipeService
	interactionService  *service.InteractionService
	shoppingService     *service.ShoppingService
}

// NewServer initializes the runtime described by cfg and builds a Server on
// top of it. A missing Redis only disables caching, rate limiting and
// realtime notifications.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt.DB, rt.Redis)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server: config and database are required")
	}

	userRepo := repository.NewUserRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)
	shoppingRepo := repository.NewShoppingListRepository(db)

	flags := featureflags.NewManager(cfg.FeatureFlags)
	for _, entry := range flags.Invalid() {
		middleware.Logger.Warn("ignoring invalid feature flag", "entry", entry)
	}
	store := cache.NewStore(redisClient)
	images := media.NewStore(cfg.MediaRoot, flags)
	validator := validation.New()
	maxImageBytes := int64(cfg.ImageMaxUploadSizeMB) << 20

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("foodgram-api"),
		limiter:        middleware.NewLimiter(redisClient, cfg.Env),
		notifier:       notifications.NewNotifier(redisClient),
		featureFlags:   flags,
	}

	server.userService = service.NewUserService(userRepo, subscriptionRepo, images, validator, maxImageBytes)
	server.subscriptionService = service.NewSubscriptionService(userRepo, subscriptionRepo, recipeRepo, server.notifier)
	server.catalogService = service.NewCatalogService(catalogRepo, store)
	server.interactionService = service.NewInteractionService(recipeRepo, interactionRepo)
	server.shoppingService = service.NewShoppingService(shoppingRepo)
	server.recipeService = service.NewRecipeService(service.RecipeDeps{
		Recipes:       recipeRepo,
		Catalog:       catalogRepo,
		Subscriptions: subscriptionRepo,
		Interactions:  interactionRepo,
		Images:        images,
		Publisher:     server.notifier,
		Validator:     validator,
		Cache:         store,
		MaxImageBytes: maxImageBytes,
		BaseURL:       cfg.PublicBaseURL,
	})

	// Events only reach sockets through Redis pub/sub.
	if redisClient != nil {
		server.hub = notifications.NewHub()
	}

	return server, nil
}

// NewApp builds the Fiber application with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Foodgram API",
		BodyLimit:    bodyLimit(s.config),
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// bodyLimit leaves room for base64 inflation of the largest allowed image.
func bodyLimit(cfg *config.Config) int {
	limit := cfg.ImageMaxUploadSizeMB * 2 << 20
	if limit < 4<<20 {
		limit = 4 << 20
	}
	return limit
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := models.CodeInternal
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			code = models.CodeNotFound
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
			code = models.CodeValidation
		case fiber.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		}
		return models.RespondWithError(c, fiberErr.Code, models.NewAppError(code, fiberErr.Message, nil))
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "path", c.Path(), "error", err)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry the headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		ExposeHeaders:    "Content-Disposition, X-Trace-ID",
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Static(media.URLPrefix, s.config.MediaRoot)

	app.Get(service.ShortLinkPath+":code", s.ResolveShortLink)
	app.Get("/recipes/short/:code", s.ResolveShortLink)

	api := app.Group("/api", s.OptionalAuth())
	authRequired := s.AuthRequired()
	authLimit := s.limiter.Handler("auth", s.config.RateLimitAuthPerMinute, time.Minute, middleware.FailClosed)
	writeLimit := s.limiter.Handler("write", s.config.RateLimitWritePerMinute, time.Minute, middleware.FailOpen)

	auth := api.Group("/auth/token")
	auth.Post("/login", authLimit, s.Login)
	auth.Post("/logout", authRequired, s.Logout)

	// Specific /users routes before the generic /:id route
	users := api.Group("/users")
	users.Post("/", authLimit, s.Register)
	users.Get("/", s.ListUsers)
	users.Get("/me", authRequired, s.GetMe)
	users.Put("/me/avatar", authRequired, writeLimit, s.SetAvatar)
	users.Delete("/me/avatar", authRequired, s.DeleteAvatar)
	users.Post("/set_password", authRequired, authLimit, s.SetPassword)
	users.Get("/subscriptions", authRequired, s.ListSubscriptions)
	users.Post("/:id/subscribe", authRequired, writeLimit, s.Subscribe)
	users.Delete("/:id/subscribe", authRequired, s.Unsubscribe)
	users.Get("/:id", s.GetUser)

	tags := api.Group("/tags")
	tags.Get("/", s.ListTags)
	tags.Get("/:id", s.GetTag)

	ingredients := api.Group("/ingredients")
	ingredients.Get("/", s.ListIngredients)
	ingredients.Get("/:id", s.GetIngredient)

	// Specific /recipes routes before the generic /:id route
	recipes := api.Group("/recipes")
	recipes.Get("/", s.ListRecipes)
	recipes.Post("/", authRequired, writeLimit, s.CreateRecipe)
	recipes.Get("/download_shopping_cart", authRequired, s.DownloadShoppingCart)
	recipes.Get("/:id/get-link", s.GetRecipeLink)
	recipes.Post("/:id/favorite", authRequired, writeLimit, s.AddFavorite)
	recipes.Delete("/:id/favorite", authRequired, s.RemoveFavorite)
	recipes.Post("/:id/shopping_cart", authRequired, writeLimit, s.AddToShoppingCart)
	recipes.Delete("/:id/shopping_cart", authRequired, s.RemoveFromShoppingCart)
	recipes.Get("/:id", s.GetRecipe)
	recipes.Patch("/:id", authRequired, writeLimit, s.UpdateRecipe)
	recipes.Delete("/:id", authRequired, s.DeleteRecipe)

	api.Get("/feature-flags", authRequired, s.AdminRequired(), s.GetFeatureFlags)

	api.Post("/ws/ticket", authRequired, s.IssueWSTicket)
	api.Get("/ws", authRequired, s.NotificationsUpgrade, s.NotificationsHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so it
// only fails readiness when it is configured and not answering.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		middleware.Logger.WarnContext(ctx, "readiness: database ping failed", "error", err)
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			middleware.Logger.WarnContext(ctx, "readiness: redis ping failed", "error", err)
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring", "hub", s.hub.Name(), "error", err)
			}
		}()
	}

	middleware.Logger.Info("Server starting", "port", s.config.Port, "env", s.config.Env)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", "hub", s.hub.Name(), "error", err)
		}
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", "error", err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err)
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
