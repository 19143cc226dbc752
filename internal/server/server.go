// Package server contains the HTTP handlers for the blog API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/quantu99/Test-Beincom-BE/docs"
	"github.com/quantu99/Test-Beincom-BE/internal/config"
	"github.com/quantu99/Test-Beincom-BE/internal/database"
	"github.com/quantu99/Test-Beincom-BE/internal/middleware"
	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/redisclient"
	"github.com/quantu99/Test-Beincom-BE/internal/repository"
	"github.com/quantu99/Test-Beincom-BE/internal/service"
	"github.com/quantu99/Test-Beincom-BE/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// mediaRoute serves locally stored post images.
const mediaRoute = "/media/posts"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	assets         storage.AssetStore
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	searchRepo     repository.SearchRepository
	imageService   *service.ImageService
	postService    *service.PostService
	commentService *service.CommentService
	searchService  *service.SearchService
	userService    *service.UserService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	assets, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("asset storage: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisclient.Connect(context.Background(), cfg.RedisURL), assets)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB, Redis and storage.
// A nil redis client disables rate limiting and token revocation.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, assets storage.AssetStore) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if assets == nil {
		return nil, fmt.Errorf("asset store is required")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		assets:         assets,
		promMiddleware: middleware.InitMetrics("blog-api"),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		searchRepo:     repository.NewSearchRepository(db),
	}
	s.imageService = service.NewImageService(assets, cfg)
	s.postService = service.NewPostService(s.postRepo, s.imageService)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo)
	s.searchService = service.NewSearchService(s.searchRepo)
	s.userService = service.NewUserService(s.userRepo)

	return s, nil
}

// App builds the fiber application with middleware and routes. It is cached
// so Start and tests share one instance.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName: "Blog API",
		// Multipart uploads carry the image plus a few text fields.
		BodyLimit:    int(s.imageService.MaxUploadBytes()) + 1024*1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers. Images are embedded cross-origin by the frontend.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS must run before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (300 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Get("/swagger/*", swagger.HandlerDefault)

	if local, ok := s.assets.(*storage.LocalStore); ok {
		app.Static(mediaRoute, local.Dir(), fiber.Static{MaxAge: 86400})
	}

	auth := app.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	users := app.Group("/users")
	users.Get("/me", s.AuthRequired(), s.GetMyProfile)
	users.Get("/:id/posts", s.GetUserPosts)
	users.Get("/:id", s.GetUserProfile)

	posts := app.Group("/posts")
	// Static segments must be registered before /:id.
	posts.Get("/", s.GetPosts)
	posts.Post("/", s.AuthRequired(), s.CreatePost)
	posts.Get("/popular", s.GetPopularPosts)
	posts.Get("/recent", s.GetRecentPosts)
	posts.Post("/upload-image", s.AuthRequired(),
		middleware.RateLimit(s.redis, 20, time.Minute, "upload_image"), s.UploadImage)

	drafts := posts.Group("/drafts", s.AuthRequired())
	drafts.Post("/", s.CreateDraft)
	drafts.Get("/", s.GetDrafts)
	drafts.Post("/:id/publish", s.PublishDraft)
	drafts.Get("/:id", s.GetDraft)
	drafts.Patch("/:id", s.UpdateDraft)
	drafts.Delete("/:id", s.DeleteDraft)

	posts.Post("/:id/like", s.AuthRequired(), s.LikePost)
	posts.Post("/:id/toggle-like", s.AuthRequired(), s.ToggleLike)
	posts.Get("/:id/like-status", s.AuthRequired(), s.GetLikeStatus)
	posts.Get("/:id", s.GetPost)
	posts.Patch("/:id", s.AuthRequired(), s.UpdatePost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)

	comments := app.Group("/comments")
	comments.Get("/recent", s.GetRecentComments)
	comments.Get("/user/:userId", s.GetUserComments)
	comments.Get("/posts/:postId", s.GetPostComments)
	comments.Post("/posts/:postId", s.AuthRequired(),
		middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	comments.Get("/:id", s.GetComment)
	comments.Patch("/:id", s.AuthRequired(), s.UpdateComment)
	comments.Delete("/:id", s.AuthRequired(), s.DeleteComment)

	search := app.Group("/search", middleware.RateLimit(s.redis, 60, time.Minute, "search"))
	search.Get("/", s.Search)
	search.Get("/suggestions", s.SearchSuggestions)
	search.Get("/quick", s.QuickSearch)
}

// LivenessCheck handles GET /health/live
// @Summary Liveness
// @Description Reports that the process is up.
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string,time=string}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles GET /health/ready. Redis is optional: when
// it is not configured it is reported but does not fail readiness.
// @Summary Readiness
// @Description Checks the database and Redis.
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string,checks=object,time=string}
// @Failure 503 {object} models.ErrorResponse "Dependency unhealthy"
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
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

// AuthRequired returns the authentication middleware. It accepts a Bearer
// token, rejects revoked ones and stores the caller in c.Locals("userID").
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := middleware.ParseToken(s.config.JWTSecret, middleware.BearerToken(c))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(capitalize(err.Error())))
		}

		revoked, err := redisclient.IsRevoked(c.UserContext(), s.redis, claims.JTI)
		if err != nil {
			// Revocation checks fail open like rate limiting does.
			middleware.Logger.WarnContext(c.UserContext(), "token revocation check failed",
				slog.String("error", err.Error()))
		}
		if revoked {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		c.Locals("userID", claims.UserID)
		c.Locals("tokenClaims", claims)
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, claims.UserID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
