package handler

import (
	"database/sql"

	"profile_hub/internal/audit"
	"profile_hub/internal/config"
	"profile_hub/internal/middleware"
	"profile_hub/internal/observability"
	"profile_hub/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupHandler initializes all dependencies and routes
func SetupHandler(db *mongo.Database, auditDB *sql.DB, conn *amqp091.Connection, redisClient *redis.Client, cfg *config.Config) *gin.Engine {

	r := gin.Default()

	// Registered before the routes so it wraps every handler
	r.Use(middleware.PrometheusMiddleware(observability.GlobalMetrics))

	// Initialize repositories
	userRepo := user.NewUserRepository(db)
	auditRepo := audit.NewRepository()

	// Initialize services
	publisher := audit.NewPublisher(conn)
	userService := user.NewUserService(userRepo, redisClient, publisher, cfg.JWT.Secret, cfg.BcryptCost)

	// Initialize controllers
	userController := user.NewUserController(userService, auditRepo, auditDB)

	// Setup routes
	setupRoutes(r, userController, redisClient, cfg.JWT.Secret)

	return r
}

// setupRoutes configures all application routes
func setupRoutes(r *gin.Engine, userCtrl *user.UserController, redisClient *redis.Client, jwtSecret string) {

	// Public routes - Authentication. Strictly limited by client address:
	// no userID exists before the token is issued.
	authGroup := r.Group("/auth")
	authGroup.Use(middleware.IPRateLimiterMiddleware(redisClient, middleware.StrictRateLimiter()))
	{
		authGroup.POST("/register", userCtrl.Register)
		authGroup.POST("/login", userCtrl.Login)
	}

	// Public routes - directory reads and direct create, generous per-address limit
	public := r.Group("/")
	public.Use(middleware.IPRateLimiterMiddleware(redisClient, middleware.GenerousRateLimiter()))
	{
		public.GET("/users", userCtrl.FindAll)
		public.GET("/users/search", userCtrl.Search)
		public.GET("/users/:id", userCtrl.FindUser)
		public.POST("/users", userCtrl.Create)
	}

	// Protected routes - require a valid token, per-user limit
	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware(jwtSecret))
	protected.Use(middleware.RateLimiterMiddleware(redisClient, middleware.ConservativeRateLimiter()))
	{
		protected.GET("/users/me", userCtrl.Me)
		protected.PUT("/users", userCtrl.Update)
		protected.DELETE("/users", userCtrl.DeleteMany)
		protected.DELETE("/users/:id", userCtrl.Delete)
		protected.PUT("/users/:id/ranking", userCtrl.UpdateRanking)
		protected.PUT("/users/:id/skills", userCtrl.UpdateSkillLevel)
		protected.GET("/users/:id/audit", userCtrl.AuditTrail)
	}
}
