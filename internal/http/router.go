package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/recipedia/internal/auth"
	"github.com/geocoder89/recipedia/internal/config"
	"github.com/geocoder89/recipedia/internal/domain/user"
	"github.com/geocoder89/recipedia/internal/http/handlers"
	"github.com/geocoder89/recipedia/internal/http/middlewares"
	"github.com/geocoder89/recipedia/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps are the store-backed collaborators the router wires into handlers.
type Deps struct {
	Users   handlers.UsersStore
	Recipes handlers.RecipesStore
	Ready   handlers.Pinger
	Cache   handlers.ListCache

	// AuthLimiter guards /auth; nil falls back to an in-memory limiter.
	AuthLimiter middlewares.Limiter

	Prom *observability.Prom
}

func NewRouter(log *slog.Logger, deps Deps, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	prom := deps.Prom
	if prom == nil {
		prom = observability.NewProm()
	}

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.OTelServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders(cfg.Env == "prod"))
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// ops
	h := handlers.NewHealthHandler(deps.Ready, log)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", prom.Handler())
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())
	authMiddleware := middlewares.NewAuthMiddleware(jwtManager, prom)

	limiter := deps.AuthLimiter
	if limiter == nil {
		limit, window := cfg.RateLimitAuth, cfg.RateLimitWindow
		if limit <= 0 || window <= 0 {
			limit, window = 20, time.Minute
		}
		limiter = middlewares.NewRateLimiter(limit, window)
	}

	// wire up handlers
	authHandler := handlers.NewAuthHandler(deps.Users, jwtManager, log)
	usersHandler := handlers.NewUsersHandler(deps.Users, deps.Recipes, deps.Cache, log)
	recipesHandler := handlers.NewRecipesHandler(deps.Recipes, deps.Users, deps.Cache, prom, log)

	authGroup := r.Group("/auth")
	authGroup.Use(middlewares.RateLimit(limiter, middlewares.KeyByIP))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	usersGroup := r.Group("/users")
	usersGroup.Use(authMiddleware.RequireAuth())
	{
		usersGroup.GET("/profile", usersHandler.GetProfile)
		usersGroup.PUT("/profile", usersHandler.UpdateProfile)
		usersGroup.DELETE("/profile", usersHandler.DeleteProfile)
		usersGroup.GET("", authMiddleware.RequireRole(user.RoleAdmin), usersHandler.ListUsers)
	}

	// recipes: reads are public, writes need a token
	r.GET("/recipes", recipesHandler.ListRecipes)
	r.GET("/recipes/:id", recipesHandler.GetRecipe)

	recipesGroup := r.Group("/recipes")
	recipesGroup.Use(authMiddleware.RequireAuth())
	{
		recipesGroup.POST("", recipesHandler.CreateRecipe)
		recipesGroup.PUT("/:id", recipesHandler.UpdateRecipe)
		recipesGroup.DELETE("/:id", recipesHandler.DeleteRecipe)
		recipesGroup.POST("/:id/like", recipesHandler.LikeRecipe)
		recipesGroup.DELETE("/:id/like", recipesHandler.UnlikeRecipe)
		recipesGroup.POST("/:id/comments", recipesHandler.AddComment)
	}

	return r
}
