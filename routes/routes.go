package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	config "github.com/phillip/charity-campaigns-go/config"
	controllers "github.com/phillip/charity-campaigns-go/controllers"
	middleware "github.com/phillip/charity-campaigns-go/middleware"
)

// NewRouter builds the engine with recovery, request logging, CORS and
// every route.
func NewRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogger(cfg.Logger))
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "If-None-Match"},
		ExposeHeaders:    []string{"ETag", "Last-Modified"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	SetupRoutes(r, cfg)
	return r
}

func SetupRoutes(r *gin.Engine, cfg *config.Config) {
	r.GET("/health", controllers.Health(cfg))

	api := r.Group("/api")

	auth := middleware.AuthMiddleware(cfg)

	// public
	throttle := middleware.NewLoginThrottle(cfg.LoginRateLimit, time.Minute)
	authGroup := api.Group("/auth")
	authGroup.Use(throttle.Middleware())
	{
		authGroup.POST("/register", controllers.Register(cfg))
		authGroup.POST("/login", controllers.Login(cfg))
		authGroup.POST("/refresh", auth, controllers.RefreshToken(cfg))
	}

	// protected

	campaigns := api.Group("/campaigns")
	{
		campaigns.GET("", controllers.ListCampaigns(cfg))
		campaigns.GET("/my", auth, controllers.ListMyCampaigns(cfg))
		campaigns.GET("/:id", controllers.GetCampaign(cfg))
		campaigns.POST("", auth, controllers.CreateCampaign(cfg))
		campaigns.PUT("/:id", auth, controllers.UpdateCampaign(cfg))
		campaigns.DELETE("/:id", auth, controllers.DeleteCampaign(cfg))
		campaigns.POST("/:id/donate", auth, controllers.DonateToCampaign(cfg))
	}

	users := api.Group("/users")
	users.Use(auth)
	{
		users.GET("/profile", controllers.GetProfile(cfg))
		users.PUT("/profile", controllers.UpdateProfile(cfg))

		admin := users.Group("")
		admin.Use(middleware.AdminOnly())
		{
			admin.GET("", controllers.ListUsers(cfg))
			admin.GET("/:id", controllers.GetUser(cfg))
			admin.PUT("/:id", controllers.UpdateUser(cfg))
			admin.DELETE("/:id", controllers.DeleteUser(cfg))
		}
	}
}
