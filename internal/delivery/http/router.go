package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"brokerdesk/configs"
	custommiddleware "brokerdesk/internal/middleware"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	AuthHandler      *AuthHandler
	DashboardHandler *DashboardHandler
	AdminHandler     *AdminHandler
	Tokens           *custommiddleware.TokenManager
	Server           configs.ServerConfig
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	productionMode = config.Server.IsProduction()

	// Middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     config.Server.CORSOrigins,
		AllowCredentials: true,
	}))
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rateFromWindow(config.Server.RateLimitMax, config.Server.RateLimitWindow),
			Burst:     config.Server.RateLimitMax,
			ExpiresIn: 3 * time.Minute,
		}),
	}))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return SuccessResponse(c, map[string]interface{}{
			"status":    "healthy",
			"service":   "brokerdesk-api",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// API group
	api := e.Group("/api/v1")

	// Public auth routes
	user := api.Group("/user")
	{
		user.POST("/register", config.AuthHandler.Register)
		user.POST("/login", config.AuthHandler.Login)
		user.POST("/logout", config.AuthHandler.Logout)
	}
	user.POST("/change-password", config.AuthHandler.ChangePassword, config.Tokens.Auth)

	// Authenticated dashboard routes
	dashboard := api.Group("/dashboard", config.Tokens.Auth)
	{
		dashboard.GET("/balance", config.DashboardHandler.GetBalance)
		dashboard.GET("/transactions", config.DashboardHandler.GetTransactions)
		dashboard.GET("/orders", config.DashboardHandler.GetOrders)
		dashboard.GET("/bank-visibility", config.DashboardHandler.GetBankVisibility)
	}

	transactions := api.Group("/transactions", config.Tokens.Auth)
	{
		transactions.POST("/deposit", config.DashboardHandler.RequestDeposit)
		transactions.POST("/withdrawal", config.DashboardHandler.RequestWithdrawal)
	}

	// Admin routes (auth + role gate)
	admin := api.Group("/admin", config.Tokens.Auth, custommiddleware.AdminOnly)
	{
		admin.GET("/users", config.AdminHandler.GetUsers)
		admin.GET("/users/pending", config.AdminHandler.GetPendingUsers)
		admin.POST("/users/:id/approve", config.AdminHandler.ApproveUser)
		admin.POST("/users/:id/reject", config.AdminHandler.RejectUser)
		admin.POST("/transactions/:id/approve", config.AdminHandler.ApproveTransaction)
		admin.POST("/transactions/:id/reject", config.AdminHandler.RejectTransaction)
		admin.POST("/orders", config.AdminHandler.CreateOrder)
		admin.PUT("/orders/:id", config.AdminHandler.UpdateOrder)
		admin.POST("/orders/:id/close", config.AdminHandler.CloseOrder)
		admin.GET("/kpis", config.AdminHandler.GetKPIs)
		admin.GET("/settings/bank-visibility", config.AdminHandler.GetBankVisibility)
		admin.PUT("/settings/bank-visibility", config.AdminHandler.SetBankVisibility)
	}
}

// rateFromWindow converts "max requests per window" into the per-second rate
// the limiter store expects.
func rateFromWindow(max int, window time.Duration) rate.Limit {
	if window <= 0 {
		window = time.Minute
	}
	return rate.Limit(float64(max) / window.Seconds())
}
