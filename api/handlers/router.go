package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"pulgax-store/internal/metrics"
	"pulgax-store/internal/middleware"
)

// RouterDeps is everything the HTTP layer needs.
type RouterDeps struct {
	Products    *ProductHandler
	Categories  *CategoryHandler
	Orders      *OrderHandler
	Auth        *AuthHandler
	Contact     *ContactHandler
	Admin       *AdminHandler
	Health      *HealthHandler
	Authn       middleware.Authenticator
	RateLimiter *middleware.RateLimiter
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Logger      *logrus.Logger
	CORSOrigins []string
}

func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(d.Logger))
	router.Use(middleware.Recovery(d.Logger))
	router.Use(middleware.Metrics(d.Metrics))
	router.Use(corsMiddleware(d.CORSOrigins))

	router.GET("/health", d.Health.Health)
	router.GET("/ready", d.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	admin := middleware.RequireAdmin(d.Authn)
	customer := middleware.RequireCustomer(d.Authn)

	api := router.Group("/api")
	{
		api.GET("/", d.Health.Root)

		// Product routes
		products := api.Group("/products")
		{
			products.GET("", d.Products.ListProducts)
			products.GET("/all", admin, d.Products.ListAllProducts)
			products.GET("/:id", d.Products.GetProduct)
			products.POST("", admin, d.Products.CreateProduct)
			products.PUT("/:id", admin, d.Products.UpdateProduct)
			products.DELETE("/:id", admin, d.Products.DeleteProduct)
		}

		// Category routes
		categories := api.Group("/categories")
		{
			categories.GET("", d.Categories.ListCategories)
			categories.GET("/:id", d.Categories.GetCategory)
			categories.POST("", admin, d.Categories.CreateCategory)
			categories.PUT("/:id", admin, d.Categories.UpdateCategory)
			categories.DELETE("/:id", admin, d.Categories.DeleteCategory)
		}

		// Order routes
		orders := api.Group("/orders")
		{
			orders.POST("", middleware.OptionalCustomer(d.Authn), d.Orders.CreateOrder)
			orders.POST("/quote", d.Orders.Quote)
			orders.GET("", admin, d.Orders.ListOrders)
			orders.GET("/:id", admin, d.Orders.GetOrder)
			orders.PUT("/:id/status", admin, d.Orders.UpdateStatus)
			orders.POST("/:id/refund", admin, d.Orders.Refund)
		}

		// Admin auth
		adminAuth := api.Group("/admin")
		{
			adminAuth.POST("/register", d.Auth.RegisterAdmin)
			adminAuth.POST("/login", d.Auth.LoginAdmin)
			adminAuth.GET("/me", admin, d.Auth.CurrentAdmin)
		}

		// Customer auth and account
		customers := api.Group("/customer")
		{
			customers.POST("/register", d.Auth.RegisterCustomer)
			customers.POST("/login", d.Auth.LoginCustomer)
			customers.POST("/google", d.Auth.GoogleLogin)
			customers.GET("/profile", customer, d.Auth.Profile)
			customers.PUT("/address", customer, d.Auth.UpdateAddress)
			customers.GET("/orders", customer, d.Orders.CustomerOrders)
		}

		// Contact messages
		contact := api.Group("/contact")
		{
			contact.POST("", d.RateLimiter.Handler(), d.Contact.Submit)
			contact.GET("", admin, d.Contact.List)
			contact.PUT("/:id/read", admin, d.Contact.MarkRead)
			contact.DELETE("/:id", admin, d.Contact.Delete)
		}

		api.POST("/upload", admin, d.Admin.Upload)
		api.GET("/stats", admin, d.Admin.Stats)
		api.GET("/validate", admin, d.Admin.Validate)
	}

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
