// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/config"
	"github.com/printforge/printforge-backend/internal/handlers"
	"github.com/printforge/printforge-backend/internal/middleware"
	"github.com/printforge/printforge-backend/internal/services"
	"github.com/printforge/printforge-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	storageService, _ := services.NewStorageService(cfg)
	treasuryService := services.NewTreasuryService(db)

	authService := services.NewAuthService(db, cfg)
	assetService := services.NewAssetService(db)
	pricingService := services.NewPricingService(db, assetService)
	licenseService := services.NewLicenseService(db, assetService, pricingService, treasuryService)
	royaltyService := services.NewRoyaltyService(db, assetService, treasuryService)
	paymentService := services.NewPaymentService(db, cfg, treasuryService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	assetHandler := handlers.NewAssetHandler(assetService, storageService)
	pricingHandler := handlers.NewPricingHandler(pricingService)
	licenseHandler := handlers.NewLicenseHandler(licenseService, assetService, storageService)
	royaltyHandler := handlers.NewRoyaltyHandler(royaltyService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
		}

		// Asset registry routes
		assets := v1.Group("/assets")
		{
			assets.GET("", middleware.OptionalAuth(), assetHandler.Search)
			assets.GET("/:id", middleware.OptionalAuth(), assetHandler.GetAsset)
			assets.GET("/:id/derivatives", assetHandler.GetDerivatives)
			assets.GET("/:id/pricing", pricingHandler.GetPricing)
			assets.GET("/:id/variations", pricingHandler.GetActiveVariations)
			assets.GET("/:id/quote", pricingHandler.Quote)

			// Authenticated routes
			protected := assets.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", assetHandler.Register)
				protected.GET("/mine", assetHandler.GetMyAssets)
				protected.POST("/upload", middleware.UploadRateLimit(), assetHandler.Upload)
				protected.POST("/:id/derivatives", assetHandler.RegisterDerivative)
				protected.PUT("/:id/metadata", assetHandler.UpdateMetadata)
				protected.PUT("/:id/toggle-active", assetHandler.ToggleActive)

				// Pricing configuration (creator-only, enforced by the service)
				protected.PUT("/:id/pricing", pricingHandler.SetLicenseConfig)
				protected.PUT("/:id/pricing/price", pricingHandler.SetLicensePrice)
				protected.PUT("/:id/pricing/duration", pricingHandler.SetLicenseDuration)
				protected.PUT("/:id/pricing/royalty", pricingHandler.SetRoyalty)
				protected.PUT("/:id/pricing/supply", pricingHandler.SetMaxSupply)
				protected.PUT("/:id/pricing/toggle-for-sale", pricingHandler.ToggleForSale)
				protected.POST("/:id/variations", pricingHandler.AddVariation)
				protected.PUT("/:id/variations/:position/toggle", pricingHandler.ToggleVariationActive)
			}
		}

		// License record routes
		licenses := v1.Group("/licenses")
		{
			licenses.GET("/:id/verify", licenseHandler.Verify)
			licenses.GET("/:id/validity", licenseHandler.Validity)

			protected := licenses.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", licenseHandler.Purchase)
				protected.GET("/mine", licenseHandler.GetMyLicenses)
				protected.GET("/:id", licenseHandler.GetRecord)
				protected.POST("/:id/burn", licenseHandler.Burn)
				protected.POST("/:id/renew", licenseHandler.Renew)
				protected.POST("/:id/transfer", licenseHandler.Transfer)
			}
		}

		// Royalty routes
		royalties := v1.Group("/royalties")
		royalties.Use(middleware.AuthRequired())
		{
			royalties.POST("/derivative", royaltyHandler.SetDerivativeRoyalty)
			royalties.POST("/derivative/pay", royaltyHandler.PayDerivativeRoyalty)
			royalties.GET("/derivative/:id", royaltyHandler.GetDerivativeRoyalty)
			royalties.DELETE("/derivative/:id", middleware.AdminRequired(), royaltyHandler.DeactivateDerivativeRoyalty)
			royalties.POST("/tip", royaltyHandler.PayDirectRoyalty)
			royalties.POST("/claim", royaltyHandler.Claim)
			royalties.GET("/balance", royaltyHandler.Balance)
			royalties.GET("/history", royaltyHandler.History)
			royalties.GET("/total", royaltyHandler.TotalEarned)
		}

		// Wallet routes
		wallet := v1.Group("/wallet")
		wallet.Use(middleware.AuthRequired())
		{
			wallet.POST("/deposit", paymentHandler.CreateDepositIntent)
			wallet.POST("/deposit/confirm", paymentHandler.ConfirmDeposit)
			wallet.GET("/balance", paymentHandler.Balance)
			wallet.GET("/history", paymentHandler.History)
			wallet.POST("/withdraw", paymentHandler.Withdraw)
		}
	}

	// Static file serving (for development)
	if cfg.Environment == "development" {
		r.Static("/uploads", "./uploads")
	}

	return r
}
