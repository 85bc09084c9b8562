package router

import (
	"opinionhub/internal/handlers"
	"opinionhub/internal/middleware"
	"opinionhub/internal/services"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, tokens services.TokenStore, mail *services.MailService) {
	// Handlers
	pollHandler := handlers.NewPollHandler()
	categoryHandler := handlers.NewCategoryHandler()
	voteHandler := handlers.NewVoteHandler(tokens)
	captchaHandler := handlers.NewCaptchaHandler(tokens)
	authHandler := handlers.NewAuthHandler(mail)
	adminHandler := handlers.NewAdminHandler()

	// Public routes
	api := r.Group("/api")
	{
		api.GET("/polls", pollHandler.List)             // Poll listing with filters
		api.GET("/polls/top", pollHandler.Top)          // Featured polls
		api.GET("/polls/:pid", pollHandler.Detail)      // Poll detail
		api.GET("/categories", categoryHandler.List)    // All categories
		api.GET("/search", pollHandler.Search)          // Full-text search
		api.POST("/polls/check-vote", voteHandler.CheckVote) // Has this device voted?
		api.POST("/polls/vote", voteHandler.Vote)       // Cast a vote

		api.PUT("/captcha/verify", captchaHandler.StoreToken)   // Register a solved challenge
		api.POST("/captcha/verify", captchaHandler.VerifyToken) // Check a token without voting
	}

	// Admin routes
	admin := r.Group("/api/admin")
	admin.Use(middleware.LoadAdmin())
	{
		admin.POST("/login", authHandler.Login)                    // Admin login
		admin.POST("/logout", authHandler.Logout)                  // Admin logout
		admin.POST("/forgot-password", authHandler.ForgotPassword) // Request password reset OTP
		admin.POST("/verify-otp", authHandler.VerifyOTP)           // Pre-check the OTP
		admin.POST("/reset-password", authHandler.ResetPassword)   // Consume OTP, set password

		authorized := admin.Group("")
		authorized.Use(middleware.AdminRequired())
		{
			authorized.GET("/me", authHandler.Me) // Current session

			authorized.GET("/polls", adminHandler.ListPolls)          // All polls, unfiltered
			authorized.POST("/polls", adminHandler.CreatePoll)        // Create poll
			authorized.PUT("/polls/:pid", adminHandler.UpdatePoll)    // Update poll
			authorized.DELETE("/polls/:pid", adminHandler.DeletePoll) // Delete poll and its votes

			authorized.GET("/categories", categoryHandler.List)               // All categories
			authorized.POST("/categories", adminHandler.CreateCategory)       // Create category
			authorized.PUT("/categories/:id", adminHandler.UpdateCategory)    // Update category
			authorized.DELETE("/categories/:id", adminHandler.DeleteCategory) // Delete empty category

			authorized.GET("/stats", adminHandler.Stats)   // Dashboard numbers
			authorized.POST("/upload", adminHandler.Upload) // Product image upload
		}
	}
}
