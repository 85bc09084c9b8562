package main

import (
	"os"

	"opinionhub/internal/db"
	"opinionhub/internal/router"
	"opinionhub/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, reading env vars from system")
	}

	// Initialize Database
	db.Init()

	// Captcha token store: Redis when configured, in-process otherwise
	var tokens services.TokenStore
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		tokens = services.NewRedisTokenStore(addr)
	} else {
		tokens = services.NewMemoryTokenStore()
	}
	defer tokens.Stop()

	mail := services.NewMailService()

	// Initialize Gin
	r := gin.Default()

	// Setup Sessions
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("opinionhub_session", store))

	router.RegisterRoutes(r, tokens, mail)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logrus.Infof("OpinionHub server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		logrus.Fatal(err)
	}
}
