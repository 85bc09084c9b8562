package middleware

import (
	"net/http"

	"opinionhub/internal/db"
	"opinionhub/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const AdminKey = "admin"
const sessionAdminID = "admin_id"

// LoadAdmin resolves the session's admin, if any, into the request context.
func LoadAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		adminID := session.Get(sessionAdminID)

		if adminID != nil {
			var admin models.Admin
			if err := db.DB.First(&admin, adminID).Error; err == nil {
				c.Set(AdminKey, &admin)
			}
		}
		c.Next()
	}
}

// AdminRequired rejects requests without a logged-in admin. This is a JSON
// API, so it answers 401 rather than redirecting.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(AdminKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Unauthorized",
			})
			return
		}
		c.Next()
	}
}

// SetAdminSession records a successful login.
func SetAdminSession(c *gin.Context, adminID uint) error {
	session := sessions.Default(c)
	session.Set(sessionAdminID, adminID)
	return session.Save()
}

// ClearAdminSession logs the admin out.
func ClearAdminSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Delete(sessionAdminID)
	return session.Save()
}
