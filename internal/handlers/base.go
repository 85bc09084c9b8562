package handlers

import (
	"github.com/gin-gonic/gin"
)

// fail writes the uniform failure envelope. Every error leaving the API goes
// through here; nothing propagates past a handler.
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

// ok writes a success envelope merged with the handler's payload.
func ok(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}
