package handlers

import (
	"net/http"

	"opinionhub/internal/db"
	"opinionhub/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// List handles GET /api/categories
func (h *CategoryHandler) List(c *gin.Context) {
	var categories []models.Category
	if err := db.DB.Order("name asc").Find(&categories).Error; err != nil {
		logrus.Errorf("Failed to fetch categories: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}

	ok(c, http.StatusOK, gin.H{"categories": categories})
}
