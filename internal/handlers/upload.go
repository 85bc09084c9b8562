package handlers

import (
	"net/http"
	"strings"

	"opinionhub/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxUploadSize = 10 << 20 // 10MB

// Upload handles POST /api/admin/upload
func (h *AdminHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, "Image file is required")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		fail(c, http.StatusBadRequest, "Image must be smaller than 10MB")
		return
	}
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		fail(c, http.StatusBadRequest, "File must be an image")
		return
	}

	result, err := services.UploadImage(file, header)
	if err != nil {
		logrus.Errorf("Image upload failed: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to upload image")
		return
	}

	ok(c, http.StatusOK, gin.H{"image": result})
}
