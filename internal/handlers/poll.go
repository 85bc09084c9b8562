package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"opinionhub/internal/db"
	"opinionhub/internal/models"
	"opinionhub/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const listCacheTTL = 30 * time.Second

type PollHandler struct{}

func NewPollHandler() *PollHandler {
	return &PollHandler{}
}

// List handles GET /api/polls
// Supports category/search/trending filters, pagination and sorting.
func (h *PollHandler) List(c *gin.Context) {
	categorySlug := c.Query("category")
	search := c.Query("search")
	trending := c.Query("trending")
	page := utils.StringToInt(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit := utils.StringToInt(c.DefaultQuery("limit", "12"))
	if limit < 1 || limit > 100 {
		limit = 12
	}
	sortBy := c.DefaultQuery("sortBy", "created_at")
	sortOrder := c.DefaultQuery("sortOrder", "desc")

	cacheKey := fmt.Sprintf("polls:list:%s:%s:%s:%d:%d:%s:%s",
		categorySlug, search, trending, page, limit, sortBy, sortOrder)
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	query := db.DB.Model(&models.Poll{})

	if categorySlug != "" {
		query = query.Joins("JOIN categories ON categories.id = polls.category_id").
			Where("categories.slug = ?", categorySlug)
	}
	switch trending {
	case "true":
		query = query.Where("is_trending = ?", true)
	case "false":
		query = query.Where("is_trending = ?", false)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("product_name ILIKE ? OR statement ILIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logrus.Errorf("Failed to count polls: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to fetch polls")
		return
	}

	switch sortBy {
	case "created_at", "yes_votes", "no_votes", "product_name":
	default:
		sortBy = "created_at"
	}
	if sortOrder != "asc" {
		sortOrder = "desc"
	}

	var polls []models.Poll
	err := query.Preload("Category").
		Order("polls." + sortBy + " " + sortOrder).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&polls).Error
	if err != nil {
		logrus.Errorf("Failed to fetch polls: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to fetch polls")
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	body := gin.H{
		"success": true,
		"polls":   pollResponses(polls),
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	}
	utils.GetCache().Set(cacheKey, body, listCacheTTL)
	c.JSON(http.StatusOK, body)
}

// Top handles GET /api/polls/top
func (h *PollHandler) Top(c *gin.Context) {
	limit := utils.StringToInt(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("polls:top:%d", limit)
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	var polls []models.Poll
	err := db.DB.Preload("Category").
		Where("is_top_poll = ?", true).
		Order("created_at desc").
		Limit(limit).
		Find(&polls).Error
	if err != nil {
		logrus.Errorf("Failed to fetch top polls: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to fetch top polls")
		return
	}

	body := gin.H{
		"success": true,
		"polls":   pollResponses(polls),
	}
	utils.GetCache().Set(cacheKey, body, listCacheTTL)
	c.JSON(http.StatusOK, body)
}

// Detail handles GET /api/polls/:pid
func (h *PollHandler) Detail(c *gin.Context) {
	pid := c.Param("pid")

	var poll models.Poll
	err := db.DB.Preload("Category").Where("pid = ?", pid).First(&poll).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Poll not found")
			return
		}
		logrus.Errorf("Failed to fetch poll %s: %v", pid, err)
		fail(c, http.StatusInternalServerError, "Failed to fetch poll")
		return
	}

	ok(c, http.StatusOK, gin.H{"poll": poll.Response()})
}

// Search handles GET /api/search?q=
func (h *PollHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		ok(c, http.StatusOK, gin.H{"polls": []models.PollResponse{}})
		return
	}

	like := "%" + q + "%"
	var polls []models.Poll
	err := db.DB.Preload("Category").
		Where("product_name ILIKE ? OR statement ILIKE ?", like, like).
		Order("created_at desc").
		Limit(20).
		Find(&polls).Error
	if err != nil {
		logrus.Errorf("Search failed for %q: %v", q, err)
		fail(c, http.StatusInternalServerError, "Search failed")
		return
	}

	ok(c, http.StatusOK, gin.H{"polls": pollResponses(polls)})
}

func pollResponses(polls []models.Poll) []models.PollResponse {
	out := make([]models.PollResponse, 0, len(polls))
	for i := range polls {
		out = append(out, polls[i].Response())
	}
	return out
}
