package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"opinionhub/internal/db"
	"opinionhub/internal/models"
	"opinionhub/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AdminHandler covers poll/category management and the dashboard stats.
type AdminHandler struct {
	sanitizer *bluemonday.Policy
}

func NewAdminHandler() *AdminHandler {
	return &AdminHandler{
		// Admin-supplied text is plain text; strip any markup outright.
		sanitizer: bluemonday.StrictPolicy(),
	}
}

type pollInput struct {
	ProductName   string `json:"productName"`
	Statement     string `json:"statement"`
	ProductImage  string `json:"productImage"`
	YesButtonText string `json:"yesButtonText"`
	NoButtonText  string `json:"noButtonText"`
	CategoryID    uint   `json:"categoryId"`
	IsTrending    *bool  `json:"isTrending"`
	IsTopPoll     *bool  `json:"isTopPoll"`
}

func (h *AdminHandler) validatePollInput(in *pollInput) string {
	in.ProductName = h.sanitizer.Sanitize(in.ProductName)
	in.Statement = h.sanitizer.Sanitize(in.Statement)
	in.YesButtonText = h.sanitizer.Sanitize(in.YesButtonText)
	in.NoButtonText = h.sanitizer.Sanitize(in.NoButtonText)

	switch {
	case in.ProductName == "" || len(in.ProductName) > 100:
		return "Product name is required and cannot exceed 100 characters"
	case in.Statement == "" || len(in.Statement) > 500:
		return "Statement is required and cannot exceed 500 characters"
	case in.ProductImage == "":
		return "Product image is required"
	case len(in.YesButtonText) > 50 || len(in.NoButtonText) > 50:
		return "Button text cannot exceed 50 characters"
	case in.CategoryID == 0:
		return "Category is required"
	}
	return ""
}

// ListPolls handles GET /api/admin/polls
func (h *AdminHandler) ListPolls(c *gin.Context) {
	var polls []models.Poll
	if err := db.DB.Preload("Category").Order("created_at desc").Find(&polls).Error; err != nil {
		logrus.Errorf("Failed to fetch polls: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to fetch polls")
		return
	}
	ok(c, http.StatusOK, gin.H{"polls": pollResponses(polls)})
}

// CreatePoll handles POST /api/admin/polls
func (h *AdminHandler) CreatePoll(c *gin.Context) {
	var in pollInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := h.validatePollInput(&in); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}

	var category models.Category
	if err := db.DB.First(&category, in.CategoryID).Error; err != nil {
		fail(c, http.StatusBadRequest, "Category not found")
		return
	}

	poll := models.Poll{
		ProductName:   in.ProductName,
		Statement:     in.Statement,
		ProductImage:  in.ProductImage,
		YesButtonText: in.YesButtonText,
		NoButtonText:  in.NoButtonText,
		CategoryID:    in.CategoryID,
	}
	if poll.YesButtonText == "" {
		poll.YesButtonText = "Yes"
	}
	if poll.NoButtonText == "" {
		poll.NoButtonText = "No"
	}
	if in.IsTrending != nil {
		poll.IsTrending = *in.IsTrending
	}
	if in.IsTopPoll != nil {
		poll.IsTopPoll = *in.IsTopPoll
	}

	if err := db.DB.Create(&poll).Error; err != nil {
		logrus.Errorf("Failed to create poll: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	utils.GetCache().Purge()
	poll.Category = &category
	ok(c, http.StatusCreated, gin.H{"poll": poll.Response()})
}

// UpdatePoll handles PUT /api/admin/polls/:pid
func (h *AdminHandler) UpdatePoll(c *gin.Context) {
	var poll models.Poll
	if err := db.DB.Where("pid = ?", c.Param("pid")).First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Poll not found")
			return
		}
		logrus.Errorf("Failed to load poll: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to update poll")
		return
	}

	var in pollInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := h.validatePollInput(&in); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}
	if err := db.DB.First(&models.Category{}, in.CategoryID).Error; err != nil {
		fail(c, http.StatusBadRequest, "Category not found")
		return
	}

	poll.ProductName = in.ProductName
	poll.Statement = in.Statement
	poll.ProductImage = in.ProductImage
	poll.YesButtonText = in.YesButtonText
	poll.NoButtonText = in.NoButtonText
	poll.CategoryID = in.CategoryID
	if in.IsTrending != nil {
		poll.IsTrending = *in.IsTrending
	}
	if in.IsTopPoll != nil {
		poll.IsTopPoll = *in.IsTopPoll
	}

	if err := db.DB.Save(&poll).Error; err != nil {
		logrus.Errorf("Failed to update poll %s: %v", poll.Pid, err)
		fail(c, http.StatusInternalServerError, "Failed to update poll")
		return
	}

	utils.GetCache().Purge()
	if err := db.DB.Preload("Category").First(&poll, poll.ID).Error; err == nil {
		ok(c, http.StatusOK, gin.H{"poll": poll.Response()})
		return
	}
	ok(c, http.StatusOK, gin.H{"poll": poll.Response()})
}

// DeletePoll handles DELETE /api/admin/polls/:pid
// Votes cascade with the poll.
func (h *AdminHandler) DeletePoll(c *gin.Context) {
	var poll models.Poll
	if err := db.DB.Where("pid = ?", c.Param("pid")).First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Poll not found")
			return
		}
		logrus.Errorf("Failed to load poll: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to delete poll")
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ?", poll.ID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&poll).Error
	})
	if err != nil {
		logrus.Errorf("Failed to delete poll %s: %v", poll.Pid, err)
		fail(c, http.StatusInternalServerError, "Failed to delete poll")
		return
	}

	utils.GetCache().Purge()
	ok(c, http.StatusOK, gin.H{"message": "Poll deleted"})
}

type categoryInput struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// CreateCategory handles POST /api/admin/categories
func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var in categoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.Name = h.sanitizer.Sanitize(in.Name)
	if in.Name == "" || len(in.Name) > 50 {
		fail(c, http.StatusBadRequest, "Category name is required and cannot exceed 50 characters")
		return
	}

	category := models.Category{Name: in.Name, Image: in.Image}
	if err := db.DB.Create(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			fail(c, http.StatusBadRequest, "Category already exists")
			return
		}
		logrus.Errorf("Failed to create category: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to create category")
		return
	}

	utils.GetCache().Purge()
	ok(c, http.StatusCreated, gin.H{"category": category})
}

// UpdateCategory handles PUT /api/admin/categories/:id
func (h *AdminHandler) UpdateCategory(c *gin.Context) {
	var category models.Category
	if err := db.DB.First(&category, utils.StringToInt(c.Param("id"))).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Category not found")
			return
		}
		logrus.Errorf("Failed to load category: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to update category")
		return
	}

	var in categoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.Name = h.sanitizer.Sanitize(in.Name)
	if in.Name == "" || len(in.Name) > 50 {
		fail(c, http.StatusBadRequest, "Category name is required and cannot exceed 50 characters")
		return
	}

	category.Name = in.Name
	category.Image = in.Image
	if err := db.DB.Save(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			fail(c, http.StatusBadRequest, "Category already exists")
			return
		}
		logrus.Errorf("Failed to update category %d: %v", category.ID, err)
		fail(c, http.StatusInternalServerError, "Failed to update category")
		return
	}

	utils.GetCache().Purge()
	ok(c, http.StatusOK, gin.H{"category": category})
}

// DeleteCategory handles DELETE /api/admin/categories/:id
// Refused while polls still reference the category.
func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	id := utils.StringToInt(c.Param("id"))

	var pollCount int64
	if err := db.DB.Model(&models.Poll{}).Where("category_id = ?", id).Count(&pollCount).Error; err != nil {
		logrus.Errorf("Failed to count polls for category %d: %v", id, err)
		fail(c, http.StatusInternalServerError, "Failed to delete category")
		return
	}
	if pollCount > 0 {
		fail(c, http.StatusBadRequest, "Cannot delete a category that still has polls")
		return
	}

	result := db.DB.Delete(&models.Category{}, id)
	if result.Error != nil {
		logrus.Errorf("Failed to delete category %d: %v", id, result.Error)
		fail(c, http.StatusInternalServerError, "Failed to delete category")
		return
	}
	if result.RowsAffected == 0 {
		fail(c, http.StatusNotFound, "Category not found")
		return
	}

	utils.GetCache().Purge()
	ok(c, http.StatusOK, gin.H{"message": "Category deleted"})
}

// Stats handles GET /api/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	var totalPolls, totalCategories, totalVotes, trendingPolls int64
	counts := []struct {
		model interface{}
		where []interface{}
		dest  *int64
	}{
		{&models.Poll{}, nil, &totalPolls},
		{&models.Category{}, nil, &totalCategories},
		{&models.Vote{}, nil, &totalVotes},
		{&models.Poll{}, []interface{}{"is_trending = ?", true}, &trendingPolls},
	}
	for _, q := range counts {
		query := db.DB.Model(q.model)
		if q.where != nil {
			query = query.Where(q.where[0], q.where[1:]...)
		}
		if err := query.Count(q.dest).Error; err != nil {
			logrus.Errorf("Failed to compute stats: %v", err)
			fail(c, http.StatusInternalServerError, "Failed to fetch stats")
			return
		}
	}

	// Top performers by total votes, integer percentages for the dashboard.
	var topPolls []models.Poll
	if err := db.DB.Order("yes_votes + no_votes desc").Limit(5).Find(&topPolls).Error; err != nil {
		logrus.Errorf("Failed to fetch top polls: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}
	topStats := make([]gin.H, 0, len(topPolls))
	for _, poll := range topPolls {
		total := poll.YesVotes + poll.NoVotes
		yes, no := 0, 0
		if total > 0 {
			yes = int(math.Round(float64(poll.YesVotes) / float64(total) * 100))
			no = int(math.Round(float64(poll.NoVotes) / float64(total) * 100))
		}
		topStats = append(topStats, gin.H{
			"name":  poll.ProductName,
			"votes": total,
			"yes":   yes,
			"no":    no,
		})
	}

	activity, err := h.recentActivity()
	if err != nil {
		logrus.Errorf("Failed to fetch recent activity: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	ok(c, http.StatusOK, gin.H{
		"stats": gin.H{
			"totalPolls":      totalPolls,
			"totalVotes":      totalVotes,
			"trendingPolls":   trendingPolls,
			"totalCategories": totalCategories,
			"topPolls":        topStats,
			"recentActivity":  activity,
		},
	})
}

type activityEntry struct {
	Type string `json:"type"`
	Poll string `json:"poll"`
	Time string `json:"time"`

	at time.Time
}

func (h *AdminHandler) recentActivity() ([]activityEntry, error) {
	var recentVotes []models.Vote
	if err := db.DB.Preload("Poll").Order("created_at desc").Limit(5).Find(&recentVotes).Error; err != nil {
		return nil, err
	}
	var recentPolls []models.Poll
	if err := db.DB.Order("created_at desc").Limit(3).Find(&recentPolls).Error; err != nil {
		return nil, err
	}

	entries := make([]activityEntry, 0, len(recentVotes)+len(recentPolls))
	for _, vote := range recentVotes {
		name := "Unknown"
		if vote.Poll != nil {
			name = vote.Poll.ProductName
		}
		entries = append(entries, activityEntry{
			Type: "vote",
			Poll: name,
			Time: formatTimeAgo(vote.CreatedAt),
			at:   vote.CreatedAt,
		})
	}
	for _, poll := range recentPolls {
		entries = append(entries, activityEntry{
			Type: "poll",
			Poll: poll.ProductName,
			Time: formatTimeAgo(poll.CreatedAt),
			at:   poll.CreatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].at.After(entries[j].at)
	})
	if len(entries) > 5 {
		entries = entries[:5]
	}
	return entries, nil
}

func formatTimeAgo(t time.Time) string {
	seconds := int(time.Since(t).Seconds())

	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s ago", unit)
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case seconds < 60:
		return plural(seconds, "second")
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	case seconds < 604800:
		return plural(seconds/86400, "day")
	default:
		return plural(seconds/604800, "week")
	}
}
