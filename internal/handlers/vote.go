package handlers

import (
	"errors"
	"net/http"

	"opinionhub/internal/db"
	"opinionhub/internal/models"
	"opinionhub/internal/services"
	"opinionhub/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// VoteHandler runs the vote submission pipeline:
// captcha → poll lookup → dedup → create + tally, in that order. Failure at
// any step short-circuits with no mutation.
type VoteHandler struct {
	tokens services.TokenStore
}

func NewVoteHandler(tokens services.TokenStore) *VoteHandler {
	return &VoteHandler{tokens: tokens}
}

type voteRequest struct {
	PollID            string `json:"pollId"`
	Vote              string `json:"vote"`
	CaptchaToken      string `json:"captchaToken"`
	DeviceID          string `json:"deviceId"`
	DeviceFingerprint string `json:"deviceFingerprint"`
}

func (r *voteRequest) validate() string {
	switch {
	case r.PollID == "":
		return "Poll ID is required"
	case r.Vote != "yes" && r.Vote != "no":
		return "Vote is required"
	case r.CaptchaToken == "":
		return "CAPTCHA verification is required"
	case r.DeviceID == "":
		return "Device ID is required"
	}
	return ""
}

// Vote handles POST /api/polls/vote
func (h *VoteHandler) Vote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}

	// Consume the CAPTCHA token before touching the database.
	if !h.tokens.Verify(req.CaptchaToken) {
		fail(c, http.StatusBadRequest, "CAPTCHA verification failed")
		return
	}

	var poll models.Poll
	if err := db.DB.Where("pid = ?", req.PollID).First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Poll not found")
			return
		}
		logrus.Errorf("Failed to load poll %s: %v", req.PollID, err)
		fail(c, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	ipAddress := utils.ClientIP(c.Request)
	userAgent := c.Request.UserAgent()
	if userAgent == "" {
		userAgent = "unknown"
	}

	identity := services.VoteIdentity{
		DeviceID:          req.DeviceID,
		DeviceFingerprint: req.DeviceFingerprint,
		IPAddress:         ipAddress,
		UserAgentHash:     utils.HashString(userAgent),
	}

	existing, err := services.FindExistingVote(db.DB, poll.ID, identity)
	if err != nil {
		logrus.Errorf("Dedup check failed for poll %s: %v", req.PollID, err)
		fail(c, http.StatusInternalServerError, "Failed to record vote")
		return
	}
	if existing != nil {
		fail(c, http.StatusBadRequest, "You have already voted on this poll")
		return
	}

	newVote := models.Vote{
		PollID:         poll.ID,
		UserIdentifier: identity.UserIdentifier(),
		DeviceID:       req.DeviceID,
		UserAgentHash:  identity.UserAgentHash,
		Vote:           req.Vote,
	}
	if req.DeviceFingerprint != "" {
		newVote.DeviceFingerprint = &req.DeviceFingerprint
	}
	if ipAddress != utils.IPUnknown {
		newVote.IPAddress = &ipAddress
	}

	tallyColumn := "yes_votes"
	if req.Vote == "no" {
		tallyColumn = "no_votes"
	}

	// Vote row and tally bump commit together or not at all. The column
	// increment is done in SQL so concurrent votes cannot lose updates.
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newVote).Error; err != nil {
			return err
		}
		return tx.Model(&models.Poll{}).Where("id = ?", poll.ID).
			UpdateColumn(tallyColumn, gorm.Expr(tallyColumn+" + ?", 1)).Error
	})
	if err != nil {
		// Two concurrent requests can both pass the dedup read; the unique
		// index on (poll_id, user_identifier) catches the loser, and the
		// user sees the normal duplicate message, not a server error.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			fail(c, http.StatusBadRequest, "You have already voted on this poll")
			return
		}
		logrus.Errorf("Failed to record vote on poll %s: %v", req.PollID, err)
		fail(c, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	utils.GetCache().Purge()

	// Reload for the response: fresh tallies plus the category.
	if err := db.DB.Preload("Category").First(&poll, poll.ID).Error; err != nil {
		logrus.Errorf("Failed to reload poll %s: %v", req.PollID, err)
		fail(c, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	ok(c, http.StatusOK, gin.H{
		"message": "Vote recorded successfully",
		"poll":    poll.Response(),
	})
}

type checkVoteRequest struct {
	PollID            string `json:"pollId"`
	DeviceID          string `json:"deviceId"`
	DeviceFingerprint string `json:"deviceFingerprint"`
}

// CheckVote handles POST /api/polls/check-vote
// Pre-vote status lookup so the UI can show "you voted X" without a
// submission round trip. Checks the authoritative identifier only.
func (h *VoteHandler) CheckVote(c *gin.Context) {
	var req checkVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PollID == "" {
		fail(c, http.StatusBadRequest, "Poll ID is required")
		return
	}
	if req.DeviceID == "" {
		fail(c, http.StatusBadRequest, "Device ID is required")
		return
	}

	var poll models.Poll
	if err := db.DB.Select("id").Where("pid = ?", req.PollID).First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Poll not found")
			return
		}
		logrus.Errorf("Failed to load poll %s: %v", req.PollID, err)
		fail(c, http.StatusInternalServerError, "Failed to check vote status")
		return
	}

	existing, err := services.FindVoteByIdentifier(db.DB, poll.ID, req.DeviceID, req.DeviceFingerprint)
	if err != nil {
		logrus.Errorf("Vote status check failed for poll %s: %v", req.PollID, err)
		fail(c, http.StatusInternalServerError, "Failed to check vote status")
		return
	}

	var vote interface{}
	if existing != nil {
		vote = existing.Vote
	}
	ok(c, http.StatusOK, gin.H{
		"hasVoted": existing != nil,
		"vote":     vote,
	})
}
