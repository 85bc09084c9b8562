package handlers

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"opinionhub/internal/db"
	"opinionhub/internal/middleware"
	"opinionhub/internal/models"
	"opinionhub/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const otpTTL = 10 * time.Minute

type AuthHandler struct {
	mailService *services.MailService
	rnd         *rand.Rand
}

func NewAuthHandler(mailService *services.MailService) *AuthHandler {
	return &AuthHandler{
		mailService: mailService,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/admin/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		fail(c, http.StatusBadRequest, "Invalid email address")
		return
	}
	if len(req.Password) < 6 {
		fail(c, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	var admin models.Admin
	err := db.DB.Where("email = ?", strings.ToLower(req.Email)).First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		logrus.Errorf("Login lookup failed: %v", err)
		fail(c, http.StatusInternalServerError, "Login failed")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)) != nil {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := middleware.SetAdminSession(c, admin.ID); err != nil {
		logrus.Errorf("Failed to save session: %v", err)
		fail(c, http.StatusInternalServerError, "Login failed")
		return
	}

	ok(c, http.StatusOK, gin.H{
		"message": "Login successful",
		"admin":   gin.H{"email": admin.Email},
	})
}

// Logout handles POST /api/admin/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := middleware.ClearAdminSession(c); err != nil {
		logrus.Errorf("Failed to clear session: %v", err)
	}
	ok(c, http.StatusOK, gin.H{"message": "Logged out"})
}

// Me handles GET /api/admin/me
func (h *AuthHandler) Me(c *gin.Context) {
	admin := c.MustGet(middleware.AdminKey).(*models.Admin)
	ok(c, http.StatusOK, gin.H{"admin": gin.H{"email": admin.Email}})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword handles POST /api/admin/forgot-password
// Always answers the same whether or not the email exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || !strings.Contains(req.Email, "@") {
		fail(c, http.StatusBadRequest, "Invalid email address")
		return
	}
	email := strings.ToLower(req.Email)

	neutral := "If the email exists, an OTP has been sent to your email address. Please check your inbox (and spam folder)."

	var admin models.Admin
	if err := db.DB.Where("email = ?", email).First(&admin).Error; err != nil {
		ok(c, http.StatusOK, gin.H{"message": neutral})
		return
	}

	code := fmt.Sprintf("%06d", h.rnd.Intn(1000000))

	// One live code at a time per email.
	if err := db.DB.Model(&models.OTP{}).
		Where("email = ? AND used = ?", email, false).
		Update("used", true).Error; err != nil {
		logrus.Errorf("Failed to invalidate prior OTPs for %s: %v", email, err)
	}

	otp := models.OTP{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().Add(otpTTL),
	}
	if err := db.DB.Create(&otp).Error; err != nil {
		logrus.Errorf("Failed to create OTP for %s: %v", email, err)
		fail(c, http.StatusInternalServerError, "Failed to process request")
		return
	}

	h.mailService.SendOTPEmail(email, code)

	ok(c, http.StatusOK, gin.H{"message": neutral})
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyOTP handles POST /api/admin/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		fail(c, http.StatusBadRequest, "Invalid email address")
		return
	}
	if len(req.OTP) != 6 {
		fail(c, http.StatusBadRequest, "OTP must be 6 digits")
		return
	}

	record, err := h.findValidOTP(strings.ToLower(req.Email), req.OTP)
	if err != nil {
		logrus.Errorf("OTP lookup failed: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to verify OTP")
		return
	}
	if record == nil {
		fail(c, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}

	ok(c, http.StatusOK, gin.H{"message": "OTP verified successfully"})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword handles POST /api/admin/reset-password
// Consumes the OTP and re-hashes the password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		fail(c, http.StatusBadRequest, "Invalid email address")
		return
	}
	if len(req.OTP) != 6 {
		fail(c, http.StatusBadRequest, "OTP must be 6 digits")
		return
	}
	if len(req.NewPassword) < 6 {
		fail(c, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	email := strings.ToLower(req.Email)

	record, err := h.findValidOTP(email, req.OTP)
	if err != nil {
		logrus.Errorf("OTP lookup failed: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to reset password")
		return
	}
	if record == nil {
		fail(c, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logrus.Errorf("Failed to hash password: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Admin{}).Where("email = ?", email).
			Update("password", string(hash)).Error; err != nil {
			return err
		}
		return tx.Model(record).Update("used", true).Error
	})
	if err != nil {
		logrus.Errorf("Failed to reset password for %s: %v", email, err)
		fail(c, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	ok(c, http.StatusOK, gin.H{"message": "Password reset successfully"})
}

func (h *AuthHandler) findValidOTP(email, code string) (*models.OTP, error) {
	var record models.OTP
	err := db.DB.Where("email = ? AND code = ? AND used = ? AND expires_at > ?",
		email, code, false, time.Now()).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
