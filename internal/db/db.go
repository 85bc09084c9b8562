package db

import (
	"os"

	"opinionhub/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=opinionhub port=5432 sslmode=disable"
	}

	var err error
	// TranslateError is required: the vote pipeline relies on catching the
	// (poll_id, user_identifier) unique violation as gorm.ErrDuplicatedKey.
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	logrus.Info("Database connection established")

	Migrate(DB)

	seedAdmin()
	seedCategories()
}

// Migrate runs schema migration for all entities. Split out so the
// integration tests can run it against their own database.
func Migrate(gdb *gorm.DB) {
	err := gdb.AutoMigrate(
		&models.Admin{},
		&models.Category{},
		&models.Poll{},
		&models.Vote{},
		&models.OTP{},
	)
	if err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}
	logrus.Info("Database migration completed")
}

func seedAdmin() {
	var count int64
	DB.Model(&models.Admin{}).Count(&count)
	if count > 0 {
		return
	}

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		logrus.Warn("No admin account present and ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin seed")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logrus.Fatalf("Failed to hash admin password: %v", err)
	}
	if err := DB.Create(&models.Admin{Email: email, Password: string(hash)}).Error; err != nil {
		logrus.Errorf("Failed to seed admin account %s: %v", email, err)
		return
	}
	logrus.Infof("Seeded admin account %s", email)
}

func seedCategories() {
	var count int64
	DB.Model(&models.Category{}).Count(&count)
	if count > 0 {
		return
	}

	categories := []models.Category{
		{Name: "Tech"},
		{Name: "Food"},
		{Name: "Lifestyle"},
		{Name: "Entertainment"},
	}

	for _, category := range categories {
		if err := DB.Create(&category).Error; err != nil {
			logrus.Errorf("Failed to create category %s: %v", category.Name, err)
		}
	}
	logrus.Info("Initial categories created")
}
