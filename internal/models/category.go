package models

import (
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:50;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;size:60" json:"slug"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	slugInvalid = regexp.MustCompile(`[^\w-]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify turns a category name into its URL slug: lowercase, spaces to
// dashes, everything else stripped.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// BeforeSave keeps the slug derived from the name, including on renames.
func (c *Category) BeforeSave(tx *gorm.DB) error {
	if c.Name != "" {
		c.Slug = Slugify(c.Name)
	}
	return nil
}
