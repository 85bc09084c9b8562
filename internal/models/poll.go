package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Poll struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	Pid           string    `gorm:"uniqueIndex;size:36;not null" json:"id"`
	ProductName   string    `gorm:"size:100;not null" json:"productName"`
	Statement     string    `gorm:"size:500;not null" json:"statement"`
	ProductImage  string    `gorm:"not null" json:"productImage"`
	YesButtonText string    `gorm:"size:50;not null;default:Yes" json:"yesButtonText"`
	NoButtonText  string    `gorm:"size:50;not null;default:No" json:"noButtonText"`
	CategoryID    uint      `gorm:"not null;index" json:"-"`
	Category      *Category `json:"category,omitempty"`
	YesVotes      int       `gorm:"not null;default:0" json:"yesVotes"`
	NoVotes       int       `gorm:"not null;default:0" json:"noVotes"`
	IsTrending    bool      `gorm:"not null;default:false" json:"isTrending"`
	IsTopPoll     bool      `gorm:"not null;default:false" json:"isTopPoll"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (p *Poll) BeforeCreate(tx *gorm.DB) error {
	if p.Pid == "" {
		p.Pid = uuid.NewString()
	}
	return nil
}

// PollResponse is a Poll plus the derived tally fields the frontend renders.
type PollResponse struct {
	Poll
	YesPercentage float64 `json:"yesPercentage"`
	NoPercentage  float64 `json:"noPercentage"`
	TotalVotes    int     `json:"totalVotes"`
}

// Response computes the yes/no percentages with one-decimal rounding.
// Both percentages are 0 when the poll has no votes yet.
func (p *Poll) Response() PollResponse {
	resp := PollResponse{Poll: *p}
	total := p.YesVotes + p.NoVotes
	resp.TotalVotes = total
	if total > 0 {
		resp.YesPercentage = roundOneDecimal(float64(p.YesVotes) / float64(total) * 100)
		resp.NoPercentage = roundOneDecimal(float64(p.NoVotes) / float64(total) * 100)
	}
	return resp
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
