package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Feedback is a timestamped comment from one user to another inside a
// season. Immutable once created except for deletion. Mentor-authored
// feedback carries a Grade.
type Feedback struct {
	ID         string    `json:"id" gorm:"unique;not null"`
	SeasonID   string    `gorm:"not null;index" json:"season_id"`
	SenderID   string    `gorm:"not null;index" json:"sender_id"`
	ReceiverID string    `gorm:"not null;index" json:"receiver_id"`
	Comment    string    `gorm:"type:varchar(2000);not null" json:"comment" validate:"required,max=2000"`
	Grade      *Grade    `json:"grade,omitempty" gorm:"foreignKey:FeedbackID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time `json:"created_at"`
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) (err error) {
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	f.ID = uuidV7.String()
	return
}

// Grade holds the three 1-5 scores attached 1:1 to mentor-authored
// feedback. It never exists without its parent Feedback.
type Grade struct {
	FeedbackID    string `gorm:"primaryKey" json:"feedback_id"`
	CareerSkills  int    `gorm:"not null" json:"career_skills" validate:"required,min=1,max=5"`
	Communication int    `gorm:"not null" json:"communication" validate:"required,min=1,max=5"`
	Collaboration int    `gorm:"not null" json:"collaboration" validate:"required,min=1,max=5"`
}

// Average is the per-feedback mean of the three scores.
func (g *Grade) Average() float64 {
	return float64(g.CareerSkills+g.Communication+g.Collaboration) / 3
}

// FeedbackType classifies a feedback row relative to its season's mentor.
type FeedbackType string

const (
	FeedbackAll          FeedbackType = "all"
	FeedbackInternIntern FeedbackType = "i2i"
	FeedbackInternMentor FeedbackType = "i2m"
	FeedbackMentorIntern FeedbackType = "m2i"
)

// ParseFeedbackType maps a query string onto the closed set; invalid
// values report ok=false.
func ParseFeedbackType(s string) (FeedbackType, bool) {
	switch FeedbackType(s) {
	case FeedbackAll, "":
		return FeedbackAll, true
	case FeedbackInternIntern:
		return FeedbackInternIntern, true
	case FeedbackInternMentor:
		return FeedbackInternMentor, true
	case FeedbackMentorIntern:
		return FeedbackMentorIntern, true
	default:
		return "", false
	}
}

// Classify buckets the row against the season's mentor. The three
// non-all classes partition every row of a season.
func (f *Feedback) Classify(mentorID *string) FeedbackType {
	if mentorID == nil {
		return FeedbackInternIntern
	}
	switch {
	case f.SenderID == *mentorID:
		return FeedbackMentorIntern
	case f.ReceiverID == *mentorID:
		return FeedbackInternMentor
	default:
		return FeedbackInternIntern
	}
}
