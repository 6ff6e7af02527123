package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeleteRequest is a pending ask by a feedback participant or the
// season's mentor to remove a Feedback. An admin terminates it by
// approving (which cascades deletion of the feedback) or rejecting
// (which removes only the request); no resolved state is kept.
type DeleteRequest struct {
	ID         string    `json:"id" gorm:"unique;not null"`
	FeedbackID string    `gorm:"not null;index" json:"feedback_id"`
	SenderID   string    `gorm:"not null;index" json:"sender_id"`
	Reason     string    `gorm:"type:varchar(1000)" json:"reason" validate:"max=1000"`
	CreatedAt  time.Time `json:"created_at"`
}

func (d *DeleteRequest) BeforeCreate(tx *gorm.DB) (err error) {
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	d.ID = uuidV7.String()
	return
}
