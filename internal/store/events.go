package store

import "time"

// Event is a minimal projection of a row staged for insertion inside a
// unit of work. Events are buffered before commit and handed to a
// Notifier after the commit succeeds.
type Event interface {
	EventName() string
}

// FeedbackCreated announces a newly committed feedback row to its
// receiver's identity channel.
type FeedbackCreated struct {
	FeedbackID     string    `json:"feedbackId"`
	SeasonID       string    `json:"seasonId"`
	ReceiverUserID string    `json:"receiverUserId"`
	CreatedAtUTC   time.Time `json:"createdAtUtc"`
}

func (FeedbackCreated) EventName() string { return "newFeedback" }

// DeleteRequestCreated announces a newly committed delete request to the
// admin role channel.
type DeleteRequestCreated struct {
	DeleteRequestID string    `json:"deleteRequestId"`
	FeedbackID      string    `json:"feedbackId"`
	Reason          string    `json:"reason"`
	CreatedAtUTC    time.Time `json:"createdAtUtc"`
}

func (DeleteRequestCreated) EventName() string { return "deleteRequestCreated" }
