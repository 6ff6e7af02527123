// Package feedback implements the season-scoped feedback core: who may
// rate whom and when, monthly grade aggregation, and classified search.
// Writes run inside a store.UnitOfWork so committed rows are announced
// to live clients exactly once per commit.
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"mentorloop-backend/internal/models"
	"mentorloop-backend/internal/store"
)

const (
	maxCommentLength = 2000
	maxReasonLength  = 1000
)

type Service struct {
	db     *gorm.DB
	runner *store.Runner
	nowFn  func() time.Time
}

func NewService(db *gorm.DB, runner *store.Runner) *Service {
	return &Service{
		db:     db,
		runner: runner,
		nowFn:  time.Now,
	}
}

func normalizeComment(comment string) (string, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return "", fmt.Errorf("%w: comment is empty", ErrValidation)
	}
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return "", fmt.Errorf("%w: comment exceeds %d characters", ErrValidation, maxCommentLength)
	}
	return comment, nil
}

func validScore(score int) bool {
	return score >= 1 && score <= 5
}

// SubmitInternFeedback validates an intern-authored feedback and
// persists it without a grade. Eligibility is judged against the
// sender's season roster as of now; later roster changes never
// invalidate the row.
func (s *Service) SubmitInternFeedback(ctx context.Context, senderID, receiverID, comment string) (*models.Feedback, error) {
	db := s.db.WithContext(ctx)

	sender, err := models.GetUserByID(db, senderID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, fmt.Errorf("%w: sender %s", ErrNotFound, senderID)
	}

	receiver, err := models.GetUserByID(db, receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, fmt.Errorf("%w: receiver %s", ErrNotFound, receiverID)
	}

	comment, err = normalizeComment(comment)
	if err != nil {
		return nil, err
	}

	if sender.SeasonID == nil {
		return nil, fmt.Errorf("%w: sender has no active season assignment", ErrValidation)
	}

	season, err := models.GetSeasonByID(db, *sender.SeasonID)
	if err != nil {
		return nil, err
	}
	if season == nil {
		return nil, fmt.Errorf("%w: season %s", ErrNotFound, *sender.SeasonID)
	}
	if !season.WindowContains(s.nowFn()) {
		return nil, fmt.Errorf("%w: season %s is not active", ErrValidation, season.ID)
	}

	if receiver.ID == sender.ID {
		return nil, fmt.Errorf("%w: self-feedback is not allowed", ErrValidation)
	}

	sameRoster := receiver.SeasonID != nil && *receiver.SeasonID == season.ID
	if !sameRoster && !season.IsMentor(receiver.ID) {
		return nil, fmt.Errorf("%w: receiver is outside season %s", ErrForbidden, season.ID)
	}

	return s.persistFeedback(ctx, &models.Feedback{
		SeasonID:   season.ID,
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Comment:    comment,
	})
}

// SubmitMentorFeedback validates mentor-authored feedback and persists
// the feedback and its grade atomically: both rows commit or neither
// does.
func (s *Service) SubmitMentorFeedback(ctx context.Context, senderID, receiverID, comment string, careerSkills, communication, collaboration int) (*models.Feedback, error) {
	if !validScore(careerSkills) || !validScore(communication) || !validScore(collaboration) {
		return nil, fmt.Errorf("%w: scores must be between 1 and 5", ErrValidation)
	}
	comment, err := normalizeComment(comment)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	sender, err := models.GetUserByID(db, senderID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, fmt.Errorf("%w: sender %s", ErrNotFound, senderID)
	}

	receiver, err := models.GetUserByID(db, receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, fmt.Errorf("%w: receiver %s", ErrNotFound, receiverID)
	}

	// Rejected for every role, including a mentor sitting on the roster
	// of the season they mentor.
	if receiver.ID == sender.ID {
		return nil, fmt.Errorf("%w: self-feedback is not allowed", ErrValidation)
	}

	if receiver.SeasonID == nil {
		return nil, fmt.Errorf("%w: receiver is not on any roster", ErrForbidden)
	}
	season, err := models.GetSeasonByID(db, *receiver.SeasonID)
	if err != nil {
		return nil, err
	}
	if season == nil {
		return nil, fmt.Errorf("%w: season %s", ErrNotFound, *receiver.SeasonID)
	}
	if !season.IsMentor(sender.ID) {
		return nil, fmt.Errorf("%w: sender does not mentor season %s", ErrForbidden, season.ID)
	}
	if !season.WindowContains(s.nowFn()) {
		return nil, fmt.Errorf("%w: season %s is not active", ErrForbidden, season.ID)
	}

	return s.persistFeedback(ctx, &models.Feedback{
		SeasonID:   season.ID,
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Comment:    comment,
		Grade: &models.Grade{
			CareerSkills:  careerSkills,
			Communication: communication,
			Collaboration: collaboration,
		},
	})
}

func (s *Service) persistFeedback(ctx context.Context, fb *models.Feedback) (*models.Feedback, error) {
	err := s.runner.Run(ctx, func(uow *store.UnitOfWork) error {
		if err := uow.DB().Create(fb).Error; err != nil {
			return err
		}
		uow.Record(store.FeedbackCreated{
			FeedbackID:     fb.ID,
			SeasonID:       fb.SeasonID,
			ReceiverUserID: fb.ReceiverID,
			CreatedAtUTC:   fb.CreatedAt.UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fb, nil
}

// DeleteFeedback removes a feedback row and its grade. Deleting an
// absent row is a no-op.
func (s *Service) DeleteFeedback(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteFeedbackRow(tx, id)
	})
}

// Grade rows are removed explicitly so the cascade does not depend on
// the SQLite test driver enforcing foreign keys.
func deleteFeedbackRow(tx *gorm.DB, id string) error {
	if err := tx.Where("feedback_id = ?", id).Delete(&models.Grade{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Feedback{}).Error
}

// CreateDeleteRequest records a participant's or the season mentor's ask
// to remove a feedback, announcing it to the admin channel after commit.
func (s *Service) CreateDeleteRequest(ctx context.Context, feedbackID, senderID, reason string) (*models.DeleteRequest, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, fmt.Errorf("%w: reason exceeds %d characters", ErrValidation, maxReasonLength)
	}

	db := s.db.WithContext(ctx)

	var fb models.Feedback
	if err := db.Where("id = ?", feedbackID).First(&fb).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: feedback %s", ErrNotFound, feedbackID)
		}
		return nil, err
	}

	sender, err := models.GetUserByID(db, senderID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, fmt.Errorf("%w: sender %s", ErrNotFound, senderID)
	}

	if fb.SenderID != sender.ID && fb.ReceiverID != sender.ID {
		season, err := models.GetSeasonByID(db, fb.SeasonID)
		if err != nil {
			return nil, err
		}
		if season == nil || !season.IsMentor(sender.ID) {
			return nil, fmt.Errorf("%w: only participants or the season mentor may request deletion", ErrForbidden)
		}
	}

	req := &models.DeleteRequest{
		FeedbackID: fb.ID,
		SenderID:   sender.ID,
		Reason:     reason,
	}
	err = s.runner.Run(ctx, func(uow *store.UnitOfWork) error {
		if err := uow.DB().Create(req).Error; err != nil {
			return err
		}
		uow.Record(store.DeleteRequestCreated{
			DeleteRequestID: req.ID,
			FeedbackID:      req.FeedbackID,
			Reason:          req.Reason,
			CreatedAtUTC:    req.CreatedAt.UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ApproveDeleteRequest removes the request and cascades deletion of the
// feedback it points at.
func (s *Service) ApproveDeleteRequest(ctx context.Context, id string) error {
	db := s.db.WithContext(ctx)

	var req models.DeleteRequest
	if err := db.Where("id = ?", id).First(&req).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: delete request %s", ErrNotFound, id)
		}
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := deleteFeedbackRow(tx, req.FeedbackID); err != nil {
			return err
		}
		return tx.Where("id = ?", req.ID).Delete(&models.DeleteRequest{}).Error
	})
}

// RejectDeleteRequest removes only the request; the feedback stays.
func (s *Service) RejectDeleteRequest(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.DeleteRequest{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: delete request %s", ErrNotFound, id)
	}
	return nil
}
