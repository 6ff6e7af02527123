package feedback

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"mentorloop-backend/internal/models"
)

// SearchParams scopes a classified feedback search.
type SearchParams struct {
	SeasonID   string
	Type       models.FeedbackType
	SortDir    string // "asc" or "desc" on created_at
	MonthIndex int    // 0 means the whole season
	Page       int
	PageSize   int
}

// Search returns the season's feedback rows matching the classification
// filter, optionally clipped to one month span. Admin callers may
// search any season; mentor callers only seasons they own.
func (s *Service) Search(ctx context.Context, caller *models.User, p SearchParams) (Page[models.Feedback], error) {
	var empty Page[models.Feedback]
	db := s.db.WithContext(ctx)

	season, err := models.GetSeasonByID(db, p.SeasonID)
	if err != nil {
		return empty, err
	}
	if season == nil {
		return empty, fmt.Errorf("%w: season %s", ErrNotFound, p.SeasonID)
	}

	switch caller.Role {
	case models.RoleAdmin:
		// any season
	case models.RoleMentor:
		if !season.IsMentor(caller.ID) {
			return empty, fmt.Errorf("%w: caller does not mentor season %s", ErrForbidden, season.ID)
		}
	default:
		return empty, fmt.Errorf("%w: role %s cannot search feedback", ErrForbidden, caller.Role)
	}

	query := db.Model(&models.Feedback{}).Where("season_id = ?", season.ID)
	query, err = applyTypeFilter(query, season, p.Type)
	if err != nil {
		return empty, err
	}

	if p.MonthIndex > 0 {
		span, ok := season.SpanAt(p.MonthIndex)
		if !ok {
			return empty, fmt.Errorf("%w: month index %d is outside season %s", ErrValidation, p.MonthIndex, season.ID)
		}
		query = query.Where("created_at >= ? AND created_at < ?", span.Start, span.End)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return empty, err
	}

	page, pageSize := normalizePaging(p.Page, p.PageSize)
	order := "created_at ASC"
	if strings.EqualFold(p.SortDir, "desc") {
		order = "created_at DESC"
	}

	var items []models.Feedback
	err = query.Preload("Grade").
		Order(order).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return empty, err
	}

	return Page[models.Feedback]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// applyTypeFilter narrows the query to one classification bucket
// relative to the season's mentor. The three buckets partition every
// row of the season; "all" applies no filter. A season without a mentor
// has every row in the i2i bucket.
func applyTypeFilter(query *gorm.DB, season *models.Season, ftype models.FeedbackType) (*gorm.DB, error) {
	if ftype == "" || ftype == models.FeedbackAll {
		return query, nil
	}

	if season.MentorID == nil {
		if ftype == models.FeedbackInternIntern {
			return query, nil
		}
		// No mentor: the mentor-relative buckets are empty.
		return query.Where("1 = 0"), nil
	}

	mentorID := *season.MentorID
	switch ftype {
	case models.FeedbackInternIntern:
		return query.Where("sender_id <> ? AND receiver_id <> ?", mentorID, mentorID), nil
	case models.FeedbackInternMentor:
		return query.Where("sender_id <> ? AND receiver_id = ?", mentorID, mentorID), nil
	case models.FeedbackMentorIntern:
		return query.Where("sender_id = ?", mentorID), nil
	default:
		return nil, fmt.Errorf("%w: unknown feedback type %q", ErrValidation, ftype)
	}
}
