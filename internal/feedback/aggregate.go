package feedback

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"mentorloop-backend/internal/models"
)

// InternAverage is one roster intern's mean grade within a month span.
// Average is nil when the mentor graded nothing for them in the span,
// which is distinct from an average that happens to be some value.
type InternAverage struct {
	UserID  string   `json:"userId"`
	Name    string   `json:"name"`
	Average *float64 `json:"average"`
	Count   int      `json:"count"`
}

// AverageParams scopes a monthly aggregation request.
type AverageParams struct {
	SeasonID   string
	MonthIndex int
	SortBy     string // "name" or "average"
	SortDir    string // "asc" or "desc"
	Page       int
	PageSize   int
}

// MonthlyAverages computes, for every roster intern of the mentor's
// season, the mean of (careerSkills+communication+collaboration)/3
// across all grade-bearing feedback the mentor sent them inside the
// requested month span.
func (s *Service) MonthlyAverages(ctx context.Context, mentorID string, p AverageParams) (Page[InternAverage], error) {
	var empty Page[InternAverage]
	db := s.db.WithContext(ctx)

	season, err := models.GetSeasonByID(db, p.SeasonID)
	if err != nil {
		return empty, err
	}
	if season == nil {
		return empty, fmt.Errorf("%w: season %s", ErrNotFound, p.SeasonID)
	}
	if !season.IsMentor(mentorID) {
		return empty, fmt.Errorf("%w: caller does not mentor season %s", ErrForbidden, season.ID)
	}

	span, ok := season.SpanAt(p.MonthIndex)
	if !ok {
		return empty, fmt.Errorf("%w: month index %d is outside season %s", ErrValidation, p.MonthIndex, season.ID)
	}

	var roster []models.User
	if err := db.Where("season_id = ? AND id <> ?", season.ID, mentorID).Find(&roster).Error; err != nil {
		return empty, err
	}

	var graded []models.Feedback
	err = db.Preload("Grade").
		Joins("JOIN grades ON grades.feedback_id = feedbacks.id").
		Where("feedbacks.season_id = ? AND feedbacks.sender_id = ?", season.ID, mentorID).
		Where("feedbacks.created_at >= ? AND feedbacks.created_at < ?", span.Start, span.End).
		Find(&graded).Error
	if err != nil {
		return empty, err
	}

	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[string]*bucket, len(roster))
	for _, fb := range graded {
		if fb.Grade == nil {
			continue
		}
		b := buckets[fb.ReceiverID]
		if b == nil {
			b = &bucket{}
			buckets[fb.ReceiverID] = b
		}
		b.sum += fb.Grade.Average()
		b.count++
	}

	rows := make([]InternAverage, 0, len(roster))
	for _, intern := range roster {
		row := InternAverage{UserID: intern.ID, Name: intern.GetDisplayName()}
		if b := buckets[intern.ID]; b != nil && b.count > 0 {
			avg := b.sum / float64(b.count)
			row.Average = &avg
			row.Count = b.count
		}
		rows = append(rows, row)
	}

	sortAverages(rows, p.SortBy, p.SortDir)
	return paginate(rows, p.Page, p.PageSize), nil
}

// sortAverages orders rows by name or average. Rows without an average
// always sort last regardless of direction.
func sortAverages(rows []InternAverage, sortBy, sortDir string) {
	desc := strings.EqualFold(sortDir, "desc")

	less := func(a, b InternAverage) bool {
		if desc {
			return a.Name > b.Name
		}
		return a.Name < b.Name
	}
	if strings.EqualFold(sortBy, "average") {
		less = func(a, b InternAverage) bool {
			switch {
			case a.Average == nil && b.Average == nil:
				return a.Name < b.Name
			case a.Average == nil:
				return false
			case b.Average == nil:
				return true
			case desc:
				return *a.Average > *b.Average
			default:
				return *a.Average < *b.Average
			}
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
}
