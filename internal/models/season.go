package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Season is a bounded time window with a roster of interns and an
// optional mentor. Feedback is only exchanged inside the window.
type Season struct {
	ID       string    `json:"id" gorm:"unique;not null"`
	Name     string    `gorm:"not null" json:"name" validate:"required"`
	StartsAt time.Time `gorm:"not null" json:"starts_at"`
	EndsAt   time.Time `gorm:"not null" json:"ends_at"`
	MentorID *string   `json:"mentor_id" gorm:"default:null;index"`
	Members  []User    `json:"members,omitempty" gorm:"foreignKey:SeasonID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Season) BeforeCreate(tx *gorm.DB) (err error) {
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	s.ID = uuidV7.String()
	return
}

func GetSeasonByID(db *gorm.DB, id string) (*Season, error) {
	var season Season
	result := db.Where("id = ?", id).First(&season)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &season, nil
}

// WindowContains reports whether t falls inside the season's [start, end]
// window, boundaries included.
func (s *Season) WindowContains(t time.Time) bool {
	return !t.Before(s.StartsAt) && !t.After(s.EndsAt)
}

// IsMentor reports whether userID is this season's mentor.
func (s *Season) IsMentor(userID string) bool {
	return s.MentorID != nil && *s.MentorID == userID
}

// MonthSpan is a calendar-month-aligned sub-interval [Start, End) of a
// season, indexed from 1.
type MonthSpan struct {
	Index int       `json:"index"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls in [Start, End).
func (m MonthSpan) Contains(t time.Time) bool {
	return !t.Before(m.Start) && t.Before(m.End)
}

// addCalendarMonth steps t forward one calendar month, clamping the
// day-of-month to the target month's last day on overflow
// (Jan 31 -> Feb 28/29, not Mar 2).
func addCalendarMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	lastDay := time.Date(y, m+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(y, m+1, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// MonthSpans splits the season into contiguous, non-overlapping
// calendar-month spans covering [StartsAt, EndsAt) exactly. A season
// with EndsAt <= StartsAt yields no spans.
func (s *Season) MonthSpans() []MonthSpan {
	if !s.StartsAt.Before(s.EndsAt) {
		return nil
	}

	var spans []MonthSpan
	cur := s.StartsAt
	for index := 1; cur.Before(s.EndsAt); index++ {
		next := addCalendarMonth(cur)
		end := next
		if end.After(s.EndsAt) {
			end = s.EndsAt
		}
		spans = append(spans, MonthSpan{Index: index, Start: cur, End: end})
		cur = next
	}
	return spans
}

// ProgressSpans is the "current progress" view: spans are cut off at now,
// so together they cover [StartsAt, min(EndsAt, now)). A degenerate
// season (EndsAt <= StartsAt) reports the single raw [StartsAt, EndsAt)
// span.
func (s *Season) ProgressSpans(now time.Time) []MonthSpan {
	spans := s.MonthSpans()
	if len(spans) == 0 {
		return []MonthSpan{{Index: 1, Start: s.StartsAt, End: s.EndsAt}}
	}

	var out []MonthSpan
	for _, span := range spans {
		if !span.Start.Before(now) {
			break
		}
		if span.End.After(now) {
			span.End = now
		}
		out = append(out, span)
	}
	return out
}

// SpanAt resolves a 1-based month index. ok is false when the index is
// outside the season.
func (s *Season) SpanAt(index int) (MonthSpan, bool) {
	spans := s.MonthSpans()
	if index < 1 || index > len(spans) {
		return MonthSpan{}, false
	}
	return spans[index-1], true
}
