package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mentorloop-backend/internal/models"
)

// createGradedFeedback seeds a mentor-graded feedback row with a fixed
// creation time so span filtering is deterministic.
func createGradedFeedback(t *testing.T, db *gorm.DB, season *models.Season, senderID, receiverID string, at time.Time, scores ...int) *models.Feedback {
	t.Helper()
	fb := &models.Feedback{
		SeasonID:   season.ID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Comment:    "monthly review",
		CreatedAt:  at,
	}
	if len(scores) == 3 {
		fb.Grade = &models.Grade{CareerSkills: scores[0], Communication: scores[1], Collaboration: scores[2]}
	}
	require.NoError(t, db.Create(fb).Error)
	return fb
}

func TestMonthlyAverages(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	season, mentor, a, b := seasonFixture(t, db)

	// Season runs Jan 10 - Apr 10; month 2 is [Feb 10, Mar 10).
	month1 := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	month2 := time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC)

	createGradedFeedback(t, db, season, mentor.ID, a.ID, month2, 4, 5, 3) // avg 4.0
	createGradedFeedback(t, db, season, mentor.ID, a.ID, month1, 1, 1, 1) // different month, excluded
	// Ungraded mentor comment in month 2 contributes nothing.
	createGradedFeedback(t, db, season, mentor.ID, b.ID, month2)

	page, err := svc.MonthlyAverages(context.Background(), mentor.ID, AverageParams{
		SeasonID:   season.ID,
		MonthIndex: 2,
		SortBy:     "name",
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2, "every roster intern appears, graded or not")

	alice := page.Items[0]
	assert.Equal(t, a.ID, alice.UserID)
	require.NotNil(t, alice.Average)
	assert.InDelta(t, 4.0, *alice.Average, 1e-9)
	assert.Equal(t, 1, alice.Count)

	bob := page.Items[1]
	assert.Equal(t, b.ID, bob.UserID)
	assert.Nil(t, bob.Average, "no graded feedback means no average, not zero")
	assert.Zero(t, bob.Count)
}

func TestMonthlyAverages_MeanOfPerFeedbackAverages(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	season, mentor, a, _ := seasonFixture(t, db)

	at := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	createGradedFeedback(t, db, season, mentor.ID, a.ID, at, 5, 5, 5)              // 5.0
	createGradedFeedback(t, db, season, mentor.ID, a.ID, at.Add(time.Hour), 2, 2, 2) // 2.0

	page, err := svc.MonthlyAverages(context.Background(), mentor.ID, AverageParams{SeasonID: season.ID, MonthIndex: 1})
	require.NoError(t, err)

	var alice *InternAverage
	for i := range page.Items {
		if page.Items[i].UserID == a.ID {
			alice = &page.Items[i]
		}
	}
	require.NotNil(t, alice)
	assert.InDelta(t, 3.5, *alice.Average, 1e-9)
	assert.Equal(t, 2, alice.Count)
}

func TestMonthlyAverages_SortByAverageNullsLast(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	season, mentor, a, b := seasonFixture(t, db)
	c := createUser(t, db, "Carol", models.RoleIntern, &season.ID)

	at := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	createGradedFeedback(t, db, season, mentor.ID, a.ID, at, 2, 2, 2) // 2.0
	createGradedFeedback(t, db, season, mentor.ID, c.ID, at, 5, 5, 5) // 5.0
	// b stays ungraded.

	page, err := svc.MonthlyAverages(context.Background(), mentor.ID, AverageParams{
		SeasonID: season.ID, MonthIndex: 1, SortBy: "average", SortDir: "desc",
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, c.ID, page.Items[0].UserID)
	assert.Equal(t, a.ID, page.Items[1].UserID)
	assert.Equal(t, b.ID, page.Items[2].UserID, "ungraded interns sort last even descending")

	page, err = svc.MonthlyAverages(context.Background(), mentor.ID, AverageParams{
		SeasonID: season.ID, MonthIndex: 1, SortBy: "average", SortDir: "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, a.ID, page.Items[0].UserID)
	assert.Equal(t, c.ID, page.Items[1].UserID)
	assert.Equal(t, b.ID, page.Items[2].UserID)
}

func TestMonthlyAverages_AccessAndBounds(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	season, mentor, _, _ := seasonFixture(t, db)
	stranger := createUser(t, db, "Mallory", models.RoleMentor, nil)
	ctx := context.Background()

	_, err := svc.MonthlyAverages(ctx, stranger.ID, AverageParams{SeasonID: season.ID, MonthIndex: 1})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.MonthlyAverages(ctx, mentor.ID, AverageParams{SeasonID: "no-such-season", MonthIndex: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.MonthlyAverages(ctx, mentor.ID, AverageParams{SeasonID: season.ID, MonthIndex: 0})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.MonthlyAverages(ctx, mentor.ID, AverageParams{SeasonID: season.ID, MonthIndex: 99})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMonthlyAverages_Pagination(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	season, mentor, _, _ := seasonFixture(t, db)
	createUser(t, db, "Carol", models.RoleIntern, &season.ID)
	createUser(t, db, "Dave", models.RoleIntern, &season.ID)

	page, err := svc.MonthlyAverages(context.Background(), mentor.ID, AverageParams{
		SeasonID: season.ID, MonthIndex: 1, SortBy: "name", Page: 2, PageSize: 3,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, "Dave", page.Items[0].Name)
}
