package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/learnweave/backend/internal/domain"
)

func newCourseServiceFixture(t *testing.T) (CourseService, *memCourseRepo, *memChapterRepo, *memQuestionRepo) {
	t.Helper()
	courses := newMemCourseRepo()
	chapters := newMemChapterRepo()
	questions := &memQuestionRepo{}
	svc := NewCourseService(testLogger(t), courses, chapters, questions)
	return svc, courses, chapters, questions
}

func TestGetCourseDetailMissingCourse(t *testing.T) {
	svc, _, _, _ := newCourseServiceFixture(t)

	// A lookup miss comes back as a nil row, not an error.
	detail, err := svc.GetCourseDetail(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
	require.Nil(t, detail)
}

func TestGetCourseDetailWrongOwner(t *testing.T) {
	svc, courses, _, _ := newCourseServiceFixture(t)

	owner := uuid.New()
	course, err := courses.Create(context.Background(), nil, &domain.Course{UserID: owner, Title: "Go Basics"})
	require.NoError(t, err)

	_, err = svc.GetCourseDetail(context.Background(), uuid.New(), course.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not belong")
}

func TestGetCourseDetail(t *testing.T) {
	svc, courses, chapters, questions := newCourseServiceFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	course, err := courses.Create(ctx, nil, &domain.Course{UserID: userID, Title: "Go Basics"})
	require.NoError(t, err)

	ch1, err := chapters.Create(ctx, nil, &domain.Chapter{CourseID: course.ID, Index: 1, Caption: "Syntax"})
	require.NoError(t, err)
	ch2, err := chapters.Create(ctx, nil, &domain.Chapter{CourseID: course.ID, Index: 2, Caption: "Types"})
	require.NoError(t, err)

	_, err = questions.Create(ctx, nil, []*domain.Question{
		{ChapterID: ch1.ID, Type: domain.QuestionTypeMultipleChoice, Question: "q1", CorrectAnswer: "a"},
		{ChapterID: ch1.ID, Type: domain.QuestionTypeOpenText, Question: "q2", CorrectAnswer: "because"},
		{ChapterID: ch2.ID, Type: domain.QuestionTypeOpenText, Question: "q3", CorrectAnswer: "because"},
	})
	require.NoError(t, err)

	detail, err := svc.GetCourseDetail(ctx, userID, course.ID)
	require.NoError(t, err)
	require.Equal(t, "Go Basics", detail.Course.Title)
	require.Len(t, detail.Chapters, 2)
	require.Len(t, detail.Question[ch1.ID.String()], 2)
	require.Len(t, detail.Question[ch2.ID.String()], 1)
}

func TestGetUserCourses(t *testing.T) {
	svc, courses, _, _ := newCourseServiceFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	_, err := courses.Create(ctx, nil, &domain.Course{UserID: userID, Title: "Go Basics"})
	require.NoError(t, err)
	_, err = courses.Create(ctx, nil, &domain.Course{UserID: uuid.New(), Title: "Someone else's"})
	require.NoError(t, err)

	out, err := svc.GetUserCourses(ctx, userID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "Go Basics", out[0].Title)
}
