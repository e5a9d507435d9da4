package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/learnweave/backend/internal/data/repos"
	"github.com/learnweave/backend/internal/domain"
	"github.com/learnweave/backend/internal/platform/logger"
)

// CourseService is the read side of the course catalog.
type CourseService interface {
	GetUserCourses(ctx context.Context, userID uuid.UUID) ([]*domain.Course, error)
	GetCourseDetail(ctx context.Context, userID, courseID uuid.UUID) (*CourseDetail, error)
}

type CourseDetail struct {
	Course   *domain.Course              `json:"course"`
	Chapters []*domain.Chapter           `json:"chapters"`
	Question map[string][]*domain.Question `json:"questions"`
}

type courseService struct {
	log       *logger.Logger
	courses   repos.CourseRepo
	chapters  repos.ChapterRepo
	questions repos.QuestionRepo
}

func NewCourseService(baseLog *logger.Logger, courses repos.CourseRepo, chapters repos.ChapterRepo, questions repos.QuestionRepo) CourseService {
	return &courseService{
		log:       baseLog.With("service", "CourseService"),
		courses:   courses,
		chapters:  chapters,
		questions: questions,
	}
}

func (s *courseService) GetUserCourses(ctx context.Context, userID uuid.UUID) ([]*domain.Course, error) {
	return s.courses.ListByUserID(ctx, nil, userID)
}

func (s *courseService) GetCourseDetail(ctx context.Context, userID, courseID uuid.UUID) (*CourseDetail, error) {
	course, err := s.courses.GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, fmt.Errorf("course %s not found", courseID)
	}
	if course.UserID != userID {
		return nil, fmt.Errorf("course %s does not belong to user %s", courseID, userID)
	}

	chapters, err := s.chapters.ListByCourseID(ctx, nil, courseID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(chapters))
	for i, ch := range chapters {
		ids[i] = ch.ID
	}
	questions, err := s.questions.ListByChapterIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	byChapter := make(map[string][]*domain.Question, len(chapters))
	for _, q := range questions {
		key := q.ChapterID.String()
		byChapter[key] = append(byChapter[key], q)
	}

	return &CourseDetail{Course: course, Chapters: chapters, Question: byChapter}, nil
}
