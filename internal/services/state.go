package services

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/learnweave/backend/internal/domain"
	"github.com/learnweave/backend/internal/platform/logger"
)

// ErrStateNotFound is returned when no state exists for the (user, course)
// pair, typically because CreateState was never called or the process
// restarted mid-build.
var ErrStateNotFound = fmt.Errorf("course state not found")

type stateKey struct {
	userID   uuid.UUID
	courseID uuid.UUID
}

// CourseStateStore holds per-build generation context in memory. A build's
// state is created once, its chapter plan is written once, and chapter
// workers then read it concurrently.
type CourseStateStore struct {
	mu     sync.RWMutex
	log    *logger.Logger
	states map[stateKey]*domain.CourseState
}

func NewCourseStateStore(baseLog *logger.Logger) *CourseStateStore {
	return &CourseStateStore{
		log:    baseLog.With("service", "CourseStateStore"),
		states: make(map[stateKey]*domain.CourseState),
	}
}

// CreateState registers the build context. Calling it twice for the same
// (user, course) pair is a programming error and fails loudly.
func (s *CourseStateStore) CreateState(userID, courseID uuid.UUID, req domain.CourseRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := stateKey{userID: userID, courseID: courseID}
	if _, exists := s.states[key]; exists {
		return fmt.Errorf("course state already exists for user=%s course=%s", userID, courseID)
	}
	s.states[key] = &domain.CourseState{
		Query:      req.Query,
		TimeHours:  req.TimeHours,
		Language:   req.Language,
		Difficulty: req.Difficulty,
	}
	return nil
}

func (s *CourseStateStore) GetState(userID, courseID uuid.UUID) (domain.CourseState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[stateKey{userID: userID, courseID: courseID}]
	if !ok {
		return domain.CourseState{}, fmt.Errorf("user=%s course=%s: %w", userID, courseID, ErrStateNotFound)
	}
	return *st, nil
}

// SaveChapters finalizes the chapter plan. The plan is immutable once saved:
// chapter workers index into it, so replacing it mid-build would corrupt
// their view.
func (s *CourseStateStore) SaveChapters(userID, courseID uuid.UUID, chapters []domain.ChapterPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := stateKey{userID: userID, courseID: courseID}
	st, ok := s.states[key]
	if !ok {
		return fmt.Errorf("user=%s course=%s: %w", userID, courseID, ErrStateNotFound)
	}
	if st.Chapters != nil {
		return fmt.Errorf("chapter plan already saved for user=%s course=%s", userID, courseID)
	}
	cp := make([]domain.ChapterPlan, len(chapters))
	copy(cp, chapters)
	st.Chapters = cp
	return nil
}

// Delete drops a build's state after the pipeline finishes either way.
func (s *CourseStateStore) Delete(userID, courseID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, stateKey{userID: userID, courseID: courseID})
}
