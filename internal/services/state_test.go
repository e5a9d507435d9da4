package services

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnweave/backend/internal/domain"
	"github.com/learnweave/backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestStateStoreCreateAndGet(t *testing.T) {
	s := NewCourseStateStore(testLogger(t))
	userID, courseID := uuid.New(), uuid.New()

	req := domain.CourseRequest{Query: "learn go", TimeHours: 4, Language: "en", Difficulty: "beginner"}
	require.NoError(t, s.CreateState(userID, courseID, req))

	st, err := s.GetState(userID, courseID)
	require.NoError(t, err)
	assert.Equal(t, "learn go", st.Query)
	assert.Equal(t, 4.0, st.TimeHours)
	assert.Nil(t, st.Chapters)
}

func TestStateStoreCreateTwiceFails(t *testing.T) {
	s := NewCourseStateStore(testLogger(t))
	userID, courseID := uuid.New(), uuid.New()

	require.NoError(t, s.CreateState(userID, courseID, domain.CourseRequest{}))
	assert.Error(t, s.CreateState(userID, courseID, domain.CourseRequest{}))
}

func TestStateStoreGetMissing(t *testing.T) {
	s := NewCourseStateStore(testLogger(t))
	_, err := s.GetState(uuid.New(), uuid.New())
	require.ErrorIs(t, err, ErrStateNotFound)
}

func TestStateStoreSaveChaptersWriteOnce(t *testing.T) {
	s := NewCourseStateStore(testLogger(t))
	userID, courseID := uuid.New(), uuid.New()
	require.NoError(t, s.CreateState(userID, courseID, domain.CourseRequest{}))

	plan := []domain.ChapterPlan{{Caption: "Intro", Time: 30}}
	require.NoError(t, s.SaveChapters(userID, courseID, plan))
	assert.Error(t, s.SaveChapters(userID, courseID, plan), "plan is immutable once saved")

	st, err := s.GetState(userID, courseID)
	require.NoError(t, err)
	require.Len(t, st.Chapters, 1)
	assert.Equal(t, "Intro", st.Chapters[0].Caption)
}

func TestStateStoreSaveChaptersWithoutState(t *testing.T) {
	s := NewCourseStateStore(testLogger(t))
	err := s.SaveChapters(uuid.New(), uuid.New(), nil)
	require.ErrorIs(t, err, ErrStateNotFound)
}

func TestStateStoreSaveChaptersCopiesSlice(t *testing.T) {
	s := NewCourseStateStore(testLogger(t))
	userID, courseID := uuid.New(), uuid.New()
	require.NoError(t, s.CreateState(userID, courseID, domain.CourseRequest{}))

	plan := []domain.ChapterPlan{{Caption: "Intro"}}
	require.NoError(t, s.SaveChapters(userID, courseID, plan))
	plan[0].Caption = "mutated"

	st, err := s.GetState(userID, courseID)
	require.NoError(t, err)
	assert.Equal(t, "Intro", st.Chapters[0].Caption)
}

func TestStateStoreConcurrentReads(t *testing.T) {
	s := NewCourseStateStore(testLogger(t))
	userID, courseID := uuid.New(), uuid.New()
	require.NoError(t, s.CreateState(userID, courseID, domain.CourseRequest{Query: "q"}))
	require.NoError(t, s.SaveChapters(userID, courseID, []domain.ChapterPlan{{Caption: "a"}, {Caption: "b"}}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := s.GetState(userID, courseID)
			assert.NoError(t, err)
			assert.Len(t, st.Chapters, 2)
		}()
	}
	wg.Wait()
}

func TestStateStoreDelete(t *testing.T) {
	s := NewCourseStateStore(testLogger(t))
	userID, courseID := uuid.New(), uuid.New()
	require.NoError(t, s.CreateState(userID, courseID, domain.CourseRequest{}))

	s.Delete(userID, courseID)
	_, err := s.GetState(userID, courseID)
	require.ErrorIs(t, err, ErrStateNotFound)

	require.NoError(t, s.CreateState(userID, courseID, domain.CourseRequest{}), "slot is reusable after delete")
}
