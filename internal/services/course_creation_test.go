package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/learnweave/backend/internal/agents"
	"github.com/learnweave/backend/internal/domain"
)

// ---- fakes ----

type fakeAgent struct {
	name string
	run  func(content string) agents.Result

	mu    sync.Mutex
	calls []string
}

func (a *fakeAgent) Name() string { return a.name }

func (a *fakeAgent) Run(ctx context.Context, userID string, state map[string]any, content string) agents.Result {
	a.mu.Lock()
	a.calls = append(a.calls, content)
	a.mu.Unlock()
	return a.run(content)
}

func (a *fakeAgent) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type fakeRuntime struct{ sessionErr error }

func (r *fakeRuntime) CreateSession(ctx context.Context, appName, userID string, state map[string]any) (string, error) {
	if r.sessionErr != nil {
		return "", r.sessionErr
	}
	return "session-1", nil
}

func (r *fakeRuntime) Run(ctx context.Context, sessionID, instructions, content string) (agents.EventStream, error) {
	return nil, fmt.Errorf("not used in tests")
}

type memCourseRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Course
}

func newMemCourseRepo() *memCourseRepo {
	return &memCourseRepo{rows: map[uuid.UUID]*domain.Course{}}
}

func (r *memCourseRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.Course) (*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	cp := *row
	r.rows[row.ID] = &cp
	return row, nil
}

func (r *memCourseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *memCourseRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Course
	for _, row := range r.rows {
		if row.UserID == userID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memCourseRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range updates {
		switch k {
		case "session_id":
			row.SessionID = v.(string)
		case "title":
			row.Title = v.(string)
		case "description":
			row.Description = v.(string)
		case "image_url":
			row.ImageURL = v.(string)
		case "chapter_count":
			row.ChapterCount = v.(int)
		case "status":
			row.Status = v.(domain.CourseStatus)
		case "error_msg":
			row.ErrorMsg = v.(string)
		}
	}
	return nil
}

func (r *memCourseRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status domain.CourseStatus) error {
	return r.UpdateFields(ctx, tx, id, map[string]interface{}{"status": status})
}

func (r *memCourseRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	return nil
}

type memChapterRepo struct {
	mu   sync.Mutex
	rows []*domain.Chapter
	fail map[int]error // by 1-based index
}

func newMemChapterRepo() *memChapterRepo { return &memChapterRepo{fail: map[int]error{}} }

func (r *memChapterRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.Chapter) (*domain.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[row.Index]; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	cp := *row
	r.rows = append(r.rows, &cp)
	return row, nil
}

func (r *memChapterRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Chapter, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *memChapterRepo) ListByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*domain.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Chapter, len(r.rows))
	copy(out, r.rows)
	return out, nil
}

func (r *memChapterRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (r *memChapterRepo) SoftDeleteByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	return nil
}

func (r *memChapterRepo) saved() []*domain.Chapter {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Chapter, len(r.rows))
	copy(out, r.rows)
	return out
}

type memQuestionRepo struct {
	mu   sync.Mutex
	rows []*domain.Question
}

func (r *memQuestionRepo) Create(ctx context.Context, tx *gorm.DB, rows []*domain.Question) ([]*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		cp := *row
		r.rows = append(r.rows, &cp)
	}
	return rows, nil
}

func (r *memQuestionRepo) ListByChapterID(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) ([]*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Question
	for _, q := range r.rows {
		if q.ChapterID == chapterID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *memQuestionRepo) ListByChapterIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) ([]*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(chapterIDs))
	for _, id := range chapterIDs {
		want[id] = true
	}
	var out []*domain.Question
	for _, q := range r.rows {
		if want[q.ChapterID] {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *memQuestionRepo) SoftDeleteByChapterID(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) error {
	return nil
}

func (r *memQuestionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type memDocumentRepo struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*domain.Document
	bound []uuid.UUID
}

func newMemDocumentRepo() *memDocumentRepo {
	return &memDocumentRepo{rows: map[uuid.UUID]*domain.Document{}}
}

func (r *memDocumentRepo) Create(ctx context.Context, tx *gorm.DB, rows []*domain.Document) ([]*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		r.rows[row.ID] = row
	}
	return rows, nil
}

func (r *memDocumentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Document
	for _, id := range ids {
		if d, ok := r.rows[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDocumentRepo) ListByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*domain.Document, error) {
	return nil, nil
}

func (r *memDocumentRepo) BindToCourse(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, courseID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bound = append(r.bound, ids...)
	return nil
}

type memUsageRepo struct {
	mu   sync.Mutex
	rows []*domain.UsageLog
}

func (r *memUsageRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.UsageLog) (*domain.UsageLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, row)
	return row, nil
}

func (r *memUsageRepo) CountByUserAndAction(ctx context.Context, tx *gorm.DB, userID uuid.UUID, action string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.rows {
		if u.UserID == userID && u.Action == action {
			n++
		}
	}
	return n, nil
}

type fixedImages struct{ url string }

func (f fixedImages) CourseCover(ctx context.Context, title, description string) string { return f.url }
func (f fixedImages) ChapterCover(ctx context.Context, caption, summary, courseTitle string) string {
	return f.url
}

// ---- fixture ----

type pipelineFixture struct {
	svc       *CourseCreationService
	courses   *memCourseRepo
	chapters  *memChapterRepo
	questions *memQuestionRepo
	documents *memDocumentRepo
	usage     *memUsageRepo
	info      *fakeAgent
	planner   *fakeAgent
	explainer *fakeAgent
	tester    *fakeAgent
	state     *CourseStateStore
	userID    uuid.UUID
}

func planPayload(captions ...string) agents.Result {
	chs := make([]map[string]any, len(captions))
	for i, c := range captions {
		chs[i] = map[string]any{
			"caption": c,
			"content": []any{"point one", "point two", "point three", "point four"},
			"time":    30,
		}
	}
	return agents.SuccessPayload(map[string]any{"chapters": chs})
}

func questionsPayload() agents.Result {
	return agents.SuccessPayload(map[string]any{
		"questions": []any{
			map[string]any{
				"question":       "What is X?",
				"answer_a":       "a",
				"answer_b":       "b",
				"answer_c":       "c",
				"answer_d":       "d",
				"correct_answer": "a",
				"explanation":    "because",
			},
			map[string]any{
				"question":       "Explain Y.",
				"correct_answer": "Y is ...",
			},
		},
	})
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	f := &pipelineFixture{
		courses:   newMemCourseRepo(),
		chapters:  newMemChapterRepo(),
		questions: &memQuestionRepo{},
		documents: newMemDocumentRepo(),
		usage:     &memUsageRepo{},
		userID:    uuid.New(),
	}
	f.info = &fakeAgent{name: "info", run: func(string) agents.Result {
		return agents.SuccessPayload(map[string]any{"title": "Go Basics", "description": "intro course"})
	}}
	f.planner = &fakeAgent{name: "planner", run: func(string) agents.Result {
		return planPayload("Ch One", "Ch Two", "Ch Three")
	}}
	f.explainer = &fakeAgent{name: "explainer", run: func(string) agents.Result {
		return agents.Success("() => { return <p>content</p>; }")
	}}
	f.tester = &fakeAgent{name: "tester", run: func(string) agents.Result {
		return questionsPayload()
	}}
	grader := &fakeAgent{name: "grader", run: func(string) agents.Result {
		return agents.SuccessPayload(map[string]any{"points": 7.0, "explanation": "mostly right"})
	}}

	log := testLogger(t)
	f.state = NewCourseStateStore(log)
	f.svc = NewCourseCreationService(log, CourseCreationDeps{
		Runtime: &fakeRuntime{},
		Agents: AgentSet{
			Info:      f.info,
			Planner:   f.planner,
			Explainer: f.explainer,
			Tester:    f.tester,
			Grader:    grader,
		},
		StateStore: f.state,
		Queries:    NewQueryBuilder(),
		Images:     fixedImages{url: "https://cdn.example.com/cover.png"},
		Courses:    f.courses,
		Chapters:   f.chapters,
		Questions:  f.questions,
		Documents:  f.documents,
		Usage:      f.usage,
	})
	return f
}

func (f *pipelineFixture) begin(t *testing.T, req domain.CourseRequest) *domain.Course {
	t.Helper()
	course, err := f.svc.BeginCourse(context.Background(), f.userID, req)
	require.NoError(t, err)
	return course
}

// ---- tests ----

func TestCreateCourseHappyPath(t *testing.T) {
	f := newPipelineFixture(t)
	req := domain.CourseRequest{Query: "learn go", TimeHours: 3, Language: "en", Difficulty: "beginner"}
	course := f.begin(t, req)

	f.svc.CreateCourse(context.Background(), f.userID, course.ID, req)

	saved, err := f.courses.GetByID(context.Background(), nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseStatusFinished, saved.Status)
	assert.Equal(t, "Go Basics", saved.Title)
	assert.Equal(t, 3, saved.ChapterCount)
	assert.Equal(t, "session-1", saved.SessionID)

	chapters := f.chapters.saved()
	require.Len(t, chapters, 3)
	indexes := map[int]bool{}
	for _, ch := range chapters {
		indexes[ch.Index] = true
		assert.Equal(t, "() => { return <p>content</p>; }", ch.Content)
		assert.Equal(t, "point one\npoint two\npoint three", ch.Summary)
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, indexes, "indexes are 1-based")

	assert.Equal(t, 6, f.questions.count(), "two questions per chapter")
}

func TestCreateCourseChapterIsolation(t *testing.T) {
	f := newPipelineFixture(t)
	f.explainer.run = func(content string) agents.Result {
		if strings.Contains(content, "Ch Two") {
			return agents.Errorf("explainer blew up")
		}
		return agents.Success("() => { return <p>ok</p>; }")
	}
	req := domain.CourseRequest{Query: "learn go", TimeHours: 3}
	course := f.begin(t, req)

	f.svc.CreateCourse(context.Background(), f.userID, course.ID, req)

	saved, err := f.courses.GetByID(context.Background(), nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseStatusFinished, saved.Status, "one bad chapter does not fail the course")

	byIndex := map[int]*domain.Chapter{}
	for _, ch := range f.chapters.saved() {
		byIndex[ch.Index] = ch
	}
	require.Len(t, byIndex, 3, "failed chapter still persists with fallback content")
	assert.Contains(t, byIndex[1].Content, "ok")
	assert.Contains(t, byIndex[3].Content, "ok")
	assert.Equal(t, brokenChapterContent, byIndex[2].Content)

	assert.Equal(t, 4, f.questions.count(), "no questions for the failed chapter")
}

func TestCreateCoursePlanHardFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.planner.run = func(string) agents.Result {
		return agents.SuccessPayload(map[string]any{"something": "else"})
	}
	req := domain.CourseRequest{Query: "learn go"}
	course := f.begin(t, req)

	f.svc.CreateCourse(context.Background(), f.userID, course.ID, req)

	saved, err := f.courses.GetByID(context.Background(), nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseStatusFailed, saved.Status)
	assert.Contains(t, saved.ErrorMsg, "Course creation failed")
	assert.Equal(t, 0, f.explainer.callCount(), "no chapter workers started")
	assert.Empty(t, f.chapters.saved())
}

func TestCreateCourseInfoFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.info.run = func(string) agents.Result { return agents.Errorf("model refused") }
	req := domain.CourseRequest{Query: "learn go"}
	course := f.begin(t, req)

	f.svc.CreateCourse(context.Background(), f.userID, course.ID, req)

	saved, err := f.courses.GetByID(context.Background(), nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseStatusFailed, saved.Status)
	assert.Contains(t, saved.ErrorMsg, "model refused")
}

func TestCreateCourseSessionFailureMarksFailed(t *testing.T) {
	f := newPipelineFixture(t)
	req := domain.CourseRequest{Query: "learn go"}
	course := f.begin(t, req)

	svc := f.svc
	svc.runtime = &fakeRuntime{sessionErr: fmt.Errorf("engine down")}
	svc.CreateCourse(context.Background(), f.userID, course.ID, req)

	saved, err := f.courses.GetByID(context.Background(), nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseStatusFailed, saved.Status)
	assert.Contains(t, saved.ErrorMsg, "engine down")
}

func TestCreateCourseImageBestEffort(t *testing.T) {
	f := newPipelineFixture(t)
	req := domain.CourseRequest{Query: "learn go"}
	course := f.begin(t, req)

	// the real generator falls back to a URL instead of failing; the fixture
	// generator stands in for that terminal fallback
	f.svc.images = fixedImages{url: defaultCoverURL}
	f.svc.CreateCourse(context.Background(), f.userID, course.ID, req)

	saved, err := f.courses.GetByID(context.Background(), nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseStatusFinished, saved.Status)
	assert.Equal(t, defaultCoverURL, saved.ImageURL)
}

func TestCreateCourseRetriesRetryableStageFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.svc.stageRetry = agents.RetryConfig{MaxRetries: 2, InitialDelay: 0, BackoffFactor: 2}
	calls := 0
	f.info.run = func(string) agents.Result {
		calls++
		if calls == 1 {
			return agents.Errorf("429 resource_exhausted")
		}
		return agents.SuccessPayload(map[string]any{"title": "T", "description": "D"})
	}
	req := domain.CourseRequest{Query: "learn go"}
	course := f.begin(t, req)

	f.svc.CreateCourse(context.Background(), f.userID, course.ID, req)

	saved, err := f.courses.GetByID(context.Background(), nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseStatusFinished, saved.Status)
	assert.Equal(t, 2, calls)
}

func TestBeginCourseUsageLimit(t *testing.T) {
	f := newPipelineFixture(t)
	f.svc.usageLimit = 1

	req := domain.CourseRequest{Query: "learn go"}
	course := f.begin(t, req)
	f.svc.CreateCourse(context.Background(), f.userID, course.ID, req)

	_, err := f.svc.BeginCourse(context.Background(), f.userID, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestBeginCourseRequiresQuery(t *testing.T) {
	f := newPipelineFixture(t)
	_, err := f.svc.BeginCourse(context.Background(), f.userID, domain.CourseRequest{})
	require.Error(t, err)
}

func TestCreateCourseDropsBuildState(t *testing.T) {
	f := newPipelineFixture(t)
	req := domain.CourseRequest{Query: "learn go"}
	course := f.begin(t, req)

	f.svc.CreateCourse(context.Background(), f.userID, course.ID, req)

	_, err := f.state.GetState(f.userID, course.ID)
	require.ErrorIs(t, err, ErrStateNotFound)

	// Failed builds release their state slot too.
	f.planner.run = func(string) agents.Result {
		return agents.SuccessPayload(map[string]any{})
	}
	failed := f.begin(t, req)
	f.svc.CreateCourse(context.Background(), f.userID, failed.ID, req)
	_, err = f.state.GetState(f.userID, failed.ID)
	require.ErrorIs(t, err, ErrStateNotFound)
}

func TestGradeQuestion(t *testing.T) {
	f := newPipelineFixture(t)
	req := domain.CourseRequest{Query: "learn go"}
	course := f.begin(t, req)
	f.svc.CreateCourse(context.Background(), f.userID, course.ID, req)

	points, explanation, err := f.svc.GradeQuestion(
		context.Background(), f.userID, course.ID, uuid.New(),
		"Explain Y.", "Y is ...", "Y might be ...",
	)
	require.NoError(t, err)
	assert.Equal(t, 7.0, points)
	assert.Equal(t, "mostly right", explanation)

	n, err := f.usage.CountByUserAndAction(context.Background(), nil, f.userID, actionGradeQuestion)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSaveQuestionsTyping(t *testing.T) {
	f := newPipelineFixture(t)
	chapterID := uuid.New()
	res := questionsPayload()
	require.NoError(t, f.svc.saveQuestions(context.Background(), chapterID, res.Payload))

	rows, err := f.questions.ListByChapterID(context.Background(), nil, chapterID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	types := map[domain.QuestionType]int{}
	for _, q := range rows {
		types[q.Type]++
	}
	assert.Equal(t, 1, types[domain.QuestionTypeMultipleChoice])
	assert.Equal(t, 1, types[domain.QuestionTypeOpenText])
}

