package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/learnweave/backend/internal/agents"
	"github.com/learnweave/backend/internal/data/repos"
	"github.com/learnweave/backend/internal/domain"
	"github.com/learnweave/backend/internal/platform/env"
	"github.com/learnweave/backend/internal/platform/logger"
	"github.com/learnweave/backend/internal/sse"
)

// Agent is any invoker whose outcome is a normalized Result: plain text,
// structured, or validated agents all satisfy it.
type Agent interface {
	Name() string
	Run(ctx context.Context, userID string, state map[string]any, content string) agents.Result
}

// AgentSet bundles the five agents the pipeline drives.
type AgentSet struct {
	Info      Agent
	Planner   Agent
	Explainer Agent
	Tester    Agent
	Grader    Agent
}

const (
	actionCreateCourse  = "create_course"
	actionGradeQuestion = "grade_question"
)

// brokenChapterContent is persisted when a chapter's explanation never
// materialized at all.
const brokenChapterContent = "() => {<p>Something went wrong</p>}"

// CourseCreationService drives the multi-stage build of one course: plan it,
// generate every chapter in parallel, persist as it goes, and report
// progress over SSE.
type CourseCreationService struct {
	log        *logger.Logger
	runtime    agents.Runtime
	agentSet   AgentSet
	appName    string
	stateStore *CourseStateStore
	queries    *QueryBuilder
	index      ContentIndex
	images     ImageGenerator
	notifier   *CourseNotifier

	courses   repos.CourseRepo
	chapters  repos.ChapterRepo
	questions repos.QuestionRepo
	documents repos.DocumentRepo
	usage     repos.UsageLogRepo

	stageRetry agents.RetryConfig
	usageLimit int64
}

type CourseCreationDeps struct {
	Runtime    agents.Runtime
	Agents     AgentSet
	AppName    string
	StateStore *CourseStateStore
	Queries    *QueryBuilder
	Index      ContentIndex
	Images     ImageGenerator
	Notifier   *CourseNotifier
	Courses    repos.CourseRepo
	Chapters   repos.ChapterRepo
	Questions  repos.QuestionRepo
	Documents  repos.DocumentRepo
	Usage      repos.UsageLogRepo
}

func NewCourseCreationService(baseLog *logger.Logger, deps CourseCreationDeps) *CourseCreationService {
	limit := int64(env.GetAsInt("COURSE_CREATION_LIMIT", 0, baseLog))
	if limit < 0 {
		limit = 0
	}
	appName := deps.AppName
	if appName == "" {
		appName = "LearnWeave"
	}
	return &CourseCreationService{
		log:        baseLog.With("service", "CourseCreationService"),
		runtime:    deps.Runtime,
		agentSet:   deps.Agents,
		appName:    appName,
		stateStore: deps.StateStore,
		queries:    deps.Queries,
		index:      deps.Index,
		images:     deps.Images,
		notifier:   deps.Notifier,
		courses:    deps.Courses,
		chapters:   deps.Chapters,
		questions:  deps.Questions,
		documents:  deps.Documents,
		usage:      deps.Usage,
		stageRetry: agents.StageRetryConfig(),
		usageLimit: limit,
	}
}

// BeginCourse creates the pending course row the HTTP layer hands back
// immediately. The build itself runs later via CreateCourse.
func (s *CourseCreationService) BeginCourse(ctx context.Context, userID uuid.UUID, req domain.CourseRequest) (*domain.Course, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("query required")
	}

	if s.usageLimit > 0 {
		count, err := s.usage.CountByUserAndAction(ctx, nil, userID, actionCreateCourse)
		if err != nil {
			return nil, fmt.Errorf("usage count: %w", err)
		}
		if count >= s.usageLimit {
			return nil, fmt.Errorf("course creation limit of %d reached", s.usageLimit)
		}
	}

	course := &domain.Course{
		ID:             uuid.New(),
		UserID:         userID,
		Title:          req.Query,
		TotalTimeHours: req.TimeHours,
		Status:         domain.CourseStatusPending,
	}
	return s.courses.Create(ctx, nil, course)
}

// CreateCourse runs the full build for a pending course. Designed to run in
// a background goroutine with a background context; every failure path ends
// in the course row being marked failed.
func (s *CourseCreationService) CreateCourse(ctx context.Context, userID, courseID uuid.UUID, req domain.CourseRequest) {
	ctx, span := otel.Tracer("learnweave/course").Start(ctx, "course.build",
		trace.WithAttributes(attribute.String("course.id", courseID.String())))
	defer span.End()

	log := s.log.With("user_id", userID, "course_id", courseID)
	defer s.stateStore.Delete(userID, courseID)
	s.notify(ctx, userID, sse.EventCourseCreationStarted, map[string]any{"course_id": courseID})

	if err := s.buildCourse(ctx, log, userID, courseID, req); err != nil {
		log.Error("course creation failed", "error", err)
		s.markFailed(ctx, log, courseID, err)
		s.notify(ctx, userID, sse.EventCourseFailed, map[string]any{
			"course_id": courseID,
			"message":   err.Error(),
		})
		return
	}

	s.notify(ctx, userID, sse.EventCourseFinished, map[string]any{"course_id": courseID})
}

func (s *CourseCreationService) buildCourse(ctx context.Context, log *logger.Logger, userID, courseID uuid.UUID, req domain.CourseRequest) error {
	// Log usage first so abandoned builds still count against the limit.
	if err := s.logUsage(ctx, userID, &courseID, nil, actionCreateCourse, req); err != nil {
		return fmt.Errorf("log usage: %w", err)
	}

	sessionID, err := s.runtime.CreateSession(ctx, s.appName, userID.String(), map[string]any{})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	log.Info("session created", "session_id", sessionID)

	allDocs, err := s.documents.GetByIDs(ctx, nil, req.DocumentIDs)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	// Only PDFs reach the model; everything else is still bound to the course.
	pdfs := make([]*domain.Document, 0, len(allDocs))
	for _, d := range allDocs {
		if d.ContentType == "application/pdf" {
			pdfs = append(pdfs, d)
		}
	}
	log.Info("documents loaded", "total", len(allDocs), "pdfs", len(pdfs))

	if s.index != nil && len(pdfs) > 0 {
		if err := s.index.IndexCourseDocuments(ctx, courseID, pdfs); err != nil {
			return fmt.Errorf("index documents: %w", err)
		}
	}

	infoRes := s.runWithStageRetry(ctx, log, s.agentSet.Info, userID.String(), map[string]any{}, s.queries.InfoQuery(req, pdfs))
	if !infoRes.OK() {
		return fmt.Errorf("info agent: %s", infoRes.Message)
	}
	title, _ := infoRes.Payload["title"].(string)
	description, _ := infoRes.Payload["description"].(string)
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("info agent returned no title")
	}
	log.Info("course info generated", "title", title)

	imageURL := s.images.CourseCover(ctx, title, description)

	if err := s.courses.UpdateFields(ctx, nil, courseID, map[string]interface{}{
		"session_id":  sessionID,
		"title":       title,
		"description": description,
		"image_url":   imageURL,
	}); err != nil {
		return fmt.Errorf("update course: %w", err)
	}

	if err := s.stateStore.CreateState(userID, courseID, req); err != nil {
		return fmt.Errorf("create state: %w", err)
	}

	if len(allDocs) > 0 {
		ids := make([]uuid.UUID, len(allDocs))
		for i, d := range allDocs {
			ids[i] = d.ID
		}
		if err := s.documents.BindToCourse(ctx, nil, ids, courseID); err != nil {
			return fmt.Errorf("bind documents: %w", err)
		}
	}

	state, err := s.stateStore.GetState(userID, courseID)
	if err != nil {
		return err
	}
	planRes := s.runWithStageRetry(ctx, log, s.agentSet.Planner, userID.String(), stateMap(state), s.queries.PlannerQuery(req, pdfs))
	if !planRes.OK() {
		return fmt.Errorf("planner agent: %s", planRes.Message)
	}
	plan, err := decodeChapterPlans(planRes.Payload)
	if err != nil {
		return fmt.Errorf("planner agent: %w", err)
	}
	log.Info("course planned", "chapters", len(plan))

	if err := s.courses.UpdateFields(ctx, nil, courseID, map[string]interface{}{
		"chapter_count": len(plan),
	}); err != nil {
		return fmt.Errorf("update chapter count: %w", err)
	}

	if err := s.stateStore.SaveChapters(userID, courseID, plan); err != nil {
		return err
	}
	s.notify(ctx, userID, sse.EventCoursePlanReady, map[string]any{
		"course_id": courseID,
		"title":     title,
		"chapters":  len(plan),
	})

	// Chapters build in parallel and in isolation: one failing chapter is
	// logged, the rest still land, and the course finishes.
	chapterErrs := make([]error, len(plan))
	var g errgroup.Group
	for idx := range plan {
		g.Go(func() error {
			chapterErrs[idx] = s.processChapter(ctx, log, userID, courseID, title, idx)
			return nil
		})
	}
	_ = g.Wait()

	for idx, cerr := range chapterErrs {
		if cerr != nil {
			log.Error("chapter failed", "chapter", idx+1, "error", cerr)
		}
	}

	if err := s.courses.UpdateStatus(ctx, nil, courseID, domain.CourseStatusFinished); err != nil {
		return fmt.Errorf("mark finished: %w", err)
	}
	return nil
}

func (s *CourseCreationService) processChapter(ctx context.Context, log *logger.Logger, userID, courseID uuid.UUID, courseTitle string, idx int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chapter %d panicked: %v", idx+1, r)
		}
	}()

	state, err := s.stateStore.GetState(userID, courseID)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(state.Chapters) {
		return fmt.Errorf("chapter index %d out of range", idx)
	}
	topic := state.Chapters[idx]
	clog := log.With("chapter", idx+1, "caption", topic.Caption)
	clog.Info("processing chapter")

	var snippets string
	if s.index != nil {
		snippets, err = s.index.Retrieve(ctx, courseID, topic)
		if err != nil {
			clog.Warn("snippet retrieval failed, continuing without", "error", err)
			snippets = ""
		}
	}

	explainerQuery, err := s.queries.ExplainerQuery(state, idx, snippets)
	if err != nil {
		return err
	}
	explRes := s.runWithStageRetry(ctx, clog, s.agentSet.Explainer, userID.String(), stateMap(state), explainerQuery)

	content := explRes.Explanation
	if strings.TrimSpace(content) == "" {
		content = brokenChapterContent
	}

	imageURL := s.images.ChapterCover(ctx, topic.Caption, joinFirst(topic.Content, 5), courseTitle)

	// The chapter row lands before questions so a later failure still
	// leaves readable content.
	chapter, err := s.chapters.Create(ctx, nil, &domain.Chapter{
		CourseID:    courseID,
		Index:       idx + 1,
		Caption:     topic.Caption,
		Summary:     joinFirst(topic.Content, 3),
		Content:     content,
		TimeMinutes: topic.Time,
		ImageURL:    imageURL,
	})
	if err != nil {
		return fmt.Errorf("save chapter: %w", err)
	}
	clog.Info("chapter saved", "chapter_id", chapter.ID)

	if !explRes.OK() {
		return fmt.Errorf("explainer agent: %s", explRes.Message)
	}

	testerQuery, err := s.queries.TesterQuery(state, idx, explRes.Explanation)
	if err != nil {
		return err
	}
	testRes := s.runWithStageRetry(ctx, clog, s.agentSet.Tester, userID.String(), stateMap(state), testerQuery)
	if !testRes.OK() {
		return fmt.Errorf("tester agent: %s", testRes.Message)
	}

	if err := s.saveQuestions(ctx, chapter.ID, testRes.Payload); err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	clog.Info("chapter completed")

	s.notify(ctx, userID, sse.EventChapterFinished, map[string]any{
		"course_id":  courseID,
		"chapter_id": chapter.ID,
		"index":      idx + 1,
		"caption":    topic.Caption,
	})
	return nil
}

// saveQuestions persists tester output. A question carrying answer_a is
// multiple choice; otherwise it is open text.
func (s *CourseCreationService) saveQuestions(ctx context.Context, chapterID uuid.UUID, payload map[string]any) error {
	raw, ok := payload["questions"].([]any)
	if !ok {
		return fmt.Errorf("tester payload missing questions")
	}

	rows := make([]*domain.Question, 0, len(raw))
	for _, item := range raw {
		q, ok := item.(map[string]any)
		if !ok {
			continue
		}
		question := str(q["question"])
		correct := str(q["correct_answer"])
		if question == "" {
			continue
		}

		if _, mc := q["answer_a"]; mc {
			rows = append(rows, &domain.Question{
				ChapterID:     chapterID,
				Type:          domain.QuestionTypeMultipleChoice,
				Question:      question,
				AnswerA:       str(q["answer_a"]),
				AnswerB:       str(q["answer_b"]),
				AnswerC:       str(q["answer_c"]),
				AnswerD:       str(q["answer_d"]),
				CorrectAnswer: correct,
				Explanation:   str(q["explanation"]),
			})
		} else {
			rows = append(rows, &domain.Question{
				ChapterID:     chapterID,
				Type:          domain.QuestionTypeOpenText,
				Question:      question,
				CorrectAnswer: correct,
			})
		}
	}

	_, err := s.questions.Create(ctx, nil, rows)
	return err
}

// GradeQuestion grades a user's open-text answer synchronously.
func (s *CourseCreationService) GradeQuestion(ctx context.Context, userID, courseID, chapterID uuid.UUID, question, correctAnswer, usersAnswer string) (float64, string, error) {
	state, err := s.stateStore.GetState(userID, courseID)
	if err != nil && !errors.Is(err, ErrStateNotFound) {
		return 0, "", err
	}

	res := s.agentSet.Grader.Run(ctx, userID.String(), stateMap(state), s.queries.GraderQuery(question, correctAnswer, usersAnswer))
	if !res.OK() {
		return 0, "", fmt.Errorf("grader agent: %s", res.Message)
	}

	points, ok := res.Payload["points"].(float64)
	if !ok {
		return 0, "", fmt.Errorf("grader agent returned no points")
	}
	explanation := str(res.Payload["explanation"])

	if err := s.logUsage(ctx, userID, &courseID, &chapterID, actionGradeQuestion, map[string]any{
		"question":       question,
		"correct_answer": correctAnswer,
		"users_answer":   usersAnswer,
		"points":         points,
		"explanation":    explanation,
	}); err != nil {
		s.log.Warn("grading usage log failed", "error", err)
	}

	return points, explanation, nil
}

// runWithStageRetry runs an agent under the pipeline's stage retry budget.
// Retryable failure Results (rate limits, timeouts surfaced as messages)
// trigger another attempt; anything else is final.
func (s *CourseCreationService) runWithStageRetry(ctx context.Context, log *logger.Logger, agent Agent, userID string, state map[string]any, content string) agents.Result {
	var out agents.Result
	err := agents.Do(ctx, s.stageRetry, log, func(ctx context.Context) error {
		res := agent.Run(ctx, userID, state, content)
		if !res.OK() && agents.IsRetryable(errors.New(res.Message)) {
			return errors.New(res.Message)
		}
		out = res
		return nil
	})
	if err != nil {
		return agents.Errorf("%s: %s", agent.Name(), err.Error())
	}
	return out
}

func (s *CourseCreationService) markFailed(ctx context.Context, log *logger.Logger, courseID uuid.UUID, cause error) {
	course, err := s.courses.GetByID(ctx, nil, courseID)
	if err != nil || course == nil {
		log.Warn("no course row to mark failed", "error", err)
		return
	}
	if err := s.courses.UpdateFields(ctx, nil, courseID, map[string]interface{}{
		"status":    domain.CourseStatusFailed,
		"error_msg": fmt.Sprintf("Course creation failed: %s", cause),
	}); err != nil {
		log.Error("failed to mark course failed", "error", err)
	}
}

func (s *CourseCreationService) logUsage(ctx context.Context, userID uuid.UUID, courseID, chapterID *uuid.UUID, action string, detail any) error {
	raw, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	_, err = s.usage.Create(ctx, nil, &domain.UsageLog{
		UserID:    userID,
		CourseID:  courseID,
		ChapterID: chapterID,
		Action:    action,
		Detail:    datatypes.JSON(raw),
	})
	return err
}

func (s *CourseCreationService) notify(ctx context.Context, userID uuid.UUID, event sse.Event, data any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, event, data)
}

// decodeChapterPlans converts the planner's JSON payload into typed plans.
func decodeChapterPlans(payload map[string]any) ([]domain.ChapterPlan, error) {
	rawChapters, ok := payload["chapters"]
	if !ok {
		return nil, fmt.Errorf("payload missing chapters")
	}
	raw, err := json.Marshal(rawChapters)
	if err != nil {
		return nil, err
	}
	var plan []domain.ChapterPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("decode chapters: %w", err)
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("planner returned no chapters")
	}
	for i, ch := range plan {
		if strings.TrimSpace(ch.Caption) == "" {
			return nil, fmt.Errorf("chapter %d has no caption", i+1)
		}
	}
	return plan, nil
}

// stateMap renders the build state as the generic map the runtime session
// carries.
func stateMap(state domain.CourseState) map[string]any {
	raw, err := json.Marshal(state)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func joinFirst(parts []string, n int) string {
	if len(parts) < n {
		n = len(parts)
	}
	return strings.Join(parts[:n], "\n")
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
