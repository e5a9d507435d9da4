package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/learnweave/backend/internal/domain"
	"github.com/learnweave/backend/internal/platform/logger"
	"github.com/learnweave/backend/internal/services"
)

type CourseHandler struct {
	log      *logger.Logger
	creation *services.CourseCreationService
	courses  services.CourseService
}

func NewCourseHandler(baseLog *logger.Logger, creation *services.CourseCreationService, courses services.CourseService) *CourseHandler {
	return &CourseHandler{
		log:      baseLog.With("handler", "CourseHandler"),
		creation: creation,
		courses:  courses,
	}
}

// CreateCourse accepts the course request, responds immediately with the
// pending course row, and runs the generation pipeline in the background.
// Progress is delivered over the SSE stream.
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	userID, err := userIDFromRequest(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "missing_user", err)
		return
	}

	var req domain.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	course, err := h.creation.BeginCourse(c.Request.Context(), userID, req)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "create_course_failed", err)
		return
	}

	go h.creation.CreateCourse(context.Background(), userID, course.ID, req)

	RespondOK(c, http.StatusAccepted, course)
}

func (h *CourseHandler) ListCourses(c *gin.Context) {
	userID, err := userIDFromRequest(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "missing_user", err)
		return
	}
	courses, err := h.courses.GetUserCourses(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "load_courses_failed", err)
		return
	}
	RespondOK(c, http.StatusOK, courses)
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	userID, err := userIDFromRequest(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "missing_user", err)
		return
	}
	courseID, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	detail, err := h.courses.GetCourseDetail(c.Request.Context(), userID, courseID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "course_not_found", err)
		return
	}
	RespondOK(c, http.StatusOK, detail)
}

type gradeRequest struct {
	CourseID      uuid.UUID `json:"course_id" binding:"required"`
	ChapterID     uuid.UUID `json:"chapter_id" binding:"required"`
	Question      string    `json:"question" binding:"required"`
	CorrectAnswer string    `json:"correct_answer" binding:"required"`
	Answer        string    `json:"answer" binding:"required"`
}

type gradeResponse struct {
	Points      float64 `json:"points"`
	Explanation string  `json:"explanation"`
}

// GradeQuestion scores a free-text answer against the question's reference
// answer using the grader agent.
func (h *CourseHandler) GradeQuestion(c *gin.Context) {
	userID, err := userIDFromRequest(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "missing_user", err)
		return
	}

	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	points, explanation, err := h.creation.GradeQuestion(
		c.Request.Context(), userID, req.CourseID, req.ChapterID,
		req.Question, req.CorrectAnswer, req.Answer,
	)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "grade_question_failed", err)
		return
	}
	RespondOK(c, http.StatusOK, gradeResponse{Points: points, Explanation: explanation})
}
