package domain

import "github.com/google/uuid"

// Pure JSON contracts for course generation. Not DB models.

// CourseRequest is the user's course-creation input as received by the API.
type CourseRequest struct {
	Query       string      `json:"query"`
	TimeHours   float64     `json:"time_hours"`
	Language    string      `json:"language"`
	Difficulty  string      `json:"difficulty"`
	DocumentIDs []uuid.UUID `json:"document_ids,omitempty"`
}

// ChapterPlan is one planned chapter as produced by the planner agent.
// Immutable once the plan is saved to course state.
type ChapterPlan struct {
	Caption string   `json:"caption"`
	Content []string `json:"content"`
	Time    int      `json:"time"`
	Note    string   `json:"note,omitempty"`
}

// CourseState is the per-(user, course) context threaded through every
// generation stage. Chapters is assigned exactly once by the planning stage.
type CourseState struct {
	Query      string        `json:"query"`
	TimeHours  float64       `json:"time_hours"`
	Language   string        `json:"language"`
	Difficulty string        `json:"difficulty"`
	Chapters   []ChapterPlan `json:"chapters,omitempty"`
}
