package services

import (
	"fmt"
	"strings"

	"github.com/learnweave/backend/internal/domain"
)

// QueryBuilder assembles the per-agent prompts from the request and the
// build state. Kept free of I/O so prompt shapes are trivially testable.
type QueryBuilder struct{}

func NewQueryBuilder() *QueryBuilder { return &QueryBuilder{} }

func (q *QueryBuilder) InfoQuery(req domain.CourseRequest, docs []*domain.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a short title and description for a course about: %s\n", req.Query)
	fmt.Fprintf(&b, "The course takes %.1f hours, is written in %s and targets %s learners.\n",
		req.TimeHours, languageName(req.Language), req.Difficulty)
	writeDocList(&b, docs)
	return b.String()
}

func (q *QueryBuilder) PlannerQuery(req domain.CourseRequest, docs []*domain.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a course about: %s\n", req.Query)
	fmt.Fprintf(&b, "Total time budget: %.1f hours. Language: %s. Difficulty: %s.\n",
		req.TimeHours, languageName(req.Language), req.Difficulty)
	b.WriteString("Split the course into chapters that together fit the time budget.\n")
	writeDocList(&b, docs)
	return b.String()
}

func (q *QueryBuilder) ExplainerQuery(state domain.CourseState, chapterIdx int, snippets string) (string, error) {
	if chapterIdx < 0 || chapterIdx >= len(state.Chapters) {
		return "", fmt.Errorf("chapter index %d out of range (%d planned)", chapterIdx, len(state.Chapters))
	}
	topic := state.Chapters[chapterIdx]

	var b strings.Builder
	fmt.Fprintf(&b, "Write the learning content for chapter %d: %s\n", chapterIdx+1, topic.Caption)
	if len(topic.Content) > 0 {
		b.WriteString("Cover the following points:\n")
		for _, p := range topic.Content {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	if topic.Note != "" {
		fmt.Fprintf(&b, "Note from the planner: %s\n", topic.Note)
	}
	fmt.Fprintf(&b, "The chapter should take about %d minutes. Language: %s. Difficulty: %s.\n",
		topic.Time, languageName(state.Language), state.Difficulty)
	if strings.TrimSpace(snippets) != "" {
		b.WriteString("Use the following excerpts from the user's own documents where relevant:\n")
		b.WriteString(snippets)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (q *QueryBuilder) TesterQuery(state domain.CourseState, chapterIdx int, explanation string) (string, error) {
	if chapterIdx < 0 || chapterIdx >= len(state.Chapters) {
		return "", fmt.Errorf("chapter index %d out of range (%d planned)", chapterIdx, len(state.Chapters))
	}
	topic := state.Chapters[chapterIdx]

	var b strings.Builder
	fmt.Fprintf(&b, "Create quiz questions for chapter %d: %s\n", chapterIdx+1, topic.Caption)
	fmt.Fprintf(&b, "Language: %s. Difficulty: %s.\n", languageName(state.Language), state.Difficulty)
	b.WriteString("The chapter content is:\n")
	b.WriteString(explanation)
	b.WriteString("\n")
	return b.String(), nil
}

func (q *QueryBuilder) GraderQuery(question, correctAnswer, usersAnswer string) string {
	var b strings.Builder
	b.WriteString("Grade the user's answer to an open question.\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	fmt.Fprintf(&b, "Reference answer: %s\n", correctAnswer)
	fmt.Fprintf(&b, "User's answer: %s\n", usersAnswer)
	return b.String()
}

func writeDocList(b *strings.Builder, docs []*domain.Document) {
	if len(docs) == 0 {
		return
	}
	b.WriteString("The user provided the following documents as source material:\n")
	for _, d := range docs {
		fmt.Fprintf(b, "- %s\n", d.Name)
	}
}

// languageName maps short codes to names the models respond to more
// reliably; unknown values pass through.
func languageName(code string) string {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "", "en", "english":
		return "English"
	case "de", "german":
		return "German"
	case "fr", "french":
		return "French"
	case "es", "spanish":
		return "Spanish"
	default:
		return code
	}
}
