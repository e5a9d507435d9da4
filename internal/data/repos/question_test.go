package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/learnweave/backend/internal/data/repos/testutil"
	"github.com/learnweave/backend/internal/domain"
)

func TestQuestionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewQuestionRepo(db, testutil.Logger(t))

	chapterID := uuid.New()
	otherChapterID := uuid.New()
	rows := []*domain.Question{
		{
			ID:            uuid.New(),
			ChapterID:     chapterID,
			Type:          domain.QuestionTypeMultipleChoice,
			Question:      "Which traversal visits neighbors first?",
			AnswerA:       "BFS",
			AnswerB:       "DFS",
			AnswerC:       "Dijkstra",
			AnswerD:       "A*",
			CorrectAnswer: "A",
			Explanation:   "BFS explores level by level.",
		},
		{
			ID:            uuid.New(),
			ChapterID:     chapterID,
			Type:          domain.QuestionTypeOpenText,
			Question:      "Explain the difference between BFS and DFS.",
			CorrectAnswer: "BFS is level-order, DFS goes deep first.",
		},
		{
			ID:            uuid.New(),
			ChapterID:     otherChapterID,
			Type:          domain.QuestionTypeOpenText,
			Question:      "What is a spanning tree?",
			CorrectAnswer: "A connected acyclic subgraph covering all vertices.",
		},
	}
	if _, err := repo.Create(ctx, tx, rows); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.ListByChapterID(ctx, tx, chapterID)
	if err != nil || len(got) != 2 {
		t.Fatalf("ListByChapterID: err=%v len=%d", err, len(got))
	}
	var mc, open int
	for _, q := range got {
		switch q.Type {
		case domain.QuestionTypeMultipleChoice:
			mc++
		case domain.QuestionTypeOpenText:
			open++
		}
	}
	if mc != 1 || open != 1 {
		t.Fatalf("question type split: mc=%d open=%d", mc, open)
	}

	if got, err := repo.ListByChapterIDs(ctx, tx, []uuid.UUID{chapterID, otherChapterID}); err != nil || len(got) != 3 {
		t.Fatalf("ListByChapterIDs: err=%v len=%d", err, len(got))
	}

	if err := repo.SoftDeleteByChapterID(ctx, tx, chapterID); err != nil {
		t.Fatalf("SoftDeleteByChapterID: %v", err)
	}
	if got, err := repo.ListByChapterID(ctx, tx, chapterID); err != nil || len(got) != 0 {
		t.Fatalf("after SoftDeleteByChapterID: err=%v len=%d", err, len(got))
	}
}
