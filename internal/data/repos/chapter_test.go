package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/learnweave/backend/internal/data/repos/testutil"
	"github.com/learnweave/backend/internal/domain"
)

func TestChapterRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewChapterRepo(db, testutil.Logger(t))

	courseID := uuid.New()
	ch1 := &domain.Chapter{ID: uuid.New(), CourseID: courseID, Index: 1, Caption: "Intro", TimeMinutes: 20}
	ch2 := &domain.Chapter{ID: uuid.New(), CourseID: courseID, Index: 2, Caption: "BFS", TimeMinutes: 40}
	for _, ch := range []*domain.Chapter{ch2, ch1} {
		if _, err := repo.Create(ctx, tx, ch); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := repo.GetByID(ctx, tx, ch1.ID)
	if err != nil || got == nil || got.Caption != "Intro" {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}

	rows, err := repo.ListByCourseID(ctx, tx, courseID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByCourseID: err=%v len=%d", err, len(rows))
	}
	// ordered by index regardless of insertion order
	if rows[0].Index != 1 || rows[1].Index != 2 {
		t.Fatalf("ListByCourseID order: got %d,%d", rows[0].Index, rows[1].Index)
	}

	if err := repo.UpdateFields(ctx, tx, ch1.ID, map[string]interface{}{"content": "<p>hello</p>"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	if err := repo.SoftDeleteByCourseID(ctx, tx, courseID); err != nil {
		t.Fatalf("SoftDeleteByCourseID: %v", err)
	}
	if rows, err := repo.ListByCourseID(ctx, tx, courseID); err != nil || len(rows) != 0 {
		t.Fatalf("after SoftDeleteByCourseID: err=%v len=%d", err, len(rows))
	}

	// (course_id, index) stays unique across soft-deleted rows; the failed
	// insert aborts the tx, so this check is last.
	dup := &domain.Chapter{ID: uuid.New(), CourseID: courseID, Index: 1, Caption: "Dup"}
	if _, err := repo.Create(ctx, tx, dup); err == nil {
		t.Fatalf("expected unique violation for duplicate (course_id, index)")
	}
}
