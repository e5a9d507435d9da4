package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/learnweave/backend/internal/data/repos/testutil"
	"github.com/learnweave/backend/internal/domain"
)

func TestCourseRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewCourseRepo(db, testutil.Logger(t))

	userID := uuid.New()
	c := &domain.Course{
		ID:     uuid.New(),
		UserID: userID,
		Title:  "Graph Algorithms",
		Status: domain.CourseStatusPending,
	}
	if _, err := repo.Create(ctx, tx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, tx, c.ID)
	if err != nil || got == nil || got.ID != c.ID {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got.Status != domain.CourseStatusPending {
		t.Fatalf("expected pending status, got %q", got.Status)
	}

	if rows, err := repo.ListByUserID(ctx, tx, userID); err != nil || len(rows) != 1 {
		t.Fatalf("ListByUserID: err=%v len=%d", err, len(rows))
	}

	if err := repo.UpdateFields(ctx, tx, c.ID, map[string]interface{}{
		"title":         "Graph Algorithms in Depth",
		"chapter_count": 4,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err = repo.GetByID(ctx, tx, c.ID)
	if err != nil || got == nil || got.ChapterCount != 4 {
		t.Fatalf("after UpdateFields: got=%v err=%v", got, err)
	}

	if err := repo.UpdateStatus(ctx, tx, c.ID, domain.CourseStatusFinished); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ = repo.GetByID(ctx, tx, c.ID)
	if got.Status != domain.CourseStatusFinished {
		t.Fatalf("expected finished status, got %q", got.Status)
	}

	if err := repo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{c.ID}); err != nil {
		t.Fatalf("SoftDeleteByIDs: %v", err)
	}
	if got, err := repo.GetByID(ctx, tx, c.ID); err != nil || got != nil {
		t.Fatalf("after SoftDeleteByIDs GetByID: got=%v err=%v", got, err)
	}
}
