package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/learnweave/backend/internal/data/repos/testutil"
	"github.com/learnweave/backend/internal/domain"
)

func TestUsageLogRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewUsageLogRepo(db, testutil.Logger(t))

	userID := uuid.New()
	courseID := uuid.New()
	for i := 0; i < 3; i++ {
		row := &domain.UsageLog{
			ID:       uuid.New(),
			UserID:   userID,
			CourseID: &courseID,
			Action:   "create_course",
			Detail:   datatypes.JSON([]byte(`{"query":"graphs"}`)),
		}
		if _, err := repo.Create(ctx, tx, row); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	n, err := repo.CountByUserAndAction(ctx, tx, userID, "create_course")
	if err != nil || n != 3 {
		t.Fatalf("CountByUserAndAction: err=%v n=%d", err, n)
	}
	n, err = repo.CountByUserAndAction(ctx, tx, userID, "grade_question")
	if err != nil || n != 0 {
		t.Fatalf("CountByUserAndAction (other action): err=%v n=%d", err, n)
	}
}
