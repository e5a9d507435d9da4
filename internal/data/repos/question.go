package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnweave/backend/internal/domain"
	"github.com/learnweave/backend/internal/platform/dbctx"
	"github.com/learnweave/backend/internal/platform/logger"
)

type QuestionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*domain.Question) ([]*domain.Question, error)
	ListByChapterID(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) ([]*domain.Question, error)
	ListByChapterIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) ([]*domain.Question, error)
	SoftDeleteByChapterID(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) error
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (r *questionRepo) Create(ctx context.Context, tx *gorm.DB, rows []*domain.Question) ([]*domain.Question, error) {
	t := dbctx.Conn(ctx, tx, r.db)
	if len(rows) == 0 {
		return []*domain.Question{}, nil
	}
	if err := t.Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *questionRepo) ListByChapterID(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) ([]*domain.Question, error) {
	if chapterID == uuid.Nil {
		return nil, nil
	}
	return r.ListByChapterIDs(ctx, tx, []uuid.UUID{chapterID})
}

func (r *questionRepo) ListByChapterIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) ([]*domain.Question, error) {
	t := dbctx.Conn(ctx, tx, r.db)
	var out []*domain.Question
	if len(chapterIDs) == 0 {
		return out, nil
	}
	if err := t.Where("chapter_id IN ?", chapterIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *questionRepo) SoftDeleteByChapterID(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) error {
	t := dbctx.Conn(ctx, tx, r.db)
	if chapterID == uuid.Nil {
		return nil
	}
	return t.Where("chapter_id = ?", chapterID).Delete(&domain.Question{}).Error
}
