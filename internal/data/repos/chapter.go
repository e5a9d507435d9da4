package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnweave/backend/internal/domain"
	"github.com/learnweave/backend/internal/platform/dbctx"
	"github.com/learnweave/backend/internal/platform/logger"
)

type ChapterRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *domain.Chapter) (*domain.Chapter, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Chapter, error)
	ListByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*domain.Chapter, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type chapterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChapterRepo(db *gorm.DB, baseLog *logger.Logger) ChapterRepo {
	return &chapterRepo{db: db, log: baseLog.With("repo", "ChapterRepo")}
}

func (r *chapterRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.Chapter) (*domain.Chapter, error) {
	t := dbctx.Conn(ctx, tx, r.db)
	if row == nil {
		return nil, nil
	}
	if err := t.Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *chapterRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Chapter, error) {
	t := dbctx.Conn(ctx, tx, r.db)
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*domain.Chapter
	if err := t.Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *chapterRepo) ListByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*domain.Chapter, error) {
	t := dbctx.Conn(ctx, tx, r.db)
	var out []*domain.Chapter
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := t.Where("course_id = ?", courseID).Order(`"index" ASC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chapterRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	t := dbctx.Conn(ctx, tx, r.db)
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.Model(&domain.Chapter{}).Where("id = ?", id).Updates(updates).Error
}

func (r *chapterRepo) SoftDeleteByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	t := dbctx.Conn(ctx, tx, r.db)
	if courseID == uuid.Nil {
		return nil
	}
	return t.Where("course_id = ?", courseID).Delete(&domain.Chapter{}).Error
}
