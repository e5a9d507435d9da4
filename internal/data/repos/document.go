package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnweave/backend/internal/domain"
	"github.com/learnweave/backend/internal/platform/dbctx"
	"github.com/learnweave/backend/internal/platform/logger"
)

type DocumentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*domain.Document) ([]*domain.Document, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*domain.Document, error)
	ListByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*domain.Document, error)
	BindToCourse(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, courseID uuid.UUID) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(ctx context.Context, tx *gorm.DB, rows []*domain.Document) ([]*domain.Document, error) {
	t := dbctx.Conn(ctx, tx, r.db)
	if len(rows) == 0 {
		return []*domain.Document{}, nil
	}
	if err := t.Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *documentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*domain.Document, error) {
	t := dbctx.Conn(ctx, tx, r.db)
	var out []*domain.Document
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) ListByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*domain.Document, error) {
	t := dbctx.Conn(ctx, tx, r.db)
	var out []*domain.Document
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := t.Where("course_id = ?", courseID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) BindToCourse(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, courseID uuid.UUID) error {
	t := dbctx.Conn(ctx, tx, r.db)
	if len(ids) == 0 || courseID == uuid.Nil {
		return nil
	}
	return t.Model(&domain.Document{}).
		Where("id IN ?", ids).
		Update("course_id", courseID).Error
}
