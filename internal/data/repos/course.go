package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnweave/backend/internal/domain"
	"github.com/learnweave/backend/internal/platform/dbctx"
	"github.com/learnweave/backend/internal/platform/logger"
)

type CourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *domain.Course) (*domain.Course, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Course, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*domain.Course, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status domain.CourseStatus) error
	SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.Course) (*domain.Course, error) {
	t := dbctx.Conn(ctx, tx, r.db)
	if row == nil {
		return nil, nil
	}
	if err := t.Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Course, error) {
	t := dbctx.Conn(ctx, tx, r.db)
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*domain.Course
	if err := t.Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *courseRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*domain.Course, error) {
	t := dbctx.Conn(ctx, tx, r.db)
	var out []*domain.Course
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	t := dbctx.Conn(ctx, tx, r.db)
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.Model(&domain.Course{}).Where("id = ?", id).Updates(updates).Error
}

func (r *courseRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status domain.CourseStatus) error {
	return r.UpdateFields(ctx, tx, id, map[string]interface{}{"status": status})
}

func (r *courseRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	t := dbctx.Conn(ctx, tx, r.db)
	if len(ids) == 0 {
		return nil
	}
	return t.Where("id IN ?", ids).Delete(&domain.Course{}).Error
}
