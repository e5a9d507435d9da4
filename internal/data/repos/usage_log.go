package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnweave/backend/internal/domain"
	"github.com/learnweave/backend/internal/platform/dbctx"
	"github.com/learnweave/backend/internal/platform/logger"
)

type UsageLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *domain.UsageLog) (*domain.UsageLog, error)
	CountByUserAndAction(ctx context.Context, tx *gorm.DB, userID uuid.UUID, action string) (int64, error)
}

type usageLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUsageLogRepo(db *gorm.DB, baseLog *logger.Logger) UsageLogRepo {
	return &usageLogRepo{db: db, log: baseLog.With("repo", "UsageLogRepo")}
}

func (r *usageLogRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.UsageLog) (*domain.UsageLog, error) {
	t := dbctx.Conn(ctx, tx, r.db)
	if row == nil {
		return nil, nil
	}
	if err := t.Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *usageLogRepo) CountByUserAndAction(ctx context.Context, tx *gorm.DB, userID uuid.UUID, action string) (int64, error) {
	t := dbctx.Conn(ctx, tx, r.db)
	var n int64
	if userID == uuid.Nil || action == "" {
		return 0, nil
	}
	if err := t.Model(&domain.UsageLog{}).
		Where("user_id = ? AND action = ?", userID, action).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
